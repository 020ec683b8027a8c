package view

// Root はルートパスのビュー。
type Root struct {
	navigator     Navigator
	dashboardPath string
}

// NewRoot はRootを生成する。
func NewRoot(navigator Navigator, dashboardPath string) *Root {
	return &Root{navigator: navigator, dashboardPath: dashboardPath}
}

// Enter はセッションを問い合わせずにダッシュボードへ遷移する。
// 未認証の場合はダッシュボードのゲートがログインへ送り返す。
func (r *Root) Enter() {
	r.navigator.GoTo(r.dashboardPath)
}
