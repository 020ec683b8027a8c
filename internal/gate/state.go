package gate

import "github.com/hitoshi/sessiongate/internal/model"

// Phase はセッションゲートの判定状態を表す。
type Phase string

const (
	// PhaseLoading は判定中を示す。
	PhaseLoading Phase = "loading"
	// PhaseAuthenticated は認証済みクエリが成功したことを示す。
	PhaseAuthenticated Phase = "authenticated"
	// PhaseUnauthenticated はセッションの有効性を確認できなかったことを示す。
	PhaseUnauthenticated Phase = "unauthenticated"
)

// LogoutFailedAnnotation はログアウト失敗時にビューへ表示する注記。
const LogoutFailedAnnotation = "Logout failed"

// State はゲートの状態のスナップショット。
// マウント中のみ保持され、ゲートに入るたびに再計算される。
type State struct {
	Phase Phase

	// User はPhaseAuthenticatedの場合のみ設定される。
	User *model.UserIdentity
	// Public は公開リソースの取得に成功した場合のみ設定される。認証判定には影響しない。
	Public *model.PublicResource
	// PublicErr は公開リソースの取得失敗理由。ユーザー向けの認証状態には表れない。
	PublicErr error

	// Reason はPhaseUnauthenticatedの理由。
	Reason error

	// Annotation はログアウト失敗などの注記。Phaseは変更しない。
	Annotation string
}

// Loading は判定中かどうかを返す。
func (s State) Loading() bool {
	return s.Phase == PhaseLoading
}

// Authenticated は認証済みかどうかを返す。
func (s State) Authenticated() bool {
	return s.Phase == PhaseAuthenticated && s.User != nil
}
