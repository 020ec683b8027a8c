package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandDashboard はダッシュボードをマウントし、ゲートの判定結果を表示する。
	CommandDashboard Command = "dashboard"
	// CommandLogin はプロバイダーの認可URLへの遷移を表示する。
	CommandLogin Command = "login"
	// CommandLogout はログアウトを実行する。
	CommandLogout Command = "logout"
	// CommandDevServer は開発用認証サーバーを起動する。
	CommandDevServer Command = "devserver"
	// CommandDemo は組み込みの開発用サーバーに対してログインからログアウトまでを通しで実行する。
	CommandDemo Command = "demo"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandDashboardを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandDashboard
	}

	switch args[0] {
	case "login":
		return CommandLogin
	case "logout":
		return CommandLogout
	case "devserver":
		return CommandDevServer
	case "demo":
		return CommandDemo
	default:
		return CommandDashboard
	}
}
