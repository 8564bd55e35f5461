package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はロゴクリーンアップのワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandBootstrap は管理者ユーザーと既定の分野を作成して終了することを示す。
	CommandBootstrap Command = "bootstrap"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "bootstrap":
		return CommandBootstrap
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
