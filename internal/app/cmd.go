package app

import (
	"io"

	"github.com/spf13/cobra"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// runner はサブコマンドの実処理。テストで差し替える。
type runner struct {
	serve       func(w io.Writer, logLevel string) error
	worker      func(w io.Writer, logLevel string) error
	migrate     func(w io.Writer, logLevel string) error
	healthcheck func(port string) error
}

func defaultRunner() runner {
	return runner{
		serve:       runServe,
		worker:      runWorker,
		migrate:     runMigrate,
		healthcheck: runHealthcheck,
	}
}

// NewRootCommand はbakeryのルートコマンドを生成する。
// サブコマンドを省略した場合はserveとして起動する。
func NewRootCommand(w io.Writer) *cobra.Command {
	return newRootCommand(w, defaultRunner())
}

func newRootCommand(w io.Writer, r runner) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "bakery",
		Short:         "Panadería storefront server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.serve(w, logLevel)
		},
	}
	root.SetOut(w)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error). Overrides LOG_LEVEL")

	root.AddCommand(
		&cobra.Command{
			Use:   string(CommandServe),
			Short: "Start the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.serve(w, logLevel)
			},
		},
		&cobra.Command{
			Use:   string(CommandWorker),
			Short: "Run background jobs (expired session cleanup)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.worker(w, logLevel)
			},
		},
		&cobra.Command{
			Use:   string(CommandMigrate),
			Short: "Apply all pending database migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.migrate(w, logLevel)
			},
		},
		newHealthcheckCommand(r),
	)
	return root
}

// newHealthcheckCommand はフル初期化をスキップする軽量サブコマンドを生成する。
func newHealthcheckCommand(r runner) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Probe the local /health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.healthcheck(port)
		},
	}
	cmd.Flags().StringVar(&port, "port", envOr("SERVER_PORT", "8080"), "Server port to probe")
	return cmd
}
