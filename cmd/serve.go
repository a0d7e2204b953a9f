package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"entangled/internal/config"
	"entangled/internal/relay"
	"entangled/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "中継サーバーを起動する",
	Example: `  entangled serve
  entangled serve --host 127.0.0.1 --port 8080
  PORT=8080 entangled serve`,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().String("host", d.Server.Host, "サーバーのホスト")
	cmd.Flags().Int("port", d.Server.Port, "サーバーのポート")
	cmd.Flags().String("assets", d.Assets.Dir, "/static で配信するディレクトリ")
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := newLogger()

	// 設定を読み込む
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// 中継とサーバーを作成
	r := relay.New(cfg.InitialParameters(), log)
	srv, err := server.New(cfg, r, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// サーバーを起動
	log.Info("Entangled サーバーを起動します", "addr", cfg.ServerAddress())
	return srv.Start(ctx)
}
