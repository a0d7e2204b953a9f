package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"entangled/internal/assets"
	"entangled/internal/config"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch-libs",
	Short: "フロントエンド用のJavaScriptライブラリを取得する",
	Long: `Three.js と GPUComputationRenderer.js を <assets.dir>/js に保存します。
保存したファイルは serve 実行中に /static/js/ から配信されます。`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		log := newLogger()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		f := assets.NewFetcher(cfg.Assets.Dir, log)
		if err := f.Fetch(ctx, assets.DefaultLibraries()); err != nil {
			return err
		}

		log.Info("全てのライブラリを取得しました", "dir", f.JSDir())
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("assets", config.Default().Assets.Dir, "保存先ディレクトリ")
}
