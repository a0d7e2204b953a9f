// Package cmd はentangledコマンドの実装です
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"entangled/internal/config"
)

var (
	cfgFile string
	verbose int
)

var rootCmd = &cobra.Command{
	Use:   "entangled",
	Short: "Entangled - パーティクル表示のパラメータ中継サーバー",
	Long: `
Entangled は接続中の全ブラウザでパーティクル表示のパラメータを共有する中継サーバーです。

サブコマンドを省略した場合は serve と同じ動作になります。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute はルートコマンドを実行する
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "設定ファイル (YAML)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "詳細ログ (-vv でさらに詳細)")

	addServeFlags(rootCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(configCmd)
}

// newLogger は標準のlogパッケージへ出力するlogrを返す
func newLogger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			log.Println(prefix, args)
			return
		}
		log.Println(args)
	}, funcr.Options{Verbosity: verbose})
}

// loadConfig は設定ファイル・環境変数・フラグから設定を組み立てる
//
// 優先順位は フラグ > 環境変数 > 設定ファイル > デフォルト値。
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.NewViper()

	if err := config.ReadFile(v, cfgFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	return config.FromViper(v)
}

// bindFlags はコマンドにあるフラグを設定キーへ結びつける
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	keys := map[string]string{
		"host":   "server.host",
		"port":   "server.port",
		"assets": "assets.dir",
	}
	for name, key := range keys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("フラグ %s の登録に失敗: %w", name, err)
		}
	}
	return nil
}
