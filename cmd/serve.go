package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-wrap-kit/internal/config"
	"github.com/shouni/go-wrap-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// serveCmd は、合成・プレビュー・背景生成の HTTP API サーバーを起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTP API サーバーを起動しますなのだ。",
	Long: `ブラウザの 3D コンフィギュレータから呼び出される HTTP API を起動するのだ。
GEMINI_API_KEY が未設定でも起動はできて、その場合は背景生成のルートだけが
利用できなくなるのだよ。ポートは環境変数 PORT で変更できるのだ。`,
	RunE: serveCommand,
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("APIサーバーを準備するのだ！", "port", cfg.Port)

	// 2. サーバーを起動するのだ（停止するまで戻らない）
	if err := pipeline.ExecuteServe(ctx, cfg); err != nil {
		return fmt.Errorf("APIサーバーの実行中にエラーが発生したのだ: %w", err)
	}

	return nil
}
