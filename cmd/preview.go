package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-wrap-kit/internal/config"
	"github.com/shouni/go-wrap-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// previewCmd は、3Dビューア確認用のロスレス WebP プレビューを生成するのだ。
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "デザインの WebP プレビューを生成しますなのだ。",
	Long: `編集スナップショット（JSON）を読み込み、連結テクスチャ全体または指定した
1面だけをロスレス WebP として書き出すのだ。
編集途中の面を確認したいときは --panel で面名を指定するのだよ。`,
	RunE: previewCommand,
}

func previewCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 必須チェック
	if opts.InputFile == "" {
		return fmt.Errorf("デザインファイル（--input）を指定してほしいのだ")
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("プレビュー生成を開始するのだ！",
		"input", opts.InputFile,
		"panel", opts.PanelName)

	// 3. パイプラインを実行するのだ
	if err := pipeline.ExecutePreview(ctx, cfg); err != nil {
		return fmt.Errorf("プレビュー生成中にエラーが発生したのだ: %w", err)
	}

	return nil
}
