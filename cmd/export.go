package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-wrap-kit/internal/config"
	"github.com/shouni/go-wrap-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// exportCmd は、編集スナップショットから成果物一式を書き出すのだ。
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "デザインを合成してテクスチャ一式を書き出しますなのだ。",
	Long: `編集スナップショット（JSON）を読み込み、6面のパネルを検証・合成して
連結テクスチャ PNG・サムネイル・スナップショットを保存するのだ。
共有ベースURLが設定されていれば QR コードも一緒に保存されるのだよ。`,
	RunE: exportCommand,
}

func exportCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 必須チェック
	if opts.InputFile == "" {
		return fmt.Errorf("デザインファイル（--input）を指定してほしいのだ")
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("テクスチャ書き出しパイプラインを起動するのだ！",
		"input", opts.InputFile,
		"output_dir", opts.OutputDir,
		"thumbnail_size", opts.ThumbnailSize)

	// 3. 更新した config を考慮しつつパイプラインを実行するのだ
	if err := pipeline.ExecuteExport(ctx, cfg); err != nil {
		return fmt.Errorf("書き出しパイプラインの実行中にエラーが発生したのだ: %w", err)
	}

	return nil
}
