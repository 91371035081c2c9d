package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-wrap-kit/internal/config"
	"github.com/shouni/go-wrap-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// generateCmd は、AIによる背景画像の生成と編集状態への反映を実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "AIに車両ラッピングの背景画像を生成させますなのだ。",
	Long: `プロンプトを基に Gemini へ背景画像の生成を依頼し、対象面の背景レイヤーと
画像ライブラリを更新した新しいスナップショットを保存するのだ。
--unified を付けると1枚の背景を対象面すべてで共有するのだよ。`,
	PreRunE: preRunGenerateE,
	RunE:    generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 必須チェック
	if opts.InputFile == "" {
		return fmt.Errorf("デザインファイル（--input）を指定してほしいのだ")
	}
	if opts.Prompt == "" {
		return fmt.Errorf("プロンプト（--prompt）を指定してほしいのだ")
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.GeminiImageModel = opts.ImageModel
	cfg.Options = opts

	slog.Info("AI背景生成パイプラインを起動するのだ！",
		"image_model", cfg.GeminiImageModel,
		"panels", opts.Panels,
		"unified", opts.Unified)

	// 3. 更新した config を考慮しつつパイプラインを実行するのだ
	if err := pipeline.ExecuteGenerate(ctx, cfg); err != nil {
		return fmt.Errorf("背景生成パイプラインの実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！")
	return nil
}
