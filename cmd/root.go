package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-wrap-kit/internal/config"

	"github.com/spf13/cobra"
)

// opts は全サブコマンドで共有されるコマンドラインオプションなのだ。
var opts config.ExportOptions

// rootCmd は wrap-kit CLI の親コマンドなのだ。
var rootCmd = &cobra.Command{
	Use:   "wrap-kit",
	Short: "車両ラッピングのデザインを合成・書き出しするツールなのだ。",
	Long: `編集スナップショット（JSON）を読み込み、6面のパネルを1枚の連結テクスチャへ
合成して PNG・サムネイル・スナップショットとして書き出すツールなのだ。
AI背景の生成、共有QRコードの発行、HTTP API サーバーの起動もここから行うのだよ。`,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- デザイン入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.InputFile, "input", "f", "", "編集スナップショット JSON のパス（ローカル or gs://...）なのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "成果物を保存するディレクトリ（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().IntVar(&opts.ThumbnailSize, "thumbnail-size", config.DefaultThumbnailSize, "サムネイルの最大辺ピクセル数なのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultImageModel, "使用する Gemini 画像モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")

	// --- プレビュー固有設定 ---
	previewCmd.Flags().StringVarP(&opts.PanelName, "panel", "p", "", "1面だけプレビューする場合の面名（FRONT など）なのだ。")

	// --- AI背景生成固有設定 ---
	generateCmd.Flags().StringVar(&opts.Prompt, "prompt", "", "背景のイメージを伝えるプロンプトなのだ。")
	generateCmd.Flags().StringSliceVar(&opts.Panels, "panels", nil, "背景を生成する面名（省略で全面対象）なのだ。")
	generateCmd.Flags().BoolVar(&opts.Unified, "unified", false, "1枚の背景を対象面すべてで共有するのだ。")
	generateCmd.Flags().Int64Var(&opts.Seed, "seed", 0, "生成シード（0以下ならデザイン名から導出）なのだ。")
}

// preRunGenerateE は、AI生成コマンドの実行前に必須の環境変数をチェックするのだ。
func preRunGenerateE(cmd *cobra.Command, args []string) error {
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。AI背景の生成には必須なのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(
		exportCmd,
		previewCmd,
		generateCmd,
		serveCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
