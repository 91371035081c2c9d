package config

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultImageModel    = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout   = 60 * time.Second
	DefaultOutputDir     = "output"
	DefaultThumbnailSize = 512
	DefaultFetchRPS      = 8.0
	DefaultPort          = "8080"
)

// Config はアプリケーション全体の環境設定（APIキーや出力先）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiImageModel string
	OutputDir        string
	ThumbnailSize    int
	FetchRPS         float64
	ShareBaseURL     string
	Port             string

	Options ExportOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		OutputDir:        envutil.GetEnv("WRAP_OUTPUT_DIR", DefaultOutputDir),
		ThumbnailSize:    getEnvInt("WRAP_THUMBNAIL_SIZE", DefaultThumbnailSize),
		FetchRPS:         getEnvFloat("WRAP_FETCH_RPS", DefaultFetchRPS),
		ShareBaseURL:     envutil.GetEnv("WRAP_SHARE_BASE_URL", ""),
		Port:             envutil.GetEnv("PORT", DefaultPort),
	}
	return cfg
}

// ExportOptions は CLI フラグから渡される実行時のパラメータなのだ。
type ExportOptions struct {
	// ソース入力関連
	InputFile string // --input: デザインスナップショット JSON のパス（ローカル or gs://...）
	OutputDir string // --output-dir: 成果物の保存先（ローカル or gs://...）

	// 書き出し・プレビュー関連
	ThumbnailSize int    // --thumbnail-size
	PanelName     string // --panel: パネル単体プレビューの対象（RIGHT, LEFT, ...）

	// AI背景生成関連
	ImageModel string   // --image-model: 画像生成用のGeminiモデル
	Prompt     string   // --prompt: 背景のモチーフ
	Panels     []string // --panels: 生成対象パネル（省略時は全パネル）
	Unified    bool     // --unified: 全パネル共通の背景を1枚だけ生成する
	Seed       int64    // --seed: 再現用シード（0で自動導出）

	// 実行制御
	HTTPTimeout time.Duration // --http-timeout
}

// getEnvInt は整数の環境変数を読み取り、未設定・不正値にはデフォルトを適用するのだ。
func getEnvInt(key string, def int) int {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("環境変数の数値が不正なためデフォルト値を使用します", "key", key, "value", raw)
		return def
	}
	return v
}

// getEnvFloat は小数の環境変数を読み取り、未設定・不正値にはデフォルトを適用するのだ。
func getEnvFloat(key string, def float64) float64 {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("環境変数の数値が不正なためデフォルト値を使用します", "key", key, "value", raw)
		return def
	}
	return v
}
