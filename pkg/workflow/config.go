package workflow

import (
	"time"
)

// デフォルト値の定義なのだ
const (
	DefaultImageModel       = "gemini-3-pro-image-preview"
	DefaultThumbnailSize    = 512
	DefaultFetchRPS         = 8.0
	DefaultFetchBurst       = 4
	DefaultGenerateInterval = 10 * time.Second
	DefaultGenerateBurst    = 2
	DefaultRequestTimeout   = 60 * time.Second
	DefaultStyleSuffix      = "high-resolution vehicle wrap graphic, seamless large-format print quality, bold modern composition, vivid colors, crisp edges, professional automotive livery design"
)

// Config は Go Wrap Kit の各 Runner を動作させるための基本設定なのだ。
type Config struct {
	// --- AI Model Settings ---
	GeminiAPIKey string
	ImageModel   string

	// --- Generation Settings ---
	StyleSuffix      string
	GenerateInterval time.Duration
	GenerateBurst    int

	// --- Fetch Settings ---
	FetchRPS   float64 // レイヤー画像取得のレート（リクエスト/秒）。0以下で無制限
	FetchBurst int

	// --- Storage & Output Settings ---
	OutputDir     string
	ThumbnailSize int
	ShareBaseURL  string

	// --- Timeout & Retries ---
	RequestTimeout time.Duration
}

// NewConfig はデフォルト値で初期化された Config を作成し、必要最小限の値をセットして返すのだ。
func NewConfig(apiKey string) Config {
	cfg := DefaultConfig()
	cfg.GeminiAPIKey = apiKey
	return cfg
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		ImageModel:       DefaultImageModel,
		StyleSuffix:      DefaultStyleSuffix,
		GenerateInterval: DefaultGenerateInterval,
		GenerateBurst:    DefaultGenerateBurst,
		FetchRPS:         DefaultFetchRPS,
		FetchBurst:       DefaultFetchBurst,
		ThumbnailSize:    DefaultThumbnailSize,
		RequestTimeout:   DefaultRequestTimeout,
	}
}
