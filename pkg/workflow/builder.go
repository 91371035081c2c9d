// Package workflow は、ラップ合成の各工程を担う Runner 群の組み立てを担います。
package workflow

import (
	"fmt"
	"time"

	"github.com/shouni/go-wrap-kit/pkg/compositor"
	"github.com/shouni/go-wrap-kit/pkg/editor"
	"github.com/shouni/go-wrap-kit/pkg/loader"
	"github.com/shouni/go-wrap-kit/pkg/publisher"
	"github.com/shouni/go-wrap-kit/pkg/runner"
	"github.com/shouni/go-wrap-kit/pkg/studio"

	"github.com/patrickmn/go-cache"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"golang.org/x/time/rate"
)

const (
	defaultCacheExpiration = 5 * time.Minute
	cacheCleanupInterval   = 15 * time.Minute
	defaultTTL             = 5 * time.Minute
)

// Builder はワークフローの各工程を担う Runner 群を構築・管理するのだ。
type Builder struct {
	cfg        Config
	httpClient httpkit.ClientInterface
	aiClient   gemini.GenerativeModel
	reader     remoteio.InputReader
	writer     remoteio.OutputWriter
	engine     *compositor.Engine
	imgLoader  *loader.ImageLoader
	studio     *studio.Studio
}

// NewBuilder は Config と外部依存を基に新しい Builder を作成するのだ。
// aiClient は省略可能で、nil の場合は背景生成系の Runner だけが構築できなくなります。
func NewBuilder(cfg Config, httpClient httpkit.ClientInterface, aiClient gemini.GenerativeModel, reader remoteio.InputReader, writer remoteio.OutputWriter) (*Builder, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient は必須です")
	}
	if reader == nil {
		return nil, fmt.Errorf("reader は必須です")
	}
	if writer == nil {
		return nil, fmt.Errorf("writer は必須です")
	}

	// 1. レイヤー画像ローダーの初期化（デコード済みキャッシュ + レート制御）
	imgLoader, err := initializeLoader(cfg, httpClient, reader)
	if err != nil {
		return nil, fmt.Errorf("ImageLoader の初期化に失敗しました: %w", err)
	}

	// 2. 合成エンジンの初期化
	engine, err := compositor.NewEngine(imgLoader)
	if err != nil {
		return nil, fmt.Errorf("合成エンジンの初期化に失敗しました: %w", err)
	}

	// 3. AI背景スタジオの初期化（aiClient がある場合のみ）
	var backgroundStudio *studio.Studio
	if aiClient != nil {
		backgroundStudio, err = initializeStudio(cfg, httpClient, aiClient, reader)
		if err != nil {
			return nil, err
		}
	}

	return &Builder{
		cfg:        cfg,
		httpClient: httpClient,
		aiClient:   aiClient,
		reader:     reader,
		writer:     writer,
		engine:     engine,
		imgLoader:  imgLoader,
		studio:     backgroundStudio,
	}, nil
}

// Config は Builder に設定された構成のコピーを返します。
func (b *Builder) Config() Config {
	return b.cfg
}

// BuildExportRunner はテクスチャ書き出しを担当する Runner を作成するのだ。
func (b *Builder) BuildExportRunner() (ExportRunner, error) {
	r, err := runner.NewExportRunner(b.engine, b.imgLoader, b.cfg.ThumbnailSize)
	if err != nil {
		return nil, fmt.Errorf("ExportRunner の作成に失敗しました: %w", err)
	}
	return r, nil
}

// BuildPreviewRunner は WebP プレビュー生成を担当する Runner を作成するのだ。
func (b *Builder) BuildPreviewRunner() (PreviewRunner, error) {
	r, err := runner.NewPreviewRunner(b.engine, b.imgLoader)
	if err != nil {
		return nil, fmt.Errorf("PreviewRunner の作成に失敗しました: %w", err)
	}
	return r, nil
}

// BuildGenerateRunner はAI背景生成を担当する Runner を作成するのだ。
// 生成結果は渡された store へ反映されます。
func (b *Builder) BuildGenerateRunner(store *editor.Store) (GenerateRunner, error) {
	if b.studio == nil {
		return nil, fmt.Errorf("aiClient は必須です (GEMINI_API_KEY を設定してください)")
	}

	r, err := runner.NewGenerateRunner(store, b.studio)
	if err != nil {
		return nil, fmt.Errorf("GenerateRunner の作成に失敗しました: %w", err)
	}
	return r, nil
}

// BuildPublisher は成果物のパブリッシュを担当する WrapPublisher を作成するのだ。
func (b *Builder) BuildPublisher() (Publisher, error) {
	pub, err := publisher.NewWrapPublisher(b.writer, b.cfg.ShareBaseURL)
	if err != nil {
		return nil, fmt.Errorf("WrapPublisher の作成に失敗しました: %w", err)
	}
	return pub, nil
}

// initializeLoader はレイヤー画像ローダーを初期化します。
func initializeLoader(cfg Config, httpClient httpkit.ClientInterface, reader remoteio.InputReader) (*loader.ImageLoader, error) {
	imgCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)

	// FetchRPS が 0 以下のときはレート制御なしで動作させる
	var limiter *rate.Limiter
	if cfg.FetchRPS > 0 {
		burst := cfg.FetchBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.FetchRPS), burst)
	}

	return loader.NewImageLoader(httpClient, reader, imgCache, defaultTTL, limiter)
}

// initializeStudio は gemini-image-kit を組み立てて背景生成スタジオを初期化します。
func initializeStudio(cfg Config, httpClient httpkit.ClientInterface, aiClient gemini.GenerativeModel, reader remoteio.InputReader) (*studio.Studio, error) {
	imgCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)
	core, err := imagekit.NewGeminiImageCore(aiClient, reader, httpClient, imgCache, defaultTTL)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCoreの初期化に失敗しました: %w", err)
	}

	imgGen, err := imagekit.NewGeminiGenerator(core, aiClient, cfg.ImageModel)
	if err != nil {
		return nil, fmt.Errorf("GeminiGeneratorの初期化に失敗しました: %w", err)
	}

	burst := cfg.GenerateBurst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Every(cfg.GenerateInterval), burst)

	return studio.New(imgGen, studio.NewPromptBuilder(cfg.StyleSuffix), limiter)
}
