// Package pipeline は CLI から呼び出されるアプリケーション工程を束ねます。
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-wrap-kit/internal/api"
	"github.com/shouni/go-wrap-kit/internal/config"
	"github.com/shouni/go-wrap-kit/pkg/domain"
	"github.com/shouni/go-wrap-kit/pkg/editor"
	"github.com/shouni/go-wrap-kit/pkg/publisher"
	"github.com/shouni/go-wrap-kit/pkg/runner"
	"github.com/shouni/go-wrap-kit/pkg/workflow"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"google.golang.org/genai"
)

const defaultGeminiTemperature = float32(0.2)

// AppContext は、アプリケーション実行に必要な共通コンポーネントを保持するのだ。
type AppContext struct {
	Config  *config.Config
	Builder *workflow.Builder
	Reader  remoteio.InputReader
	Writer  remoteio.OutputWriter
}

// ExecuteExport は、デザインを読み込み、テクスチャ一式を書き出して保存するのだ。
func ExecuteExport(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	state, err := loadDesign(ctx, appCtx.Reader, cfg.Options.InputFile)
	if err != nil {
		return err
	}

	// --- Phase 1: 合成 ---
	slog.Info("Phase 1: テクスチャ合成を開始するのだ...", "design", state.Meta.Name)
	exportRunner, err := appCtx.Builder.BuildExportRunner()
	if err != nil {
		return err
	}

	result, err := exportRunner.Run(ctx, state)
	if err != nil {
		return fmt.Errorf("テクスチャの書き出しに失敗したのだ: %w", err)
	}

	// --- Phase 2: 保存 ---
	slog.Info("Phase 2: 成果物の保存を開始するのだ...")
	pub, err := appCtx.Builder.BuildPublisher()
	if err != nil {
		return err
	}

	published, err := pub.Publish(ctx, *result, publisher.Options{OutputDir: outputDir(cfg)})
	if err != nil {
		return fmt.Errorf("成果物の保存に失敗したのだ: %w", err)
	}

	slog.Info("書き出しが完了したのだ！",
		"texture", published.TexturePath,
		"thumbnail", published.ThumbnailPath,
		"snapshot", published.SnapshotPath,
		"share_url", published.ShareURL)
	return nil
}

// ExecutePreview は、3Dビューア向けの WebP プレビューを生成して保存するのだ。
// --panel が指定された場合はパネル単体、未指定の場合はテクスチャ全体を描画する。
func ExecutePreview(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	state, err := loadDesign(ctx, appCtx.Reader, cfg.Options.InputFile)
	if err != nil {
		return err
	}

	previewRunner, err := appCtx.Builder.BuildPreviewRunner()
	if err != nil {
		return err
	}

	var data []byte
	fileName := "preview.webp"
	if panel := cfg.Options.PanelName; panel != "" {
		data, err = previewRunner.RenderPanelWebP(ctx, state, panel)
		fileName = previewFileName(panel)
	} else {
		data, err = previewRunner.RenderTextureWebP(ctx, state)
	}
	if err != nil {
		return fmt.Errorf("プレビューの生成に失敗したのだ: %w", err)
	}

	destDir, err := publisher.ResolveOutputPath(outputDir(cfg), publisher.DesignDirName(state.Meta.Name))
	if err != nil {
		return err
	}
	outputPath, err := publisher.ResolveOutputPath(destDir, fileName)
	if err != nil {
		return err
	}

	if err := appCtx.Writer.Write(ctx, outputPath, bytes.NewReader(data), "image/webp"); err != nil {
		return fmt.Errorf("プレビューの保存に失敗したのだ: %w", err)
	}

	slog.Info("プレビューが完成したのだ！", "path", outputPath, "bytes", len(data))
	return nil
}

// ExecuteGenerate は、AI背景を生成してデザインへ反映し、更新後のスナップショットを保存するのだ。
func ExecuteGenerate(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	snap, err := loadSnapshot(ctx, appCtx.Reader, cfg.Options.InputFile)
	if err != nil {
		return err
	}
	store := editor.NewStore(snap)

	genRunner, err := appCtx.Builder.BuildGenerateRunner(store)
	if err != nil {
		return err
	}

	slog.Info("AI背景生成を開始するのだ！",
		"prompt", cfg.Options.Prompt,
		"panels", cfg.Options.Panels,
		"unified", cfg.Options.Unified)

	results, err := genRunner.Run(ctx, runner.GenerateRequest{
		Prompt:     cfg.Options.Prompt,
		PanelNames: cfg.Options.Panels,
		Unified:    cfg.Options.Unified,
		Seed:       cfg.Options.Seed,
	})
	if err != nil {
		return fmt.Errorf("AI背景の生成に失敗したのだ: %w", err)
	}

	// 反映済みのスナップショットを保存する
	updated := store.Snapshot()
	data, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return fmt.Errorf("スナップショットのエンコードに失敗しました: %w", err)
	}

	destDir, err := publisher.ResolveOutputPath(outputDir(cfg), publisher.DesignDirName(updated.Meta.Name))
	if err != nil {
		return err
	}
	outputPath, err := publisher.ResolveOutputPath(destDir, "snapshot.json")
	if err != nil {
		return err
	}

	if err := appCtx.Writer.Write(ctx, outputPath, bytes.NewReader(data), "application/json; charset=utf-8"); err != nil {
		return fmt.Errorf("スナップショットの保存に失敗したのだ: %w", err)
	}

	slog.Info("背景の生成と反映が完了したのだ！", "generated", len(results), "snapshot", outputPath)
	return nil
}

// ExecuteServe は、エディタ向けの HTTP API サーバーを起動するのだ。
func ExecuteServe(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	router, err := api.NewRouter(appCtx.Builder)
	if err != nil {
		return fmt.Errorf("APIルーターの初期化に失敗しました: %w", err)
	}

	addr := ":" + cfg.Port
	slog.Info("APIサーバーを起動するのだ！", "addr", addr)
	if err := router.Run(addr); err != nil {
		return fmt.Errorf("APIサーバーの起動に失敗したのだ: %w", err)
	}
	return nil
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、アプリケーションコンテキストを初期化して返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	timeout := cfg.Options.HTTPTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	httpClient := httpkit.New(timeout)

	// APIキーがあるときだけ AI クライアントを初期化する（書き出しだけなら不要なのだ）
	var aiClient gemini.GenerativeModel
	if cfg.GeminiAPIKey != "" {
		var err error
		aiClient, err = initializeAIClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create ai client: %w", err)
		}
	}

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	builder, err := workflow.NewBuilder(buildWorkflowConfig(cfg), httpClient, aiClient, reader, writer)
	if err != nil {
		return nil, fmt.Errorf("ワークフロービルダーの初期化に失敗しました: %w", err)
	}

	return &AppContext{
		Config:  cfg,
		Builder: builder,
		Reader:  reader,
		Writer:  writer,
	}, nil
}

// buildWorkflowConfig は環境設定と CLI フラグからエンジン設定を組み立てるのだ。
// フラグが明示された項目は環境変数より優先される。
func buildWorkflowConfig(cfg *config.Config) workflow.Config {
	wcfg := workflow.NewConfig(cfg.GeminiAPIKey)
	wcfg.ImageModel = cfg.GeminiImageModel
	wcfg.FetchRPS = cfg.FetchRPS
	wcfg.OutputDir = cfg.OutputDir
	wcfg.ShareBaseURL = cfg.ShareBaseURL
	wcfg.ThumbnailSize = cfg.ThumbnailSize

	if cfg.Options.ImageModel != "" {
		wcfg.ImageModel = cfg.Options.ImageModel
	}
	if cfg.Options.ThumbnailSize > 0 {
		wcfg.ThumbnailSize = cfg.Options.ThumbnailSize
	}
	if cfg.Options.HTTPTimeout > 0 {
		wcfg.RequestTimeout = cfg.Options.HTTPTimeout
	}
	return wcfg
}

// initializeAIClient は gemini クライアントを初期化します。
func initializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}

	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// loadSnapshot はデザインスナップショット JSON を読み込んで復元するのだ。
func loadSnapshot(ctx context.Context, reader remoteio.InputReader, path string) (*domain.EditorSnapshot, error) {
	if path == "" {
		return nil, fmt.Errorf("デザインファイル（--input）を指定してほしいのだ")
	}

	rc, err := reader.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("デザインファイル '%s' の読み込みに失敗しました: %w", path, err)
	}
	defer rc.Close()

	snap, err := domain.DecodeSnapshot(rc)
	if err != nil {
		return nil, fmt.Errorf("デザインファイル '%s' のデコードに失敗しました: %w", path, err)
	}
	return snap, nil
}

// loadDesign はスナップショットを読み込み、編集状態に展開するのだ。
func loadDesign(ctx context.Context, reader remoteio.InputReader, path string) (domain.EditorState, error) {
	snap, err := loadSnapshot(ctx, reader, path)
	if err != nil {
		return domain.EditorState{}, err
	}
	return snap.State(), nil
}

// outputDir はフラグ優先で保存先ディレクトリを解決するのだ。
func outputDir(cfg *config.Config) string {
	if cfg.Options.OutputDir != "" {
		return cfg.Options.OutputDir
	}
	return cfg.OutputDir
}

// previewFileName はパネル名からプレビューのファイル名を組み立てます。
func previewFileName(panelName string) string {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(panelName), " ", "_"))
	return fmt.Sprintf("preview_%s.webp", normalized)
}
