// Package studio は AI によるラッピング背景画像の生成を担います。
// gemini-image-kit のジェネレーターを包み、面ごとのプロンプト組み立てと
// レート制御つきの並列生成をひとつの窓口にまとめるのだ。
package studio

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-wrap-kit/pkg/domain"
)

const (
	// defaultGenerateInterval は生成リクエストの既定間隔です。
	defaultGenerateInterval = 10 * time.Second
	// defaultGenerateBurst は連続で許容するリクエスト数です。
	defaultGenerateBurst = 2
	// sharedAspectRatio は全面共有背景の生成比率です。側面の横長に合わせるのだ。
	sharedAspectRatio = "16:9"
)

// PanelRequest は1面ぶんの背景生成要求です。
type PanelRequest struct {
	PanelName string
	Prompt    string
	Seed      int64 // 0 以下ならデザイン名と面名から決定論的に導出される
}

// GeneratedBackground は生成された背景1枚の結果です。
// DataURI はそのまま背景レイヤーのソースとして使える形式なのだ。
type GeneratedBackground struct {
	PanelName string
	DataURI   string
	MimeType  string
	UsedSeed  int64
	Prompt    string
}

// Studio は背景画像生成の窓口です。
type Studio struct {
	generator imagekit.ImageGenerator
	builder   *PromptBuilder
	limiter   *rate.Limiter
}

// New は Studio を初期化します。builder と limiter は nil を許容し、既定値で補われます。
func New(generator imagekit.ImageGenerator, builder *PromptBuilder, limiter *rate.Limiter) (*Studio, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator は必須です")
	}
	if builder == nil {
		builder = NewPromptBuilder("")
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(defaultGenerateInterval), defaultGenerateBurst)
	}
	return &Studio{generator: generator, builder: builder, limiter: limiter}, nil
}

// GenerateBackgrounds は複数面の背景を並列生成します。
// 1面でも失敗した場合は全体をエラーとし、部分的な結果は返しません。
func (s *Studio) GenerateBackgrounds(ctx context.Context, designName string, requests []PanelRequest) ([]GeneratedBackground, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	slog.Info("背景画像の並列生成を開始するのだ", "design", designName, "count", len(requests))

	results := make([]GeneratedBackground, len(requests))
	g, gctx := errgroup.WithContext(ctx)

	for i, req := range requests {
		i, req := i, req // ゴルーチンのクロージャ対策なのだ
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return fmt.Errorf("リミッター待機中にエラーが発生しました: %w", err)
			}

			generated, err := s.generateOne(gctx, designName, req)
			if err != nil {
				return fmt.Errorf("パネル %q の背景生成に失敗しました: %w", req.PanelName, err)
			}
			results[i] = *generated
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("背景画像の生成が完了したのだ", "design", designName, "count", len(results))
	return results, nil
}

// GenerateSharedBackground は全面で共有する1枚の背景を生成します。
// 参照画像URLを渡すと、既存素材の画風に寄せた生成になるのだ。
func (s *Studio) GenerateSharedBackground(ctx context.Context, designName, basePrompt string, referenceURLs []string) (*GeneratedBackground, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("リミッター待機中にエラーが発生しました: %w", err)
	}

	prompt, seed := s.builder.BuildSharedPrompt(designName, basePrompt)

	slog.Info("共有背景の生成を開始するのだ", "design", designName, "ref_count", len(referenceURLs))

	resp, err := s.generator.GenerateMangaPage(ctx, imagedom.ImagePageRequest{
		Prompt:         prompt,
		NegativePrompt: NegativeBackgroundPrompt,
		AspectRatio:    sharedAspectRatio,
		Seed:           &seed,
		ReferenceURLs:  referenceURLs,
	})
	if err != nil {
		return nil, fmt.Errorf("共有背景の生成に失敗しました: %w", err)
	}

	return &GeneratedBackground{
		DataURI:  toDataURI(resp.MimeType, resp.Data),
		MimeType: resp.MimeType,
		UsedSeed: resp.UsedSeed,
		Prompt:   prompt,
	}, nil
}

func (s *Studio) generateOne(ctx context.Context, designName string, req PanelRequest) (*GeneratedBackground, error) {
	// 構図と比率はテンプレート定義（サイズの正）から引くのだ
	panel, ok := domain.DefaultPanels().ByName(req.PanelName)
	if !ok {
		return nil, fmt.Errorf("未知のパネル名です: %q", req.PanelName)
	}

	prompt, derivedSeed := s.builder.BuildBackgroundPrompt(designName, req.Prompt, panel)
	seed := req.Seed
	if seed <= 0 {
		seed = derivedSeed
	}

	resp, err := s.generator.GenerateMangaPanel(ctx, imagedom.ImageGenerationRequest{
		Prompt:         prompt,
		NegativePrompt: NegativeBackgroundPrompt,
		AspectRatio:    aspectRatioOf(panel),
		Seed:           &seed,
	})
	if err != nil {
		return nil, err
	}

	return &GeneratedBackground{
		PanelName: panel.Name,
		DataURI:   toDataURI(resp.MimeType, resp.Data),
		MimeType:  resp.MimeType,
		UsedSeed:  resp.UsedSeed,
		Prompt:    prompt,
	}, nil
}

// toDataURI は生成結果を背景レイヤーのソースとして使える data URI に包みます。
func toDataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
