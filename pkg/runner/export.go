// Package runner は書き出し・プレビュー・AI生成のユースケースを統べるオーケストレーターです。
// エンジンやローダーはインターフェース越しに受け取り、手順の順序だけに責任を持つのだ。
package runner

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/shouni/go-wrap-kit/pkg/compositor"
	"github.com/shouni/go-wrap-kit/pkg/domain"
	"github.com/shouni/go-wrap-kit/pkg/layer"
)

// Engine は合成エンジンの操作面です。*compositor.Engine が満たします。
type Engine interface {
	Composite(ctx context.Context, panels domain.Panels) (*image.NRGBA, error)
	RenderPanel(ctx context.Context, panel domain.Panel) (*image.NRGBA, error)
	RenderThumbnail(ctx context.Context, panels domain.Panels, size int) (*image.NRGBA, error)
}

// Prefetcher は合成前のレイヤー画像の先読みを行います。*loader.ImageLoader が満たします。
type Prefetcher interface {
	Prefetch(ctx context.Context, sources []string) error
}

// ExportResult は1回の書き出しの成果物一式です。
// テクスチャ・サムネイル・スナップショットは全部そろって初めて返るのだ。
type ExportResult struct {
	TexturePNG   []byte
	ThumbnailPNG []byte
	Snapshot     domain.EditorSnapshot
}

// ExportRunner はテクスチャ書き出しのオーケストレーターです。
type ExportRunner struct {
	engine        Engine
	prefetcher    Prefetcher
	thumbnailSize int
}

// NewExportRunner は ExportRunner を初期化します。
func NewExportRunner(engine Engine, prefetcher Prefetcher, thumbnailSize int) (*ExportRunner, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine は必須です")
	}
	if prefetcher == nil {
		return nil, fmt.Errorf("prefetcher は必須です")
	}
	if thumbnailSize <= 0 {
		thumbnailSize = compositor.DefaultThumbnailSize
	}
	return &ExportRunner{engine: engine, prefetcher: prefetcher, thumbnailSize: thumbnailSize}, nil
}

// Run は編集状態からテクスチャ・サムネイル・スナップショットを一括生成します。
func (r *ExportRunner) Run(ctx context.Context, state domain.EditorState) (*ExportResult, error) {
	// 1. サイド連動の反映。検証より先に行うので、LEFT が空でも連動中なら通るのだ
	panels := state.Panels.Clone()
	if state.Settings.LinkedSides {
		copyRightToLeft(panels)
	}

	// 2. 完成状態の検証
	if err := compositor.Validate(panels); err != nil {
		return nil, err
	}

	// 3. レイヤー画像の先読み
	if err := r.prefetcher.Prefetch(ctx, collectSources(panels)); err != nil {
		return nil, fmt.Errorf("レイヤー画像の先読みに失敗しました: %w", err)
	}

	// 4. 連結テクスチャの合成と符号化
	combined, err := r.engine.Composite(ctx, panels)
	if err != nil {
		return nil, err
	}
	texture, err := compositor.EncodePNG(combined)
	if err != nil {
		return nil, err
	}

	// 5. サムネイル
	thumbImg, err := r.engine.RenderThumbnail(ctx, panels, r.thumbnailSize)
	if err != nil {
		return nil, fmt.Errorf("サムネイルの生成に失敗しました: %w", err)
	}
	thumbnail, err := compositor.EncodePNG(thumbImg)
	if err != nil {
		return nil, err
	}

	// 6. スナップショットは連動反映後のパネルで固める
	snapState := state.Clone()
	snapState.Panels = panels
	snapshot := domain.NewSnapshot(snapState)

	slog.Info("書き出しが完了したのだ",
		"design", state.Meta.Name,
		"texture_bytes", len(texture),
		"thumbnail_bytes", len(thumbnail),
	)

	return &ExportResult{
		TexturePNG:   texture,
		ThumbnailPNG: thumbnail,
		Snapshot:     snapshot,
	}, nil
}

// copyRightToLeft は RIGHT のレイヤー一式を LEFT へ複製します。
// 配置枠は LEFT のテンプレート寸法に合わせて換算するのだ。
func copyRightToLeft(panels domain.Panels) {
	rightIdx := panels.IndexByName(domain.PanelNameRight)
	leftIdx := panels.IndexByName(domain.PanelNameLeft)
	if rightIdx < 0 || leftIdx < 0 {
		return
	}
	right := panels[rightIdx]
	left := &panels[leftIdx]

	scaleX, scaleY := 1.0, 1.0
	if right.TemplateWidth > 0 && right.TemplateHeight > 0 && left.TemplateWidth > 0 && left.TemplateHeight > 0 {
		scaleX = float64(left.TemplateWidth) / float64(right.TemplateWidth)
		scaleY = float64(left.TemplateHeight) / float64(right.TemplateHeight)
	}

	left.BackgroundColor = right.BackgroundColor
	left.BackgroundImage = rescaleLayer(right.BackgroundImage, scaleX, scaleY)
	left.Logo = rescaleLayer(right.Logo, scaleX, scaleY)
	left.Overlay = right.Overlay

	slog.Info("サイド連動により RIGHT のレイヤーを LEFT へ複製したのだ")
}

func rescaleLayer(src *domain.ImageLayer, scaleX, scaleY float64) *domain.ImageLayer {
	if src == nil {
		return nil
	}
	copied := src.Clone()
	copied.Box = domain.Box{
		X:      src.Box.X * scaleX,
		Y:      src.Box.Y * scaleY,
		Width:  src.Box.Width * scaleX,
		Height: src.Box.Height * scaleY,
	}
	return copied
}

func collectSources(panels domain.Panels) []string {
	var sources []string
	for _, panel := range panels {
		sources = append(sources, layer.Sources(panel)...)
	}
	return sources
}
