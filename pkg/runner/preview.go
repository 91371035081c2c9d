package runner

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/HugoSmits86/nativewebp"

	"github.com/shouni/go-wrap-kit/pkg/compositor"
	"github.com/shouni/go-wrap-kit/pkg/domain"
	"github.com/shouni/go-wrap-kit/pkg/layer"
)

// PreviewRunner は 3D ビューアへ渡すプレビュー画像を生成します。
// 転送量を抑えるため、成果物はロスレス WebP で返すのだ。
type PreviewRunner struct {
	engine     Engine
	prefetcher Prefetcher
}

// NewPreviewRunner は PreviewRunner を初期化します。
func NewPreviewRunner(engine Engine, prefetcher Prefetcher) (*PreviewRunner, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine は必須です")
	}
	if prefetcher == nil {
		return nil, fmt.Errorf("prefetcher は必須です")
	}
	return &PreviewRunner{engine: engine, prefetcher: prefetcher}, nil
}

// RenderPanelWebP は1面だけをテンプレート原寸で描いて WebP に包みます。
// 編集途中の面も確認できるよう、完成状態の検証は行いません。
func (r *PreviewRunner) RenderPanelWebP(ctx context.Context, state domain.EditorState, panelName string) ([]byte, error) {
	idx := state.Panels.IndexByName(panelName)
	if idx < 0 {
		return nil, fmt.Errorf("パネルが見つかりません: %q", panelName)
	}
	panel := state.Panels[idx]

	if err := r.prefetcher.Prefetch(ctx, layer.Sources(panel)); err != nil {
		return nil, fmt.Errorf("レイヤー画像の先読みに失敗しました: %w", err)
	}

	img, err := r.engine.RenderPanel(ctx, panel)
	if err != nil {
		return nil, err
	}
	return encodeWebP(img)
}

// RenderTextureWebP は連結テクスチャ全体をプレビュー用に生成します。
// 書き出しと同じ経路（サイド連動 → 検証 → 合成）を通るのだ。
func (r *PreviewRunner) RenderTextureWebP(ctx context.Context, state domain.EditorState) ([]byte, error) {
	panels := state.Panels.Clone()
	if state.Settings.LinkedSides {
		copyRightToLeft(panels)
	}
	if err := compositor.Validate(panels); err != nil {
		return nil, err
	}

	if err := r.prefetcher.Prefetch(ctx, collectSources(panels)); err != nil {
		return nil, fmt.Errorf("レイヤー画像の先読みに失敗しました: %w", err)
	}

	img, err := r.engine.Composite(ctx, panels)
	if err != nil {
		return nil, err
	}
	return encodeWebP(img)
}

// encodeWebP はロスレス WebP に符号化します。
func encodeWebP(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, &compositor.EncodingError{Format: "webp", Err: err}
	}
	return buf.Bytes(), nil
}
