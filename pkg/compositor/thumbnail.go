package compositor

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"

	"github.com/shouni/go-wrap-kit/pkg/domain"
)

// DefaultThumbnailSize はサムネイルの既定の一辺ピクセル数です。
const DefaultThumbnailSize = 512

// RenderThumbnail は代表パネル1面を size×size の正方形へ cover フィットで描画します。
//
// 代表パネルは RIGHT を優先し、無ければ LEFT、それも無ければ全体合成画像を
// そのまま正方形に切り出します。サムネイルはデザイン内容を見せるためのものなので、
// エッジマスクは意図的に描きません。
func (e *Engine) RenderThumbnail(ctx context.Context, panels domain.Panels, size int) (*image.NRGBA, error) {
	if size <= 0 {
		size = DefaultThumbnailSize
	}

	panel, ok := representativePanel(panels)
	if !ok {
		slog.Info("代表パネルが無いため全体合成をサムネイルにするのだ", "size", size)
		combined, err := e.Composite(ctx, panels)
		if err != nil {
			return nil, err
		}
		return imaging.Fill(combined, size, size, imaging.Center, imaging.Lanczos), nil
	}

	// パネル全体を単一スケールで cover フィットし、中央合わせで切り出すのだ。
	// 枠座標の変換もこの単一スケールに従う（帯合成の軸別スケールとはここが違う）。
	scale := coverScale(image.Pt(panel.TemplateWidth, panel.TemplateHeight), size, size)
	scaledW := int(math.Round(float64(panel.TemplateWidth) * scale))
	scaledH := int(math.Round(float64(panel.TemplateHeight) * scale))

	rendered, err := e.renderPanel(ctx, panel, scaledW, scaledH, false)
	if err != nil {
		return nil, err
	}

	dst := imaging.New(size, size, color.NRGBA{})
	offset := image.Pt((size-scaledW)/2, (size-scaledH)/2)
	return imaging.Overlay(dst, rendered, offset, 1.0), nil
}

// representativePanel はサムネイルに使うパネルを RIGHT → LEFT の優先順で選びます。
// 内容を持たないパネルは代表になれません。
func representativePanel(panels domain.Panels) (domain.Panel, bool) {
	for _, name := range []string{domain.PanelNameRight, domain.PanelNameLeft} {
		if p, ok := panels.ByName(name); ok && p.HasBackground() {
			return p, true
		}
	}
	return domain.Panel{}, false
}
