// Package compositor はパネル群を単一のUVテクスチャへ合成する中核エンジンです。
// プレビュー・書き出し・サムネイルのすべてが同じエンジンを通るため、
// 画面で見たものと保存されるものが食い違わないのだ。
package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"

	"github.com/shouni/go-wrap-kit/pkg/domain"
	"github.com/shouni/go-wrap-kit/pkg/layer"
)

// ImageLoader は合成中に参照する画像ソースの取得窓口です。
// 取得と復号の実装（キャッシュやネットワーク）は呼び出し側が注入します。
type ImageLoader interface {
	Load(ctx context.Context, source string) (image.Image, error)
}

// Engine はパネル合成エンジンの実体です。1回の合成操作の間、キャンバスを独占所有します。
type Engine struct {
	loader ImageLoader
}

// NewEngine は画像取得窓口を注入して合成エンジンを初期化します。
func NewEngine(loader ImageLoader) (*Engine, error) {
	if loader == nil {
		return nil, fmt.Errorf("ImageLoader は必須です")
	}
	return &Engine{loader: loader}, nil
}

// Composite は全パネルを共通幅に正規化し、宣言順に縦へ積み上げた1枚のキャンバスを返します。
//
// 各パネルの正規化幅は全テンプレート幅の最大値で、高さは各パネル自身の
// アスペクト比を保ったまま `templateHeight * (normalizedWidth / templateWidth)` になります。
// 未完成のパネルが1面でもあれば *ValidationError を返し、部分合成は行いません。
func (e *Engine) Composite(ctx context.Context, panels domain.Panels) (*image.NRGBA, error) {
	if err := Validate(panels); err != nil {
		return nil, err
	}

	normWidth := panels.MaxTemplateWidth()
	if normWidth <= 0 {
		return nil, fmt.Errorf("合成対象のパネルがありません")
	}

	heights := make([]int, len(panels))
	totalHeight := 0
	for i, p := range panels {
		heights[i] = normalizedHeight(p, normWidth)
		totalHeight += heights[i]
	}

	slog.Info("テクスチャ合成を開始するのだ",
		"panels", len(panels),
		"width", normWidth,
		"height", totalHeight,
	)

	canvas := imaging.New(normWidth, totalHeight, color.NRGBA{})

	// パネルは宣言順に、自分専用のキャンバスへ描いてから帯に貼り込むのだ。
	// 貼り込み先の矩形がパネル境界そのものなので、隣へのはみ出しは構造的に起きない。
	offsetY := 0
	for i, panel := range panels {
		rendered, err := e.renderPanel(ctx, panel, normWidth, heights[i], true)
		if err != nil {
			return nil, err
		}
		canvas = imaging.Paste(canvas, rendered, image.Pt(0, offsetY))
		offsetY += heights[i]
	}

	return canvas, nil
}

// RenderPanel は1面だけをテンプレート寸法のまま描画します。3Dプレビュー用の入口です。
// 合成と違って完成チェックは行わず、空のパネルは透明のまま返ります。
func (e *Engine) RenderPanel(ctx context.Context, panel domain.Panel) (*image.NRGBA, error) {
	if panel.TemplateWidth <= 0 || panel.TemplateHeight <= 0 {
		return nil, fmt.Errorf("パネル %q のテンプレート寸法が不正です", panel.Name)
	}
	return e.renderPanel(ctx, panel, panel.TemplateWidth, panel.TemplateHeight, true)
}

// renderPanel は1面を width×height のキャンバスへ、解決済みレイヤー順に描画します。
// 個々のレイヤーの失敗は記録してスキップし、キャンセル以外では中断しません。
func (e *Engine) renderPanel(ctx context.Context, panel domain.Panel, width, height int, includeMask bool) (*image.NRGBA, error) {
	dst := imaging.New(width, height, color.NRGBA{})
	scaleX := float64(width) / float64(panel.TemplateWidth)
	scaleY := float64(height) / float64(panel.TemplateHeight)

	for _, l := range layer.Resolve(panel) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("パネル %q の描画が中断されました: %w", panel.Name, err)
		}
		if !includeMask && l.Kind == layer.KindMask {
			continue
		}

		switch l.Kind {
		case layer.KindFill:
			fill, err := ParseCSSColor(l.Color)
			if err != nil {
				slog.Warn("背景色を解釈できないためスキップするのだ",
					"panel", panel.Name, "color", l.Color, "error", err)
				continue
			}
			dst = imaging.Overlay(dst, imaging.New(width, height, fill), image.Pt(0, 0), 1.0)

		case layer.KindBackground, layer.KindLogo:
			img, err := e.loader.Load(ctx, l.Source)
			if err != nil {
				logLayerSkip(panel.Name, l, err)
				continue
			}
			dst = drawInBox(dst, img, l, scaleX, scaleY)

		case layer.KindOverlay, layer.KindMask:
			img, err := e.loader.Load(ctx, l.Source)
			if err != nil {
				logLayerSkip(panel.Name, l, err)
				continue
			}
			stretched := imaging.Resize(img, width, height, imaging.Lanczos)
			dst = imaging.Overlay(dst, stretched, image.Pt(0, 0), 1.0)
		}
	}

	return dst, nil
}

// drawInBox は配置枠の中へ画像を cover / contain 規則で描き込みます。
// 枠はパネル外へはみ出していても構いません。キャンバス境界で自動的に切れるのだ。
func drawInBox(dst *image.NRGBA, img image.Image, l layer.Resolved, scaleX, scaleY float64) *image.NRGBA {
	rect := scaleRect(l.Box, scaleX, scaleY)
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return dst
	}

	switch l.Fit {
	case layer.FitContain:
		w, h := containSize(img.Bounds().Dx(), img.Bounds().Dy(), rect.Dx(), rect.Dy())
		if w <= 0 || h <= 0 {
			return dst
		}
		fitted := imaging.Resize(img, w, h, imaging.Lanczos)
		pos := image.Pt(rect.Min.X+(rect.Dx()-w)/2, rect.Min.Y+(rect.Dy()-h)/2)
		return imaging.Overlay(dst, fitted, pos, 1.0)

	default: // cover
		fitted := imaging.Fill(img, rect.Dx(), rect.Dy(), imaging.Center, imaging.Lanczos)
		return imaging.Overlay(dst, fitted, rect.Min, 1.0)
	}
}

// normalizedHeight は共通幅へ正規化した後のパネル高さを返します。
func normalizedHeight(panel domain.Panel, normWidth int) int {
	ratio := float64(normWidth) / float64(panel.TemplateWidth)
	return int(math.Round(float64(panel.TemplateHeight) * ratio))
}

// EncodePNG はキャンバスを可逆PNGへエンコードします。失敗は *EncodingError として致命扱いです。
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, &EncodingError{Format: "PNG", Err: err}
	}
	return buf.Bytes(), nil
}

func logLayerSkip(panelName string, l layer.Resolved, err error) {
	slog.Warn("レイヤー画像の読み込みに失敗したためスキップするのだ",
		"panel", panelName,
		"layer", string(l.Kind),
		"source", shortSource(l.Source),
		"error", err,
	)
}

// shortSource はログ用にソース文字列を切り詰めます。データURIは数MBになりうるのだ。
func shortSource(source string) string {
	const limit = 64
	if len(source) <= limit {
		return source
	}
	return source[:limit] + "..."
}
