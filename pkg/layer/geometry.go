package layer

import (
	"math"

	"github.com/shouni/go-wrap-kit/pkg/domain"
)

// DefaultBox はパネル中央に置かれる既定の配置枠を返します。
// サイズはテンプレート寸法の半分で、壊れた座標の修復先として使います。
func DefaultBox(panel domain.Panel) domain.Box {
	width := float64(panel.TemplateWidth) / 2
	height := float64(panel.TemplateHeight) / 2
	return domain.Box{
		X:      (float64(panel.TemplateWidth) - width) / 2,
		Y:      (float64(panel.TemplateHeight) - height) / 2,
		Width:  width,
		Height: height,
	}
}

// ValidBox は配置枠が描画に耐える値かを検査します。
// 座標は有限かつ非負、サイズは有限かつ正でなければならないのだ。
func ValidBox(box domain.Box) bool {
	for _, v := range []float64{box.X, box.Y, box.Width, box.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if box.X < 0 || box.Y < 0 {
		return false
	}
	return box.Width > 0 && box.Height > 0
}

// RepairBox は不正な配置枠を既定の枠に置き換えます。
// NaN や負のサイズを描画系へ流さないための防壁で、置換の有無を第2戻り値で返します。
func RepairBox(box domain.Box, panel domain.Panel) (domain.Box, bool) {
	if ValidBox(box) {
		return box, false
	}
	return DefaultBox(panel), true
}
