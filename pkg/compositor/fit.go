package compositor

import (
	"image"
	"math"

	"github.com/shouni/go-wrap-kit/pkg/domain"
)

// scaleRect はテンプレート座標系の配置枠を出力座標系の矩形へ変換します。
// 枠の位置とサイズは widthScale / heightScale で軸ごとに独立してスケールします。
// 枠の中に描く画像の均等フィット（cover/contain）とは別物の変換規則なのだ。
func scaleRect(box domain.Box, scaleX, scaleY float64) image.Rectangle {
	x := int(math.Round(box.X * scaleX))
	y := int(math.Round(box.Y * scaleY))
	w := int(math.Round(box.Width * scaleX))
	h := int(math.Round(box.Height * scaleY))
	return image.Rect(x, y, x+w, y+h)
}

// containSize は切り落とし無しで枠に収まる最大の均等スケール後サイズを返します。
func containSize(srcW, srcH, boxW, boxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0
	}

	scale := math.Min(float64(boxW)/float64(srcW), float64(boxH)/float64(srcH))
	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// coverScale は src が boxW×boxH の枠を覆い尽くす最小の均等スケールを返します。
func coverScale(src image.Point, boxW, boxH int) float64 {
	return math.Max(float64(boxW)/float64(src.X), float64(boxH)/float64(src.Y))
}
