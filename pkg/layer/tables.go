package layer

import "github.com/shouni/go-wrap-kit/pkg/domain"

// overlaySources はパネル名とバリアントから装飾オーバーレイ画像のパスを引く固定テーブルです。
// FRONT と TOP FRONT にはオーバーレイが定義されていないのだ。
var overlaySources = map[string]map[domain.OverlayVariant]string{
	domain.PanelNameRight: {
		domain.OverlayBlack: "assets/overlays/right_black.png",
		domain.OverlayWhite: "assets/overlays/right_white.png",
	},
	domain.PanelNameLeft: {
		domain.OverlayBlack: "assets/overlays/left_black.png",
		domain.OverlayWhite: "assets/overlays/left_white.png",
	},
	domain.PanelNameBack: {
		domain.OverlayBlack: "assets/overlays/back_black.png",
		domain.OverlayWhite: "assets/overlays/back_white.png",
	},
	domain.PanelNameLid: {
		domain.OverlayBlack: "assets/overlays/lid_black.png",
		domain.OverlayWhite: "assets/overlays/lid_white.png",
	},
}

// maskSources はパネル名からエッジマスク画像のパスを引く固定テーブルです。
// TOP FRONT は縁の処理が不要なためマスクを持たないのだ。
var maskSources = map[string]string{
	domain.PanelNameRight: "assets/masks/right_mask.png",
	domain.PanelNameLeft:  "assets/masks/left_mask.png",
	domain.PanelNameBack:  "assets/masks/back_mask.png",
	domain.PanelNameFront: "assets/masks/front_mask.png",
	domain.PanelNameLid:   "assets/masks/lid_mask.png",
}

// OverlaySource はパネル名とバリアントに対応するオーバーレイ画像パスを返します。
// 定義が無いパネルでは ok が false になります（エラーではありません）。
func OverlaySource(panelName string, variant domain.OverlayVariant) (string, bool) {
	variants, ok := overlaySources[panelName]
	if !ok {
		return "", false
	}
	if variant == "" {
		variant = domain.OverlayBlack
	}
	source, ok := variants[variant]
	return source, ok
}

// MaskSource はパネル名に対応するエッジマスク画像パスを返します。
func MaskSource(panelName string) (string, bool) {
	source, ok := maskSources[panelName]
	return source, ok
}
