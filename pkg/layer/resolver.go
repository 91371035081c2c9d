// Package layer は1つのパネルの編集状態を、固定の描画順に並んだレイヤー一覧へ解決します。
// 描画順は 背景色 → 背景画像 → ロゴ → 装飾オーバーレイ → エッジマスク で固定なのだ。
package layer

import (
	"log/slog"

	"github.com/shouni/go-wrap-kit/pkg/domain"
)

// Kind は解決済みレイヤーの種別です。
type Kind string

const (
	KindFill       Kind = "fill"
	KindBackground Kind = "background"
	KindLogo       Kind = "logo"
	KindOverlay    Kind = "overlay"
	KindMask       Kind = "mask"
)

// Fit は配置枠の中での画像のスケーリング規則です。
type Fit string

const (
	// FitCover は枠を埋め尽くすよう均等拡縮し、はみ出しを中央基準で切り落とします。
	FitCover Fit = "cover"
	// FitContain は切り落とし無しで枠に収まるよう均等拡縮し、枠の中央に置きます。
	FitContain Fit = "contain"
	// FitStretch はパネル全面に引き伸ばします。オーバーレイとマスク専用です。
	FitStretch Fit = "stretch"
)

// Resolved は描画可能な状態まで解決された1レイヤーです。
// KindFill では Color のみ、画像系では Source と（枠付きなら）Box が有効になります。
// Box はテンプレートピクセル空間のままで、座標変換は合成側の責務なのだ。
type Resolved struct {
	Kind   Kind
	Color  string
	Source string
	Box    domain.Box
	Fit    Fit
}

// Resolve はパネルの編集状態を固定描画順のレイヤー一覧へ解決します。
// ロゴは背景（色または画像）が存在するときだけ採用されます。
// 壊れた配置枠は中央の既定枠に修復し、その旨をログに残します。
func Resolve(panel domain.Panel) []Resolved {
	layers := make([]Resolved, 0, 5)

	// 1. 背景色
	if panel.BackgroundColor != "" {
		layers = append(layers, Resolved{Kind: KindFill, Color: panel.BackgroundColor})
	}

	// 2. 背景画像（cover）
	if panel.BackgroundImage != nil {
		box := repairWithLog(panel.BackgroundImage.Box, panel, KindBackground)
		layers = append(layers, Resolved{
			Kind:   KindBackground,
			Source: panel.BackgroundImage.Source,
			Box:    box,
			Fit:    FitCover,
		})
	}

	// 3. ロゴ（contain）。背景が無いパネルにはロゴを描かない規則なのだ。
	if panel.Logo != nil && panel.HasBackground() {
		box := repairWithLog(panel.Logo.Box, panel, KindLogo)
		layers = append(layers, Resolved{
			Kind:   KindLogo,
			Source: panel.Logo.Source,
			Box:    box,
			Fit:    FitContain,
		})
	}

	// 4. 装飾オーバーレイ（全面）。定義の無いパネルでは黙ってスキップする。
	if panel.Overlay.Enabled {
		if source, ok := OverlaySource(panel.Name, panel.Overlay.Variant); ok {
			layers = append(layers, Resolved{Kind: KindOverlay, Source: source, Fit: FitStretch})
		}
	}

	// 5. エッジマスク（全面・最後）。定義の無いパネルではスキップする。
	if source, ok := MaskSource(panel.Name); ok {
		layers = append(layers, Resolved{Kind: KindMask, Source: source, Fit: FitStretch})
	}

	return layers
}

// Sources はパネルが参照する画像ソースを描画順で返します。先読みのための一覧なのだ。
func Sources(panel domain.Panel) []string {
	var sources []string
	for _, l := range Resolve(panel) {
		if l.Source != "" {
			sources = append(sources, l.Source)
		}
	}
	return sources
}

func repairWithLog(box domain.Box, panel domain.Panel, kind Kind) domain.Box {
	repaired, replaced := RepairBox(box, panel)
	if replaced {
		slog.Warn("不正な配置枠を既定値に修復したのだ",
			"panel", panel.Name,
			"layer", string(kind),
			"box", box,
		)
	}
	return repaired
}
