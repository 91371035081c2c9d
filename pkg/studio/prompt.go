package studio

import (
	"math"
	"strings"

	"github.com/shouni/go-wrap-kit/pkg/domain"
)

const (
	// NegativeBackgroundPrompt は、ラッピング背景用のネガティブプロンプトです。
	// 車体に貼る素材なので、文字や人物が混ざると使い物にならないのだ。
	NegativeBackgroundPrompt = "text, letters, typography, watermark, signature, logo, people, faces, vehicles, cars, low quality, blurry, distorted"

	// backgroundInstruction は全リクエスト共通の基本指示です。
	backgroundInstruction = "Seamless full-bleed background artwork for a vehicle wrap, flat orthographic composition, edge-to-edge coverage"
)

// viewHints はパネルごとの構図指示です。面の縦横比と取り付け位置に合わせて
// 視線の流れを誘導するのだ。
var viewHints = map[string]string{
	domain.PanelNameRight:    "wide horizontal banner flowing left to right",
	domain.PanelNameLeft:     "wide horizontal banner flowing right to left",
	domain.PanelNameBack:     "centered symmetric composition for the rear face",
	domain.PanelNameTopFront: "calm low-contrast field for the upper front face",
	domain.PanelNameFront:    "bold focal accent for the front face",
	domain.PanelNameLid:      "uniform repeating texture for the lid face",
}

// PromptBuilder は面ごとの背景プロンプトを組み立てます。
type PromptBuilder struct {
	styleSuffix string
}

// NewPromptBuilder は共通の画風サフィックスを持つ PromptBuilder を作ります。
func NewPromptBuilder(styleSuffix string) *PromptBuilder {
	return &PromptBuilder{styleSuffix: styleSuffix}
}

// BuildBackgroundPrompt は1面ぶんのユーザープロンプトと決定論的シードを返します。
func (pb *PromptBuilder) BuildBackgroundPrompt(designName, base string, panel domain.Panel) (string, int64) {
	// 1. 素材を順に集めて、空要素を除いて結合する
	parts := []string{
		backgroundInstruction,
		strings.TrimSpace(base),
		viewHints[panel.Name],
		pb.styleSuffix,
	}
	prompt := joinClean(parts)

	// 2. シードはデザイン名と面名から導出する。同じ名前なら同じ絵を再現できるのだ
	seed := domain.SeedFromName(designName + "/" + panel.Name)
	return prompt, seed
}

// BuildSharedPrompt は全面で共有する背景のプロンプトとシードを返します。
func (pb *PromptBuilder) BuildSharedPrompt(designName, base string) (string, int64) {
	prompt := joinClean([]string{
		backgroundInstruction,
		strings.TrimSpace(base),
		pb.styleSuffix,
	})
	return prompt, domain.SeedFromName(designName)
}

func joinClean(parts []string) string {
	var cleanParts []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			cleanParts = append(cleanParts, s)
		}
	}
	return strings.Join(cleanParts, ", ")
}

// aspectRatioOf はテンプレート寸法に最も近い、生成APIが受け付ける比率を返します。
func aspectRatioOf(panel domain.Panel) string {
	if panel.TemplateWidth <= 0 || panel.TemplateHeight <= 0 {
		return "16:9"
	}
	ratio := float64(panel.TemplateWidth) / float64(panel.TemplateHeight)

	candidates := []struct {
		name  string
		value float64
	}{
		{"1:1", 1},
		{"4:3", 4.0 / 3.0},
		{"3:4", 3.0 / 4.0},
		{"16:9", 16.0 / 9.0},
		{"9:16", 9.0 / 16.0},
	}

	best := candidates[0]
	bestDiff := math.Abs(ratio - best.value)
	for _, c := range candidates[1:] {
		if diff := math.Abs(ratio - c.value); diff < bestDiff {
			best, bestDiff = c, diff
		}
	}
	return best.name
}
