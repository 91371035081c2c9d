package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/shouni/go-wrap-kit/pkg/domain"
	"github.com/shouni/go-wrap-kit/pkg/editor"
	"github.com/shouni/go-wrap-kit/pkg/studio"
)

const (
	// defaultDesignName はデザイン名が未設定のときの生成シード用の仮名です。
	defaultDesignName = "untitled"
	// maxReferenceImages は共有背景の生成に渡す参照画像の上限数です。
	maxReferenceImages = 3
)

// BackgroundStudio は AI 背景生成の窓口です。*studio.Studio が満たします。
type BackgroundStudio interface {
	GenerateBackgrounds(ctx context.Context, designName string, requests []studio.PanelRequest) ([]studio.GeneratedBackground, error)
	GenerateSharedBackground(ctx context.Context, designName, basePrompt string, referenceURLs []string) (*studio.GeneratedBackground, error)
}

// GenerateRequest は背景生成ユースケースの入力です。
type GenerateRequest struct {
	Prompt     string
	PanelNames []string // 空なら全面が対象になる
	Unified    bool     // true なら1枚の背景を対象面すべてで共有する
	Seed       int64    // 0 以下なら決定論的に導出される
}

// GenerateRunner は AI 背景生成と編集状態への反映を束ねます。
type GenerateRunner struct {
	store  *editor.Store
	studio BackgroundStudio
}

// NewGenerateRunner は GenerateRunner を初期化します。
func NewGenerateRunner(store *editor.Store, backgroundStudio BackgroundStudio) (*GenerateRunner, error) {
	if store == nil {
		return nil, fmt.Errorf("store は必須です")
	}
	if backgroundStudio == nil {
		return nil, fmt.Errorf("studio は必須です")
	}
	return &GenerateRunner{store: store, studio: backgroundStudio}, nil
}

// Run は背景候補を生成し、対象面の背景レイヤー・画像ライブラリ・プロンプト履歴を更新します。
func (r *GenerateRunner) Run(ctx context.Context, req GenerateRequest) ([]studio.GeneratedBackground, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("プロンプトが空です")
	}

	state := r.store.State()
	names := req.PanelNames
	if len(names) == 0 {
		for _, p := range state.Panels {
			names = append(names, p.Name)
		}
	}

	designName := state.Meta.Name
	if designName == "" {
		designName = defaultDesignName
	}

	var results []studio.GeneratedBackground
	if req.Unified {
		shared, err := r.studio.GenerateSharedBackground(ctx, designName, prompt, referenceURLs(state.Library))
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			result := *shared
			result.PanelName = name
			results = append(results, result)
		}
	} else {
		requests := make([]studio.PanelRequest, 0, len(names))
		for _, name := range names {
			requests = append(requests, studio.PanelRequest{PanelName: name, Prompt: prompt, Seed: req.Seed})
		}
		var err error
		results, err = r.studio.GenerateBackgrounds(ctx, designName, requests)
		if err != nil {
			return nil, err
		}
	}

	if err := r.applyResults(results); err != nil {
		return nil, err
	}
	if err := r.store.Dispatch(editor.AddPrompt{Text: prompt}); err != nil {
		return nil, err
	}
	return results, nil
}

// applyResults は生成結果を背景レイヤーとして全面貼りで反映し、ライブラリにも登録します。
func (r *GenerateRunner) applyResults(results []studio.GeneratedBackground) error {
	state := r.store.State()
	for _, result := range results {
		idx := state.Panels.IndexByName(result.PanelName)
		if idx < 0 {
			return fmt.Errorf("パネルが見つかりません: %q", result.PanelName)
		}
		panel := state.Panels[idx]

		fullBleed := domain.Box{
			Width:  float64(panel.TemplateWidth),
			Height: float64(panel.TemplateHeight),
		}
		if err := r.store.Dispatch(editor.SetBackgroundImage{
			PanelID: panel.ID,
			Source:  result.DataURI,
			Box:     &fullBleed,
		}); err != nil {
			return err
		}
		if err := r.store.Dispatch(editor.AddLibraryImage{
			URL:    result.DataURI,
			Origin: domain.OriginAIGenerated,
		}); err != nil {
			return err
		}
	}
	return nil
}

// referenceURLs はライブラリから参照に使える公開URLを新しい順に選びます。
// data URI は生成APIに渡せないため除外するのだ。
func referenceURLs(library []domain.LibraryImage) []string {
	var urls []string
	for i := len(library) - 1; i >= 0 && len(urls) < maxReferenceImages; i-- {
		url := library[i].URL
		if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "gs://") {
			urls = append(urls, url)
		}
	}
	return urls
}
