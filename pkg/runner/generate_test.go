package runner

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-wrap-kit/pkg/domain"
	"github.com/shouni/go-wrap-kit/pkg/editor"
	"github.com/shouni/go-wrap-kit/pkg/studio"
)

// stubStudio は BackgroundStudio を実装します。
type stubStudio struct {
	err          error
	sharedCalls  int
	lastRefs     []string
	panelCalls   [][]studio.PanelRequest
	lastDesign   string
	generatedURI string
}

func (s *stubStudio) GenerateBackgrounds(_ context.Context, designName string, requests []studio.PanelRequest) ([]studio.GeneratedBackground, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastDesign = designName
	s.panelCalls = append(s.panelCalls, requests)
	results := make([]studio.GeneratedBackground, len(requests))
	for i, req := range requests {
		results[i] = studio.GeneratedBackground{
			PanelName: req.PanelName,
			DataURI:   s.uri() + "#" + req.PanelName,
			MimeType:  "image/png",
			Prompt:    req.Prompt,
		}
	}
	return results, nil
}

func (s *stubStudio) GenerateSharedBackground(_ context.Context, designName, basePrompt string, referenceURLs []string) (*studio.GeneratedBackground, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastDesign = designName
	s.sharedCalls++
	s.lastRefs = referenceURLs
	return &studio.GeneratedBackground{
		DataURI:  s.uri(),
		MimeType: "image/png",
		Prompt:   basePrompt,
	}, nil
}

func (s *stubStudio) uri() string {
	if s.generatedURI != "" {
		return s.generatedURI
	}
	return "data:image/png;base64,c3R1Yg=="
}

func TestNewGenerateRunner_Validation(t *testing.T) {
	_, err := NewGenerateRunner(nil, &stubStudio{})
	assert.Error(t, err)

	_, err = NewGenerateRunner(editor.NewStore(nil), nil)
	assert.Error(t, err)
}

func TestGenerateRunner_Run_PerPanel(t *testing.T) {
	store := editor.NewStore(nil)
	require.NoError(t, store.Dispatch(editor.SetDesignMeta{Name: "配送トラックA"}))
	st := &stubStudio{}
	runner, err := NewGenerateRunner(store, st)
	require.NoError(t, err)

	results, err := runner.Run(context.Background(), GenerateRequest{
		Prompt:     "夜のネオン街",
		PanelNames: []string{domain.PanelNameRight},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "配送トラックA", st.lastDesign)

	state := store.State()
	right := state.Panels[state.Panels.IndexByName(domain.PanelNameRight)]

	// 生成結果は全面貼りの背景レイヤーとして反映される
	require.NotNil(t, right.BackgroundImage)
	assert.Equal(t, results[0].DataURI, right.BackgroundImage.Source)
	wantBox := domain.Box{Width: float64(right.TemplateWidth), Height: float64(right.TemplateHeight)}
	assert.Equal(t, wantBox, right.BackgroundImage.Box)

	// 対象外の面は触らない
	left := state.Panels[state.Panels.IndexByName(domain.PanelNameLeft)]
	assert.Nil(t, left.BackgroundImage)

	// ライブラリとプロンプト履歴にも記録される
	require.Len(t, state.Library, 1)
	assert.Equal(t, domain.OriginAIGenerated, state.Library[0].Origin)
	require.Len(t, state.Prompts, 1)
	assert.Equal(t, "夜のネオン街", state.Prompts[0])
}

func TestGenerateRunner_Run_AllPanelsByDefault(t *testing.T) {
	store := editor.NewStore(nil)
	runner, err := NewGenerateRunner(store, &stubStudio{})
	require.NoError(t, err)

	results, err := runner.Run(context.Background(), GenerateRequest{Prompt: "波模様"})
	require.NoError(t, err)
	assert.Len(t, results, 6, "対象未指定なら全面が対象になるのだ")

	state := store.State()
	for _, panel := range state.Panels {
		assert.NotNil(t, panel.BackgroundImage, "panel %s に背景が入っていない", panel.Name)
	}
}

func TestGenerateRunner_Run_Unified(t *testing.T) {
	store := editor.NewStore(nil)
	// 参照候補: 公開URLは渡り、data URI は除外される
	require.NoError(t, store.Dispatch(editor.AddLibraryImage{URL: "https://cdn.example.com/old.png", Origin: domain.OriginUploaded}))
	require.NoError(t, store.Dispatch(editor.AddLibraryImage{URL: "data:image/png;base64,xxxx", Origin: domain.OriginAIGenerated}))

	st := &stubStudio{}
	runner, err := NewGenerateRunner(store, st)
	require.NoError(t, err)

	results, err := runner.Run(context.Background(), GenerateRequest{Prompt: "森のグラデーション", Unified: true})
	require.NoError(t, err)

	assert.Equal(t, 1, st.sharedCalls, "共有モードでは生成は1回だけなのだ")
	assert.Equal(t, []string{"https://cdn.example.com/old.png"}, st.lastRefs)
	assert.Len(t, results, 6)

	state := store.State()
	for _, panel := range state.Panels {
		require.NotNil(t, panel.BackgroundImage)
		assert.Equal(t, st.uri(), panel.BackgroundImage.Source, "全面が同じ1枚を共有するのだ")
	}

	// 同一URLなのでライブラリには1エントリだけ増える
	assert.Len(t, state.Library, 3)
}

func TestGenerateRunner_Run_EmptyPrompt(t *testing.T) {
	runner, err := NewGenerateRunner(editor.NewStore(nil), &stubStudio{})
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), GenerateRequest{Prompt: "   "})
	assert.Error(t, err)
}

func TestGenerateRunner_Run_StudioFailureLeavesStateUntouched(t *testing.T) {
	store := editor.NewStore(nil)
	runner, err := NewGenerateRunner(store, &stubStudio{err: fmt.Errorf("quota exceeded")})
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), GenerateRequest{Prompt: "砂漠"})
	require.Error(t, err)

	state := store.State()
	assert.Empty(t, state.Prompts, "失敗した生成が履歴に残ってはいけないのだ")
	for _, panel := range state.Panels {
		assert.Nil(t, panel.BackgroundImage)
	}
}

func TestReferenceURLs(t *testing.T) {
	library := []domain.LibraryImage{
		{URL: "https://a.example.com/1.png"},
		{URL: "data:image/png;base64,zzz"},
		{URL: "gs://bucket/2.png"},
		{URL: "https://a.example.com/3.png"},
		{URL: "https://a.example.com/4.png"},
	}

	got := referenceURLs(library)
	// 新しい側から最大3件、data URI は飛ばされる
	assert.Equal(t, []string{
		"https://a.example.com/4.png",
		"https://a.example.com/3.png",
		"gs://bucket/2.png",
	}, got)
}
