package runner

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-wrap-kit/pkg/compositor"
	"github.com/shouni/go-wrap-kit/pkg/domain"
)

// stubLoader は compositor.ImageLoader を満たすインメモリ画像ソースなのだ。
type stubLoader struct {
	images map[string]image.Image
}

func (s *stubLoader) Load(_ context.Context, source string) (image.Image, error) {
	if img, ok := s.images[source]; ok {
		return img, nil
	}
	return nil, fmt.Errorf("画像が見つからないのだ: %s", source)
}

// recordingPrefetcher は Prefetch に渡されたソースを記録します。
type recordingPrefetcher struct {
	mu      sync.Mutex
	sources []string
	err     error
}

func (r *recordingPrefetcher) Prefetch(_ context.Context, sources []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, sources...)
	return r.err
}

func newTestEngine(t *testing.T, images map[string]image.Image) Engine {
	t.Helper()
	if images == nil {
		images = map[string]image.Image{}
	}
	engine, err := compositor.NewEngine(&stubLoader{images: images})
	require.NoError(t, err)
	return engine
}

// whiteState は6面すべて白背景の完成状態を作ります。
func whiteState() domain.EditorState {
	panels := domain.DefaultPanels()
	for i := range panels {
		panels[i].BackgroundColor = "#ffffff"
	}
	return domain.EditorState{
		Panels: panels,
		Meta:   domain.DesignMeta{Name: "テスト車両"},
	}
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	return img
}

func TestNewExportRunner_Validation(t *testing.T) {
	engine := newTestEngine(t, nil)

	_, err := NewExportRunner(nil, &recordingPrefetcher{}, 0)
	assert.Error(t, err)

	_, err = NewExportRunner(engine, nil, 0)
	assert.Error(t, err)

	runner, err := NewExportRunner(engine, &recordingPrefetcher{}, -1)
	require.NoError(t, err)
	assert.Equal(t, compositor.DefaultThumbnailSize, runner.thumbnailSize, "不正なサイズは既定値に置き換わるのだ")
}

func TestExportRunner_Run(t *testing.T) {
	engine := newTestEngine(t, nil)
	prefetcher := &recordingPrefetcher{}
	runner, err := NewExportRunner(engine, prefetcher, 64)
	require.NoError(t, err)

	result, err := runner.Run(context.Background(), whiteState())
	require.NoError(t, err)

	// テクスチャは最大テンプレート幅で正規化された1枚の縦長ストリップになる
	texture := decodePNG(t, result.TexturePNG)
	assert.Equal(t, 2190, texture.Bounds().Dx())
	assert.Equal(t, 7673, texture.Bounds().Dy())

	thumbnail := decodePNG(t, result.ThumbnailPNG)
	assert.Equal(t, 64, thumbnail.Bounds().Dx())
	assert.Equal(t, 64, thumbnail.Bounds().Dy())

	// スナップショットは現行バージョンで固まり、編集内容を保持する
	assert.Equal(t, domain.SnapshotVersion, result.Snapshot.Version)
	assert.Equal(t, "テスト車両", result.Snapshot.Meta.Name)
	assert.Equal(t, "#ffffff", result.Snapshot.Panels[0].BackgroundColor)

	// 白背景のみの6面では、先読み対象はエッジマスクだけ（TOP FRONT を除く5面）
	assert.Len(t, prefetcher.sources, 5)
	assert.Contains(t, prefetcher.sources, "assets/masks/right_mask.png")
}

func TestExportRunner_Run_LinkedSides(t *testing.T) {
	logo := imaging.New(10, 10, color.NRGBA{B: 0xff, A: 0xff})
	engine := newTestEngine(t, map[string]image.Image{"logo.png": logo})
	runner, err := NewExportRunner(engine, &recordingPrefetcher{}, 64)
	require.NoError(t, err)

	state := whiteState()
	state.Settings.LinkedSides = true
	right := &state.Panels[state.Panels.IndexByName(domain.PanelNameRight)]
	right.BackgroundColor = "#ff0000"
	right.Logo = &domain.ImageLayer{
		Source: "logo.png",
		Box:    domain.Box{X: 100, Y: 100, Width: 200, Height: 200},
	}
	// LEFT は完全に空のまま。連動が検証より先に走るので通るはずなのだ
	left := &state.Panels[state.Panels.IndexByName(domain.PanelNameLeft)]
	left.BackgroundColor = ""

	result, err := runner.Run(context.Background(), state)
	require.NoError(t, err)

	// スナップショットには連動反映後の LEFT が残る
	snapLeft := result.Snapshot.Panels[result.Snapshot.Panels.IndexByName(domain.PanelNameLeft)]
	assert.Equal(t, "#ff0000", snapLeft.BackgroundColor)
	require.NotNil(t, snapLeft.Logo)
	assert.Equal(t, "logo.png", snapLeft.Logo.Source)
	// RIGHT と LEFT のテンプレートは同寸なので枠は等値になる
	assert.Equal(t, right.Logo.Box, snapLeft.Logo.Box)

	// テクスチャ上でも RIGHT 帯と LEFT 帯が同じ見た目になる
	texture := decodePNG(t, result.TexturePNG)
	rightBand := texture.At(1095, 639)
	leftBand := texture.At(1095, 1278+639)
	assert.Equal(t, rightBand, leftBand, "連動した両側面は同じ絵になるはずなのだ")

	// 元の編集状態は書き換えられない
	assert.Empty(t, state.Panels[state.Panels.IndexByName(domain.PanelNameLeft)].BackgroundColor)
}

func TestExportRunner_Run_ValidationGate(t *testing.T) {
	engine := newTestEngine(t, nil)
	prefetcher := &recordingPrefetcher{}
	runner, err := NewExportRunner(engine, prefetcher, 64)
	require.NoError(t, err)

	state := whiteState()
	state.Panels[4].BackgroundColor = "" // FRONT を未完成にする

	result, err := runner.Run(context.Background(), state)
	require.Error(t, err)
	assert.Nil(t, result, "検証エラー時に成果物が返ってはいけないのだ")

	var ve *compositor.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{domain.PanelNameFront}, ve.Missing)

	assert.Empty(t, prefetcher.sources, "検証で弾かれたら先読みは走らないのだ")
}

func TestExportRunner_Run_PrefetchFailure(t *testing.T) {
	engine := newTestEngine(t, nil)
	prefetcher := &recordingPrefetcher{err: fmt.Errorf("network down")}
	runner, err := NewExportRunner(engine, prefetcher, 64)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), whiteState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "先読み")
}

func TestExportRunner_Run_MissingLayerDoesNotAbort(t *testing.T) {
	// ロゴ画像が取得できなくても書き出し自体は完走する
	engine := newTestEngine(t, nil)
	runner, err := NewExportRunner(engine, &recordingPrefetcher{}, 64)
	require.NoError(t, err)

	state := whiteState()
	right := &state.Panels[0]
	right.Logo = &domain.ImageLayer{
		Source: "https://cdn.example.com/gone.png",
		Box:    domain.Box{X: 10, Y: 10, Width: 100, Height: 100},
	}

	result, err := runner.Run(context.Background(), state)
	require.NoError(t, err)
	assert.NotEmpty(t, result.TexturePNG)
}
