package editor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shouni/go-wrap-kit/pkg/domain"
	"github.com/shouni/go-wrap-kit/pkg/layer"
)

// ErrPanelNotFound は操作対象のパネルが存在しないことを示します。
var ErrPanelNotFound = errors.New("パネルが見つかりません")

// Action は1つの編集操作です。apply は Dispatch が複製した状態に対して
// 呼ばれるため、実装は受け取った state を直接書き換えて構いません。
// メソッドが非公開なので、アクションの集合はこのパッケージで閉じているのだ。
type Action interface {
	apply(state *domain.EditorState) error
}

// LayerTarget は ClearLayer が対象にするレイヤー種別です。
type LayerTarget string

const (
	TargetBackgroundColor LayerTarget = "background_color"
	TargetBackgroundImage LayerTarget = "background_image"
	TargetLogo            LayerTarget = "logo"
	TargetOverlay         LayerTarget = "overlay"
)

// SetBackgroundColor はパネルの背景色を設定します。値は CSS カラー表記の文字列です。
type SetBackgroundColor struct {
	PanelID int
	Color   string
}

func (a SetBackgroundColor) apply(state *domain.EditorState) error {
	panel, err := panelByID(state, a.PanelID)
	if err != nil {
		return err
	}
	color := strings.TrimSpace(a.Color)
	if color == "" {
		return fmt.Errorf("背景色が空です (id=%d)", a.PanelID)
	}
	panel.BackgroundColor = color
	return nil
}

// SetBackgroundImage はパネルの背景画像レイヤーを設定します。
// Box が nil の場合は既存の配置枠を引き継ぎ、初回配置では中央の既定枠に置きます。
type SetBackgroundImage struct {
	PanelID int
	Source  string
	Box     *domain.Box
}

func (a SetBackgroundImage) apply(state *domain.EditorState) error {
	panel, err := panelByID(state, a.PanelID)
	if err != nil {
		return err
	}
	source := strings.TrimSpace(a.Source)
	if source == "" {
		return fmt.Errorf("背景画像のソースが空です (id=%d)", a.PanelID)
	}
	panel.BackgroundImage = placeLayer(panel, panel.BackgroundImage, source, a.Box)
	return nil
}

// SetLogo はパネルのロゴレイヤーを設定します。配置枠の扱いは SetBackgroundImage と同じです。
type SetLogo struct {
	PanelID int
	Source  string
	Box     *domain.Box
}

func (a SetLogo) apply(state *domain.EditorState) error {
	panel, err := panelByID(state, a.PanelID)
	if err != nil {
		return err
	}
	source := strings.TrimSpace(a.Source)
	if source == "" {
		return fmt.Errorf("ロゴ画像のソースが空です (id=%d)", a.PanelID)
	}
	panel.Logo = placeLayer(panel, panel.Logo, source, a.Box)
	return nil
}

// SetOverlay はパネルの装飾オーバーレイの有効・無効とバリアントを設定します。
type SetOverlay struct {
	PanelID int
	Enabled bool
	Variant domain.OverlayVariant
}

func (a SetOverlay) apply(state *domain.EditorState) error {
	panel, err := panelByID(state, a.PanelID)
	if err != nil {
		return err
	}
	switch a.Variant {
	case "", domain.OverlayBlack, domain.OverlayWhite:
	default:
		return fmt.Errorf("未知のオーバーレイバリアントです: %q", a.Variant)
	}
	panel.Overlay = domain.OverlayConfig{Enabled: a.Enabled, Variant: a.Variant}
	return nil
}

// ClearLayer はパネルの指定レイヤーを取り除きます。
type ClearLayer struct {
	PanelID int
	Target  LayerTarget
}

func (a ClearLayer) apply(state *domain.EditorState) error {
	panel, err := panelByID(state, a.PanelID)
	if err != nil {
		return err
	}
	switch a.Target {
	case TargetBackgroundColor:
		panel.BackgroundColor = ""
	case TargetBackgroundImage:
		panel.BackgroundImage = nil
	case TargetLogo:
		panel.Logo = nil
	case TargetOverlay:
		panel.Overlay = domain.OverlayConfig{}
	default:
		return fmt.Errorf("未知のレイヤー種別です: %q", a.Target)
	}
	return nil
}

// SetLinkedSides は RIGHT/LEFT の連動フラグを設定します。
// 連動中の複製は書き出し時に行われるため、ここではフラグを持つだけなのだ。
type SetLinkedSides struct {
	Linked bool
}

func (a SetLinkedSides) apply(state *domain.EditorState) error {
	state.Settings.LinkedSides = a.Linked
	return nil
}

// SetDefaultLogoURL はデザイン全体の既定ロゴURLを設定します。空文字で解除です。
type SetDefaultLogoURL struct {
	URL string
}

func (a SetDefaultLogoURL) apply(state *domain.EditorState) error {
	state.Settings.DefaultLogoURL = strings.TrimSpace(a.URL)
	return nil
}

// SetDefaultBackgroundColor はデザイン全体の既定背景色を設定します。空文字で解除です。
type SetDefaultBackgroundColor struct {
	Color string
}

func (a SetDefaultBackgroundColor) apply(state *domain.EditorState) error {
	state.Settings.DefaultBackgroundColor = strings.TrimSpace(a.Color)
	return nil
}

// AddLibraryImage は画像ライブラリへエントリを追加します。URL単位で重複排除され、
// 登録済みURLの再追加は黙って受け入れられます（エラーにはなりません）。
type AddLibraryImage struct {
	URL     string
	Origin  domain.ImageOrigin
	AddedAt time.Time // ゼロ値なら現在時刻
}

func (a AddLibraryImage) apply(state *domain.EditorState) error {
	url := strings.TrimSpace(a.URL)
	if url == "" {
		return fmt.Errorf("ライブラリ画像のURLが空です")
	}
	switch a.Origin {
	case domain.OriginAIGenerated, domain.OriginUploaded:
	default:
		return fmt.Errorf("未知の画像オリジンです: %q", a.Origin)
	}
	for _, img := range state.Library {
		if img.URL == url {
			return nil
		}
	}
	addedAt := a.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}
	state.Library = append(state.Library, domain.LibraryImage{
		URL:     url,
		Origin:  a.Origin,
		AddedAt: addedAt,
	})
	return nil
}

// AddPrompt はプロンプト履歴の末尾に追記します。履歴は新しい側から上限数まで保持されます。
type AddPrompt struct {
	Text string
}

func (a AddPrompt) apply(state *domain.EditorState) error {
	text := strings.TrimSpace(a.Text)
	if text == "" {
		return fmt.Errorf("プロンプトが空です")
	}
	state.Prompts = append(state.Prompts, text)
	if len(state.Prompts) > domain.MaxPromptHistory {
		state.Prompts = state.Prompts[len(state.Prompts)-domain.MaxPromptHistory:]
	}
	return nil
}

// SetDesignMeta はデザイン名とクライアント名を設定します。
type SetDesignMeta struct {
	Name   string
	Client string
}

func (a SetDesignMeta) apply(state *domain.EditorState) error {
	state.Meta.Name = strings.TrimSpace(a.Name)
	state.Meta.Client = strings.TrimSpace(a.Client)
	return nil
}

func panelByID(state *domain.EditorState, id int) (*domain.Panel, error) {
	idx := state.Panels.IndexByID(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w (id=%d)", ErrPanelNotFound, id)
	}
	return &state.Panels[idx], nil
}

// placeLayer は配置レイヤーを組み立てます。枠の優先順位は
// 明示指定 > 既存レイヤーの枠 > 中央の既定枠、の順なのだ。
func placeLayer(panel *domain.Panel, current *domain.ImageLayer, source string, box *domain.Box) *domain.ImageLayer {
	next := &domain.ImageLayer{Source: source}
	switch {
	case box != nil:
		next.Box = *box
	case current != nil:
		next.Box = current.Box
	default:
		next.Box = layer.DefaultBox(*panel)
	}
	return next
}
