package domain

// パネル名の定義なのだ。展開図の上から下への積み上げ順と同じ並びで扱うのだ。
const (
	PanelNameRight    = "RIGHT"
	PanelNameLeft     = "LEFT"
	PanelNameBack     = "BACK"
	PanelNameTopFront = "TOP FRONT"
	PanelNameFront    = "FRONT"
	PanelNameLid      = "LID"
)

// OverlayVariant は装飾オーバーレイの配色バリアントです。
type OverlayVariant string

const (
	// OverlayBlack は黒バリアントのオーバーレイです。
	OverlayBlack OverlayVariant = "black"
	// OverlayWhite は白バリアントのオーバーレイです。
	OverlayWhite OverlayVariant = "white"
)

// Box はレイヤーの配置枠です。座標はパネル自身のテンプレートピクセル空間で表現します。
// アップロード画像の実寸ではなく、テンプレート寸法が常に基準になるのだ。
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ImageLayer は背景画像・ロゴ画像の両方で使う画像レイヤーの値型です。
// Source はデータURI、http(s) URL、gs:// パス、ローカルパスのいずれかを受け付けます。
type ImageLayer struct {
	Source string `json:"source"`
	Box    Box    `json:"box"`
}

// Clone は ImageLayer の防御的コピーを返します。
func (l *ImageLayer) Clone() *ImageLayer {
	if l == nil {
		return nil
	}
	copied := *l
	return &copied
}

// OverlayConfig は装飾オーバーレイの有効フラグとバリアント選択を保持します。
type OverlayConfig struct {
	Enabled bool           `json:"enabled"`
	Variant OverlayVariant `json:"variant"`
}

// Panel はラッピング展開図を構成する1面の編集状態です。
// 6面は起動時にテンプレート一覧から生成され、個別に破棄されることはありません。
type Panel struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	TemplatePath   string `json:"template_path"`
	TemplateWidth  int    `json:"template_width"`
	TemplateHeight int    `json:"template_height"`

	BackgroundColor string        `json:"background_color,omitempty"`
	BackgroundImage *ImageLayer   `json:"background_image,omitempty"`
	Logo            *ImageLayer   `json:"logo,omitempty"`
	Overlay         OverlayConfig `json:"overlay"`
}

// HasBackground は背景色または背景画像のどちらかが設定されているかを返します。
func (p Panel) HasBackground() bool {
	return p.BackgroundColor != "" || p.BackgroundImage != nil
}

// Clone は Panel の防御的コピーを返します。ポインタ型のレイヤーも新しく割り当てるのだ。
func (p Panel) Clone() Panel {
	copied := p
	copied.BackgroundImage = p.BackgroundImage.Clone()
	copied.Logo = p.Logo.Clone()
	return copied
}

// Panels は固定順に並んだパネル群です。合成時はこのスライス順がそのまま描画順になります。
type Panels []Panel

// panelTemplates は6面のテンプレート定義（サイズの正）です。
// 幅は RIGHT が最大で、これが正規化幅になります。
var panelTemplates = Panels{
	{ID: 1, Name: PanelNameRight, TemplatePath: "templates/right.png", TemplateWidth: 2190, TemplateHeight: 1278},
	{ID: 2, Name: PanelNameLeft, TemplatePath: "templates/left.png", TemplateWidth: 2190, TemplateHeight: 1278},
	{ID: 3, Name: PanelNameBack, TemplatePath: "templates/back.png", TemplateWidth: 2186, TemplateHeight: 1278},
	{ID: 4, Name: PanelNameTopFront, TemplatePath: "templates/top_front.png", TemplateWidth: 2180, TemplateHeight: 1274},
	{ID: 5, Name: PanelNameFront, TemplatePath: "templates/front.png", TemplateWidth: 2184, TemplateHeight: 1276},
	{ID: 6, Name: PanelNameLid, TemplatePath: "templates/lid.png", TemplateWidth: 2188, TemplateHeight: 1276},
}

// DefaultPanels はテンプレート一覧から初期状態の6面を生成して返します。
// 内部テーブルが呼び出し元によって変更されるのを防ぐため、ディープコピーを返すのだ。
func DefaultPanels() Panels {
	return panelTemplates.Clone()
}

// Clone は Panels 全体の防御的コピーを返します。
func (ps Panels) Clone() Panels {
	copied := make(Panels, len(ps))
	for i, p := range ps {
		copied[i] = p.Clone()
	}
	return copied
}

// ByName は名前が一致するパネルのコピーを返します。
func (ps Panels) ByName(name string) (Panel, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.Clone(), true
		}
	}
	return Panel{}, false
}

// IndexByID は ID が一致するパネルの添字を返します。見つからない場合は -1 を返します。
func (ps Panels) IndexByID(id int) int {
	for i, p := range ps {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// IndexByName は名前が一致するパネルの添字を返します。見つからない場合は -1 を返します。
func (ps Panels) IndexByName(name string) int {
	for i, p := range ps {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// IncompleteNames は背景色も背景画像も持たないパネルの名前を宣言順で返します。
func (ps Panels) IncompleteNames() []string {
	var names []string
	for _, p := range ps {
		if !p.HasBackground() {
			names = append(names, p.Name)
		}
	}
	return names
}

// MaxTemplateWidth は全パネルのテンプレート幅の最大値（正規化幅）を返します。
func (ps Panels) MaxTemplateWidth() int {
	maxWidth := 0
	for _, p := range ps {
		if p.TemplateWidth > maxWidth {
			maxWidth = p.TemplateWidth
		}
	}
	return maxWidth
}
