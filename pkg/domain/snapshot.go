package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const (
	// SnapshotVersion は現行のスナップショットスキーマのバージョンです。
	SnapshotVersion = 2
	// MaxPromptHistory は保持するプロンプト履歴の上限数です。
	MaxPromptHistory = 50
)

// ImageOrigin は画像ライブラリ内のエントリの出自タグです。
type ImageOrigin string

const (
	// OriginAIGenerated はAI生成画像であることを示します。
	OriginAIGenerated ImageOrigin = "ai-generated"
	// OriginUploaded はユーザーがアップロードした画像であることを示します。
	OriginUploaded ImageOrigin = "uploaded"
)

// LibraryImage は画像ライブラリの1エントリです。URL単位で重複排除されます。
type LibraryImage struct {
	URL     string      `json:"url"`
	Origin  ImageOrigin `json:"origin"`
	AddedAt time.Time   `json:"added_at"`
}

// GlobalSettings はデザイン全体にかかる設定です。
type GlobalSettings struct {
	DefaultLogoURL         string `json:"default_logo_url,omitempty"`
	DefaultBackgroundColor string `json:"default_background_color,omitempty"`
	// LinkedSides が true の場合、書き出し時に RIGHT のレイヤー一式が LEFT に複製されます。
	LinkedSides bool `json:"linked_sides"`
}

// DesignMeta はデザインのメタ情報です。
type DesignMeta struct {
	Name      string    `json:"name"`
	Client    string    `json:"client,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EditorState はエディタの編集中状態の全体です。ストアが唯一の保持者になります。
type EditorState struct {
	Panels   Panels         `json:"panels"`
	Settings GlobalSettings `json:"settings"`
	Library  []LibraryImage `json:"library,omitempty"`
	Prompts  []string       `json:"prompts,omitempty"`
	Meta     DesignMeta     `json:"meta"`
}

// Clone は EditorState の防御的コピーを返すのだ。
func (s EditorState) Clone() EditorState {
	copied := s
	copied.Panels = s.Panels.Clone()
	if s.Library != nil {
		copied.Library = make([]LibraryImage, len(s.Library))
		copy(copied.Library, s.Library)
	}
	if s.Prompts != nil {
		copied.Prompts = make([]string, len(s.Prompts))
		copy(copied.Prompts, s.Prompts)
	}
	return copied
}

// EditorSnapshot は1つのデザインの永続化単位です。書き出し時に生成され、以後は不変として扱います。
type EditorSnapshot struct {
	Version  int            `json:"version"`
	Panels   Panels         `json:"panels"`
	Settings GlobalSettings `json:"settings"`
	Library  []LibraryImage `json:"library,omitempty"`
	Prompts  []string       `json:"prompts,omitempty"`
	Meta     DesignMeta     `json:"meta"`
}

// Clone は EditorSnapshot の防御的コピーを返します。
func (s EditorSnapshot) Clone() EditorSnapshot {
	copied := s
	copied.Panels = s.Panels.Clone()
	if s.Library != nil {
		copied.Library = make([]LibraryImage, len(s.Library))
		copy(copied.Library, s.Library)
	}
	if s.Prompts != nil {
		copied.Prompts = make([]string, len(s.Prompts))
		copy(copied.Prompts, s.Prompts)
	}
	return copied
}

// State はスナップショットを編集状態へ展開します。
func (s EditorSnapshot) State() EditorState {
	copied := s.Clone()
	return EditorState{
		Panels:   copied.Panels,
		Settings: copied.Settings,
		Library:  copied.Library,
		Prompts:  copied.Prompts,
		Meta:     copied.Meta,
	}
}

// NewSnapshot は編集状態から現行バージョンのスナップショットを組み立てます。
func NewSnapshot(state EditorState) EditorSnapshot {
	copied := state.Clone()
	return EditorSnapshot{
		Version:  SnapshotVersion,
		Panels:   copied.Panels,
		Settings: copied.Settings,
		Library:  copied.Library,
		Prompts:  copied.Prompts,
		Meta:     copied.Meta,
	}
}

// snapshotV1 は旧スキーマ（バージョンタグなし）の形です。
// ライブラリは素のURL配列で、サイド連動フラグを持っていなかったのだ。
type snapshotV1 struct {
	Panels                 Panels   `json:"panels"`
	DefaultLogoURL         string   `json:"default_logo_url"`
	DefaultBackgroundColor string   `json:"default_background_color"`
	Images                 []string `json:"images"`
	Prompts                []string `json:"prompts"`
	Name                   string   `json:"name"`
}

// DecodeSnapshot は永続化済みスナップショットを読み込み、必要なら現行スキーマへ移行します。
func DecodeSnapshot(r io.Reader) (*EditorSnapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("スナップショットの読み込みに失敗しました: %w", err)
	}

	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("スナップショットの形式が不正です: %w", err)
	}

	switch probe.Version {
	case 0, 1:
		// バージョンタグの無い時代のデータは v1 として移行するのだ
		var old snapshotV1
		if err := json.Unmarshal(data, &old); err != nil {
			return nil, fmt.Errorf("旧形式スナップショットのデコードに失敗しました: %w", err)
		}
		snap := migrateV1(old)
		return &snap, nil
	case SnapshotVersion:
		var snap EditorSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("スナップショットのデコードに失敗しました: %w", err)
		}
		return &snap, nil
	default:
		return nil, fmt.Errorf("未対応のスナップショットバージョンです: %d", probe.Version)
	}
}

// migrateV1 は旧スキーマを現行スキーマへ写し替えます。
// 出自情報が残っていないため、旧ライブラリのURLはすべてアップロード扱いになります。
func migrateV1(old snapshotV1) EditorSnapshot {
	panels := old.Panels
	if len(panels) == 0 {
		panels = DefaultPanels()
	}

	library := make([]LibraryImage, 0, len(old.Images))
	for _, url := range old.Images {
		if url == "" {
			continue
		}
		library = append(library, LibraryImage{URL: url, Origin: OriginUploaded})
	}

	return EditorSnapshot{
		Version: SnapshotVersion,
		Panels:  panels.Clone(),
		Settings: GlobalSettings{
			DefaultLogoURL:         old.DefaultLogoURL,
			DefaultBackgroundColor: old.DefaultBackgroundColor,
			LinkedSides:            false,
		},
		Library: library,
		Prompts: capPrompts(old.Prompts),
		Meta:    DesignMeta{Name: old.Name},
	}
}

// capPrompts はプロンプト履歴を新しい側から上限数まで切り詰めます。
func capPrompts(prompts []string) []string {
	if len(prompts) <= MaxPromptHistory {
		return prompts
	}
	return prompts[len(prompts)-MaxPromptHistory:]
}

// SeedFromName は名前から決定論的なシード値を生成します。
// 同じデザイン名なら同じ背景が再現できるように、ハッシュの先頭4バイトを使うのだ。
func SeedFromName(name string) int64 {
	hash := sha256.Sum256([]byte(name))
	seed := int32(binary.BigEndian.Uint32(hash[:4]))
	// 生成側は正のシード値を期待するため、最上位ビットを落とすのが安全なのだ
	return int64(seed & 0x7FFFFFFF)
}
