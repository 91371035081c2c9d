// Package editor はラッピングデザインの編集状態を管理します。
// 状態の変更は閉じたアクション集合と Store.Dispatch だけを通して行われ、
// 更新はパネルIDで対象を特定します。描画順の並び替えはできないのだ。
package editor

import (
	"fmt"
	"sync"
	"time"

	"github.com/shouni/go-wrap-kit/pkg/domain"
)

// Store は編集状態の唯一の保持者です。
// Dispatch は複製した状態にアクションを適用し、成功したときだけ差し替えます。
// 途中で失敗した操作の痕跡が状態に残ることはありません。
type Store struct {
	mu    sync.RWMutex
	state domain.EditorState
}

// NewStore は初期状態からストアを作ります。snapshot が nil の場合は
// 6面の初期パネルを持つ新規デザインで始まるのだ。
func NewStore(snapshot *domain.EditorSnapshot) *Store {
	var state domain.EditorState
	if snapshot != nil {
		state = snapshot.State()
	} else {
		state = domain.EditorState{Panels: domain.DefaultPanels()}
	}
	if state.Meta.CreatedAt.IsZero() {
		state.Meta.CreatedAt = time.Now().UTC()
	}
	return &Store{state: state}
}

// Dispatch はアクションを適用します。適用に失敗した場合、状態は変化しません。
func (s *Store) Dispatch(action Action) error {
	if action == nil {
		return fmt.Errorf("アクションが nil です")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := action.apply(&next); err != nil {
		return err
	}
	next.Meta.UpdatedAt = time.Now().UTC()
	s.state = next
	return nil
}

// State は現在の編集状態の防御的コピーを返します。
func (s *Store) State() domain.EditorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Snapshot は現在の状態から永続化用のスナップショットを組み立てます。
func (s *Store) Snapshot() domain.EditorSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.NewSnapshot(s.state)
}
