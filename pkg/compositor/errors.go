package compositor

import (
	"fmt"
	"strings"

	"github.com/shouni/go-wrap-kit/pkg/domain"
)

// ValidationError は未完成のパネルが残っているため書き出せないことを表します。
// Missing には背景色も背景画像も持たないパネル名が宣言順で入ります。
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("未完成のパネルがあるため合成できません: %s", strings.Join(e.Missing, ", "))
}

// EncodingError は最終キャンバスのエンコードに失敗したことを表します。致命的で、書き出しは中断されます。
type EncodingError struct {
	Format string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s エンコードに失敗しました: %v", e.Format, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Validate は全パネルが合成可能な状態かを検査します。
// 1面でも未完成なら *ValidationError を返し、部分的な合成は行いません。
func Validate(panels domain.Panels) error {
	if missing := panels.IncompleteNames(); len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
