package loader

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// decodeDataURI は data URI スキームから画像ペイロードを取り出します。
// ブラウザの canvas.toDataURL() が生成する base64 形式を主に想定しているのだ。
func decodeDataURI(uri string) ([]byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("data URI ではありません: %s", truncateSource(uri))
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("data URI に区切りのカンマがありません")
	}

	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data URI の base64 復号に失敗しました: %w", err)
		}
		return data, nil
	}

	// base64 指定が無い場合はパーセントエンコーディングとして扱う
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URI のデコードに失敗しました: %w", err)
	}
	return []byte(decoded), nil
}
