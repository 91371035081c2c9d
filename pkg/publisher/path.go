package publisher

import (
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

// fileNameSanitizer はディレクトリ名として使用できない文字を置換します。
var fileNameSanitizer = strings.NewReplacer(
	"/", "_",
	`\`, "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolveOutputPath(baseDir, fileName)
}

// DesignDirName はデザイン名をストレージで安全なディレクトリ名に変換します。
// 空文字や空白のみの名前は既定のディレクトリ名に差し替えるのだ。
func DesignDirName(name string) string {
	sanitized := strings.TrimSpace(fileNameSanitizer.Replace(name))
	if sanitized == "" {
		return defaultDesignDirName
	}
	return sanitized
}
