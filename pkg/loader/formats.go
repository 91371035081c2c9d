package loader

// 合成で扱う画像形式のデコーダをまとめて登録する。
// ブラウザからのアップロードは PNG / JPEG / WebP が大半だが、
// 印刷入稿の現場では BMP と TGA のテクスチャも流れてくるのだ。
import (
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/ftrvxmtrx/tga"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)
