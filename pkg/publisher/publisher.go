// Package publisher は書き出し成果物の永続化と共有リンクの発行を担います。
//
// 保存先は remoteio.OutputWriter が解決するため、ローカルディレクトリと
// GCS (gs://) を同じコードパスで扱えます。
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/shouni/go-wrap-kit/pkg/runner"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	textureFileName   = "texture.png"
	thumbnailFileName = "thumbnail.png"
	snapshotFileName  = "snapshot.json"
	shareFileName     = "share.png"

	// 共有URLのパスセグメント: <base>/scene/<design>
	sharePathSegment = "scene"
	shareQRSize      = 256

	defaultDesignDirName = "untitled"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
}

// PublishResult はパブリッシュ処理の結果として保存されたファイルの情報を保持します。
type PublishResult struct {
	TexturePath   string // 保存された texture.png のパス
	ThumbnailPath string // 保存された thumbnail.png のパス
	SnapshotPath  string // 保存された snapshot.json のパス
	SharePath     string // 保存された share.png のパス（共有URL未設定時は空）
	ShareURL      string // QRコードが指す共有URL（共有URL未設定時は空）
}

// WrapPublisher は書き出し成果物の永続化と共有QRコードの発行を担います。
type WrapPublisher struct {
	writer       remoteio.OutputWriter
	shareBaseURL string
}

// NewWrapPublisher は依存関係を注入して WrapPublisher を初期化します。
// shareBaseURL が空の場合、共有QRコードの発行はスキップされます。
func NewWrapPublisher(writer remoteio.OutputWriter, shareBaseURL string) (*WrapPublisher, error) {
	if writer == nil {
		return nil, fmt.Errorf("OutputWriter は必須です")
	}
	return &WrapPublisher{
		writer:       writer,
		shareBaseURL: strings.TrimRight(shareBaseURL, "/"),
	}, nil
}

// Publish は書き出し成果物一式をデザイン名のディレクトリ配下に保存し、
// 共有用QRコードを発行して、保存先の情報を返却するのだ！
func (p *WrapPublisher) Publish(ctx context.Context, export runner.ExportResult, opts Options) (PublishResult, error) {
	result := PublishResult{}

	// 1. デザイン名から保存先ディレクトリを決定
	dirName := DesignDirName(export.Snapshot.Meta.Name)
	destDir, err := ResolveOutputPath(opts.OutputDir, dirName)
	if err != nil {
		return result, err
	}

	// 2. テクスチャ画像の保存
	result.TexturePath, err = p.saveFile(ctx, destDir, textureFileName, export.TexturePNG, "image/png")
	if err != nil {
		return result, err
	}

	// 3. サムネイル画像の保存
	result.ThumbnailPath, err = p.saveFile(ctx, destDir, thumbnailFileName, export.ThumbnailPNG, "image/png")
	if err != nil {
		return result, err
	}

	// 4. スナップショット JSON の保存
	snapshot, err := json.MarshalIndent(export.Snapshot, "", "  ")
	if err != nil {
		return result, fmt.Errorf("スナップショットのエンコードに失敗しました: %w", err)
	}
	result.SnapshotPath, err = p.saveFile(ctx, destDir, snapshotFileName, snapshot, "application/json; charset=utf-8")
	if err != nil {
		return result, err
	}

	// 5. 共有QRコードの発行（共有URL設定時のみ）
	if p.shareBaseURL != "" {
		shareURL, qr, err := p.buildShareQR(dirName)
		if err != nil {
			return result, err
		}
		result.SharePath, err = p.saveFile(ctx, destDir, shareFileName, qr, "image/png")
		if err != nil {
			return result, err
		}
		result.ShareURL = shareURL
	}

	slog.Info("成果物の保存が完了したのだ", "dest", destDir, "share_url", result.ShareURL)
	return result, nil
}

// ShareQR は指定デザイン名の共有URLと、それを指すQRコードのPNGデータを返します。
func (p *WrapPublisher) ShareQR(designName string) (string, []byte, error) {
	if p.shareBaseURL == "" {
		return "", nil, fmt.Errorf("共有ベースURLが設定されていません")
	}
	return p.buildShareQR(DesignDirName(designName))
}

// saveFile は1ファイルを書き込み、解決済みの保存パスを返します。
func (p *WrapPublisher) saveFile(ctx context.Context, baseDir, fileName string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("保存対象のデータが空です: %s", fileName)
	}

	fullPath, err := ResolveOutputPath(baseDir, fileName)
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}

	if err := p.writer.Write(ctx, fullPath, bytes.NewReader(data), contentType); err != nil {
		return "", fmt.Errorf("ファイルの書き込みに失敗しました %s: %w", fullPath, err)
	}
	return fullPath, nil
}

// buildShareQR は共有URLと、それを指すQRコードのPNGデータを生成します。
func (p *WrapPublisher) buildShareQR(designDir string) (string, []byte, error) {
	shareURL, err := url.JoinPath(p.shareBaseURL, sharePathSegment, designDir)
	if err != nil {
		return "", nil, fmt.Errorf("共有URLの組み立てに失敗しました: %w", err)
	}

	qr, err := qrcode.Encode(shareURL, qrcode.Medium, shareQRSize)
	if err != nil {
		return "", nil, fmt.Errorf("QRコードの生成に失敗しました: %w", err)
	}
	return shareURL, qr, nil
}
