package publisher

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-wrap-kit/pkg/domain"
	"github.com/shouni/go-wrap-kit/pkg/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWriter は remoteio.OutputWriter を満たすインメモリ実装なのだ。
type mockWriter struct {
	mu           sync.Mutex
	err          error
	writes       map[string][]byte
	contentTypes map[string]string
}

func (m *mockWriter) Write(ctx context.Context, path string, r io.Reader, contentType string) error {
	if m.err != nil {
		return m.err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writes == nil {
		m.writes = make(map[string][]byte)
		m.contentTypes = make(map[string]string)
	}
	m.writes[path] = data
	m.contentTypes[path] = contentType
	return nil
}

func testExport(t *testing.T, designName string) runner.ExportResult {
	t.Helper()

	state := domain.EditorState{
		Panels: domain.DefaultPanels(),
		Meta: domain.DesignMeta{
			Name:      designName,
			CreatedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		},
	}
	return runner.ExportResult{
		TexturePNG:   []byte("texture-bytes"),
		ThumbnailPNG: []byte("thumbnail-bytes"),
		Snapshot:     domain.NewSnapshot(state),
	}
}

func TestNewWrapPublisher(t *testing.T) {
	t.Run("OutputWriter が nil ならエラーになること", func(t *testing.T) {
		_, err := NewWrapPublisher(nil, "https://wrap.example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "必須")
	})

	t.Run("共有ベースURLの末尾スラッシュは除去されること", func(t *testing.T) {
		pub, err := NewWrapPublisher(&mockWriter{}, "https://wrap.example.com/")
		require.NoError(t, err)

		shareURL, _, err := pub.ShareQR("demo")
		require.NoError(t, err)
		assert.Equal(t, "https://wrap.example.com/scene/demo", shareURL)
	})
}

func TestWrapPublisher_Publish(t *testing.T) {
	writer := &mockWriter{}
	pub, err := NewWrapPublisher(writer, "https://wrap.example.com")
	require.NoError(t, err)

	export := testExport(t, "box/truck-01")
	result, err := pub.Publish(context.Background(), export, Options{OutputDir: "out"})
	require.NoError(t, err)

	assert.Equal(t, "out/box_truck-01/texture.png", result.TexturePath)
	assert.Equal(t, "out/box_truck-01/thumbnail.png", result.ThumbnailPath)
	assert.Equal(t, "out/box_truck-01/snapshot.json", result.SnapshotPath)
	assert.Equal(t, "out/box_truck-01/share.png", result.SharePath)
	assert.Equal(t, "https://wrap.example.com/scene/box_truck-01", result.ShareURL)
	assert.Len(t, writer.writes, 4, "テクスチャ・サムネイル・スナップショット・QRの4ファイルが保存されること")

	assert.Equal(t, export.TexturePNG, writer.writes[result.TexturePath])
	assert.Equal(t, export.ThumbnailPNG, writer.writes[result.ThumbnailPath])
	assert.Equal(t, "image/png", writer.contentTypes[result.TexturePath])
	assert.Equal(t, "image/png", writer.contentTypes[result.ThumbnailPath])
	assert.Equal(t, "application/json; charset=utf-8", writer.contentTypes[result.SnapshotPath])

	t.Run("スナップショット JSON は復元可能であること", func(t *testing.T) {
		snap, err := domain.DecodeSnapshot(bytes.NewReader(writer.writes[result.SnapshotPath]))
		require.NoError(t, err)
		assert.Equal(t, domain.SnapshotVersion, snap.Version)
		assert.Equal(t, "box/truck-01", snap.Meta.Name, "スナップショット内のデザイン名はサニタイズ前のまま保持されること")
	})

	t.Run("QRコードは正方形のPNGであること", func(t *testing.T) {
		img, err := png.Decode(bytes.NewReader(writer.writes[result.SharePath]))
		require.NoError(t, err)
		assert.Equal(t, shareQRSize, img.Bounds().Dx())
		assert.Equal(t, shareQRSize, img.Bounds().Dy())
	})
}

func TestWrapPublisher_Publish_WithoutShareBaseURL(t *testing.T) {
	writer := &mockWriter{}
	pub, err := NewWrapPublisher(writer, "")
	require.NoError(t, err)

	result, err := pub.Publish(context.Background(), testExport(t, "demo"), Options{OutputDir: "out"})
	require.NoError(t, err)

	assert.Empty(t, result.SharePath)
	assert.Empty(t, result.ShareURL)
	assert.Len(t, writer.writes, 3, "共有URL未設定時はQRコードを保存しないこと")
}

func TestWrapPublisher_Publish_GCSDestination(t *testing.T) {
	writer := &mockWriter{}
	pub, err := NewWrapPublisher(writer, "https://wrap.example.com")
	require.NoError(t, err)

	result, err := pub.Publish(context.Background(), testExport(t, "demo"), Options{OutputDir: "gs://wrap-bucket/exports"})
	require.NoError(t, err)

	assert.Equal(t, "gs://wrap-bucket/exports/demo/texture.png", result.TexturePath)
	assert.Equal(t, "gs://wrap-bucket/exports/demo/snapshot.json", result.SnapshotPath)
}

func TestWrapPublisher_Publish_EmptyDesignName(t *testing.T) {
	writer := &mockWriter{}
	pub, err := NewWrapPublisher(writer, "")
	require.NoError(t, err)

	result, err := pub.Publish(context.Background(), testExport(t, "   "), Options{OutputDir: "out"})
	require.NoError(t, err)

	assert.Equal(t, "out/untitled/texture.png", result.TexturePath)
}

func TestWrapPublisher_Publish_EmptyArtifact(t *testing.T) {
	pub, err := NewWrapPublisher(&mockWriter{}, "")
	require.NoError(t, err)

	export := testExport(t, "demo")
	export.TexturePNG = nil

	_, err = pub.Publish(context.Background(), export, Options{OutputDir: "out"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "保存対象のデータが空です")
}

func TestWrapPublisher_Publish_WriteFailure(t *testing.T) {
	writer := &mockWriter{err: errors.New("バケットへの接続に失敗")}
	pub, err := NewWrapPublisher(writer, "")
	require.NoError(t, err)

	_, err = pub.Publish(context.Background(), testExport(t, "demo"), Options{OutputDir: "out"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "書き込みに失敗")
}

func TestWrapPublisher_ShareQR(t *testing.T) {
	t.Run("共有ベースURL未設定時はエラーになること", func(t *testing.T) {
		pub, err := NewWrapPublisher(&mockWriter{}, "")
		require.NoError(t, err)

		_, _, err = pub.ShareQR("demo")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "共有ベースURL")
	})

	t.Run("デザイン名がURLセーフに変換されること", func(t *testing.T) {
		pub, err := NewWrapPublisher(&mockWriter{}, "https://wrap.example.com")
		require.NoError(t, err)

		shareURL, qr, err := pub.ShareQR("My Truck")
		require.NoError(t, err)
		assert.Equal(t, "https://wrap.example.com/scene/My%20Truck", shareURL)

		img, err := png.Decode(bytes.NewReader(qr))
		require.NoError(t, err)
		assert.Equal(t, shareQRSize, img.Bounds().Dx())
	})
}
