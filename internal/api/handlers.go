package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shouni/go-wrap-kit/pkg/compositor"
	"github.com/shouni/go-wrap-kit/pkg/domain"
	"github.com/shouni/go-wrap-kit/pkg/editor"
	"github.com/shouni/go-wrap-kit/pkg/publisher"
	"github.com/shouni/go-wrap-kit/pkg/runner"
	"github.com/shouni/go-wrap-kit/pkg/studio"
	"github.com/shouni/go-wrap-kit/pkg/workflow"

	"github.com/gin-gonic/gin"
)

// generateRunnerFactory はスナップショットごとに GenerateRunner を組み立てます。
type generateRunnerFactory func(store *editor.Store) (workflow.GenerateRunner, error)

// handlers は各ルートが使うユースケース群を束ねます。
type handlers struct {
	exporter  workflow.ExportRunner
	previewer workflow.PreviewRunner
	publisher workflow.Publisher
	generator generateRunnerFactory
	outputDir string
}

// newHandlers は Builder から各ユースケースの Runner を組み立てます。
func newHandlers(b *workflow.Builder) (*handlers, error) {
	if b == nil {
		return nil, fmt.Errorf("builder は必須です")
	}

	exporter, err := b.BuildExportRunner()
	if err != nil {
		return nil, err
	}
	previewer, err := b.BuildPreviewRunner()
	if err != nil {
		return nil, err
	}
	pub, err := b.BuildPublisher()
	if err != nil {
		return nil, err
	}

	return &handlers{
		exporter:  exporter,
		previewer: previewer,
		publisher: pub,
		generator: b.BuildGenerateRunner,
		outputDir: b.Config().OutputDir,
	}, nil
}

// health は稼働確認エンドポイントです。
func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// export はスナップショットを合成して成果物一式を保存し、保存先を返します。
func (h *handlers) export(c *gin.Context) {
	snap, ok := decodeSnapshot(c)
	if !ok {
		return
	}

	result, err := h.exporter.Run(c.Request.Context(), snap.State())
	if err != nil {
		respondComposeError(c, err)
		return
	}

	pub, err := h.publisher.Publish(c.Request.Context(), *result, publisher.Options{OutputDir: h.outputDir})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"texture_path":   pub.TexturePath,
		"thumbnail_path": pub.ThumbnailPath,
		"snapshot_path":  pub.SnapshotPath,
		"share_url":      pub.ShareURL,
	})
}

// previewTexture は連結テクスチャ全体をロスレス WebP で返します。
func (h *handlers) previewTexture(c *gin.Context) {
	snap, ok := decodeSnapshot(c)
	if !ok {
		return
	}

	data, err := h.previewer.RenderTextureWebP(c.Request.Context(), snap.State())
	if err != nil {
		respondComposeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/webp", data)
}

// previewPanel は URL パラメータで指定された1面だけを WebP で返します。
func (h *handlers) previewPanel(c *gin.Context) {
	name := c.Param("name")
	snap, ok := decodeSnapshot(c)
	if !ok {
		return
	}

	state := snap.State()
	if state.Panels.IndexByName(name) < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("パネルが見つかりません: %q", name)})
		return
	}

	data, err := h.previewer.RenderPanelWebP(c.Request.Context(), state, name)
	if err != nil {
		respondComposeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/webp", data)
}

// generateRequest は POST /api/generate のボディです。
// snapshot には編集スナップショット全体をそのまま埋め込みます。
type generateRequest struct {
	Prompt   string          `json:"prompt"`
	Panels   []string        `json:"panels,omitempty"`
	Unified  bool            `json:"unified,omitempty"`
	Seed     int64           `json:"seed,omitempty"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// generatedItem は生成結果1件の応答表現です。
type generatedItem struct {
	PanelName string `json:"panel_name"`
	DataURI   string `json:"data_uri"`
	MimeType  string `json:"mime_type"`
	UsedSeed  int64  `json:"used_seed"`
	Prompt    string `json:"prompt"`
}

// generate は AI 背景を生成し、反映済みスナップショットと生成結果を返します。
func (h *handlers) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "プロンプトが空です"})
		return
	}

	snap, err := domain.DecodeSnapshot(bytes.NewReader(req.Snapshot))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	store := editor.NewStore(snap)
	genRunner, err := h.generator(store)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	results, err := genRunner.Run(c.Request.Context(), runner.GenerateRequest{
		Prompt:     req.Prompt,
		PanelNames: req.Panels,
		Unified:    req.Unified,
		Seed:       req.Seed,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generated": toGeneratedItems(results),
		"snapshot":  store.Snapshot(),
	})
}

// share はデザイン閲覧ページへ誘導する QR コードを PNG で返します。
func (h *handlers) share(c *gin.Context) {
	_, png, err := h.publisher.ShareQR(c.Param("design"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// decodeSnapshot はリクエストボディの編集スナップショットを復元します。
// 失敗時は 400 を返し、ok=false を返します。
func decodeSnapshot(c *gin.Context) (*domain.EditorSnapshot, bool) {
	snap, err := domain.DecodeSnapshot(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return snap, true
}

// respondComposeError は合成エラーを HTTP ステータスへ対応付けます。
// 未完成パネルによる検証エラーは 422 とし、面名の一覧を添えます。
func respondComposeError(c *gin.Context, err error) {
	var ve *compositor.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          ve.Error(),
			"missing_panels": ve.Missing,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// toGeneratedItems は生成結果を応答用の形へ写し替えます。
func toGeneratedItems(results []studio.GeneratedBackground) []generatedItem {
	items := make([]generatedItem, 0, len(results))
	for _, r := range results {
		items = append(items, generatedItem{
			PanelName: r.PanelName,
			DataURI:   r.DataURI,
			MimeType:  r.MimeType,
			UsedSeed:  r.UsedSeed,
			Prompt:    r.Prompt,
		})
	}
	return items
}
