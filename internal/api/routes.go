// Package api は編集スナップショットを受け取り、合成・プレビュー・AI背景生成・
// 共有QR発行の各ユースケースを HTTP ルートとして公開します。
package api

import (
	"github.com/shouni/go-wrap-kit/pkg/workflow"

	"github.com/gin-gonic/gin"
)

// NewRouter は Builder から各ユースケースを組み立てて API ルーターを構築します。
func NewRouter(b *workflow.Builder) (*gin.Engine, error) {
	h, err := newHandlers(b)
	if err != nil {
		return nil, err
	}
	return newEngine(h), nil
}

// newEngine は gin エンジンへルートを登録します。
func newEngine(h *handlers) *gin.Engine {
	r := gin.Default()
	r.GET("/health", h.health)

	api := r.Group("/api")
	{
		api.POST("/export", h.export)
		api.POST("/preview/texture", h.previewTexture)
		api.POST("/preview/panel/:name", h.previewPanel)
		api.POST("/generate", h.generate)
		api.GET("/share/:design", h.share)
	}
	return r
}
