package workflow

import (
	"context"

	"github.com/shouni/go-wrap-kit/pkg/domain"
	"github.com/shouni/go-wrap-kit/pkg/editor"
	"github.com/shouni/go-wrap-kit/pkg/publisher"
	"github.com/shouni/go-wrap-kit/pkg/runner"
	"github.com/shouni/go-wrap-kit/pkg/studio"
)

// Workflow は、ラップ合成ワークフローの各工程を担当する Runner を構築するためのインターフェースを定義します。
type Workflow interface {
	BuildExportRunner() (ExportRunner, error)
	BuildPreviewRunner() (PreviewRunner, error)
	BuildGenerateRunner(store *editor.Store) (GenerateRunner, error)
	BuildPublisher() (Publisher, error)
}

// ExportRunner は、編集状態を検証し、テクスチャ・サムネイル・スナップショットの成果物一式を生成する責務を持ちます。
type ExportRunner interface {
	Run(ctx context.Context, state domain.EditorState) (*runner.ExportResult, error)
}

// PreviewRunner は、3Dビューアへ渡すロスレス WebP プレビューを生成する責務を持ちます。
type PreviewRunner interface {
	RenderPanelWebP(ctx context.Context, state domain.EditorState, panelName string) ([]byte, error)
	RenderTextureWebP(ctx context.Context, state domain.EditorState) ([]byte, error)
}

// GenerateRunner は、AI背景を生成して編集状態へ反映する責務を持ちます。
type GenerateRunner interface {
	Run(ctx context.Context, req runner.GenerateRequest) ([]studio.GeneratedBackground, error)
}

// Publisher は、書き出し成果物の永続化と共有QRコードの発行を担う責務を持ちます。
type Publisher interface {
	Publish(ctx context.Context, export runner.ExportResult, opts publisher.Options) (publisher.PublishResult, error)
	ShareQR(designName string) (string, []byte, error)
}
