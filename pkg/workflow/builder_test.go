package workflow

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/shouni/go-wrap-kit/pkg/editor"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// --- Mocks ---

type mockAIClient struct{}

func (m *mockAIClient) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error) {
	return "https://gemini.api/files/new-file-id", "files/new-file-id", nil
}

func (m *mockAIClient) DeleteFile(ctx context.Context, name string) error { return nil }

func (m *mockAIClient) GenerateContent(ctx context.Context, model string, prompt string) (*gemini.Response, error) {
	return nil, nil
}

func (m *mockAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	return &gemini.Response{}, nil
}

func (m *mockAIClient) GetFile(ctx context.Context, name string) (*genai.File, error) {
	return nil, nil
}

type mockHTTPClient struct{}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return nil, nil
}
func (m *mockHTTPClient) DoRequest(req *http.Request) ([]byte, error) { return nil, nil }
func (m *mockHTTPClient) FetchAndDecodeJSON(ctx context.Context, url string, v any) error {
	return nil
}
func (m *mockHTTPClient) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	return nil, nil
}
func (m *mockHTTPClient) PostRawBodyAndFetchBytes(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	return nil, nil
}

type mockReader struct{}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	return nil, nil
}
func (m *mockReader) List(ctx context.Context, uri string, fn func(string) error) error {
	return nil
}

type mockWriter struct{}

func (m *mockWriter) Write(ctx context.Context, path string, r io.Reader, contentType string) error {
	return nil
}

// --- Tests ---

func TestNewBuilder(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("httpClient が nil ならエラーになること", func(t *testing.T) {
		_, err := NewBuilder(cfg, nil, &mockAIClient{}, &mockReader{}, &mockWriter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "httpClient")
	})

	t.Run("reader が nil ならエラーになること", func(t *testing.T) {
		_, err := NewBuilder(cfg, &mockHTTPClient{}, &mockAIClient{}, nil, &mockWriter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reader")
	})

	t.Run("writer が nil ならエラーになること", func(t *testing.T) {
		_, err := NewBuilder(cfg, &mockHTTPClient{}, &mockAIClient{}, &mockReader{}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "writer")
	})

	t.Run("aiClient なしでも構築できること", func(t *testing.T) {
		b, err := NewBuilder(cfg, &mockHTTPClient{}, nil, &mockReader{}, &mockWriter{})
		require.NoError(t, err)
		assert.NotNil(t, b.engine)
		assert.NotNil(t, b.imgLoader)
		assert.Nil(t, b.studio, "aiClient なしではスタジオは構築されないこと")
	})

	t.Run("aiClient ありではスタジオも構築されること", func(t *testing.T) {
		b, err := NewBuilder(cfg, &mockHTTPClient{}, &mockAIClient{}, &mockReader{}, &mockWriter{})
		require.NoError(t, err)
		assert.NotNil(t, b.studio)
	})
}

func TestBuilder_BuildRunners(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShareBaseURL = "https://wrap.example.com"

	b, err := NewBuilder(cfg, &mockHTTPClient{}, &mockAIClient{}, &mockReader{}, &mockWriter{})
	require.NoError(t, err)

	exportRunner, err := b.BuildExportRunner()
	require.NoError(t, err)
	assert.NotNil(t, exportRunner)

	previewRunner, err := b.BuildPreviewRunner()
	require.NoError(t, err)
	assert.NotNil(t, previewRunner)

	generateRunner, err := b.BuildGenerateRunner(editor.NewStore(nil))
	require.NoError(t, err)
	assert.NotNil(t, generateRunner)

	pub, err := b.BuildPublisher()
	require.NoError(t, err)
	assert.NotNil(t, pub)
}

func TestBuilder_BuildGenerateRunner_WithoutAIClient(t *testing.T) {
	b, err := NewBuilder(DefaultConfig(), &mockHTTPClient{}, nil, &mockReader{}, &mockWriter{})
	require.NoError(t, err)

	_, err = b.BuildGenerateRunner(editor.NewStore(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}
