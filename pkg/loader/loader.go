// Package loader はレイヤー画像ソースの取得とデコードを担います。
// ブラウザ由来の data URI、公開 URL、GCS などのリモートパスを
// 単一の Load 呼び出しに束ね、デコード済み画像をキャッシュするのだ。
package loader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// ImageCacher はデコード済み画像のキャッシュ操作を抽象化します。
// patrickmn/go-cache の Cache がこのインターフェースを満たすのだ。
type ImageCacher interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, d time.Duration)
}

// ImageLoader は画像ソースの取得・デコード・キャッシュを行うローダーです。
type ImageLoader struct {
	httpClient httpkit.ClientInterface
	reader     remoteio.InputReader
	cache      ImageCacher
	expiration time.Duration
	limiter    *rate.Limiter
	group      singleflight.Group
}

// NewImageLoader は依存関係を注入して ImageLoader を初期化します。
// cache と limiter は nil を許容します（キャッシュ無し・無制限で動く）。
func NewImageLoader(httpClient httpkit.ClientInterface, reader remoteio.InputReader, cache ImageCacher, cacheTTL time.Duration, limiter *rate.Limiter) (*ImageLoader, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient は必須です")
	}
	if reader == nil {
		return nil, fmt.Errorf("reader は必須です")
	}
	return &ImageLoader{
		httpClient: httpClient,
		reader:     reader,
		cache:      cache,
		expiration: cacheTTL,
		limiter:    limiter,
	}, nil
}

// Load は画像ソースを解決し、デコード済み画像を返します。
// 同一ソースへの並行リクエストは singleflight で1回に束ね、結果をキャッシュします。
func (l *ImageLoader) Load(ctx context.Context, source string) (image.Image, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("画像ソースが空です")
	}

	if img, ok := l.fromCache(source); ok {
		return img, nil
	}

	v, err, _ := l.group.Do(source, func() (interface{}, error) {
		// Do 待ちの間に先行ゴルーチンが格納している可能性があるため再確認するのだ
		if img, ok := l.fromCache(source); ok {
			return img, nil
		}

		img, err := l.fetchAndDecode(ctx, source)
		if err != nil {
			return nil, err
		}
		if l.cache != nil {
			l.cache.Set(source, img, l.expiration)
		}
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

// Prefetch は合成前にレイヤー画像をまとめて取得し、キャッシュを温めます。
// 個々のソースの失敗は合成時のスキップ判断に委ねるため、エラーにしません。
// コンテキストの中断だけがエラーとして返ります。
func (l *ImageLoader) Prefetch(ctx context.Context, sources []string) error {
	unique := uniqueSources(sources)
	if len(unique) == 0 {
		return nil
	}

	slog.Info("レイヤー画像の先読みを開始するのだ", "count", len(unique))

	g, gctx := errgroup.WithContext(ctx)
	for _, source := range unique {
		source := source // ゴルーチンのクロージャ対策なのだ
		g.Go(func() error {
			if _, err := l.Load(gctx, source); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("画像の先読みに失敗したのだ", "source", truncateSource(source), "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (l *ImageLoader) fromCache(source string) (image.Image, bool) {
	if l.cache == nil {
		return nil, false
	}
	if val, ok := l.cache.Get(source); ok {
		if img, ok := val.(image.Image); ok {
			return img, true
		}
	}
	return nil, false
}

func (l *ImageLoader) fetchAndDecode(ctx context.Context, source string) (image.Image, error) {
	data, err := l.fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("画像のデコードに失敗しました (%s): %w", truncateSource(source), err)
	}
	slog.Debug("画像を読み込んだのだ", "source", truncateSource(source), "format", format, "bytes", len(data))
	return img, nil
}

// fetch はソース表記からプロトコルを判別してバイト列を取得します。
func (l *ImageLoader) fetch(ctx context.Context, source string) ([]byte, error) {
	switch {
	case strings.HasPrefix(source, "data:"):
		return decodeDataURI(source)

	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		if safe, err := isSafeURL(source); err != nil || !safe {
			return nil, fmt.Errorf("安全ではないURLが指定されました: %w", err)
		}
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return l.httpClient.FetchBytes(ctx, source)

	default:
		// gs:// やローカルパスは InputReader に委ねる
		rc, err := l.reader.Open(ctx, source)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
}

// isSafeURL は SSRF 対策として取得先 URL を検証します。
// 名前解決されたすべての IP アドレスに対してプライベート IP チェックを行うのだ。
func isSafeURL(rawURL string) (bool, error) {
	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return false, fmt.Errorf("URLパース失敗: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return false, fmt.Errorf("不許可スキーム: %s", parsedURL.Scheme)
	}

	host := parsedURL.Hostname()
	var ips []net.IP

	// 1. IPアドレスが直接指定されているか確認
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		// 2. ホスト名の場合、すべての IP を取得する
		resolved, err := net.LookupIP(host)
		if err != nil {
			return false, fmt.Errorf("ホスト '%s' の名前解決に失敗しました: %w", host, err)
		}
		ips = resolved
	}

	for _, ip := range ips {
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return false, fmt.Errorf("制限されたネットワークへのアクセスを検知: %s", ip.String())
		}
	}
	return true, nil
}

func uniqueSources(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	unique := make([]string, 0, len(sources))
	for _, s := range sources {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}
	return unique
}

// truncateSource はログ出力用にソース表記を切り詰めます。data URI は巨大になるのだ。
func truncateSource(source string) string {
	const max = 64
	if len(source) <= max {
		return source
	}
	return source[:max] + "..."
}
