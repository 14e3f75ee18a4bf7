package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/security"
)

// Importer は外部URLの画像を取得してImageStoreに保存する。
// 429と5xxは指数バックオフで再試行する。
type Importer struct {
	guard       security.URLGuard
	store       ImageStore
	maxSize     int64
	maxAttempts int
	wait        func(ctx context.Context, d time.Duration) error
}

// NewImporter はImporterを生成する。
func NewImporter(guard security.URLGuard, store ImageStore, maxSize int64) *Importer {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Importer{
		guard:       guard,
		store:       store,
		maxSize:     maxSize,
		maxAttempts: defaultMaxAttempts,
		wait:        sleepContext,
	}
}

// Import はSSRF検証済みのクライアントで画像を取得し、保存先の公開URLを返す。
func (i *Importer) Import(ctx context.Context, rawURL string) (string, error) {
	if err := i.guard.ValidateURL(rawURL); err != nil {
		slog.Warn("画像取込: SSRFブロック", "url", rawURL, "error", err)
		return "", model.NewSSRFBlockedError()
	}

	var status int
	for attempt := 0; attempt < i.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := i.wait(ctx, calculateBackoff(attempt-1)); err != nil {
				return "", model.NewImageFetchFailedError("tiempo de espera agotado")
			}
		}

		url, code, err := i.fetch(ctx, rawURL)
		if err != nil {
			return "", err
		}
		if classifyHTTPStatus(code) == fetchResultOK {
			return url, nil
		}
		status = code
		if classifyHTTPStatus(code) == fetchResultStop {
			break
		}
		slog.Info("画像取込: 再試行", "url", rawURL, "status", code, "attempt", attempt+1)
	}

	slog.Warn("画像取込: HTTPステータス異常", "url", rawURL, "status", status)
	return "", model.NewImageFetchFailedError(fmt.Sprintf("HTTP %d", status))
}

// fetch は1回分の取得を行う。2xx以外の場合はステータスコードのみを返す。
func (i *Importer) fetch(ctx context.Context, rawURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, model.NewImageFetchFailedError("URL no válida")
	}
	req.Header.Set("User-Agent", "Bakery/1.0 ImageImporter")
	req.Header.Set("Accept", "image/*")

	resp, err := i.guard.Client().Do(req)
	if err != nil {
		slog.Warn("画像取込: HTTPリクエスト失敗", "url", rawURL, "error", err)
		return "", 0, model.NewImageFetchFailedError("no se pudo conectar")
	}
	defer resp.Body.Close()

	if classifyHTTPStatus(resp.StatusCode) != fetchResultOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", resp.StatusCode, nil
	}
	if resp.ContentLength > i.maxSize {
		return "", resp.StatusCode, model.NewInvalidImageError("supera el tamaño máximo")
	}

	url, err := i.store.Save(ctx, io.LimitReader(resp.Body, i.maxSize+1))
	return url, resp.StatusCode, err
}
