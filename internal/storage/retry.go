package storage

import (
	"context"
	"net/http"
	"time"
)

// fetchResult はHTTPステータスコードに基づく画像取得結果の分類。
type fetchResult int

const (
	// fetchResultOK は取得成功（2xx）。
	fetchResultOK fetchResult = iota
	// fetchResultStop は再試行しても成功しないステータス（4xx）。
	fetchResultStop
	// fetchResultBackoff は待機して再試行するステータス（429/5xx）。
	fetchResultBackoff
)

const (
	// initialBackoff は指数バックオフの初回遅延。
	initialBackoff = 250 * time.Millisecond
	// maxBackoff は指数バックオフの最大遅延。
	maxBackoff = 2 * time.Second
	// defaultMaxAttempts は画像取得の最大試行回数。
	defaultMaxAttempts = 3
)

// classifyHTTPStatus はHTTPステータスコードを取得結果に分類する。
func classifyHTTPStatus(statusCode int) fetchResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return fetchResultOK
	case statusCode == http.StatusTooManyRequests:
		return fetchResultBackoff
	case statusCode >= 500:
		return fetchResultBackoff
	default:
		return fetchResultStop
	}
}

// calculateBackoff は失敗回数に基づいて指数バックオフ遅延を計算する。
// 初回250ms、2倍ずつ増加、最大2秒。
func calculateBackoff(failures int) time.Duration {
	delay := initialBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// sleepContext はdだけ待機する。ctxがキャンセルされた場合はその時点で戻る。
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
