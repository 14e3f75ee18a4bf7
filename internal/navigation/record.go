// Package navigation は遷移完了後のロールまたぎ検知（ナビゲーション監視）を提供する。
package navigation

import "sync"

// Record はクライアントごとの直前の遷移先を保持する。
// 更新はObserverのみが行い、セッションのクリア時にForgetで消去する。
type Record struct {
	mu           sync.Mutex
	previousPath string
}

// NewRecord は空のRecordを生成する。
func NewRecord() *Record {
	return &Record{}
}

// Previous は直前に完了した遷移先を返す。未記録の場合は空文字列。
func (r *Record) Previous() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.previousPath
}

// Forget はロールをまたぐ遷移の記憶を消去する。
func (r *Record) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previousPath = ""
}

// advance はcurへの遷移完了を記録する。violatesが直前の遷移先に対してtrueを返した場合は
// 記録を更新せずにtrueを返す。判定と更新は同一ロック内で行う。
func (r *Record) advance(cur string, violates func(prev string) bool) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.previousPath
	if violates(prev) {
		return prev, true
	}
	r.previousPath = cur
	return prev, false
}
