package navigation

import (
	"sync/atomic"

	"github.com/hitoshi/bakery/internal/guard"
)

// Attempts はクライアントごとの遷移試行の世代番号を発行する。
// 新しい試行が始まると、それ以前の試行はCurrentでfalseを返す。
type Attempts struct {
	latest atomic.Uint64
}

// Begin は新しい遷移試行を登録し、その番号を返す。
func (a *Attempts) Begin() uint64 {
	return a.latest.Add(1)
}

// Current はattemptが最新の試行かどうかを返す。
func (a *Attempts) Current(attempt uint64) bool {
	return a.latest.Load() == attempt
}

var _ guard.AttemptTracker = (*Attempts)(nil)
