// Package browser はブラウザクライアントごとの状態（セッションストア・遷移記録・遷移試行）を管理する。
//
// クライアントはclient_id Cookieで識別する。セッションCookieが認証の根拠であるのに対し、
// Clientはそのブラウザで「いま誰としてどのページにいるか」を保持する。
package browser

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/navigation"
	"github.com/hitoshi/bakery/internal/session"
)

// defaultRestoreTimeout はセッション復元1回あたりの上限。
// ガードの待機上限を超えても復元自体は続行し、結果はストアに反映する。
const defaultRestoreTimeout = 10 * time.Second

// Restorer はセッションIDからプロフィールを復元する。
// セッションが無効な場合はnil, nilを返す。
type Restorer interface {
	RestoreSession(ctx context.Context, sessionID string) (*model.Profile, error)
}

// Client は1ブラウザ分の状態。
type Client struct {
	ID       string
	Store    *session.Store
	Record   *navigation.Record
	Attempts *navigation.Attempts

	mu       sync.Mutex
	lastSeen time.Time
}

func newClient(id string, now time.Time) *Client {
	c := &Client{
		ID:       id,
		Store:    session.NewStore(),
		Record:   navigation.NewRecord(),
		Attempts: &navigation.Attempts{},
		lastSeen: now,
	}
	// ログアウト・強制ログアウトのどちらでもロールをまたぐ記憶を消す
	c.Store.OnClear(c.Record.Forget)
	return c
}

// LastSeen は最後にアクセスされた時刻を返す。
func (c *Client) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = now
}

// Registry はクライアントIDからClientを引く。
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	restores singleflight.Group
	restorer Restorer
	timeout  time.Duration
	logger   *slog.Logger

	// now はテスト用に差し替え可能な時刻関数。
	now func() time.Time
}

// NewRegistry はRegistryを生成する。
func NewRegistry(restorer Restorer, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		clients:  make(map[string]*Client),
		restorer: restorer,
		timeout:  defaultRestoreTimeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Get は既存のClientを返す。
func (r *Registry) Get(id string) (*Client, bool) {
	r.mu.RLock()
	c, ok := r.clients[id]
	r.mu.RUnlock()
	if ok {
		c.touch(r.now())
	}
	return c, ok
}

// GetOrCreate はClientを返し、存在しなければ作成する。
// 2つ目の戻り値は新規作成した場合にtrue。
func (r *Registry) GetOrCreate(id string) (*Client, bool) {
	if c, ok := r.Get(id); ok {
		return c, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		return c, false
	}
	c := newClient(id, r.now())
	r.clients[id] = c
	return c, true
}

// Restore はクライアントのセッション復元を非同期で開始する。
// 同じセッションIDの復元は同時に1回だけ問い合わせ、結果を共有する。
// 既にログイン済みまたは復元中の場合は何もしない。
func (r *Registry) Restore(c *Client, sessionID string) {
	if !c.Store.BeginRestore() {
		return
	}

	ch := r.restores.DoChan(sessionID, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		return r.restorer.RestoreSession(ctx, sessionID)
	})

	go func() {
		res := <-ch
		var profile *model.Profile
		if res.Err != nil {
			// プロフィール取得の失敗は未ログインとして確定する
			r.logger.Warn("session restore failed",
				slog.String("client_id", c.ID),
				slog.String("error", res.Err.Error()),
			)
		} else if p, ok := res.Val.(*model.Profile); ok {
			profile = p
		}

		if !c.Store.CompleteRestore(profile, sessionID) {
			r.logger.Debug("session restore result discarded", slog.String("client_id", c.ID))
			return
		}
		if profile != nil {
			r.logger.Info("session restored",
				slog.String("client_id", c.ID),
				slog.String("user_id", profile.ID),
				slog.String("role", string(profile.Role)),
			)
		}
	}()
}

// EvictIdle はttl以上アクセスのないClientを削除し、削除件数を返す。
func (r *Registry) EvictIdle(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, c := range r.clients {
		if c.LastSeen().Before(cutoff) {
			delete(r.clients, id)
			n++
		}
	}
	return n
}

// Len は保持しているClient数を返す。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Run はctxがキャンセルされるまでinterval間隔でアイドルClientを削除する。
func (r *Registry) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(ttl); n > 0 {
				r.logger.Info("evicted idle clients", slog.Int("count", n), slog.Int("remaining", r.Len()))
			}
		}
	}
}
