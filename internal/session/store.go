// Package session はブラウザクライアントごとの認証状態（セッションストア）を提供する。
//
// Storeは「現在のユーザーが誰で、何ができるか」の唯一の情報源であり、
// 書き込みは起動時の復元、明示的なログイン、ログアウト、
// ナビゲーション監視による強制ログアウトのいずれかに限られる。
// 状態が変化するたびにChanged()が返すチャネルがクローズされるため、
// 待機側はポーリングせずに変化を待つことができる。
package session

import (
	"sync"

	"github.com/hitoshi/bakery/internal/model"
)

// State はセッションストアの状態を表す。
type State int

const (
	// StateUnauthenticated は未ログイン状態。
	StateUnauthenticated State = iota
	// StateRestoring は起動時のセッション復元中の状態。
	StateRestoring
	// StateAuthenticatedUser はUSERロールでログイン中の状態。
	StateAuthenticatedUser
	// StateAuthenticatedAdmin はADMINロールでログイン中の状態。
	StateAuthenticatedAdmin
)

// String はログ出力用の状態名を返す。
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateRestoring:
		return "restoring"
	case StateAuthenticatedUser:
		return "authenticated_user"
	case StateAuthenticatedAdmin:
		return "authenticated_admin"
	default:
		return "unknown"
	}
}

// Snapshot はある時点のセッションストアの内容。
// Profileは呼び出し側が変更してもストアに影響しないコピー。
type Snapshot struct {
	Profile   *model.Profile
	SessionID string
	Loading   bool
}

// LoggedIn はプロフィールが読み込まれているかどうかを返す。
func (s Snapshot) LoggedIn() bool {
	return s.Profile != nil
}

// IsAdmin はADMINロールでログイン中かどうかを返す。
func (s Snapshot) IsAdmin() bool {
	return s.Profile != nil && s.Profile.Role == model.RoleAdmin
}

// IsUser はUSERロールでログイン中かどうかを返す。
func (s Snapshot) IsUser() bool {
	return s.Profile != nil && s.Profile.Role == model.RoleUser
}

// State はスナップショットを状態に変換する。
// プロフィールが存在すれば復元中フラグに関係なくログイン状態として扱う。
func (s Snapshot) State() State {
	switch {
	case s.IsAdmin():
		return StateAuthenticatedAdmin
	case s.IsUser():
		return StateAuthenticatedUser
	case s.Loading:
		return StateRestoring
	default:
		return StateUnauthenticated
	}
}

// Store は1クライアント分のセッション状態を保持する単一書き込みのセル。
type Store struct {
	mu        sync.Mutex
	profile   *model.Profile
	sessionID string
	loading   bool
	changed   chan struct{}
	onClear   []func()
}

// NewStore は未ログイン状態のStoreを生成する。
func NewStore() *Store {
	return &Store{changed: make(chan struct{})}
}

// Snapshot は現在の状態を同期的に返す。
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{SessionID: s.sessionID, Loading: s.loading}
	if s.profile != nil {
		p := *s.profile
		snap.Profile = &p
	}
	return snap
}

// Changed は次に状態が変化したときにクローズされるチャネルを返す。
// 待機する側はチャネルを取得してからSnapshotを読み直すこと。
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// BeginRestore はセッション復元の開始を記録し、Loadingをtrueにする。
// 既に復元中またはログイン済みの場合は何もせずfalseを返す。
func (s *Store) BeginRestore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading || s.profile != nil {
		return false
	}
	s.loading = true
	s.notifyLocked()
	return true
}

// CompleteRestore はセッション復元の完了を記録する。
// profileがnilの場合は未ログイン状態として確定する。
// 復元中に明示的なログインやログアウトが行われていた場合、復元結果は破棄しfalseを返す。
func (s *Store) CompleteRestore(profile *model.Profile, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loading {
		return false
	}
	s.loading = false
	if profile != nil {
		p := *profile
		s.profile = &p
		s.sessionID = sessionID
	}
	s.notifyLocked()
	return true
}

// SetSession は明示的なログイン後にプロフィールとセッションIDを設定する。
// 進行中の復元は打ち切られる。ロールはセッションごとに固定のため、
// 既存のセッションは丸ごと置き換える。
func (s *Store) SetSession(profile *model.Profile, sessionID string) {
	if profile == nil {
		s.ClearSession()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := *profile
	s.profile = &p
	s.sessionID = sessionID
	s.loading = false
	s.notifyLocked()
}

// ClearSession は未ログイン状態に戻し、登録されたクリアフックを呼び出す。
// ログアウトとロール違反検知の両方から呼ばれる。
func (s *Store) ClearSession() {
	s.mu.Lock()
	s.profile = nil
	s.sessionID = ""
	s.loading = false
	s.notifyLocked()
	hooks := make([]func(), len(s.onClear))
	copy(hooks, s.onClear)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// OnClear はClearSession時に呼び出されるフックを登録する。
func (s *Store) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}

// notifyLocked は待機中のゴルーチンに変化を通知する。s.muを保持して呼ぶこと。
func (s *Store) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}
