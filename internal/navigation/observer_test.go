package navigation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/bakery/internal/guard"
	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/session"
)

// --- モック ---

type mockRevoker struct {
	logoutFn func(ctx context.Context, sessionID string) error
}

func (m *mockRevoker) Logout(ctx context.Context, sessionID string) error {
	return m.logoutFn(ctx, sessionID)
}

type mockRecorder struct {
	forced []string
}

func (m *mockRecorder) RecordForcedLogout(from, to string) {
	m.forced = append(m.forced, from+"->"+to)
}

// --- ヘルパー ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(role model.Role) (*session.Store, *Record) {
	store := session.NewStore()
	rec := NewRecord()
	store.OnClear(rec.Forget)
	if role != "" {
		store.SetSession(&model.Profile{ID: "p1", FullName: "Rosa Díaz", Role: role}, "sess-1")
	}
	return store, rec
}

func policyWith(check guard.BackNavigationCheck, adminOnUser guard.Outcome) *guard.Provider {
	p := guard.DefaultPolicy()
	p.BackNavigation = check
	p.AdminOnUserRoute = adminOnUser
	return guard.NewProvider(p)
}

// --- テスト ---

// TestObserver_AdminBackToCatalog は管理者が/admin/ordersから/catalogへ戻った場合に
// 強制ログアウトされ、続くガード評価がログインへリダイレクトすることを検証する。
func TestObserver_AdminBackToCatalog(t *testing.T) {
	provider := policyWith(guard.BackNavigationAdminToUser, guard.OutcomeAllow)
	var revoked string
	revoker := &mockRevoker{logoutFn: func(ctx context.Context, sessionID string) error {
		revoked = sessionID
		return nil
	}}
	rec := &mockRecorder{}
	o := NewObserver(provider, revoker, rec, discardLogger())
	store, record := newClient(model.RoleAdmin)

	if v := o.Completed(context.Background(), store, record, "/admin/orders"); v != VerdictRecorded {
		t.Fatalf("expected recorded, got %q", v)
	}
	if v := o.Completed(context.Background(), store, record, "/catalog"); v != VerdictForcedLogout {
		t.Fatalf("expected forced logout, got %q", v)
	}

	if store.Snapshot().LoggedIn() {
		t.Error("expected session to be cleared")
	}
	if record.Previous() != "" {
		t.Errorf("expected record to be forgotten, got %q", record.Previous())
	}
	if revoked != "sess-1" {
		t.Errorf("expected session sess-1 to be revoked, got %q", revoked)
	}
	if len(rec.forced) != 1 || rec.forced[0] != "admin->user" {
		t.Errorf("unexpected metrics: %v", rec.forced)
	}

	e := guard.NewEvaluator(provider, nil, discardLogger())
	d, err := e.Evaluate(context.Background(), store, guard.Request{Target: "/catalog"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Outcome != guard.OutcomeLogin {
		t.Errorf("expected redirect to login, got %+v", d)
	}
}

func TestObserver_Rules(t *testing.T) {
	tests := []struct {
		name  string
		check guard.BackNavigationCheck
		role  model.Role
		prev  string
		cur   string
		want  Verdict
	}{
		{"管理画面内の遷移", guard.BackNavigationAdminToUser, model.RoleAdmin, "/admin/products", "/admin/orders", VerdictRecorded},
		{"管理画面から公開ページ", guard.BackNavigationAdminToUser, model.RoleAdmin, "/admin/orders", "/login", VerdictRecorded},
		{"管理画面からカート", guard.BackNavigationAdminToUser, model.RoleAdmin, "/admin/products", "/cart", VerdictForcedLogout},
		{"ユーザーから管理画面（片方向）", guard.BackNavigationAdminToUser, model.RoleUser, "/catalog", "/admin/orders", VerdictRecorded},
		{"ユーザーから管理画面（両方向）", guard.BackNavigationBoth, model.RoleUser, "/catalog", "/admin/orders", VerdictForcedLogout},
		{"両方向でも管理画面からユーザー", guard.BackNavigationBoth, model.RoleAdmin, "/admin/orders", "/my-orders", VerdictForcedLogout},
		{"検知無効", guard.BackNavigationOff, model.RoleAdmin, "/admin/orders", "/catalog", VerdictRecorded},
		{"未ログインは対象外", guard.BackNavigationAdminToUser, "", "/admin/orders", "/catalog", VerdictRecorded},
		{"未分類パスは無視", guard.BackNavigationAdminToUser, model.RoleAdmin, "/admin/orders", "/uploads/a.png", VerdictIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewObserver(policyWith(tt.check, guard.OutcomeAllow), nil, nil, discardLogger())
			store, record := newClient(tt.role)

			o.Completed(context.Background(), store, record, tt.prev)
			if got := o.Completed(context.Background(), store, record, tt.cur); got != tt.want {
				t.Errorf("Completed(%s -> %s) = %q, want %q", tt.prev, tt.cur, got, tt.want)
			}
		})
	}
}

// TestObserver_RecordsLastCompleted は記録が最後に完了した遷移先を保持することを検証する。
func TestObserver_RecordsLastCompleted(t *testing.T) {
	o := NewObserver(guard.NewProvider(nil), nil, nil, discardLogger())
	store, record := newClient(model.RoleUser)

	o.Completed(context.Background(), store, record, "/catalog?categoria=panes")
	o.Completed(context.Background(), store, record, "/cart/")
	if got := record.Previous(); got != "/cart" {
		t.Errorf("expected /cart, got %q", got)
	}

	o.Completed(context.Background(), store, record, "/api/cart")
	if got := record.Previous(); got != "/cart" {
		t.Errorf("unclassified path should not be recorded, got %q", got)
	}
}

// TestObserver_RevokeFailureStillLogsOut はサーバー側の失効に失敗してもローカルのセッションはクリアされることを検証する。
func TestObserver_RevokeFailureStillLogsOut(t *testing.T) {
	revoker := &mockRevoker{logoutFn: func(ctx context.Context, sessionID string) error {
		return errors.New("db down")
	}}
	o := NewObserver(policyWith(guard.BackNavigationAdminToUser, guard.OutcomeAllow), revoker, nil, discardLogger())
	store, record := newClient(model.RoleAdmin)

	o.Completed(context.Background(), store, record, "/admin/products")
	if v := o.Completed(context.Background(), store, record, "/catalog"); v != VerdictForcedLogout {
		t.Fatalf("expected forced logout, got %q", v)
	}
	if store.Snapshot().LoggedIn() {
		t.Error("expected session to be cleared")
	}
}

// TestObserver_LogoutForgetsHistory は明示的なログアウトで記録が消え、
// 再ログイン後の最初の遷移が違反とならないことを検証する。
func TestObserver_LogoutForgetsHistory(t *testing.T) {
	o := NewObserver(policyWith(guard.BackNavigationAdminToUser, guard.OutcomeAllow), nil, nil, discardLogger())
	store, record := newClient(model.RoleAdmin)

	o.Completed(context.Background(), store, record, "/admin/orders")
	store.ClearSession()
	store.SetSession(&model.Profile{ID: "u2", Role: model.RoleUser}, "sess-2")

	if v := o.Completed(context.Background(), store, record, "/catalog"); v != VerdictRecorded {
		t.Errorf("expected recorded after fresh login, got %q", v)
	}
}

func TestAttempts(t *testing.T) {
	var a Attempts
	first := a.Begin()
	if !a.Current(first) {
		t.Fatal("first attempt should be current")
	}
	second := a.Begin()
	if a.Current(first) {
		t.Error("first attempt should be superseded")
	}
	if !a.Current(second) {
		t.Error("second attempt should be current")
	}
}
