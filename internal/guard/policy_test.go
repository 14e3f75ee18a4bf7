package guard

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/bakery/internal/model"
	"github.com/hitoshi/bakery/internal/route"
	"github.com/hitoshi/bakery/internal/session"
)

func userSnap() session.Snapshot {
	return session.Snapshot{Profile: &model.Profile{ID: "u1", FullName: "Ana Pérez", Role: model.RoleUser}, SessionID: "s1"}
}

func adminSnap() session.Snapshot {
	return session.Snapshot{Profile: &model.Profile{ID: "a1", FullName: "Luis Admin", Role: model.RoleAdmin}, SessionID: "s2"}
}

// TestPolicy_Outcome はポリシー表の全セルを検証する。
func TestPolicy_Outcome(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		state session.State
		class route.Class
		want  Outcome
	}{
		{session.StateUnauthenticated, route.Public, OutcomeAllow},
		{session.StateUnauthenticated, route.UserOnly, OutcomeLogin},
		{session.StateUnauthenticated, route.AdminOnly, OutcomeLogin},
		{session.StateRestoring, route.Public, OutcomeWait},
		{session.StateRestoring, route.UserOnly, OutcomeWait},
		{session.StateRestoring, route.AdminOnly, OutcomeWait},
		{session.StateAuthenticatedUser, route.Public, OutcomeUserHome},
		{session.StateAuthenticatedUser, route.UserOnly, OutcomeAllow},
		{session.StateAuthenticatedUser, route.AdminOnly, OutcomeUserHome},
		{session.StateAuthenticatedAdmin, route.Public, OutcomeAdminHome},
		{session.StateAuthenticatedAdmin, route.UserOnly, OutcomeAdminHome},
		{session.StateAuthenticatedAdmin, route.AdminOnly, OutcomeAllow},
		{session.StateAuthenticatedAdmin, route.Unclassified, OutcomeAllow},
		{session.StateUnauthenticated, route.Unclassified, OutcomeAllow},
	}

	for _, tt := range tests {
		t.Run(tt.state.String()+"/"+tt.class.String(), func(t *testing.T) {
			if got := p.Outcome(tt.state, tt.class); got != tt.want {
				t.Errorf("Outcome(%s, %s) = %q, want %q", tt.state, tt.class, got, tt.want)
			}
		})
	}
}

// TestPolicy_Outcome_AdminOnUserRouteVariants は管理者のユーザーページ遷移の設定値が反映されることを検証する。
func TestPolicy_Outcome_AdminOnUserRouteVariants(t *testing.T) {
	for _, variant := range []Outcome{OutcomeAdminHome, OutcomeUserHome, OutcomeAllow} {
		p := DefaultPolicy()
		p.AdminOnUserRoute = variant
		if got := p.Outcome(session.StateAuthenticatedAdmin, route.UserOnly); got != variant {
			t.Errorf("variant %q: got %q", variant, got)
		}
		// 他のセルは変わらない
		if got := p.Outcome(session.StateAuthenticatedAdmin, route.Public); got != OutcomeAdminHome {
			t.Errorf("variant %q: admin on public = %q, want %q", variant, got, OutcomeAdminHome)
		}
	}
}

// TestPolicy_Decide はリダイレクト先と復帰先パラメータを検証する。
func TestPolicy_Decide(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		snap session.Snapshot
		path string
		want Decision
	}{
		{
			name: "未ログインでカートへ",
			snap: session.Snapshot{},
			path: "/cart",
			want: Decision{
				Outcome:      OutcomeLogin,
				Class:        route.UserOnly,
				RedirectPath: "/login",
				Params:       url.Values{ReturnURLParam: {"/cart"}},
			},
		},
		{
			name: "未ログインで管理画面へは復帰先なし",
			snap: session.Snapshot{},
			path: "/admin/orders",
			want: Decision{Outcome: OutcomeLogin, Class: route.AdminOnly, RedirectPath: "/login"},
		},
		{
			name: "ユーザーが管理画面へ",
			snap: userSnap(),
			path: "/admin/products",
			want: Decision{Outcome: OutcomeUserHome, Class: route.AdminOnly, RedirectPath: "/catalog"},
		},
		{
			name: "ユーザーがログインページへ",
			snap: userSnap(),
			path: "/login",
			want: Decision{Outcome: OutcomeUserHome, Class: route.Public, RedirectPath: "/catalog"},
		},
		{
			name: "管理者がカタログへ",
			snap: adminSnap(),
			path: "/catalog",
			want: Decision{Outcome: OutcomeAdminHome, Class: route.UserOnly, RedirectPath: "/admin/products"},
		},
		{
			name: "管理者が管理画面へ",
			snap: adminSnap(),
			path: "/admin/orders?status=pendiente",
			want: Decision{Outcome: OutcomeAllow, Class: route.AdminOnly},
		},
		{
			name: "未分類のパス",
			snap: session.Snapshot{},
			path: "/uploads/products/1.png",
			want: Decision{Outcome: OutcomeAllow, Class: route.Unclassified},
		},
		{
			name: "復元中",
			snap: session.Snapshot{Loading: true},
			path: "/catalog",
			want: Decision{Outcome: OutcomeWait, Class: route.UserOnly},
		},
		{
			name: "復元中でもプロフィールがあればログイン扱い",
			snap: func() session.Snapshot { s := userSnap(); s.Loading = true; return s }(),
			path: "/catalog",
			want: Decision{Outcome: OutcomeAllow, Class: route.UserOnly},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Decide(tt.snap, tt.path)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decide() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestPolicy_Decide_Idempotent は同じ状態と遷移先で2回判定しても結果が同じことを検証する。
func TestPolicy_Decide_Idempotent(t *testing.T) {
	p := DefaultPolicy()
	snaps := map[string]session.Snapshot{
		"anonymous": {},
		"restoring": {Loading: true},
		"user":      userSnap(),
		"admin":     adminSnap(),
	}
	paths := []string{"/login", "/catalog", "/cart?x=1", "/admin/orders", "/uploads/a.png"}

	for name, snap := range snaps {
		for _, path := range paths {
			first := p.Decide(snap, path)
			second := p.Decide(snap, path)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("%s %s: decisions differ (-first +second):\n%s", name, path, diff)
			}
		}
	}
}

// TestPolicy_Decide_ReturnURLKeepsQuery は復帰先にクエリ文字列が保持されることを検証する。
func TestPolicy_Decide_ReturnURLKeepsQuery(t *testing.T) {
	d := DefaultPolicy().Decide(session.Snapshot{}, "/catalog?categoria=tortas")

	u, err := url.Parse(d.Location())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Path != "/login" {
		t.Errorf("expected /login, got %q", u.Path)
	}
	if got := u.Query().Get(ReturnURLParam); got != "/catalog?categoria=tortas" {
		t.Errorf("expected returnUrl to keep query, got %q", got)
	}
}

func TestDecision_Location(t *testing.T) {
	if got := (Decision{Outcome: OutcomeAllow}).Location(); got != "" {
		t.Errorf("allow should have empty location, got %q", got)
	}
	if got := (Decision{Outcome: OutcomeUserHome, RedirectPath: "/catalog"}).Location(); got != "/catalog" {
		t.Errorf("expected /catalog, got %q", got)
	}
	d := Decision{Outcome: OutcomeLogin, RedirectPath: "/login", Params: url.Values{ReturnURLParam: {"/cart"}}}
	if got := d.Location(); got != "/login?returnUrl=%2Fcart" {
		t.Errorf("unexpected location: %q", got)
	}
}

func TestPolicy_HomeFor(t *testing.T) {
	p := DefaultPolicy()
	if got := p.HomeFor(adminSnap()); got != "/admin/products" {
		t.Errorf("admin home = %q", got)
	}
	if got := p.HomeFor(userSnap()); got != "/catalog" {
		t.Errorf("user home = %q", got)
	}
	if got := p.HomeFor(session.Snapshot{}); got != "/login" {
		t.Errorf("anonymous home = %q", got)
	}
}

func TestPolicy_Validate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(p *Policy)
	}{
		{"相対パスのホーム", func(p *Policy) { p.Homes.User = "catalog" }},
		{"不正なadmin_on_user_route", func(p *Policy) { p.AdminOnUserRoute = OutcomeLogin }},
		{"不正なback_navigation", func(p *Policy) { p.BackNavigation = "sometimes" }},
		{"待機上限ゼロ", func(p *Policy) { p.WaitCeiling = 0 }},
		{"不正なルート", func(p *Policy) { p.Routes = route.Table{{Pattern: "/x", Class: "guest"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
