// Package guard はページ遷移前のアクセス判定（ガード評価）を提供する。
//
// 判定は「セッション状態 × ルート分類」の単一のポリシー表で決まる純粋関数で、
// ロールごとにガード関数を複製しない。管理者がユーザー向けページへ遷移した場合の
// 扱いと、ロールをまたぐ戻る操作の強制ログアウト検知はポリシーの設定値として表現する。
package guard

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/bakery/internal/route"
	"github.com/hitoshi/bakery/internal/session"
)

// Outcome はポリシー表の1セルの判定結果。
type Outcome string

const (
	// OutcomeAllow は遷移を許可する。
	OutcomeAllow Outcome = "allow"
	// OutcomeLogin はログインページへリダイレクトする。
	OutcomeLogin Outcome = "redirect_login"
	// OutcomeUserHome はユーザーホームへリダイレクトする。
	OutcomeUserHome Outcome = "redirect_user_home"
	// OutcomeAdminHome は管理者ホームへリダイレクトする。
	OutcomeAdminHome Outcome = "redirect_admin_home"
	// OutcomeWait はセッション復元の完了を待ってから再評価する。
	OutcomeWait Outcome = "wait"
)

// BackNavigationCheck はロールをまたぐ戻る操作の検知範囲。
type BackNavigationCheck string

const (
	// BackNavigationOff は検知しない。
	BackNavigationOff BackNavigationCheck = "off"
	// BackNavigationAdminToUser は管理者ページからユーザーページへの遷移のみ検知する。
	BackNavigationAdminToUser BackNavigationCheck = "admin_to_user"
	// BackNavigationBoth は両方向を検知する。
	BackNavigationBoth BackNavigationCheck = "both"
)

// ReturnURLParam はログイン後の遷移先を渡すクエリパラメータ名。
const ReturnURLParam = "returnUrl"

// DefaultWaitCeiling はセッション復元待ちの上限。
const DefaultWaitCeiling = 3000 * time.Millisecond

// Homes はリダイレクト先のパス。
type Homes struct {
	Login string `yaml:"login"`
	User  string `yaml:"user"`
	Admin string `yaml:"admin"`
}

// Policy はガード評価とナビゲーション監視の設定一式。
// 生成後はイミュータブルとして扱い、変更時は新しいPolicyに差し替える。
type Policy struct {
	Routes           route.Table
	Homes            Homes
	AdminOnUserRoute Outcome
	BackNavigation   BackNavigationCheck
	WaitCeiling      time.Duration
}

// DefaultPolicy は店舗の標準ポリシーを返す。
// 管理者がユーザー向けページへ遷移した場合は管理者ホームへリダイレクトし、
// 管理者ページからユーザーページへの戻る操作は強制ログアウトとする。
func DefaultPolicy() *Policy {
	return &Policy{
		Routes: route.DefaultTable(),
		Homes: Homes{
			Login: "/login",
			User:  "/catalog",
			Admin: "/admin/products",
		},
		AdminOnUserRoute: OutcomeAdminHome,
		BackNavigation:   BackNavigationAdminToUser,
		WaitCeiling:      DefaultWaitCeiling,
	}
}

// Validate はポリシーの整合性を検証する。
func (p *Policy) Validate() error {
	if err := p.Routes.Validate(); err != nil {
		return err
	}
	for name, home := range map[string]string{"login": p.Homes.Login, "user": p.Homes.User, "admin": p.Homes.Admin} {
		if !strings.HasPrefix(home, "/") {
			return fmt.Errorf("%s home must be an absolute path: %q", name, home)
		}
	}
	switch p.AdminOnUserRoute {
	case OutcomeAdminHome, OutcomeUserHome, OutcomeAllow:
	default:
		return fmt.Errorf("invalid admin_on_user_route: %q", p.AdminOnUserRoute)
	}
	switch p.BackNavigation {
	case BackNavigationOff, BackNavigationAdminToUser, BackNavigationBoth:
	default:
		return fmt.Errorf("invalid back_navigation_logout: %q", p.BackNavigation)
	}
	if p.WaitCeiling <= 0 {
		return fmt.Errorf("wait ceiling must be positive: %s", p.WaitCeiling)
	}
	return nil
}

// Outcome はセッション状態とルート分類からポリシー表のセルを返す。
func (p *Policy) Outcome(state session.State, class route.Class) Outcome {
	if class == route.Unclassified {
		return OutcomeAllow
	}

	switch state {
	case session.StateRestoring:
		return OutcomeWait

	case session.StateUnauthenticated:
		switch class {
		case route.Public:
			return OutcomeAllow
		default:
			return OutcomeLogin
		}

	case session.StateAuthenticatedUser:
		switch class {
		case route.UserOnly:
			return OutcomeAllow
		default:
			return OutcomeUserHome
		}

	case session.StateAuthenticatedAdmin:
		switch class {
		case route.AdminOnly:
			return OutcomeAllow
		case route.UserOnly:
			return p.AdminOnUserRoute
		default:
			return OutcomeAdminHome
		}
	}

	return OutcomeLogin
}

// Decide はスナップショットと遷移先から判定を返す純粋関数。
// targetはクエリ文字列を含む遷移先で、ログインへのリダイレクト時にreturnUrlとして付与する。
// 復元中のスナップショットに対してはOutcomeWaitの判定を返す。
func (p *Policy) Decide(snap session.Snapshot, target string) Decision {
	class := p.Routes.Classify(target)
	outcome := p.Outcome(snap.State(), class)

	d := Decision{Outcome: outcome, Class: class}
	switch outcome {
	case OutcomeLogin:
		d.RedirectPath = p.Homes.Login
		// ユーザー向けページのみ復帰先を保持する
		if class == route.UserOnly {
			d.Params = url.Values{ReturnURLParam: []string{target}}
		}
	case OutcomeUserHome:
		d.RedirectPath = p.Homes.User
	case OutcomeAdminHome:
		d.RedirectPath = p.Homes.Admin
	}
	return d
}

// HomeFor はロールに対応するホームパスを返す。
func (p *Policy) HomeFor(snap session.Snapshot) string {
	switch {
	case snap.IsAdmin():
		return p.Homes.Admin
	case snap.IsUser():
		return p.Homes.User
	default:
		return p.Homes.Login
	}
}
