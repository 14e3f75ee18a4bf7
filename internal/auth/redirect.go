package auth

import (
	"net/url"
	"strings"

	"github.com/hitoshi/bakery/internal/model"
)

// Homes はロールごとのログイン後の遷移先。
type Homes struct {
	User  string
	Admin string
}

// PostLoginPath はログイン後の遷移先を返す。
// 管理者は常に管理者ホームへ、利用者は安全な復帰先があればそこへ、なければユーザーホームへ遷移する。
func PostLoginPath(role model.Role, returnURL string, homes Homes) string {
	if role == model.RoleAdmin {
		return homes.Admin
	}
	if p, ok := SanitizeReturnURL(returnURL); ok {
		return p
	}
	return homes.User
}

// SanitizeReturnURL は復帰先がサイト内の絶対パスであれば返す。
// スキーム付きURL、プロトコル相対URL（//host）、バックスラッシュを含むものは拒否する。
func SanitizeReturnURL(raw string) (string, bool) {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return raw, true
}
