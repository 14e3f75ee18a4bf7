package guard

import (
	"net/url"

	"github.com/hitoshi/bakery/internal/route"
)

// Decision はガード評価の結果。Allow以外はRedirectPathへのリダイレクトを意味する。
// 呼び出し側は元の遷移を拒否するのと同時にリダイレクトを適用し、
// 元のページを描画してはならない。
type Decision struct {
	Outcome      Outcome
	Class        route.Class
	RedirectPath string
	Params       url.Values
}

// Allowed は遷移が許可されたかどうかを返す。
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// Location はリダイレクト先をクエリ付きで返す。許可の場合は空文字列。
func (d Decision) Location() string {
	if d.Allowed() || d.RedirectPath == "" {
		return ""
	}
	if len(d.Params) == 0 {
		return d.RedirectPath
	}
	return d.RedirectPath + "?" + d.Params.Encode()
}
