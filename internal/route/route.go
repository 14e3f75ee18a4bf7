// Package route はページルートの分類（Public / UserOnly / AdminOnly）を提供する。
// 分類は静的な設定であり、状態を持たない。
package route

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Class はルートの分類を表す。
type Class string

const (
	// Unclassified はガード対象外のパス（静的ファイル、API等）。
	Unclassified Class = ""
	// Public は未ログイン利用者向けのページ（ログイン・登録）。
	Public Class = "public"
	// UserOnly はUSERロール向けのページ。
	UserOnly Class = "user"
	// AdminOnly はADMINロール向けのページ。
	AdminOnly Class = "admin"
)

// Valid は定義済みの分類かどうかを返す。
func (c Class) Valid() bool {
	switch c {
	case Public, UserOnly, AdminOnly:
		return true
	default:
		return false
	}
}

// String はログ・メトリクス用の名前を返す。
func (c Class) String() string {
	if c == Unclassified {
		return "unclassified"
	}
	return string(c)
}

// Rule はパスパターンと分類の組。
// パターンはdoublestarのglob記法（例: /admin/**）。
type Rule struct {
	Pattern string `yaml:"pattern"`
	Class   Class  `yaml:"class"`
}

// Table はルール一覧。先頭から評価し、最初に一致したルールを採用する。
type Table []Rule

// DefaultTable は店舗のページルート分類を返す。
func DefaultTable() Table {
	return Table{
		{Pattern: "/login", Class: Public},
		{Pattern: "/register", Class: Public},
		{Pattern: "/catalog", Class: UserOnly},
		{Pattern: "/cart", Class: UserOnly},
		{Pattern: "/my-orders", Class: UserOnly},
		{Pattern: "/admin", Class: AdminOnly},
		{Pattern: "/admin/**", Class: AdminOnly},
	}
}

// Classify はパスの分類を返す。クエリ文字列は無視する。
// どのルールにも一致しない場合はUnclassifiedを返す。
func (t Table) Classify(path string) Class {
	p := Normalize(path)
	for _, rule := range t {
		ok, err := doublestar.Match(rule.Pattern, p)
		if err == nil && ok {
			return rule.Class
		}
	}
	return Unclassified
}

// Validate は全ルールのパターンと分類を検証する。
func (t Table) Validate() error {
	for i, rule := range t {
		if !strings.HasPrefix(rule.Pattern, "/") {
			return fmt.Errorf("route rule %d: pattern must start with '/': %q", i, rule.Pattern)
		}
		if !doublestar.ValidatePattern(rule.Pattern) {
			return fmt.Errorf("route rule %d: invalid pattern %q", i, rule.Pattern)
		}
		if !rule.Class.Valid() {
			return fmt.Errorf("route rule %d: invalid class %q", i, rule.Class)
		}
	}
	return nil
}

// Normalize はクエリとフラグメントを除去し、末尾のスラッシュを取り除いたパスを返す。
// ルート（/）はそのまま返す。
func Normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}
