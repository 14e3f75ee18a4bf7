// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は商品説明や注文メモなど利用者・管理者が入力する自由記述を
// プレーンテキストに落とし込む。SSRFGuard は外部画像の取り込み時に使用する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は自由記述テキストのサニタイズ機能のインターフェース。
type Sanitizer interface {
	// Sanitize はHTMLタグを全て除去したプレーンテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// TextSanitizer はSanitizerの実装。
// bluemondayのStrictPolicyはスレッドセーフで、全てのタグと属性を除去する。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去し、エスケープされた実体参照を元に戻して前後の空白を除去する。
// 出力はJSONのテキストとして扱われる前提で、HTMLとして埋め込まない。
func (s *TextSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// compile-time interface check
var _ Sanitizer = (*TextSanitizer)(nil)
