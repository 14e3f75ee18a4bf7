package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const passwordSpecials = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

var strengthLabels = [...]string{"", "Muy débil", "Débil", "Buena", "Muy segura"}

// Strength はパスワード強度の表示用スコア。
type Strength struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

// PasswordStrength はパスワード強度を1〜4で評価する。
// 長さ（8文字以上・12文字以上）、大文字、記号をそれぞれ1点とする。
func PasswordStrength(password string) Strength {
	n := utf8.RuneCountInString(password)
	score := 0
	if n >= 8 {
		score++
	}
	if n >= 12 {
		score++
	}
	if strings.IndexFunc(password, func(r rune) bool { return r <= unicode.MaxASCII && unicode.IsUpper(r) }) >= 0 {
		score++
	}
	if strings.ContainsAny(password, passwordSpecials) {
		score++
	}
	score = max(1, min(4, score))
	return Strength{Score: score, Label: strengthLabels[score]}
}
