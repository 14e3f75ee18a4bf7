// Package validation は登録・ログイン・商品フォームの入力検証を提供する。
//
// 検証エラーは「フィールド名 → エラーコード」のマップで返す。
// エラーコードはフロントエンドの表示文言のキーと一致させる。
package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"
)

// フィールドエラーのコード。
const (
	CodeRequired  = "required"
	CodeMinLength = "minlength"

	CodeNameLettersOnly = "nombreSoloLetras"
	CodeNameIncomplete  = "nombreIncompleto"

	CodePhoneDigitsOnly = "telefonoSoloDigitos"
	CodePhoneLength     = "telefonoLongitud"
	CodePhonePrefix     = "telefonoInicio"

	CodeEmailFormat        = "emailFormato"
	CodeEmailDomainBlocked = "emailDominioInvalido"

	CodePasswordShort     = "passwordCorta"
	CodePasswordNoLetters = "passwordSinLetras"
	CodePasswordNoDigits  = "passwordSinNumeros"
	CodePasswordMismatch  = "passwordMismatch"

	CodeNegative = "negativo"
)

const (
	minFullNameLength = 3
	phoneLength       = 9
	minPasswordLength = 8
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// blockedEmailDomains は使い捨てメールのドメイン。サブドメインも対象とする。
	blockedEmailDomains = map[string]bool{
		"mailinator.com":    true,
		"tempmail.com":      true,
		"guerrillamail.com": true,
		"yopmail.com":       true,
		"trashmail.com":     true,
	}
)

// Errors はフィールド名からエラーコードへのマップ。
type Errors map[string]string

// Registration は会員登録フォームの入力。
type Registration struct {
	FullName        string
	Phone           string
	Email           string
	Password        string
	ConfirmPassword string
	AcceptTerms     bool
}

// ValidateRegistration は会員登録フォームを検証する。エラーがなければnilを返す。
func ValidateRegistration(in Registration) Errors {
	errs := Errors{}
	if code := FullName(in.FullName); code != "" {
		errs["fullName"] = code
	}
	if code := Phone(in.Phone); code != "" {
		errs["phone"] = code
	}
	if code := Email(in.Email); code != "" {
		errs["email"] = code
	}
	if code := Password(in.Password); code != "" {
		errs["password"] = code
	}
	switch {
	case in.ConfirmPassword == "":
		errs["confirmPassword"] = CodeRequired
	case in.Password != "" && in.Password != in.ConfirmPassword:
		errs["confirmPassword"] = CodePasswordMismatch
	}
	if !in.AcceptTerms {
		errs["terms"] = CodeRequired
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateLogin はログインフォームを検証する。
// 既存アカウントのパスワード規則は問わず、入力の有無とメール形式のみを見る。
func ValidateLogin(email, password string) Errors {
	errs := Errors{}
	e := NormalizeEmail(email)
	switch {
	case e == "":
		errs["email"] = CodeRequired
	case !emailPattern.MatchString(e):
		errs["email"] = CodeEmailFormat
	}
	if password == "" {
		errs["password"] = CodeRequired
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// FullName は氏名を検証し、エラーコードを返す。問題なければ空文字列。
func FullName(name string) string {
	v := NormalizeFullName(name)
	if v == "" {
		return CodeRequired
	}
	if utf8.RuneCountInString(v) < minFullNameLength {
		return CodeMinLength
	}
	for _, r := range v {
		if !unicode.IsLetter(r) && r != ' ' {
			return CodeNameLettersOnly
		}
	}
	if len(strings.Fields(v)) < 2 {
		return CodeNameIncomplete
	}
	return ""
}

// NormalizeFullName はNFC正規化し、連続する空白を1つにまとめる。
// 結合文字で入力されたアクセント（例: e + ́）も1文字として扱う。
func NormalizeFullName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// Phone は電話番号（9桁、9始まり）を検証する。空白は無視する。
func Phone(phone string) string {
	v := NormalizePhone(phone)
	if v == "" {
		return CodeRequired
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return CodePhoneDigitsOnly
		}
	}
	if len(v) != phoneLength {
		return CodePhoneLength
	}
	if v[0] != '9' {
		return CodePhonePrefix
	}
	return ""
}

// NormalizePhone は空白を取り除く。
func NormalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

// Email はメールアドレスの形式と使い捨てドメインを検証する。
func Email(email string) string {
	v := NormalizeEmail(email)
	if v == "" {
		return CodeRequired
	}
	if !emailPattern.MatchString(v) {
		return CodeEmailFormat
	}
	if isBlockedDomain(v[strings.LastIndex(v, "@")+1:]) {
		return CodeEmailDomainBlocked
	}
	return ""
}

// NormalizeEmail は前後の空白を除去し小文字化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isBlockedDomain は登録可能ドメイン（eTLD+1）単位で使い捨てドメインかどうかを判定する。
func isBlockedDomain(domain string) bool {
	if blockedEmailDomains[domain] {
		return true
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return false
	}
	return blockedEmailDomains[registrable]
}

// Password はパスワード（8文字以上、英字と数字を含む）を検証する。
func Password(password string) string {
	if password == "" {
		return CodeRequired
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return CodePasswordShort
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasLetter {
		return CodePasswordNoLetters
	}
	if !hasDigit {
		return CodePasswordNoDigits
	}
	return ""
}
