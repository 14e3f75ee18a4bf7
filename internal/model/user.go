// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーのロールを表す。
type Role string

const (
	// RoleUser は一般利用者（カタログ閲覧・注文）のロール。
	RoleUser Role = "USER"
	// RoleAdmin は管理者（商品・注文管理）のロール。
	RoleAdmin Role = "ADMIN"
)

// Valid はロールが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account はメールアドレスとパスワードによる認証情報を表す。
// 登録時に入力された氏名・電話番号をメタデータとして保持し、
// プロフィールが存在しない場合の再作成に使用する。
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	CreatedAt    time.Time
}

// Profile はアカウントに紐づく表示名・電話番号・ロールを表す。
// IDはAccount.IDと同一。
type Profile struct {
	ID        string
	FullName  string
	Phone     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin は管理者ロールかどうかを返す。
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Session はユーザーのログインセッションを表す。
// Roleはセッション発行時点のプロフィールのロールで、セッションの有効期間中は変化しない。
type Session struct {
	ID        string
	UserID    string
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}
