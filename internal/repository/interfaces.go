// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/bakery/internal/model"
)

// AccountRepository は認証情報の永続化インターフェース。
type AccountRepository interface {
	// FindByEmail はメールアドレス（大文字小文字を区別しない）でアカウントを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// CreateWithProfile はアカウントとプロフィールを同一トランザクションで作成する。
	CreateWithProfile(ctx context.Context, account *model.Account, profile *model.Profile) error

	// DeleteByID は指定IDのアカウントを削除する。
	// 関連するprofiles、sessions、ordersはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// ProfileRepository はプロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// ExistsByPhone は電話番号が登録済みかどうかを返す。
	ExistsByPhone(ctx context.Context, phone string) (bool, error)

	// Create はプロフィールを作成する。
	Create(ctx context.Context, profile *model.Profile) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションをプロフィールのロール付きで取得する。
	// 期限切れ、またはプロフィールが存在しない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProductRepository は商品データの永続化インターフェース。
type ProductRepository interface {
	// ListActive は販売中の商品を名前順で返す。categoryが空の場合は全カテゴリ。
	ListActive(ctx context.Context, category string) ([]*model.Product, error)

	// ListCategories は販売中の商品のカテゴリを重複なしで名前順に返す。
	ListCategories(ctx context.Context) ([]string, error)

	// ListAll は販売停止中を含む全商品を作成日時の降順で返す。
	ListAll(ctx context.Context) ([]*model.Product, error)

	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// FindActiveByIDs は指定IDのうち販売中の商品を返す。
	FindActiveByIDs(ctx context.Context, ids []string) ([]*model.Product, error)

	// Create は商品を作成する。
	Create(ctx context.Context, product *model.Product) error

	// Update は商品の全項目を上書き更新する。
	Update(ctx context.Context, product *model.Product) error

	// Deactivate は商品を販売停止にする（論理削除）。
	// 対象が存在しない場合はfalseを返す。
	Deactivate(ctx context.Context, id string) (bool, error)
}

// OrderRepository は注文データの永続化インターフェース。
type OrderRepository interface {
	// CreateWithItems は注文と明細を同一トランザクションで作成する。
	CreateWithItems(ctx context.Context, order *model.Order, items []model.OrderItem) error

	// FindByID は指定IDの注文を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Order, error)

	// ListByUserID はユーザーの注文を明細付きで新しい順に返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Order, error)

	// ListAll は全注文を顧客情報と明細付きで新しい順に返す。
	ListAll(ctx context.Context) ([]*model.Order, error)

	// UpdateStatus は注文のステータスを更新する。
	// 対象が存在しない場合はfalseを返す。
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (bool, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
