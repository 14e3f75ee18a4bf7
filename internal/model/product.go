package model

import "time"

// Product は商品を表す。
// 価格はセンティモ（1/100ソル）単位の整数で保持する。
type Product struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
	Stock       int
	ImageURL    string
	Category    string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductForm は商品の作成時に入力される項目。
type ProductForm struct {
	Name        string
	Description string
	PriceCents  int64
	Stock       int
	ImageURL    string
	Category    string
	Active      bool
}

// ProductUpdate は商品の部分更新を表す。nilのフィールドは変更しない。
type ProductUpdate struct {
	Name        *string
	Description *string
	PriceCents  *int64
	Stock       *int
	ImageURL    *string
	Category    *string
	Active      *bool
}
