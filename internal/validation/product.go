package validation

import (
	"strings"

	"github.com/hitoshi/bakery/internal/model"
)

// ValidateProductForm は商品作成フォームを検証する。
func ValidateProductForm(f model.ProductForm) Errors {
	errs := Errors{}
	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = CodeRequired
	}
	if f.PriceCents < 0 {
		errs["price"] = CodeNegative
	}
	if f.Stock < 0 {
		errs["stock"] = CodeNegative
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateProductUpdate は商品の部分更新を検証する。指定されたフィールドのみ対象。
func ValidateProductUpdate(u model.ProductUpdate) Errors {
	errs := Errors{}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs["name"] = CodeRequired
	}
	if u.PriceCents != nil && *u.PriceCents < 0 {
		errs["price"] = CodeNegative
	}
	if u.Stock != nil && *u.Stock < 0 {
		errs["stock"] = CodeNegative
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
