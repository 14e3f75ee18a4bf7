package model

import "time"

// OrderStatus は注文のステータスを表す。
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pendiente"
	OrderStatusConfirmed OrderStatus = "confirmado"
	OrderStatusDelivered OrderStatus = "entregado"
	OrderStatusCancelled OrderStatus = "cancelado"
)

// Valid はステータスが定義済みの値かどうかを返す。
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Order は注文を表す。
// Items、Customerは一覧取得時にのみ設定される。
type Order struct {
	ID         string
	UserID     string
	Status     OrderStatus
	TotalCents int64
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Items    []OrderItem
	Customer *Profile
}

// OrderItem は注文明細を表す。UnitPriceCentsは注文時点の単価。
type OrderItem struct {
	ID              string
	OrderID         string
	ProductID       string
	Quantity        int
	UnitPriceCents  int64
	ProductName     string
	ProductImageURL string
}

// CartItem はカート内の1商品を表す。
type CartItem struct {
	Product  Product
	Quantity int
}

// SubtotalCents は明細の小計を返す。
func (c CartItem) SubtotalCents() int64 {
	return c.Product.PriceCents * int64(c.Quantity)
}

// Cart はユーザーのカートを表す。
type Cart struct {
	Items []CartItem
}

// TotalItems はカート内の商品数量の合計を返す。
func (c Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalCents はカートの合計金額を返す。
func (c Cart) TotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.SubtotalCents()
	}
	return total
}

// IsEmpty はカートが空かどうかを返す。
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
