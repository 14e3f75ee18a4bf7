package order

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/bakery/internal/model"
)

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// uriComponentReplacer はQueryEscapeの結果をencodeURIComponent互換の表記に揃える。
var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// Number は注文番号（IDの先頭8文字を大文字化したもの）を返す。
func Number(orderID string) string {
	if len(orderID) > 8 {
		orderID = orderID[:8]
	}
	return strings.ToUpper(orderID)
}

// FormatSoles は金額を "S/ 12.50" 形式で返す。
func FormatSoles(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("S/ %s%d.%02d", sign, cents/100, cents%100)
}

// LongDate は日付を "14 de marzo de 2026" 形式で返す。
func LongDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

// Message は店舗に送るWhatsAppメッセージ本文を組み立てる。
func Message(o *model.Order, items []model.OrderItem, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Pedido #%s* 🍰\n", Number(o.ID))
	fmt.Fprintf(&b, "Fecha: %s\n\n", LongDate(at))
	b.WriteString("*Productos:*\n")
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  • %s x%d — %s", item.ProductName, item.Quantity,
			FormatSoles(item.UnitPriceCents*int64(item.Quantity)))
	}
	fmt.Fprintf(&b, "\n\n*TOTAL: %s*\n\n", FormatSoles(o.TotalCents))
	if o.Notes != "" {
		fmt.Fprintf(&b, "Nota: %s\n\n", o.Notes)
	}
	b.WriteString("Gracias por tu pedido!")
	return b.String()
}

// WhatsAppLink は wa.me のディープリンクを返す。
func WhatsAppLink(number string, o *model.Order, items []model.OrderItem, at time.Time) string {
	text := uriComponentReplacer.Replace(url.QueryEscape(Message(o, items, at)))
	return "https://wa.me/" + url.PathEscape(number) + "?text=" + text
}
