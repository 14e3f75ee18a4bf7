package browser

import "context"

type contextKey struct{}

// NewContext はClientをコンテキストに格納する。
func NewContext(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext はコンテキストからClientを取得する。
func FromContext(ctx context.Context) (*Client, bool) {
	c, ok := ctx.Value(contextKey{}).(*Client)
	return c, ok
}
