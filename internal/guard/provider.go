package guard

import "sync/atomic"

// Provider は現在有効なポリシーを保持する。
// 読み取りはロックを取らず、差し替えはポインタ単位でアトミックに行う。
type Provider struct {
	current atomic.Pointer[Policy]
}

// NewProvider は初期ポリシーを保持するProviderを生成する。nilの場合はDefaultPolicyを使う。
func NewProvider(initial *Policy) *Provider {
	if initial == nil {
		initial = DefaultPolicy()
	}
	p := &Provider{}
	p.current.Store(initial)
	return p
}

// Current は現在のポリシーを返す。返却値を変更してはならない。
func (p *Provider) Current() *Policy {
	return p.current.Load()
}

// Replace はポリシーを差し替える。評価中の遷移は差し替え前のポリシーで判定を終える。
func (p *Provider) Replace(policy *Policy) {
	p.current.Store(policy)
}

var _ PolicySource = (*Provider)(nil)
