package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// URLGuard は外部URLへのリクエストを安全に行うためのインターフェース。
// 商品画像のURL取り込みで使用する。
type URLGuard interface {
	// ValidateURL はDNS解決を伴わない静的な検証を行う。
	ValidateURL(rawURL string) error
	// Client はSSRF防止機能付きのHTTPクライアントを返す。
	Client() *http.Client
}

// SSRFGuardConfig はSSRFGuardの設定。
type SSRFGuardConfig struct {
	Timeout      time.Duration
	AllowedPorts []int
}

// blockedNetworks はValidateURLで拒否するネットワーク範囲。
// 接続時のIP検証はsafeurlがDialerのControlフックで行うため、DNS再バインディングにも対応する。
var blockedNetworks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16", // クラウドメタデータ(169.254.169.254)を含む
	"0.0.0.0/8",
	"100.64.0.0/10",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
)

var allowedSchemes = []string{"http", "https"}

var blockedHostnames = []string{"localhost", "metadata.google.internal"}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		nets = append(nets, network)
	}
	return nets
}

// SSRFGuard はURLGuardの実装。
type SSRFGuard struct {
	ports  []int
	client *http.Client
}

// NewSSRFGuard はSSRFGuardを生成する。ポート未指定時は80と443のみ許可する。
func NewSSRFGuard(cfg SSRFGuardConfig) *SSRFGuard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if len(cfg.AllowedPorts) == 0 {
		cfg.AllowedPorts = []int{80, 443}
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(cfg.Timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(cfg.AllowedPorts...).
		Build()

	return &SSRFGuard{
		ports:  cfg.AllowedPorts,
		client: safeurl.Client(config).Client,
	}
}

// Client はSSRF防止機能付きのHTTPクライアントを返す。
// プライベートIP、ループバック、リンクローカルへの接続はsafeurlが拒否する。
func (g *SSRFGuard) Client() *http.Client {
	return g.client
}

// ValidateURL はURLのスキーム、ホスト、ポートを検証する。
func (g *SSRFGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !slices.Contains(allowedSchemes, scheme) {
		return fmt.Errorf("disallowed scheme: %q", parsed.Scheme)
	}
	if parsed.User != nil {
		return fmt.Errorf("credentials in URL are not allowed")
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if p := parsed.Port(); p != "" {
		var port int
		if _, err := fmt.Sscanf(p, "%d", &port); err != nil || !slices.Contains(g.ports, port) {
			return fmt.Errorf("disallowed port: %s", p)
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		for _, network := range blockedNetworks {
			if network.Contains(ip) {
				return fmt.Errorf("blocked IP address: %s", ip)
			}
		}
		return nil
	}

	lower := strings.ToLower(strings.TrimSuffix(host, "."))
	if slices.Contains(blockedHostnames, lower) || strings.HasSuffix(lower, ".localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}

// compile-time interface check
var _ URLGuard = (*SSRFGuard)(nil)
