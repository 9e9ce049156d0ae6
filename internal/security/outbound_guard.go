package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// OutboundGuard は外部への通信先を制限するインターフェースを定義する。
// 外部ディレクトリ用HTTPクライアントの生成と、プロフィールに載せるWebサイトURLの検証に使う。
type OutboundGuard interface {
	// NewSafeClient はプライベートIP、ループバック、リンクローカル、メタデータIPへの
	// 接続をDialer段階で拒否するHTTPクライアントを生成する。
	NewSafeClient(timeout time.Duration) *http.Client

	URLValidator
}

// URLValidator はURLの安全性を検証する。
type URLValidator interface {
	// ValidateURL はDNS解決を伴わない静的な検証を行い、危険なURLの場合はエラーを返す。
	ValidateURL(rawURL string) error
}

var allowedSchemes = []string{"http", "https"}

var blockedHostnames = []string{
	"localhost",
}

// blockedNetworks はパッケージ初期化時に1回だけパースする。
var blockedNetworks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	// クラウドメタデータIP (169.254.169.254) を含む
	"169.254.0.0/16",
	"0.0.0.0/8",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		networks = append(networks, network)
	}
	return networks
}

type outboundGuard struct{}

// NewOutboundGuard はOutboundGuardの新しいインスタンスを生成する。
func NewOutboundGuard() *outboundGuard {
	return &outboundGuard{}
}

// NewSafeClient はsafeurlでラップしたHTTPクライアントを返す。
// DNS解決後のIPアドレスもnet.DialerのControlフックで検証される。
func (g *outboundGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はURLのスキームとホストを検証する。
func (g *outboundGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %q", scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip)
		}
		return nil
	}

	for _, blocked := range blockedHostnames {
		if strings.EqualFold(host, blocked) {
			return fmt.Errorf("blocked host: %s", host)
		}
	}
	return nil
}

// WebsiteURL はディレクトリのwebsite欄（スキームなしのホスト名）をリンク可能なURLに変換する。
// 検証に通らない場合は空文字列を返す。
func WebsiteURL(guard URLValidator, website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	candidate := website
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	if err := guard.ValidateURL(candidate); err != nil {
		return ""
	}
	return candidate
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
