package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const cookiePrefix = "pb_"

// CookieConfig は署名付きCookieストレージの設定。
type CookieConfig struct {
	Secret []byte
	MaxAge time.Duration
	Secure bool
	Domain string
}

// CookieProvider は値をsecurecookie（HMAC-SHA256）で署名したCookieに保持する。
// 値はそのブラウザだけに残り、署名が一致しないCookieは存在しないものとして扱う。
// 署名にはCookie名が含まれるため、別キーの値を付け替えても読み出せない。
type CookieProvider struct {
	config CookieConfig
	codec  *securecookie.SecureCookie
}

// NewCookieProvider はCookieProviderを生成する。
// 署名のタイムスタンプ検証はCookieの最大寿命に合わせる。
func NewCookieProvider(config CookieConfig) *CookieProvider {
	codec := securecookie.New(config.Secret, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(config.MaxAge.Seconds()))
	return &CookieProvider{config: config, codec: codec}
}

// Storage はリクエストに紐づくCookieストレージを返す。
func (p *CookieProvider) Storage(w http.ResponseWriter, r *http.Request) Storage {
	return &cookieStorage{
		config:  p.config,
		codec:   p.codec,
		w:       w,
		r:       r,
		written: make(map[string]*string),
	}
}

// cookieStorage は1リクエスト分のCookieストレージ。
// 同一リクエスト内で書き込んだ値はレスポンスのSet-Cookieと併せて手元にも保持する。
type cookieStorage struct {
	config  CookieConfig
	codec   *securecookie.SecureCookie
	w       http.ResponseWriter
	r       *http.Request
	written map[string]*string
}

func (s *cookieStorage) Get(_ context.Context, key string) (string, bool, error) {
	if v, ok := s.written[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}

	name := cookiePrefix + key
	c, err := s.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false, nil
	}

	var value string
	if err := s.codec.Decode(name, c.Value, &value); err != nil {
		return "", false, nil
	}
	return value, true, nil
}

func (s *cookieStorage) Set(_ context.Context, key, value string) error {
	name := cookiePrefix + key
	encoded, err := s.codec.Encode(name, value)
	if err != nil {
		return fmt.Errorf("failed to encode cookie %s: %w", name, err)
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     "/",
		Domain:   s.config.Domain,
		MaxAge:   int(s.config.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.written[key] = &value
	return nil
}

func (s *cookieStorage) Delete(_ context.Context, key string) error {
	http.SetCookie(s.w, &http.Cookie{
		Name:     cookiePrefix + key,
		Value:    "",
		Path:     "/",
		Domain:   s.config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.written[key] = nil
	return nil
}

var _ Provider = (*CookieProvider)(nil)
