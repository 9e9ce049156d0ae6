package identity

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/hitoshi/postboard/internal/model"
)

func newTestCookieProvider() *CookieProvider {
	return NewCookieProvider(CookieConfig{
		Secret: []byte("test-secret-0123456789abcdef"),
		MaxAge: 400 * 24 * time.Hour,
	})
}

// carryCookies はレスポンスのSet-Cookieを次のリクエストに載せる。
func carryCookies(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			continue
		}
		req.AddCookie(c)
	}
	return req
}

func TestCookieProvider_SurvivesAcrossRequests(t *testing.T) {
	var buf bytes.Buffer
	p := newTestCookieProvider()
	ident := model.Identity{ID: 1, Name: "Leanne Graham", Email: "Sincere@april.biz"}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	if err := ForRequest(p, rec, req, newTestLogger(&buf)).Save(context.Background(), ident); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}

	next := carryCookies(t, rec)
	got, err := ForRequest(p, httptest.NewRecorder(), next, newTestLogger(&buf)).Load(context.Background())
	if err != nil {
		t.Fatalf("Load がエラーを返した: %v", err)
	}
	if got == nil || *got != ident {
		t.Errorf("Load() = %+v, want %+v", got, ident)
	}
}

func TestCookieProvider_CookieAttributes(t *testing.T) {
	p := NewCookieProvider(CookieConfig{
		Secret: []byte("secret"),
		MaxAge: time.Hour,
		Secure: true,
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if err := p.Storage(rec, req).Set(context.Background(), "user", "v"); err != nil {
		t.Fatalf("Set がエラーを返した: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("len(cookies) = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != "pb_user" {
		t.Errorf("Name = %q, want %q", c.Name, "pb_user")
	}
	if !c.HttpOnly || !c.Secure {
		t.Errorf("HttpOnly=%v Secure=%v, want both true", c.HttpOnly, c.Secure)
	}
	if c.MaxAge != 3600 {
		t.Errorf("MaxAge = %d, want 3600", c.MaxAge)
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", c.SameSite)
	}
}

func TestCookieProvider_SameRequestReadsOwnWrites(t *testing.T) {
	p := newTestCookieProvider()
	storage := p.Storage(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	ctx := context.Background()

	if err := storage.Set(ctx, "user", "hello"); err != nil {
		t.Fatalf("Set がエラーを返した: %v", err)
	}
	if v, ok, _ := storage.Get(ctx, "user"); !ok || v != "hello" {
		t.Errorf("Get() = %q, %v; want hello, true", v, ok)
	}
	if err := storage.Delete(ctx, "user"); err != nil {
		t.Fatalf("Delete がエラーを返した: %v", err)
	}
	if _, ok, _ := storage.Get(ctx, "user"); ok {
		t.Error("Delete 後の Get は ok=false であるべき")
	}
}

func TestCookieProvider_DeleteExpiresCookie(t *testing.T) {
	p := newTestCookieProvider()
	rec := httptest.NewRecorder()
	if err := p.Storage(rec, httptest.NewRequest(http.MethodPost, "/", nil)).Delete(context.Background(), "user"); err != nil {
		t.Fatalf("Delete がエラーを返した: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("削除用のCookieが発行されるべき: %+v", cookies)
	}
}

func TestCookieProvider_TamperedCookie_TreatedAsAbsent(t *testing.T) {
	p := newTestCookieProvider()
	ctx := context.Background()

	rec := httptest.NewRecorder()
	if err := p.Storage(rec, httptest.NewRequest(http.MethodPost, "/", nil)).Set(ctx, "user", `{"id":0,"isAdmin":false}`); err != nil {
		t.Fatalf("Set がエラーを返した: %v", err)
	}
	valid := rec.Result().Cookies()[0].Value

	forger := securecookie.New([]byte("another-secret-0123456789abcdef"), nil)
	forger.SetSerializer(securecookie.JSONEncoder{})
	forged, err := forger.Encode("pb_user", `{"id":0,"name":"Admin","email":"a@a.io","isAdmin":true}`)
	if err != nil {
		t.Fatalf("Encode がエラーを返した: %v", err)
	}

	tests := []struct {
		name  string
		value string
	}{
		{"別の秘密鍵で署名", forged},
		{"署名なし", "eyJpZCI6MH0"},
		{"署名の改ざん", valid[:len(valid)-2] + "xx"},
		{"base64でない", "!!!.???"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: "pb_user", Value: tt.value})

			_, ok, err := p.Storage(httptest.NewRecorder(), req).Get(ctx, "user")
			if err != nil {
				t.Fatalf("Get がエラーを返した: %v", err)
			}
			if ok {
				t.Error("改ざんされたCookieは存在しないものとして扱うべき")
			}
		})
	}
}

func TestCookieProvider_ValueBoundToCookieName(t *testing.T) {
	p := newTestCookieProvider()
	ctx := context.Background()

	rec := httptest.NewRecorder()
	if err := p.Storage(rec, httptest.NewRequest(http.MethodPost, "/", nil)).Set(ctx, "other", "value"); err != nil {
		t.Fatalf("Set がエラーを返した: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "pb_user", Value: rec.Result().Cookies()[0].Value})

	if _, ok, _ := p.Storage(httptest.NewRecorder(), req).Get(ctx, "user"); ok {
		t.Error("別キーの署名済み値は受け付けないべき")
	}
}

func TestCookieProvider_EmptySecret_SetFails(t *testing.T) {
	p := NewCookieProvider(CookieConfig{MaxAge: time.Hour})
	rec := httptest.NewRecorder()

	err := p.Storage(rec, httptest.NewRequest(http.MethodPost, "/", nil)).Set(context.Background(), "user", "v")
	if err == nil {
		t.Fatal("署名鍵がない場合、Set はエラーを返すべき")
	}
	if got := rec.Header().Values("Set-Cookie"); len(got) != 0 {
		t.Errorf("署名できない値のCookieを発行しないべき: %v", got)
	}
}
