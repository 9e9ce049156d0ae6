package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/postboard/internal/identity"
	"github.com/hitoshi/postboard/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	identityContextKey = contextKey("identity")
	storeContextKey    = contextKey("identity_store")
)

// NewIdentityMiddleware はクライアントのストレージから保存済みIdentityを読み出し、
// Identity（未ログインならnil）とそのリクエスト用Storeをコンテキストに注入する。
// ここでは未ログインを拒否しない。拒否はRequireIdentityが行う。
func NewIdentityMiddleware(provider identity.Provider, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := identity.ForRequest(provider, w, r, logger)

			ident, err := store.Load(r.Context())
			if err != nil {
				logger.Error("Identityの読み出しに失敗しました",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			ctx := context.WithValue(r.Context(), storeContextKey, store)
			ctx = context.WithValue(ctx, identityContextKey, ident)
			if ident != nil {
				annotateIdentity(ctx, ident.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity はIdentityがないリクエストを401とログイン画面への遷移指示で拒否する。
// NewIdentityMiddlewareの後に配置する。
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext はリクエストコンテキストからIdentityを取得する。
// 未ログインまたはミドルウェアを通過していない場合はnilを返す。
func IdentityFromContext(ctx context.Context) *model.Identity {
	ident, _ := ctx.Value(identityContextKey).(*model.Identity)
	return ident
}

// StoreFromContext はリクエスト用のIdentity Storeを取得する。
func StoreFromContext(ctx context.Context) (*identity.Store, bool) {
	store, ok := ctx.Value(storeContextKey).(*identity.Store)
	return store, ok && store != nil
}

// ContextWithIdentity はコンテキストにIdentityを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, ident *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, ident)
}

// ContextWithStore はコンテキストにIdentity Storeを注入する。
func ContextWithStore(ctx context.Context, store *identity.Store) context.Context {
	return context.WithValue(ctx, storeContextKey, store)
}
