package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法、必要に応じて遷移先を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, access, system
	Action   string // ユーザー向け対処方法
	Redirect string // 画面側が遷移すべきパス（不要な場合は空）
	Details  map[string]string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeAccessDenied       = "ACCESS_DENIED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeTransient          = "TRANSIENT_ERROR"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeCSRFInvalid        = "CSRF_TOKEN_INVALID"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// 画面遷移先
const (
	RedirectLogin = "/login"
	RedirectPosts = "/posts"
)

// HasCode はerrのチェーン中に指定コードのAPIErrorが含まれるかを判定する。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewValidationError は入力値の形式エラーを生成する。
// ネットワークアクセス前にその場で表示するためのエラー。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewFieldValidationError はフィールド単位の詳細を持つ形式エラーを生成する。
func NewFieldValidationError(message string, details map[string]string) *APIError {
	e := NewValidationError(message)
	e.Details = details
	return e
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidCredentialsError は認証拒否エラーを生成する。
// どのフィールドが誤っていたかは含めない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid credentials. Use your email as username and your username as password.",
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認してください。",
	}
}

// NewUnauthenticatedError はIdentityが存在しない場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
		Redirect: RedirectLogin,
	}
}

// NewAccessDeniedError は閲覧権限がない場合のエラーを生成する。
// リソースの存在や内容は含めない。
func NewAccessDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccessDenied,
		Message:  "このリソースへのアクセスは許可されていません。",
		Category: "access",
		Action:   "投稿一覧に戻ってください。",
		Redirect: RedirectPosts,
	}
}

// NewNotFoundError はリソースが存在しない場合のエラーを生成する。
func NewNotFoundError(resource string, id int) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定された%sが見つかりません: %d", resource, id),
		Category: "validation",
		Action:   "IDを確認してください。",
	}
}

// NewTransientError は外部ディレクトリへの問い合わせ失敗エラーを生成する。
// 利用者が再試行すべきエラーであり、認証失敗とは区別する。
// 原因の詳細はログのみに記録し、レスポンスには含めない。
func NewTransientError() *APIError {
	return &APIError{
		Code:     ErrCodeTransient,
		Message:  "外部サービスへの問い合わせに失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewCSRFError はCSRFトークンの検証失敗エラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
