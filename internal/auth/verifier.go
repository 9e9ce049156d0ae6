package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hitoshi/postboard/internal/model"
)

// 既定の管理者資格情報。設定で上書きできる。
const (
	DefaultAdminEmail    = "admin@admin.com"
	DefaultAdminPassword = "admin123"
	adminName            = "Admin"
)

// 入力エラー時にそのまま表示するメッセージ
const (
	msgFillBothFields = "Please fill in both fields."
	msgInvalidEmail   = "Please enter a valid email address."
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Verifier はメールアドレスとパスワードを検証し、Identityを生成する。
// 副作用を持たず、Identityの保存は呼び出し側が行う。
type Verifier interface {
	Verify(ctx context.Context, email, password string) (*model.Identity, error)
}

// UserLister は外部ディレクトリのユーザー一覧を取得するインターフェース。
// directory.Clientが実装する。
type UserLister interface {
	ListUsers(ctx context.Context) ([]model.DirectoryUser, error)
}

// AdminCredential は固定の管理者資格情報。
type AdminCredential struct {
	Email    string
	Password string
}

// DirectoryVerifier は管理者資格情報と外部ディレクトリで資格情報を検証する。
// ディレクトリのユーザーはusernameをパスワードとして扱う（デモAPIの慣習）。
type DirectoryVerifier struct {
	users  UserLister
	admin  AdminCredential
	logger *slog.Logger
}

// NewDirectoryVerifier はDirectoryVerifierを生成する。
// 管理者資格情報が空の場合は既定値を使う。
func NewDirectoryVerifier(users UserLister, admin AdminCredential, logger *slog.Logger) *DirectoryVerifier {
	if admin.Email == "" {
		admin.Email = DefaultAdminEmail
	}
	if admin.Password == "" {
		admin.Password = DefaultAdminPassword
	}
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryVerifier{users: users, admin: admin, logger: logger}
}

// Verify は資格情報を検証する。
//   - 入力形式の誤りはValidationError（ネットワークアクセスなし）
//   - 管理者資格情報に一致すればディレクトリに問い合わせずに管理者Identityを返す
//   - ディレクトリに一致するエントリがなければInvalidCredentials
//   - ディレクトリへの問い合わせ失敗はTransientError
func (v *DirectoryVerifier) Verify(ctx context.Context, email, password string) (*model.Identity, error) {
	// 1. 入力の正規化と形式チェック
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)

	if email == "" || password == "" {
		return nil, model.NewValidationError(msgFillBothFields)
	}
	if !emailPattern.MatchString(email) {
		return nil, model.NewValidationError(msgInvalidEmail)
	}

	// 2. 管理者資格情報
	if email == v.admin.Email && subtle.ConstantTimeCompare([]byte(password), []byte(v.admin.Password)) == 1 {
		ident := model.NewAdminIdentity(adminName, v.admin.Email)
		return &ident, nil
	}

	// 3. 外部ディレクトリのユーザー一覧と照合
	users, err := v.users.ListUsers(ctx)
	if err != nil {
		v.logger.Error("資格情報の照合のためのユーザー一覧取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list directory users: %w", model.NewTransientError())
	}

	for _, u := range users {
		if strings.EqualFold(u.Email, email) && u.Username == password {
			ident := model.NewUserIdentity(u)
			return &ident, nil
		}
	}

	return nil, model.NewInvalidCredentialsError()
}

var _ Verifier = (*DirectoryVerifier)(nil)
