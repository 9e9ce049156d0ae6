// Package registration は登録フォームの入力検証を提供する。
// 登録内容はどこにも保存しない。
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/idna"

	"github.com/hitoshi/postboard/internal/model"
)

const msgRegistrationInvalid = "Please correct the highlighted fields."

// Service は登録フォームの受付サービス。
type Service struct {
	logger *slog.Logger
}

// NewService はServiceを生成する。
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Submit は登録フォームを検証する。
// 全フィールドのエラーをまとめてValidationErrorとして返し、成功時は受付をログに残す。
func (s *Service) Submit(_ context.Context, reg model.Registration) error {
	reg = normalize(reg)

	details, err := validateStruct(reg)
	if err != nil {
		return fmt.Errorf("failed to validate registration: %w", err)
	}
	if len(details) > 0 {
		return model.NewFieldValidationError(msgRegistrationInvalid, details)
	}

	s.logger.Info("登録フォームを受け付けました",
		slog.String("email_domain", emailDomain(reg.Email)),
	)
	return nil
}

// normalize はメールアドレスと電話番号の前後の空白だけを取り除く。
// 氏名と住所は空白も文字として扱い、入力のまま長さと文字種を検証する。
func normalize(reg model.Registration) model.Registration {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Phone = strings.TrimSpace(reg.Phone)
	return reg
}

// emailDomain はメールアドレスのドメイン部をASCII（Punycode）の小文字で返す。
// 国際化ドメインを変換できない場合は小文字化のみ行う。
func emailDomain(email string) string {
	_, domain, _ := strings.Cut(email, "@")
	domain = strings.ToLower(domain)
	if ascii, err := idna.Lookup.ToASCII(domain); err == nil {
		return ascii
	}
	return domain
}
