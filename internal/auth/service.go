// Package auth は資格情報の検証とログイン状態の管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/postboard/internal/model"
)

// ログイン結果のメトリクスラベル
const (
	OutcomeSuccess            = "success"
	OutcomeValidationError    = "validation_error"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeTransientError     = "transient_error"
	OutcomeError              = "error"
)

// IdentityStore はIdentityの保存先インターフェース。
// identity.Storeが実装する。
type IdentityStore interface {
	Save(ctx context.Context, ident model.Identity) error
	Load(ctx context.Context) (*model.Identity, error)
	Clear(ctx context.Context) error
}

// LoginRecorder はログイン結果の計測インターフェース。
// metrics.Collectorが実装する。
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// Service はログイン、ログアウト、現在のIdentityの取得を提供する。
type Service struct {
	verifier Verifier
	recorder LoginRecorder
	logger   *slog.Logger
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(verifier Verifier, recorder LoginRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		verifier: verifier,
		recorder: recorder,
		logger:   logger,
	}
}

// Login は資格情報を検証し、成功した場合のみIdentityを保存する。
// 失敗時は既存のIdentityに触れない。
func (s *Service) Login(ctx context.Context, store IdentityStore, email, password string) (*model.Identity, error) {
	// 1. 資格情報の検証
	ident, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		s.record(loginOutcome(err))
		return nil, err
	}

	// 2. Identityの保存
	if err := store.Save(ctx, *ident); err != nil {
		s.record(OutcomeError)
		return nil, fmt.Errorf("failed to save identity: %w", err)
	}

	s.record(OutcomeSuccess)
	s.logger.Info("user logged in",
		slog.Int("identity_id", ident.ID),
		slog.Bool("is_admin", ident.IsAdmin),
	)
	return ident, nil
}

// Logout は保存済みのIdentityを消去する。未ログインでも成功する。
func (s *Service) Logout(ctx context.Context, store IdentityStore) error {
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	s.logger.Info("user logged out")
	return nil
}

// Current は現在のIdentityを返す。未ログインの場合はUnauthenticatedエラーを返す。
func (s *Service) Current(ctx context.Context, store IdentityStore) (*model.Identity, error) {
	ident, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if ident == nil {
		return nil, model.NewUnauthenticatedError()
	}
	return ident, nil
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordLogin(outcome)
	}
}

func loginOutcome(err error) string {
	switch {
	case model.HasCode(err, model.ErrCodeValidation):
		return OutcomeValidationError
	case model.HasCode(err, model.ErrCodeInvalidCredentials):
		return OutcomeInvalidCredentials
	case model.HasCode(err, model.ErrCodeTransient):
		return OutcomeTransientError
	default:
		return OutcomeError
	}
}
