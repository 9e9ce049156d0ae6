// Package profile はディレクトリユーザーの公開プロフィールを提供する。
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hitoshi/postboard/internal/access"
	"github.com/hitoshi/postboard/internal/directory"
	"github.com/hitoshi/postboard/internal/model"
	"github.com/hitoshi/postboard/internal/security"
)

// Directory はユーザーの取得元インターフェース。
type Directory interface {
	GetUser(ctx context.Context, id int) (*model.DirectoryUser, error)
}

// Service はプロフィールの取得サービス。
type Service struct {
	dir    Directory
	guard  security.URLValidator
	logger *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(dir Directory, guard security.URLValidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		dir:    dir,
		guard:  guard,
		logger: logger,
	}
}

// Get は指定IDのユーザーのプロフィールを返す。
// usernameはデモAPIでパスワードを兼ねるため、本人と管理者にだけ返す。
func (s *Service) Get(ctx context.Context, ident *model.Identity, id int) (*model.Profile, error) {
	if id <= 0 {
		return nil, model.NewNotFoundError("ユーザー", id)
	}

	// 1. ユーザーを取得
	u, err := s.dir.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, model.NewNotFoundError("ユーザー", id)
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, model.NewTransientError())
	}

	user := *u
	if ident == nil || !access.CanView(*ident, id) {
		user.Username = ""
	}

	profile := &model.Profile{User: user}

	// 2. 地図のピン
	if pin, ok := parsePin(u.Address.Geo); ok {
		profile.Pin = &pin
	} else {
		s.logger.Debug("座標を解釈できないためピンを省略します",
			slog.Int("user_id", id),
			slog.String("lat", u.Address.Geo.Lat),
			slog.String("lng", u.Address.Geo.Lng),
		)
	}

	// 3. WebサイトのURL
	profile.WebsiteURL = security.WebsiteURL(s.guard, u.Website)

	return profile, nil
}

// parsePin は文字列の緯度経度を数値に変換する。範囲外の値は解釈できないものとして扱う。
func parsePin(geo model.Geo) (model.Pin, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(geo.Lat), 64)
	if err != nil || lat < -90 || lat > 90 {
		return model.Pin{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(geo.Lng), 64)
	if err != nil || lng < -180 || lng > 180 {
		return model.Pin{}, false
	}
	return model.Pin{Lat: lat, Lng: lng}, true
}
