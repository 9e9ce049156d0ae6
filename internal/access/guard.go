// Package access はIdentityとリソース所有者から閲覧可否を判定するアクセスガードを提供する。
// 判定は2つの入力だけに依存する純粋関数であり、結果はどこにもキャッシュしない。
package access

import "github.com/hitoshi/postboard/internal/model"

// Owned は所有者を持つリソース。
type Owned interface {
	OwnerID() int
}

// CanView はIdentityが所有者ownerIDのリソースを閲覧できるかを返す。
// 管理者は常に閲覧でき、一般ユーザーは自分が所有するリソースのみ閲覧できる。
func CanView(identity model.Identity, ownerID int) bool {
	if identity.IsAdmin {
		return true
	}
	return ownerID == identity.ID
}

// Visible はitemsのうちIdentityが閲覧できる要素だけを入力順のまま返す。
// 管理者の場合は入力をそのまま返す。
func Visible[T Owned](identity model.Identity, items []T) []T {
	if identity.IsAdmin {
		return items
	}

	visible := make([]T, 0, len(items))
	for _, item := range items {
		if CanView(identity, item.OwnerID()) {
			visible = append(visible, item)
		}
	}
	return visible
}

// Decision は画面側が従うべき閲覧判定の結果。
// Allowed が false の場合、Redirect に遷移先が入る。
type Decision struct {
	Allowed  bool
	Redirect string
}

// Decide は保存済みIdentity（存在しない場合はnil）と所有者IDから判定を返す。
//   - Identityなし: ログイン画面へ
//   - 権限なし: 投稿一覧へ
func Decide(identity *model.Identity, ownerID int) Decision {
	if identity == nil {
		return Decision{Allowed: false, Redirect: model.RedirectLogin}
	}
	if !CanView(*identity, ownerID) {
		return Decision{Allowed: false, Redirect: model.RedirectPosts}
	}
	return Decision{Allowed: true}
}

// Check はDecideの結果をエラーとして返す。
// 閲覧可能な場合はnilを返す。
func Check(identity *model.Identity, ownerID int) error {
	d := Decide(identity, ownerID)
	if d.Allowed {
		return nil
	}
	if d.Redirect == model.RedirectLogin {
		return model.NewUnauthenticatedError()
	}
	return model.NewAccessDeniedError()
}
