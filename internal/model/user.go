// Package model はドメインモデルを定義する。
package model

import "fmt"

// Identity は認証済みの利用者（プリンシパル）を表す。
// ログイン成功時にのみ生成され、Identity Store が所有する。
// JSONのキーはクライアントストレージに保存される形式そのもの。
type Identity struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// Validate はIdentityの不変条件を検証する。
// 管理者はIDが0、一般ユーザーはディレクトリ上の正のIDを持つ。
func (i Identity) Validate() error {
	if i.IsAdmin {
		if i.ID != 0 {
			return fmt.Errorf("admin identity must have id 0, got %d", i.ID)
		}
		return nil
	}
	if i.ID <= 0 {
		return fmt.Errorf("user identity must have a positive directory id, got %d", i.ID)
	}
	return nil
}

// NewAdminIdentity は管理者Identityを生成する。
func NewAdminIdentity(name, email string) Identity {
	return Identity{
		ID:      0,
		Name:    name,
		Email:   email,
		IsAdmin: true,
	}
}

// NewUserIdentity はディレクトリのエントリから一般ユーザーのIdentityを生成する。
func NewUserIdentity(u DirectoryUser) Identity {
	return Identity{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		IsAdmin: false,
	}
}

// DirectoryUser は外部ユーザーディレクトリのエントリを表す。
// Username はデモAPIの慣習によりパスワードの期待値を兼ねる。
type DirectoryUser struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Website  string  `json:"website"`
	Address  Address `json:"address"`
	Company  Company `json:"company"`
}

// Address はディレクトリユーザーの住所。
type Address struct {
	Street  string `json:"street"`
	Suite   string `json:"suite"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
	Geo     Geo    `json:"geo"`
}

// Geo は住所の座標。ディレクトリは文字列で返す。
type Geo struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

// Company はディレクトリユーザーの所属。
type Company struct {
	Name        string `json:"name"`
	CatchPhrase string `json:"catchPhrase"`
	BS          string `json:"bs"`
}

// Pin は地図上のピン位置。
type Pin struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Profile はプロフィール画面に返すユーザー情報。
// 座標が解釈できない場合 Pin は nil になる。
type Profile struct {
	User       DirectoryUser `json:"user"`
	Pin        *Pin          `json:"pin,omitempty"`
	WebsiteURL string        `json:"websiteUrl,omitempty"`
}
