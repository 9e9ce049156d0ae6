package model

// Post は外部ディレクトリの投稿。読み取り専用で、リクエストごとに取得する。
type Post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// OwnerID は投稿を所有するディレクトリユーザーIDを返す。
func (p Post) OwnerID() int {
	return p.UserID
}

// Comment は投稿に紐づくコメント。
type Comment struct {
	ID     int    `json:"id"`
	PostID int    `json:"postId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

// PostDetail は投稿詳細とそのコメント一覧。
type PostDetail struct {
	Post     Post      `json:"post"`
	Comments []Comment `json:"comments"`
}

// Counts はダッシュボード用の集計値。
// 3つの件数がすべて揃った時点で一度だけ生成され、以後変更しない。
type Counts struct {
	Users    int `json:"users"`
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
}

// Series は円グラフ用のラベルと値を返す。順序は Users, Posts, Comments で固定。
func (c Counts) Series() ([]string, []int) {
	return []string{"Users", "Posts", "Comments"}, []int{c.Users, c.Posts, c.Comments}
}

// Registration は登録フォームの入力値。
// 登録内容は永続化されない。
type Registration struct {
	FirstName string `json:"firstName" validate:"min=2,personname"`
	LastName  string `json:"lastName" validate:"min=2,personname"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"min=10,digits"`
	Address   string `json:"address" validate:"min=5"`
}
