// Package directory は外部ユーザーディレクトリ（JSONPlaceholder互換の読み取り専用REST API）の
// クライアントを提供する。ユーザー、投稿、コメントを取得する。
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/postboard/internal/model"
)

const (
	// DefaultBaseURL は外部ディレクトリのデフォルトURL。
	DefaultBaseURL = "https://jsonplaceholder.typicode.com"
	// maxResponseSize はレスポンスボディの最大サイズ（バイト）。
	maxResponseSize = 5 << 20
	userAgent       = "Postboard/1.0"
)

// ErrNotFound はID指定の取得で対象が存在しなかったことを表す。
var ErrNotFound = errors.New("directory: resource not found")

// Recorder はディレクトリ呼び出しの計測インターフェース。
// metrics.Collectorが実装する。
type Recorder interface {
	RecordDirectoryRequest(endpoint string, statusCode int, duration time.Duration)
}

// Client は外部ディレクトリのクライアント。
// キャッシュは持たず、呼び出しごとにHTTPリクエストを1回送信する。リトライもしない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	recorder   Recorder
}

// NewClient はClientの新しいインスタンスを生成する。
// recorderはnilでもよい。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string, recorder Recorder) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		recorder:   recorder,
	}
}

// ListUsers はディレクトリの全ユーザーを取得する。
func (c *Client) ListUsers(ctx context.Context) ([]model.DirectoryUser, error) {
	var users []model.DirectoryUser
	if err := c.getJSON(ctx, "users", "/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser は指定IDのユーザーを取得する。存在しない場合はErrNotFoundを返す。
func (c *Client) GetUser(ctx context.Context, id int) (*model.DirectoryUser, error) {
	var user model.DirectoryUser
	if err := c.getJSON(ctx, "user", "/users/"+strconv.Itoa(id), &user); err != nil {
		return nil, err
	}
	// 存在しないIDに対して空オブジェクトを返す実装もあるため、IDで判定する
	if user.ID == 0 {
		return nil, ErrNotFound
	}
	return &user, nil
}

// ListPosts は全投稿を取得する。
func (c *Client) ListPosts(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	if err := c.getJSON(ctx, "posts", "/posts", &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost は指定IDの投稿を取得する。存在しない場合はErrNotFoundを返す。
func (c *Client) GetPost(ctx context.Context, id int) (*model.Post, error) {
	var post model.Post
	if err := c.getJSON(ctx, "post", "/posts/"+strconv.Itoa(id), &post); err != nil {
		return nil, err
	}
	if post.ID == 0 {
		return nil, ErrNotFound
	}
	return &post, nil
}

// ListPostComments は指定投稿のコメント一覧を取得する。
func (c *Client) ListPostComments(ctx context.Context, postID int) ([]model.Comment, error) {
	var comments []model.Comment
	if err := c.getJSON(ctx, "post_comments", "/posts/"+strconv.Itoa(postID)+"/comments", &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// ListComments は全コメントを取得する。
func (c *Client) ListComments(ctx context.Context) ([]model.Comment, error) {
	var comments []model.Comment
	if err := c.getJSON(ctx, "comments", "/comments", &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// getJSON はGETリクエストを送信し、レスポンスJSONをoutにデコードする。
// 404はErrNotFound、それ以外の非2xxはエラーとして返す。
func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	reqURL, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("リクエストURLの構築に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(endpoint, 0, start)
		c.logger.Error("外部ディレクトリの呼び出しに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("directory request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.record(endpoint, resp.StatusCode, start)

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("外部ディレクトリがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("directory %s returned status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("外部ディレクトリのレスポンスのパースに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return nil
}

func (c *Client) record(endpoint string, status int, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordDirectoryRequest(endpoint, status, time.Since(start))
	}
}
