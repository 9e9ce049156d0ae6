// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は外部ディレクトリから取得した投稿・コメントの本文から
// HTMLを取り除き、プレーンテキストとして扱える形に整える。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は外部由来テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// StripTags は全てのHTMLタグを除去し、エンティティを復号したテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	StripTags(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemonday.Policyはゴルーチンセーフなので共有して使う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
// StrictPolicyは要素を一切許可しないため、タグは除去され内側のテキストだけが残る。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// StripTags はHTMLタグを除去する。
func (s *textSanitizer) StripTags(raw string) string {
	if raw == "" {
		return ""
	}
	// bluemondayは出力をHTMLエスケープするため、JSONで返す前に戻す
	return html.UnescapeString(s.policy.Sanitize(raw))
}
