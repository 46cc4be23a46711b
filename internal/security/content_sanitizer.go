// Package security は入力コンテンツの無害化を提供する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はユーザー入力のテキストフィールドからHTMLを除去する。
// タイトル・理由・タグ説明はプレーンテキストとして扱い、タグは一切許可しない。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
func NewContentSanitizer() *ContentSanitizer {
	return &ContentSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はHTMLタグを除去し、前後の空白を取り除いた文字列を返す。
func (s *ContentSanitizer) Clean(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}
