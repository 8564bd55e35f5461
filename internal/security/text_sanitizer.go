// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はフォームから受け取ったプレーンテキストからHTMLマークアップを除去する。
// 保存されるレコードにタグが混入しないよう、検証前にすべてのテキスト入力へ適用する。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト用サニタイザのインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize はすべてのタグを除去したテキストを返す。
	// script, styleタグは内容ごと除去される。
	// エンティティはデコードされるため、文字数は入力した文字のまま数えられる。
	Sanitize(text string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はStrictPolicyを使うTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去し、bluemondayがエスケープした文字を元に戻す。
func (s *textSanitizer) Sanitize(text string) string {
	if text == "" {
		return ""
	}
	return html.UnescapeString(s.policy.Sanitize(text))
}
