// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerはサーバーから受け取った文字列（公開メッセージやユーザー名）を
// 表示前に無害化する。bluemondayのStrictPolicyで全タグを除去し、
// 端末表示用に制御文字も取り除く。
package security

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト表示用のサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は全てのHTMLタグと制御文字を除去したプレーンテキストを返す。
	// script, styleタグは内容ごと除去される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグと制御文字を除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyはエンティティをエスケープして返すため、表示用に戻す
	text := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}
