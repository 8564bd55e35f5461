// Package idgen はエンティティIDや生成ファイル名に使うランダムトークンを生成する。
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	// StartupIDBytes はスタートアップIDのバイト長（16桁のhex）。
	StartupIDBytes = 8
	// LogoNameBytes はロゴファイル名のバイト長（32桁のhex）。
	LogoNameBytes = 16
	// SessionIDBytes はセッションIDのバイト長（64桁のhex）。
	SessionIDBytes = 32
)

// NewID はbyteLengthバイトの暗号論的乱数を小文字hexで返す。
// 内容から導出しないため、同じ入力に対しても毎回異なる値になる。
func NewID(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("invalid byte length: %d", byteLength)
	}
	b := make([]byte, byteLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
