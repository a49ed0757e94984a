package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound は有効なセッションが存在しないことを表します。
	ErrSessionNotFound = errors.New("session not found")

	// ErrStoreUnavailable はバックエンドストアの障害を表します。
	// 認証フローではフェイルクローズ（拒否）として扱います。
	ErrStoreUnavailable = errors.New("auth store unavailable")
)

// ValidationError は入力値の検証エラーを表します。
// Fields はフィールド名からエラーメッセージへのマップです。
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}
