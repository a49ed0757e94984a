package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

const (
	// CSRFFormField は状態変更フォームの隠しフィールド名です。
	CSRFFormField = "csrf_token"
	// CSRFHeader はAPI呼び出し用の代替ヘッダー名です。
	CSRFHeader = "X-CSRF-Token"
)

// IssueCSRFToken はセッションに束縛されたCSRFトークンを返します。
// 未発行の場合のみ生成して保存します（セッションごとに1トークン、再発行なし）。
// 同時に複数のリクエストが初回発行を競っても、保存されるトークンは1つに収束します。
func (m *SessionManager) IssueCSRFToken(ctx context.Context, sessionID string) (string, error) {
	token, err := newCSRFToken()
	if err != nil {
		return "", err
	}

	updated, err := m.store.Update(ctx, sessionID, func(s *Session) {
		if s.CSRFToken == "" {
			s.CSRFToken = token
		}
	})
	if err != nil {
		return "", ErrStoreUnavailable
	}
	if updated == nil {
		return "", ErrSessionNotFound
	}
	return updated.CSRFToken, nil
}

// VerifyCSRFToken は提示されたトークンをセッションのトークンと照合します。
// 比較は一致バイト数を漏らさないよう定数時間で行い、セッションやトークンが
// 無い場合はエラーではなく false を返します。
func VerifyCSRFToken(session *Session, presented string) bool {
	if session == nil || session.CSRFToken == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(session.CSRFToken), []byte(presented)) == 1
}

func newCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
