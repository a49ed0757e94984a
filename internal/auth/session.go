package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Session はログイン済み利用者のサーバー側状態です。
// ID は不透明な識別子で、クッキーにはこれだけを持たせます。
type Session struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"userId"`
	Name       string    `json:"name"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	CSRFToken  string    `json:"csrfToken,omitempty"`
	IssuedAt   time.Time `json:"issuedAt"`
	LastActive time.Time `json:"lastActive"`
}

// SessionStore はセッション状態の永続化を抽象化します。
// Get は存在しない場合 (nil, nil) を返します。
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	// Update は読み取り・変更・書き込みを同一IDに対して原子的に行います。
	// 存在しない場合は (nil, nil) を返します。
	Update(ctx context.Context, id string, mutate func(*Session)) (*Session, error)
	// Rotate は新IDのセッション保存と旧IDの破棄を原子的に行います。
	Rotate(ctx context.Context, oldID string, session *Session) error
	Delete(ctx context.Context, id string) error
}

// SessionOwner はセッションに束縛する利用者属性です。
type SessionOwner struct {
	UserID   int64
	Name     string
	Username string
	Email    string
}

// SessionManager はセッションのライフサイクルを管理します。
type SessionManager struct {
	store    SessionStore
	lifetime time.Duration // 絶対有効期限
	idle     time.Duration // 無操作タイムアウト
	now      func() time.Time
}

// NewSessionManager は SessionManager を作成します。
func NewSessionManager(store SessionStore, lifetime, idle time.Duration) *SessionManager {
	return &SessionManager{
		store:    store,
		lifetime: lifetime,
		idle:     idle,
		now:      time.Now,
	}
}

// Lifetime はセッションの絶対有効期限を返します（クッキーのMaxAge用）。
func (m *SessionManager) Lifetime() time.Duration {
	return m.lifetime
}

// Create は利用者属性を束縛した新しいセッションを発行します。
func (m *SessionManager) Create(ctx context.Context, owner SessionOwner) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	now := m.now()
	session := &Session{
		ID:         id,
		UserID:     owner.UserID,
		Name:       owner.Name,
		Username:   owner.Username,
		Email:      owner.Email,
		IssuedAt:   now,
		LastActive: now,
	}
	if err := m.store.Put(ctx, session); err != nil {
		return nil, ErrStoreUnavailable
	}
	return session, nil
}

// Get はセッションを引き、絶対期限と無操作期限を検証します。
// 期限切れのセッションは破棄したうえで ErrSessionNotFound を返します。
func (m *SessionManager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	session, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, ErrStoreUnavailable
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	now := m.now()
	if now.Sub(session.IssuedAt) > m.lifetime || now.Sub(session.LastActive) > m.idle {
		_ = m.store.Delete(ctx, id)
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Regenerate はセッション識別子を発行し直します。旧識別子は同時に無効化され、
// 利用者属性とCSRFトークンは引き継がれます。ログイン等の権限変化の直後に
// 必ず呼び出し、セッション固定攻撃の窓を閉じます。
func (m *SessionManager) Regenerate(ctx context.Context, session *Session) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	rotated := *session
	rotated.ID = id
	rotated.IssuedAt = m.now()
	rotated.LastActive = rotated.IssuedAt
	if err := m.store.Rotate(ctx, session.ID, &rotated); err != nil {
		return nil, ErrStoreUnavailable
	}
	return &rotated, nil
}

// Touch は無操作タイムアウトの起点を現在時刻へ進めます。
func (m *SessionManager) Touch(ctx context.Context, id string) error {
	now := m.now()
	_, err := m.store.Update(ctx, id, func(s *Session) {
		s.LastActive = now
	})
	return err
}

// Destroy はセッションと束縛された状態（CSRFトークン含む）を破棄します。
func (m *SessionManager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return ErrStoreUnavailable
	}
	return nil
}

// newSessionID は推測不能なセッション識別子を生成します。
func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
