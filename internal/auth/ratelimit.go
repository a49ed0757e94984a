package auth

import (
	"context"
	"strings"
	"time"
)

// AttemptRecord は識別子ごとの失敗回数とウィンドウ開始時刻です。
// ウィンドウ内で Count が減ることはなく、ウィンドウが完全に経過した時点で
// レコードごとリセットされます。
type AttemptRecord struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"windowStart"`
}

// AttemptStore は試行レコードの永続化を抽象化します。
// Update は読み取り・変更・書き込みを同一キーに対して原子的に行い、
// レコードが無ければゼロ値から開始します。並行リクエストが同じ識別子を
// 同時に叩いても、加算が失われたり上限を超過したりしないことが要件です。
type AttemptStore interface {
	Get(ctx context.Context, key string) (*AttemptRecord, error)
	Update(ctx context.Context, key string, window time.Duration, mutate func(*AttemptRecord)) (*AttemptRecord, error)
	Delete(ctx context.Context, key string) error
}

// Decision はログイン試行可否の判定結果です。
type Decision struct {
	Allowed    bool
	Remaining  int           // ロックアウトまでの残り試行回数
	RetryAfter time.Duration // ロックアウト中の残り時間
}

// Limiter は識別子ごとの失敗回数を固定ウィンドウで追跡し、
// 閾値を超えた識別子をロックアウトします。状態はサーバー側ストアに
// 置くため、クライアントがクッキーを捨てても回避できません。
type Limiter struct {
	store       AttemptStore
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewLimiter は Limiter を作成します。閾値とウィンドウは設定から渡します。
func NewLimiter(store AttemptStore, maxAttempts int, window time.Duration) *Limiter {
	return &Limiter{
		store:       store,
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// Check は識別子が試行を許可されているか判定します。ストアへの書き込みは
// 行いません。経過済みウィンドウのレコードを消すと、並行する失敗記録が
// 開いたばかりの新しいウィンドウを巻き込んで消しかねないため、
// レコードの作り直しは RecordFailure の原子的な Update に任せます。
// ストア障害時はフェイルクローズとしてエラーを返します。
func (l *Limiter) Check(ctx context.Context, identifier string) (Decision, error) {
	record, err := l.store.Get(ctx, limitKey(identifier))
	if err != nil {
		return Decision{}, ErrStoreUnavailable
	}
	if record == nil {
		return Decision{Allowed: true, Remaining: l.maxAttempts}, nil
	}

	elapsed := l.now().Sub(record.WindowStart)
	if elapsed > l.window {
		// ウィンドウ経過。次の失敗が新しいウィンドウを開く。
		return Decision{Allowed: true, Remaining: l.maxAttempts}, nil
	}

	if record.Count >= l.maxAttempts {
		return Decision{
			Allowed:    false,
			RetryAfter: l.window - elapsed,
		}, nil
	}
	return Decision{Allowed: true, Remaining: l.maxAttempts - record.Count}, nil
}

// RecordFailure は失敗を1回分加算します。最初の失敗がウィンドウを開き、
// ウィンドウ経過後の失敗はレコードを作り直します。加算はストア側で
// 原子的に行われます。
func (l *Limiter) RecordFailure(ctx context.Context, identifier string) error {
	now := l.now()
	_, err := l.store.Update(ctx, limitKey(identifier), l.window, func(r *AttemptRecord) {
		if r.WindowStart.IsZero() || now.Sub(r.WindowStart) > l.window {
			r.Count = 0
			r.WindowStart = now
		}
		r.Count++
	})
	if err != nil {
		return ErrStoreUnavailable
	}
	return nil
}

// Reset は識別子のレコードを消去します。認証成功時に呼び出します。
// レコードが無い場合も何もせず成功します（冪等）。
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	if err := l.store.Delete(ctx, limitKey(identifier)); err != nil {
		return ErrStoreUnavailable
	}
	return nil
}

// NormalizeEmail はレート制限キーおよび利用者検索に使うメールアドレスの
// 正規化を行います。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func limitKey(identifier string) string {
	return "login:" + identifier
}
