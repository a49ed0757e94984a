package auth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T) (*Limiter, *time.Time) {
	t.Helper()
	current := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewLimiter(NewMemoryAttemptStore(), 5, 15*time.Minute)
	limiter.now = func() time.Time { return current }
	return limiter, &current
}

func TestLimiterAllowsUnknownIdentifier(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	decision, err := limiter.Check(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected unknown identifier to be allowed")
	}
	if decision.Remaining != 5 {
		t.Fatalf("Remaining = %d, want 5", decision.Remaining)
	}
}

func TestLimiterLocksAfterMaxFailures(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		decision, err := limiter.Check(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("Check returned error: %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("attempt %d unexpectedly blocked", i+1)
		}
		if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}

	decision, err := limiter.Check(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected sixth attempt to be blocked")
	}
	if decision.RetryAfter <= 0 || decision.RetryAfter > 15*time.Minute {
		t.Fatalf("unexpected RetryAfter: %v", decision.RetryAfter)
	}
}

func TestLimiterLockoutDoesNotExtend(t *testing.T) {
	limiter, current := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}

	*current = current.Add(10 * time.Minute)
	decision, err := limiter.Check(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected identifier to remain locked within the window")
	}
	if decision.RetryAfter != 5*time.Minute {
		t.Fatalf("RetryAfter = %v, want 5m", decision.RetryAfter)
	}
}

func TestLimiterWindowElapseResets(t *testing.T) {
	limiter, current := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}

	*current = current.Add(15*time.Minute + time.Second)
	decision, err := limiter.Check(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected identifier to be allowed after the window elapsed")
	}
	if decision.Remaining != 5 {
		t.Fatalf("Remaining = %d, want 5", decision.Remaining)
	}
}

func TestLimiterFailureAfterElapsedWindowStartsFresh(t *testing.T) {
	limiter, current := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}

	*current = current.Add(16 * time.Minute)
	if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RecordFailure returned error: %v", err)
	}

	decision, err := limiter.Check(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected fresh window to allow attempts")
	}
	if decision.Remaining != 4 {
		t.Fatalf("Remaining = %d, want 4", decision.Remaining)
	}
}

func TestLimiterResetClearsRecord(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}
	if err := limiter.Reset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}

	decision, err := limiter.Check(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !decision.Allowed || decision.Remaining != 5 {
		t.Fatalf("unexpected decision after reset: %#v", decision)
	}

	// レコードが無い状態の再呼び出しも成功する
	if err := limiter.Reset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Reset on missing record returned error: %v", err)
	}
}

func TestLimiterIdentifiersAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}

	decision, err := limiter.Check(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected unrelated identifier to be allowed")
	}
}

func TestLimiterConcurrentFailuresAreNotLost(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	const attempts = 50
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
				t.Errorf("RecordFailure returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	record, err := limiter.store.Get(ctx, limitKey("alice@example.com"))
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if record == nil || record.Count != attempts {
		t.Fatalf("expected %d recorded failures, got %#v", attempts, record)
	}

	decision, err := limiter.Check(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected identifier to be locked after concurrent failures")
	}
}

func TestLimiterConcurrentCheckAndFailure(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	// 判定と失敗記録が同じ識別子へ同時に走っても、加算が失われたり
	// レコードが消えたりしないこと。
	const failures = 20
	var wg sync.WaitGroup
	for i := 0; i < failures; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
				t.Errorf("RecordFailure returned error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := limiter.Check(ctx, "alice@example.com"); err != nil {
				t.Errorf("Check returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	record, err := limiter.store.Get(ctx, limitKey("alice@example.com"))
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if record == nil || record.Count != failures {
		t.Fatalf("expected %d recorded failures, got %#v", failures, record)
	}
}

func TestLimiterCheckDoesNotDiscardRecords(t *testing.T) {
	limiter, current := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}

	// 経過済みウィンドウの判定はストアを書き換えない。消してしまうと、
	// 入れ違いに新しいウィンドウを開いた失敗記録まで巻き込んで消える。
	*current = current.Add(16 * time.Minute)
	decision, err := limiter.Check(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected elapsed window to be allowed")
	}

	record, err := limiter.store.Get(ctx, limitKey("alice@example.com"))
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if record == nil || record.Count != 5 {
		t.Fatalf("expected record to survive Check, got %#v", record)
	}

	// 次の失敗が新しいウィンドウを開く
	if err := limiter.RecordFailure(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RecordFailure returned error: %v", err)
	}
	record, err = limiter.store.Get(ctx, limitKey("alice@example.com"))
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if record == nil || record.Count != 1 {
		t.Fatalf("expected fresh window with one failure, got %#v", record)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}
