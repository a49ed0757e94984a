package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	limitKeyPrefix   = "ratelimit:"

	// 楽観ロックの再試行上限。衝突は同一キーへの並行更新時のみ起こる。
	maxTxRetries = 16
)

// RedisSessionStore はセッション状態を Redis に保存します。
// レコードはJSONで "session:<id>" に置き、TTLは絶対有効期限です。
type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSessionStore は RedisSessionStore を作成します。
func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKeyPrefix+session.ID, payload, s.ttl).Err()
}

// Update は WATCH による楽観ロックで読み取り・変更・書き込みを行います。
func (s *RedisSessionStore) Update(ctx context.Context, id string, mutate func(*Session)) (*Session, error) {
	key := sessionKeyPrefix + id
	var updated *Session

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					updated = nil
					return nil
				}
				return err
			}
			var session Session
			if err := json.Unmarshal(data, &session); err != nil {
				return err
			}
			mutate(&session)
			payload, err := json.Marshal(&session)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, redis.KeepTTL)
				return nil
			})
			if err != nil {
				return err
			}
			updated = &session
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return updated, err
	}
	return nil, redis.TxFailedErr
}

// Rotate は新識別子での保存と旧識別子の削除を同一トランザクションで行い、
// 有効な識別子が常にただ1つであることを保証します。
func (s *RedisSessionStore) Rotate(ctx context.Context, oldID string, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+session.ID, payload, s.ttl)
		pipe.Del(ctx, sessionKeyPrefix+oldID)
		return nil
	})
	return err
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+id).Err()
}

// RedisAttemptStore は試行レコードを Redis に保存します。
// TTLをウィンドウ幅に合わせるため、使われなくなったレコードは
// 自然に消えます。
type RedisAttemptStore struct {
	rdb *redis.Client
}

// NewRedisAttemptStore は RedisAttemptStore を作成します。
func NewRedisAttemptStore(rdb *redis.Client) *RedisAttemptStore {
	return &RedisAttemptStore{rdb: rdb}
}

func (s *RedisAttemptStore) Get(ctx context.Context, key string) (*AttemptRecord, error) {
	data, err := s.rdb.Get(ctx, limitKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var record AttemptRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Update は WATCH による楽観ロックで加算を行います。並行リクエストが
// 衝突した場合は読み直して再試行するため、加算が失われることはありません。
func (s *RedisAttemptStore) Update(ctx context.Context, key string, window time.Duration, mutate func(*AttemptRecord)) (*AttemptRecord, error) {
	fullKey := limitKeyPrefix + key
	var updated *AttemptRecord

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			var record AttemptRecord
			data, err := tx.Get(ctx, fullKey).Bytes()
			switch {
			case err == nil:
				if err := json.Unmarshal(data, &record); err != nil {
					return err
				}
			case errors.Is(err, redis.Nil):
				// レコードなし。ゼロ値から開始する。
			default:
				return err
			}

			mutate(&record)
			payload, err := json.Marshal(&record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, fullKey, payload, window)
				return nil
			})
			if err != nil {
				return err
			}
			updated = &record
			return nil
		}, fullKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return updated, err
	}
	return nil, redis.TxFailedErr
}

func (s *RedisAttemptStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, limitKeyPrefix+key).Err()
}
