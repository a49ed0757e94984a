package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB は PostgresStore が必要とする接続プールの操作部分です。
// *pgxpool.Pool とテスト用の pgxmock プールの両方が満たします。
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// クエリごとの上限時間。超過はストア障害として扱われ、
// 認証フローでは拒否側に倒れます。
const defaultQueryTimeout = 3 * time.Second

// 一意性チェックを許可するテーブルとカラム。識別子は文字列結合で
// クエリに埋め込むため、ここに無いものは拒否します。
var uniqueCheckColumns = map[string][]string{
	"users": {"email", "username"},
}

// PostgresStore は PostgreSQL 上の利用者ストアです。
type PostgresStore struct {
	db      DB
	timeout time.Duration
}

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, timeout: defaultQueryTimeout}
}

// FindByEmail はメールアドレスで利用者を検索します。
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id, name, username, email, password, created_at
		FROM users
		WHERE email = $1
		LIMIT 1;
	`
	row := s.db.QueryRow(ctx, query, email)

	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &u, nil
}

// Insert は新しい利用者を登録し、採番されたIDを返します。
func (s *PostgresStore) Insert(ctx context.Context, u *User) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO users (name, username, email, password, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id;
	`
	var id int64
	if err := s.db.QueryRow(ctx, query, u.Name, u.Username, u.Email, u.PasswordHash).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return id, nil
}

// ExistsByColumn は指定カラムに同じ値を持つ行の有無を返します。
func (s *PostgresStore) ExistsByColumn(ctx context.Context, table, column, value string, excludeID int64) (bool, error) {
	if !allowedUniqueCheck(table, column) {
		return false, fmt.Errorf("unique check not allowed for %s.%s", table, column)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", table, column)
	args := []any{value}
	if excludeID > 0 {
		query += " AND id != $2"
		args = append(args, excludeID)
	}

	var count int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check uniqueness of %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}

func allowedUniqueCheck(table, column string) bool {
	for _, c := range uniqueCheckColumns[table] {
		if c == column {
			return true
		}
	}
	return false
}
