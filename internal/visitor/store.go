package visitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store は来訪者記録ストアへの操作を抽象化します。
type Store interface {
	Add(ctx context.Context, v *Visitor) (int64, error)
	Update(ctx context.Context, v *Visitor) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Visitor, error)
	List(ctx context.Context, filter ListFilter) ([]Visitor, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	MonthlyStats(ctx context.Context) (*Stats, error)
	Recent(ctx context.Context, limit int) ([]Visitor, error)
}

// DB は PostgresStore が必要とする接続プールの操作部分です。
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const defaultQueryTimeout = 3 * time.Second

// PostgresStore は PostgreSQL 上の来訪者記録ストアです。
type PostgresStore struct {
	db      DB
	timeout time.Duration
}

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, timeout: defaultQueryTimeout}
}

// Add は来訪者記録を追加し、採番されたIDを返します。
func (s *PostgresStore) Add(ctx context.Context, v *Visitor) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO visitors (name, date, time, reason, action_taken)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING visitor_id;
	`
	var id int64
	err := s.db.QueryRow(ctx, query, v.Name, v.Date, v.Time, v.Reason, v.ActionTaken).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert visitor: %w", err)
	}
	return id, nil
}

// Update は来訪者記録を更新します。
func (s *PostgresStore) Update(ctx context.Context, v *Visitor) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		UPDATE visitors
		SET name = $1, date = $2, time = $3, reason = $4, action_taken = $5
		WHERE visitor_id = $6;
	`
	tag, err := s.db.Exec(ctx, query, v.Name, v.Date, v.Time, v.Reason, v.ActionTaken, v.ID)
	if err != nil {
		return fmt.Errorf("failed to update visitor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("visitor %d not found", v.ID)
	}
	return nil
}

// Delete は来訪者記録を削除します。
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.Exec(ctx, "DELETE FROM visitors WHERE visitor_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete visitor: %w", err)
	}
	return nil
}

// GetByID は記録1件を取得します。該当なしの場合は (nil, nil) を返します。
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Visitor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT visitor_id, name, date, time, reason, action_taken
		FROM visitors
		WHERE visitor_id = $1;
	`
	var v Visitor
	err := s.db.QueryRow(ctx, query, id).Scan(&v.ID, &v.Name, &v.Date, &v.Time, &v.Reason, &v.ActionTaken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get visitor: %w", err)
	}
	return &v, nil
}

// List は検索・絞り込み条件付きで記録をページ取得します。
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]Visitor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT visitor_id, name, date, time, reason, action_taken
		FROM visitors
		WHERE 1=1
	`
	query, args := applyFilter(query, nil, filter)
	query += " ORDER BY date DESC, time DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list visitors: %w", err)
	}
	defer rows.Close()

	return scanVisitors(rows)
}

// Count は検索・絞り込み条件に合致する件数を返します。
func (s *PostgresStore) Count(ctx context.Context, filter ListFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := "SELECT COUNT(*) FROM visitors WHERE 1=1"
	query, args := applyFilter(query, nil, filter)

	var count int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count visitors: %w", err)
	}
	return count, nil
}

// MonthlyStats は当月の対応種別ごとの件数を集計します。
func (s *PostgresStore) MonthlyStats(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE action_taken = 'checked_in'),
			COUNT(*) FILTER (WHERE action_taken = 'checked_out'),
			COUNT(*) FILTER (WHERE action_taken = 'reported')
		FROM visitors
		WHERE date_trunc('month', date::date) = date_trunc('month', CURRENT_DATE);
	`
	var stats Stats
	err := s.db.QueryRow(ctx, query).Scan(&stats.Total, &stats.CheckedIn, &stats.CheckedOut, &stats.Reported)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate visitor stats: %w", err)
	}
	return &stats, nil
}

// Recent は直近の記録を返します。
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Visitor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT visitor_id, name, date, time, reason, action_taken
		FROM visitors
		ORDER BY date DESC, time DESC
		LIMIT $1;
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent visitors: %w", err)
	}
	defer rows.Close()

	return scanVisitors(rows)
}

func applyFilter(query string, args []any, filter ListFilter) (string, []any) {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern)
		n := strconv.Itoa(len(args))
		query += " AND (name LIKE $" + n + " OR reason LIKE $" + n + ")"
	}
	if filter.Action != "" && ValidActionTaken(filter.Action) {
		args = append(args, filter.Action)
		query += " AND action_taken = $" + strconv.Itoa(len(args))
	}
	return query, args
}

func scanVisitors(rows pgx.Rows) ([]Visitor, error) {
	var visitors []Visitor
	for rows.Next() {
		var v Visitor
		if err := rows.Scan(&v.ID, &v.Name, &v.Date, &v.Time, &v.Reason, &v.ActionTaken); err != nil {
			return nil, fmt.Errorf("failed to scan visitor row: %w", err)
		}
		visitors = append(visitors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return visitors, nil
}
