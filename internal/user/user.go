// Package user は利用者レコードの参照・登録を提供します。
// 認証コアはこのパッケージを照合のためだけに読み取ります。
package user

import (
	"context"
	"time"
)

// User は利用者のアイデンティティ属性です。
type User struct {
	ID           int64
	Name         string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Store は利用者ストアへの操作を抽象化します。
// FindByEmail は該当なしの場合 (nil, nil) を返します。
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Insert(ctx context.Context, u *User) (int64, error)
	// ExistsByColumn はサインアップ時の一意性チェックに使用します。
	// excludeID が正の場合、そのIDの行を除外して判定します。
	ExistsByColumn(ctx context.Context, table, column, value string, excludeID int64) (bool, error)
}
