package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// User is the read-only recipient view of a marketplace account.
type User struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text"`
	Email     string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null"`
}

func (User) TableName() string { return "users" }

// DisplayName falls back to the mailbox name when no name is set.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	for i := 0; i < len(u.Email); i++ {
		if u.Email[i] == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]User, error)
}
