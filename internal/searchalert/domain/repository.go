package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, alert *SearchAlert) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SearchAlert, error)
	// ListByUser returns up to limit alerts with id below beforeID, newest
	// first. A zero beforeID starts from the top.
	ListByUser(ctx context.Context, db *gorm.DB, userID, beforeID snowflake.ID, limit int) ([]*SearchAlert, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]SearchAlert, error)
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, updatedAt time.Time) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
