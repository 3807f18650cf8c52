package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ErrDuplicateMatch signals that the (alert, listing) pair is already recorded.
var ErrDuplicateMatch = errors.New("duplicate_match")

// MatchEvent records that an alert's owner was notified about a listing.
// Rows are insert-only and unique per (alert, property).
type MatchEvent struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	AlertID    snowflake.ID `gorm:"not null;uniqueIndex:ux_match_events_alert_property,priority:1"`
	PropertyID string       `gorm:"type:text;not null;uniqueIndex:ux_match_events_alert_property,priority:2"`
	SentAt     time.Time    `gorm:"not null;index"`
}

func (MatchEvent) TableName() string { return "match_events" }

type Repository interface {
	Exists(ctx context.Context, db *gorm.DB, alertID snowflake.ID, propertyID string) (bool, error)
	// Insert records the event unless the pair exists, in which case it
	// returns ErrDuplicateMatch and leaves the ledger untouched.
	Insert(ctx context.Context, db *gorm.DB, event *MatchEvent) error
	// LastSentSince returns, per alert, the latest sent_at at or after since.
	// Alerts without such an event are absent from the map.
	LastSentSince(ctx context.Context, db *gorm.DB, alertIDs []snowflake.ID, since time.Time) (map[snowflake.ID]time.Time, error)
}
