package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/horecaalert/internal/matchevent/domain"
	"github.com/smallbiznis/horecaalert/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Exists(ctx context.Context, conn *gorm.DB, alertID snowflake.ID, propertyID string) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).
		Model(&domain.MatchEvent{}).
		Where("alert_id = ? AND property_id = ?", alertID, propertyID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, event *domain.MatchEvent) error {
	if event == nil {
		return gorm.ErrInvalidData
	}
	result := conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "alert_id"}, {Name: "property_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		if db.IsDuplicateKeyErr(result.Error) {
			return domain.ErrDuplicateMatch
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDuplicateMatch
	}
	return nil
}

type lastSentRow struct {
	AlertID snowflake.ID
	SentAt  time.Time
}

func (r *repo) LastSentSince(ctx context.Context, conn *gorm.DB, alertIDs []snowflake.ID, since time.Time) (map[snowflake.ID]time.Time, error) {
	out := make(map[snowflake.ID]time.Time, len(alertIDs))
	if len(alertIDs) == 0 {
		return out, nil
	}

	// Aggregates lose the column type on some drivers, so the max is taken here.
	var rows []lastSentRow
	err := conn.WithContext(ctx).
		Model(&domain.MatchEvent{}).
		Select("alert_id", "sent_at").
		Where("alert_id IN ?", alertIDs).
		Where("sent_at >= ?", since).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if last, ok := out[row.AlertID]; !ok || row.SentAt.After(last) {
			out[row.AlertID] = row.SentAt
		}
	}
	return out, nil
}
