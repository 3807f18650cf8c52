package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/horecaalert/internal/searchalert/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, alert *domain.SearchAlert) error {
	if alert == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO search_alerts (
			id, user_id, name, cities, provinces, property_types,
			price_min, price_max, surface_min, surface_max,
			frequency, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID,
		alert.UserID,
		alert.Name,
		alert.Cities,
		alert.Provinces,
		alert.PropertyTypes,
		alert.PriceMin,
		alert.PriceMax,
		alert.SurfaceMin,
		alert.SurfaceMax,
		alert.Frequency,
		alert.Active,
		alert.CreatedAt,
		alert.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SearchAlert, error) {
	var alert domain.SearchAlert
	err := db.WithContext(ctx).Where("id = ?", id).Take(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID, beforeID snowflake.ID, limit int) ([]*domain.SearchAlert, error) {
	var items []*domain.SearchAlert
	stmt := db.WithContext(ctx).Where("user_id = ?", userID)
	if beforeID != 0 {
		stmt = stmt.Where("id < ?", beforeID)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	err := stmt.Order("id DESC").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]domain.SearchAlert, error) {
	var items []domain.SearchAlert
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, updatedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE search_alerts SET active = ?, updated_at = ? WHERE id = ?`,
		active,
		updatedAt,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM search_alerts WHERE id = ?`, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
