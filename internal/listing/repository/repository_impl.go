package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/horecaalert/internal/listing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListPublishedSince(ctx context.Context, db *gorm.DB, since time.Time) ([]domain.Listing, error) {
	var items []domain.Listing
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Where("published_at IS NOT NULL").
		Where("published_at >= ?", since).
		Order("published_at DESC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Listing, error) {
	var item domain.Listing
	err := db.WithContext(ctx).Where("id = ?", id).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
