package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
	StatusSold     Status = "SOLD"
)

type PriceType string

const (
	PriceTypeRent       PriceType = "RENT"
	PriceTypeSale       PriceType = "SALE"
	PriceTypeRentOrSale PriceType = "RENT_OR_SALE"
)

// Listing is a published property offer. Prices are integer euro cents.
type Listing struct {
	ID           string    `gorm:"primaryKey;type:text"`
	Title        string    `gorm:"type:text;not null"`
	Slug         string    `gorm:"type:text"`
	City         string    `gorm:"type:text;not null"`
	Province     string    `gorm:"type:text"`
	PropertyType string    `gorm:"type:text;not null"`
	Status       Status    `gorm:"type:text;not null;index"`
	PriceType    PriceType `gorm:"type:text;not null"`
	RentPrice    *int64
	SalePrice    *int64
	SurfaceTotal *int64
	PublishedAt  *time.Time `gorm:"index"`
	CreatedAt    time.Time  `gorm:"not null"`
}

func (Listing) TableName() string { return "properties" }

// IsLive reports whether the listing is visible to the public.
func (l Listing) IsLive() bool {
	return l.Status == StatusActive && l.PublishedAt != nil
}

type Repository interface {
	// ListPublishedSince returns ACTIVE listings published at or after since,
	// newest first.
	ListPublishedSince(ctx context.Context, db *gorm.DB, since time.Time) ([]Listing, error)
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Listing, error)
}
