package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/horecaalert/internal/listing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestListPublishedSince(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Listing{}))

	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	seed := []domain.Listing{
		{ID: "old", Title: "Old", City: "Utrecht", PropertyType: "CAFE", Status: domain.StatusActive, PriceType: domain.PriceTypeRent, PublishedAt: at(48 * time.Hour)},
		{ID: "draft", Title: "Draft", City: "Utrecht", PropertyType: "CAFE", Status: domain.StatusDraft, PriceType: domain.PriceTypeRent, PublishedAt: at(time.Hour)},
		{ID: "unpublished", Title: "Unpublished", City: "Utrecht", PropertyType: "CAFE", Status: domain.StatusActive, PriceType: domain.PriceTypeRent},
		{ID: "b", Title: "B", City: "Utrecht", PropertyType: "BAR", Status: domain.StatusActive, PriceType: domain.PriceTypeSale, PublishedAt: at(2 * time.Hour)},
		{ID: "a", Title: "A", City: "Utrecht", PropertyType: "BAR", Status: domain.StatusActive, PriceType: domain.PriceTypeSale, PublishedAt: at(2 * time.Hour)},
		{ID: "new", Title: "New", City: "Leiden", PropertyType: "HOTEL", Status: domain.StatusActive, PriceType: domain.PriceTypeRentOrSale, PublishedAt: at(time.Minute)},
	}
	for i := range seed {
		seed[i].CreatedAt = now.Add(-72 * time.Hour)
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	items, err := Provide().ListPublishedSince(context.Background(), db, now.Add(-24*time.Hour))
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"new", "a", "b"}, ids)
}
