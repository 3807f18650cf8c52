package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/horecaalert/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	ListByUser(ctx context.Context, req ListRequest) (ListResponse, error)
	SetActive(ctx context.Context, id string, active bool) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type ListRequest struct {
	UserID    string
	PageToken string
	PageSize  int
}

type ListResponse struct {
	pagination.PageInfo
	Alerts []Response `json:"alerts"`
}

type CreateRequest struct {
	UserID        string   `json:"user_id"`
	Name          string   `json:"name"`
	Cities        []string `json:"cities"`
	Provinces     []string `json:"provinces"`
	PropertyTypes []string `json:"property_types"`
	PriceMin      *int64   `json:"price_min"`
	PriceMax      *int64   `json:"price_max"`
	SurfaceMin    *int64   `json:"surface_min"`
	SurfaceMax    *int64   `json:"surface_max"`
	Frequency     string   `json:"frequency"`
	Active        *bool    `json:"active"`
}

type Response struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Cities        []string  `json:"cities"`
	Provinces     []string  `json:"provinces"`
	PropertyTypes []string  `json:"property_types"`
	PriceMin      *int64    `json:"price_min,omitempty"`
	PriceMax      *int64    `json:"price_max,omitempty"`
	SurfaceMin    *int64    `json:"surface_min,omitempty"`
	SurfaceMax    *int64    `json:"surface_max,omitempty"`
	Frequency     Frequency `json:"frequency"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
