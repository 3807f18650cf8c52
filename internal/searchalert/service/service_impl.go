package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/horecaalert/internal/clock"
	"github.com/smallbiznis/horecaalert/internal/searchalert/domain"
	userdomain "github.com/smallbiznis/horecaalert/internal/user/domain"
	"github.com/smallbiznis/horecaalert/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	UserRepo userdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	userRepo userdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("searchalert.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		userRepo: p.UserRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	userID, err := parseID(req.UserID)
	if err != nil {
		return nil, domain.ErrInvalidUserID
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	frequency := domain.Frequency(strings.ToUpper(strings.TrimSpace(req.Frequency)))
	if !frequency.Valid() {
		return nil, domain.ErrInvalidFrequency
	}

	types := make([]domain.PropertyType, 0, len(req.PropertyTypes))
	for _, t := range req.PropertyTypes {
		types = append(types, domain.PropertyType(t))
	}
	criteria, err := domain.NewCriteria(
		req.Cities,
		req.Provinces,
		types,
		req.PriceMin,
		req.PriceMax,
		req.SurfaceMin,
		req.SurfaceMax,
	)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidUserID
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	alert := domain.SearchAlert{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Name:      name,
		Frequency: frequency,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	alert.ApplyCriteria(criteria)

	if err := s.repo.Create(ctx, s.db, &alert); err != nil {
		return nil, err
	}

	s.log.Info("search alert created",
		zap.String("alert_id", alert.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("frequency", string(frequency)),
	)

	resp := toResponse(alert)
	return &resp, nil
}

func (s *Service) ListByUser(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	userID, err := parseID(req.UserID)
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidUserID
	}

	var before snowflake.ID
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListResponse{}, err
		}
		before, err = parseID(cursor.ID)
		if err != nil {
			return domain.ListResponse{}, pagination.ErrInvalidPageToken
		}
	}

	pageSize := pagination.Pagination{PageSize: req.PageSize}.Size()
	items, err := s.repo.ListByUser(ctx, s.db, userID, before, pageSize+1)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(alert *domain.SearchAlert) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: alert.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	out := make([]domain.Response, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, toResponse(*item))
	}
	return domain.ListResponse{PageInfo: pageInfo, Alerts: out}, nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) (*domain.Response, error) {
	alertID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	updated, err := s.repo.SetActive(ctx, s.db, alertID, active, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrNotFound
	}

	alert, err := s.repo.FindByID(ctx, s.db, alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(*alert)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	alertID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	deleted, err := s.repo.Delete(ctx, s.db, alertID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}

	s.log.Info("search alert deleted", zap.String("alert_id", alertID.String()))
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, domain.ErrInvalidID
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, domain.ErrInvalidID
	}
	return snowflake.ID(parsed), nil
}

func toResponse(a domain.SearchAlert) domain.Response {
	return domain.Response{
		ID:            a.ID.String(),
		UserID:        a.UserID.String(),
		Name:          a.Name,
		Cities:        nonNil(a.Cities),
		Provinces:     nonNil(a.Provinces),
		PropertyTypes: nonNil(a.PropertyTypes),
		PriceMin:      a.PriceMin,
		PriceMax:      a.PriceMax,
		SurfaceMin:    a.SurfaceMin,
		SurfaceMax:    a.SurfaceMax,
		Frequency:     a.Frequency,
		Active:        a.Active,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return append([]string{}, values...)
}
