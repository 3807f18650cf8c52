// Package notification sends one email per matched (alert, listing) pair and
// records the send in the match event ledger.
package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/horecaalert/internal/clock"
	"github.com/smallbiznis/horecaalert/internal/config"
	listingdomain "github.com/smallbiznis/horecaalert/internal/listing/domain"
	"github.com/smallbiznis/horecaalert/internal/match"
	matcheventdomain "github.com/smallbiznis/horecaalert/internal/matchevent/domain"
	"github.com/smallbiznis/horecaalert/internal/observability/logger"
	"github.com/smallbiznis/horecaalert/internal/observability/metrics"
	"github.com/smallbiznis/horecaalert/internal/observability/tracing"
	"github.com/smallbiznis/horecaalert/internal/providers/email"
	userdomain "github.com/smallbiznis/horecaalert/internal/user/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ReasonDuplicate = "duplicate"
	ReasonSendError = "send-error"
	ReasonHeld      = "held"
)

var (
	ErrSendFailed        = errors.New("send_failed")
	ErrRecipientNotFound = errors.New("recipient_not_found")
	ErrRecordMatchFailed = errors.New("record_match_failed")
)

// Result reports what happened to one pair. Reason is empty when Sent is true.
type Result struct {
	Sent   bool   `json:"sent"`
	Reason string `json:"reason,omitempty"`
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	GenID     *snowflake.Node
	Tuning    *config.TuningHolder
	EventRepo matcheventdomain.Repository
	UserRepo  userdomain.Repository
	Email     email.Provider
	URLs      listingdomain.URLBuilder
	Metrics   *metrics.PipelineMetrics `optional:"true"`
}

type Dispatcher struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	tuning    *config.TuningHolder
	eventRepo matcheventdomain.Repository
	userRepo  userdomain.Repository
	email     email.Provider
	urls      listingdomain.URLBuilder
	metrics   *metrics.PipelineMetrics
}

func New(p Params) *Dispatcher {
	return &Dispatcher{
		db:        p.DB,
		log:       p.Log.Named("notification.dispatcher"),
		clock:     p.Clock,
		genID:     p.GenID,
		tuning:    p.Tuning,
		eventRepo: p.EventRepo,
		userRepo:  p.UserRepo,
		email:     p.Email,
		urls:      p.URLs,
		metrics:   p.Metrics,
	}
}

// Dispatch notifies the alert owner about the listing at most once. The ledger
// row is written only after the email was accepted, so a failed send is
// retried by a later run. A held pair that is not in the ledger yet is left
// for a run outside the alert's frequency window.
func (d *Dispatcher) Dispatch(ctx context.Context, pair match.Pair) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "notification.dispatch",
		attribute.String("alert.id", pair.Alert.ID.String()),
		attribute.String("property.id", pair.Listing.ID),
	)
	defer span.End()

	log := logger.WithContext(ctx, d.log).With(
		zap.String("alert_id", pair.Alert.ID.String()),
		zap.String("property_id", pair.Listing.ID),
	)

	exists, err := d.eventRepo.Exists(ctx, d.db, pair.Alert.ID, pair.Listing.ID)
	if err != nil {
		d.fail(span, metrics.DispatchOutcomeError, err)
		return Result{}, fmt.Errorf("check match event: %w", err)
	}
	if exists {
		d.metrics.IncDispatch(metrics.DispatchOutcomeDuplicate)
		span.SetAttributes(attribute.String("dispatch.outcome", ReasonDuplicate))
		return Result{Sent: false, Reason: ReasonDuplicate}, nil
	}
	if pair.Held {
		d.metrics.IncDispatch(metrics.DispatchOutcomeHeld)
		span.SetAttributes(attribute.String("dispatch.outcome", ReasonHeld))
		return Result{Sent: false, Reason: ReasonHeld}, nil
	}

	user, err := d.userRepo.FindByID(ctx, d.db, pair.Alert.UserID)
	if err != nil {
		d.fail(span, metrics.DispatchOutcomeError, err)
		return Result{}, fmt.Errorf("load recipient: %w", err)
	}
	if user == nil || user.Email == "" {
		d.fail(span, metrics.DispatchOutcomeError, ErrRecipientNotFound)
		return Result{}, ErrRecipientNotFound
	}

	payload := BuildPayload(pair.Alert, *user, pair.Listing, d.urls)
	templateID := d.tuning.Get().TemplateID
	if err := d.email.SendTemplate(ctx, []string{user.Email}, templateID, payload); err != nil {
		d.fail(span, metrics.DispatchOutcomeSendError, err)
		log.Warn("match email not sent", zap.String("template_id", templateID), zap.Error(err))
		return Result{Sent: false, Reason: ReasonSendError}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	sentAt := pair.ScannedAt
	if sentAt.IsZero() {
		sentAt = d.clock.Now()
	}
	event := matcheventdomain.MatchEvent{
		ID:         d.genID.Generate(),
		AlertID:    pair.Alert.ID,
		PropertyID: pair.Listing.ID,
		SentAt:     sentAt,
	}
	err = d.eventRepo.Insert(ctx, d.db, &event)
	switch {
	case errors.Is(err, matcheventdomain.ErrDuplicateMatch):
		// Another run recorded the pair between the check and the insert.
		log.Warn("match event already recorded after send")
	case err != nil:
		d.fail(span, metrics.DispatchOutcomeError, err)
		log.Error("match email sent but not recorded", zap.Error(err))
		return Result{Sent: true}, fmt.Errorf("%w: %v", ErrRecordMatchFailed, err)
	}

	d.metrics.IncDispatch(metrics.DispatchOutcomeSent)
	span.SetAttributes(attribute.String("dispatch.outcome", metrics.DispatchOutcomeSent))
	log.Info("match email sent", zap.String("template_id", templateID))
	return Result{Sent: true}, nil
}

func (d *Dispatcher) fail(span trace.Span, outcome string, err error) {
	d.metrics.IncDispatch(outcome)
	span.RecordError(tracing.SafeError(err))
	span.SetStatus(codes.Error, outcome)
}
