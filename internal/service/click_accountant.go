package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/internal/logger"
	"github.com/gamassss/shortlink/internal/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ClickAccountant stores click events and keeps the per-link counters.
type ClickAccountant struct {
	clicks  ClickRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewClickAccountant(clicks ClickRepository, m *metrics.Metrics) *ClickAccountant {
	return &ClickAccountant{
		clicks:  clicks,
		metrics: m,
		now:     time.Now,
	}
}

// Record is best effort. Failures are logged and counted, never returned.
func (a *ClickAccountant) Record(ctx context.Context, linkID string, attrs domain.ClickAttributes) {
	ctx, span := tracer.Start(ctx, "ClickAccountant.Record")
	span.SetAttributes(attribute.String("link.id", linkID))
	defer span.End()

	log := logger.FromContext(ctx).With(slog.String("link_id", linkID))

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	click := &domain.ClickEvent{
		ID:         id.String(),
		LinkID:     linkID,
		IPAddress:  attrs.IPAddress,
		UserAgent:  attrs.UserAgent,
		Referer:    attrs.Referer,
		DeviceType: attrs.DeviceType,
		Browser:    attrs.Browser,
		ClickedAt:  a.now().UTC(),
	}

	if err := a.clicks.InsertClick(ctx, click); err != nil {
		a.metrics.ClickRecorded("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert click")
		log.Error("Failed to record click", slog.String("error", err.Error()))
		return
	}

	prior, err := a.clicks.HasPriorClick(ctx, click)
	if err != nil {
		// Count the click but not the visitor.
		prior = true
		log.Warn("Failed to check for prior clicks", slog.String("error", err.Error()))
	}
	unique := !prior

	if err := a.clicks.IncrementCounters(ctx, linkID, unique, click.ClickedAt); err != nil {
		a.metrics.ClickRecorded("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "increment counters")
		log.Error("Failed to update click counters", slog.String("error", err.Error()))
		return
	}

	if unique {
		a.metrics.ClickRecorded("unique")
	} else {
		a.metrics.ClickRecorded("repeat")
	}
	span.SetAttributes(attribute.Bool("click.unique", unique))

	log.Debug("Click recorded", slog.Bool("unique", unique))
}
