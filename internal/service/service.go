package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/gamassss/shortlink/internal/service")

type LinkRepository interface {
	Create(ctx context.Context, link *domain.Link) error
	IsCodeAvailable(ctx context.Context, code string) (bool, error)
	GetActiveByCode(ctx context.Context, code string) (*domain.Link, error)
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*domain.Link, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Link, int64, error)
	Update(ctx context.Context, link *domain.Link, previousAlias string) error
	SoftDelete(ctx context.Context, id, ownerID string) error
}

type ClickRepository interface {
	InsertClick(ctx context.Context, click *domain.ClickEvent) error
	HasPriorClick(ctx context.Context, click *domain.ClickEvent) (bool, error)
	IncrementCounters(ctx context.Context, linkID string, unique bool, clickedAt time.Time) error
	GetAnalytics(ctx context.Context, linkID string, days int) (*domain.LinkAnalytics, error)
	GetClickHistory(ctx context.Context, linkID string, page, pageSize int) (*domain.ClickHistory, error)
}

type LinkCache interface {
	GetLink(ctx context.Context, code string) (*domain.Link, error)
	SetLink(ctx context.Context, code string, link *domain.Link, ttl time.Duration) error
	Invalidate(ctx context.Context, codes ...string) error
}

type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) *domain.PageMetadata
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// storageError keeps domain errors as they are and folds anything else into
// domain.ErrStorage.
func storageError(err error) error {
	for _, known := range []error{
		domain.ErrNotFound,
		domain.ErrStorage,
		domain.ErrConflict,
		domain.ErrAliasTaken,
		domain.ErrUnauthorized,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStorage, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
