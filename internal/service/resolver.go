package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/internal/logger"
	"github.com/gamassss/shortlink/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
)

// Resolver maps a code to its active link. It never writes to the store.
type Resolver struct {
	links    LinkRepository
	cache    LinkCache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
}

// NewResolver builds a resolver. A nil cache sends every lookup to the store.
func NewResolver(links LinkRepository, cache LinkCache, cacheTTL time.Duration, m *metrics.Metrics) *Resolver {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	return &Resolver{
		links:    links,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  m,
	}
}

// Resolve returns the active link whose short code or custom alias is code.
// Expiry is not enforced here.
func (r *Resolver) Resolve(ctx context.Context, code string) (link *domain.Link, err error) {
	ctx, span := tracer.Start(ctx, "Resolver.Resolve")
	span.SetAttributes(attribute.String("link.code", code))
	defer func() { endSpan(span, err) }()

	if code == "" {
		return nil, domain.ErrNotFound
	}

	log := logger.FromContext(ctx)

	if r.cache != nil {
		cached, err := r.cache.GetLink(ctx, code)
		switch {
		case err != nil:
			r.metrics.CacheLookup("error")
			log.Warn("Cache lookup failed, falling back to store",
				slog.String("code", code),
				slog.String("error", err.Error()),
			)
		case cached != nil:
			r.metrics.CacheLookup("hit")
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		default:
			r.metrics.CacheLookup("miss")
		}
	}

	link, err = r.links.GetActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		log.Error("Failed to resolve code", slog.String("code", code), slog.String("error", err.Error()))
		return nil, storageError(err)
	}

	if r.cache != nil {
		fillCtx := logger.Detach(ctx)
		cached := *link
		go r.fill(fillCtx, code, &cached)
	}

	return link, nil
}

// fill caches link under code, then reads the store again. An update or
// delete that invalidated the code while the write was in flight would
// otherwise be undone by it, so a changed or missing link drops the entry.
func (r *Resolver) fill(ctx context.Context, code string, link *domain.Link) {
	log := logger.FromContext(ctx)

	if err := r.cache.SetLink(ctx, code, link, r.cacheTTL); err != nil {
		log.Warn("Failed to cache link",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		return
	}

	current, err := r.links.GetActiveByCode(ctx, code)
	if err == nil && current.ID == link.ID && current.Destination == link.Destination {
		return
	}

	if err := r.cache.Invalidate(ctx, code); err != nil {
		log.Warn("Failed to drop stale cache fill",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		return
	}
	r.metrics.CacheLookup("stale_fill")
	log.Debug("Dropped cache fill for a link changed mid-fill", slog.String("code", code))
}
