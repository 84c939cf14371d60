package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/internal/logger"
	"github.com/gamassss/shortlink/internal/metrics"
	"github.com/gamassss/shortlink/pkg/generator"
	"github.com/gamassss/shortlink/pkg/validator"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type LinkServiceConfig struct {
	CodeLength  int
	MaxAttempts int
}

// LinkService is the link registry: it creates links and lets owners manage
// the ones they created.
type LinkService struct {
	links   LinkRepository
	cache   LinkCache
	fetcher MetadataFetcher
	metrics *metrics.Metrics
	cfg     LinkServiceConfig
	now     func() time.Time
}

// NewLinkService wires the registry. cache and fetcher may be nil.
func NewLinkService(links LinkRepository, cache LinkCache, fetcher MetadataFetcher, m *metrics.Metrics, cfg LinkServiceConfig) *LinkService {
	if cfg.CodeLength < 1 {
		cfg.CodeLength = generator.DefaultLength
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}

	return &LinkService{
		links:   links,
		cache:   cache,
		fetcher: fetcher,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Create validates the request, claims a code and stores the link. ownerID
// may be empty for anonymous links.
func (s *LinkService) Create(ctx context.Context, ownerID string, req *domain.CreateLinkRequest) (link *domain.Link, err error) {
	ctx, span := tracer.Start(ctx, "LinkService.Create")
	defer func() { endSpan(span, err) }()

	log := logger.FromContext(ctx)

	destination, err := validator.NormalizeURL(req.URL)
	if err != nil {
		return nil, err
	}

	alias := ""
	if req.CustomAlias != "" {
		if alias, err = validator.ValidateAlias(req.CustomAlias); err != nil {
			return nil, err
		}
	}

	link = &domain.Link{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Destination: destination,
		CustomAlias: alias,
		IsActive:    true,
	}

	if req.ExpiryHours > 0 {
		expires := s.now().Add(time.Duration(req.ExpiryHours) * time.Hour)
		link.ExpiresAt = &expires
	}

	attempts := 0
	if alias != "" {
		available, err := s.links.IsCodeAvailable(ctx, alias)
		if err != nil {
			return nil, storageError(err)
		}
		if !available {
			return nil, domain.ErrAliasTaken
		}
		link.ShortCode = alias
	} else {
		if link.ShortCode, err = s.allocateCode(ctx, &attempts); err != nil {
			return nil, err
		}
	}

	if s.fetcher != nil {
		meta := s.fetcher.Fetch(ctx, destination)
		if meta != nil {
			link.Title = meta.Title
			link.Description = meta.Description
			link.FaviconURL = meta.FaviconURL
		}
	}

	for {
		err = s.links.Create(ctx, link)
		if err == nil {
			break
		}

		if !errors.Is(err, domain.ErrConflict) {
			log.Error("Failed to store link", slog.String("short_code", link.ShortCode), slog.String("error", err.Error()))
			return nil, storageError(err)
		}

		if alias != "" {
			return nil, domain.ErrAliasTaken
		}

		s.metrics.CodeCollision()
		log.Warn("Short code claimed concurrently, regenerating", slog.String("short_code", link.ShortCode))

		if link.ShortCode, err = s.allocateCode(ctx, &attempts); err != nil {
			return nil, err
		}
	}

	kind := "generated"
	if alias != "" {
		kind = "alias"
	}
	s.metrics.LinkCreated(kind)
	span.SetAttributes(attribute.String("link.id", link.ID), attribute.String("link.kind", kind))

	log.Info("Link created",
		slog.String("link_id", link.ID),
		slog.String("short_code", link.ShortCode),
		slog.Bool("anonymous", ownerID == ""),
	)

	return link, nil
}

// allocateCode draws codes until one is free, sharing the attempt budget
// with insert retries.
func (s *LinkService) allocateCode(ctx context.Context, attempts *int) (string, error) {
	for *attempts < s.cfg.MaxAttempts {
		*attempts++

		code, err := generator.Generate(s.cfg.CodeLength)
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}

		available, err := s.links.IsCodeAvailable(ctx, code)
		if err != nil {
			return "", storageError(err)
		}
		if available {
			return code, nil
		}

		s.metrics.CodeCollision()
	}

	return "", domain.ErrCodeSpaceExhausted
}

func (s *LinkService) List(ctx context.Context, ownerID string, page, pageSize int) (*domain.LinkPage, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	page, pageSize = normalizePage(page, pageSize)

	links, total, err := s.links.ListByOwner(ctx, ownerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, storageError(err)
	}

	return &domain.LinkPage{
		Links:      links,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

func (s *LinkService) Get(ctx context.Context, ownerID, id string) (*domain.Link, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	link, err := s.links.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, storageError(err)
	}
	return link, nil
}

// Update edits destination and alias. Clearing the alias leaves the link
// reachable by its short code only.
func (s *LinkService) Update(ctx context.Context, ownerID, id string, req *domain.UpdateLinkRequest) (link *domain.Link, err error) {
	ctx, span := tracer.Start(ctx, "LinkService.Update")
	defer func() { endSpan(span, err) }()

	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	link, err = s.links.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, storageError(err)
	}

	staleCodes := link.Codes()
	previousAlias := link.CustomAlias

	if req.URL != nil {
		if link.Destination, err = validator.NormalizeURL(*req.URL); err != nil {
			return nil, err
		}
	}

	if req.CustomAlias != nil && *req.CustomAlias != previousAlias {
		alias := *req.CustomAlias
		if alias != "" {
			if alias, err = validator.ValidateAlias(alias); err != nil {
				return nil, err
			}

			if alias != link.ShortCode {
				available, err := s.links.IsCodeAvailable(ctx, alias)
				if err != nil {
					return nil, storageError(err)
				}
				if !available {
					return nil, domain.ErrAliasTaken
				}
			}
		}
		link.CustomAlias = alias
	}

	if err = s.links.Update(ctx, link, previousAlias); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrAliasTaken
		}
		return nil, storageError(err)
	}

	s.invalidate(ctx, append(staleCodes, link.Codes()...)...)

	logger.FromContext(ctx).Info("Link updated", slog.String("link_id", link.ID))

	return link, nil
}

// Delete deactivates the link. Its codes are not released for reuse.
func (s *LinkService) Delete(ctx context.Context, ownerID, id string) (err error) {
	ctx, span := tracer.Start(ctx, "LinkService.Delete")
	defer func() { endSpan(span, err) }()

	if ownerID == "" {
		return domain.ErrUnauthorized
	}

	link, err := s.links.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return storageError(err)
	}

	if err = s.links.SoftDelete(ctx, id, ownerID); err != nil {
		return storageError(err)
	}

	s.invalidate(ctx, link.Codes()...)

	logger.FromContext(ctx).Info("Link deleted", slog.String("link_id", id))

	return nil
}

func (s *LinkService) invalidate(ctx context.Context, codes ...string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Invalidate(ctx, codes...); err != nil {
		logger.FromContext(ctx).Warn("Failed to invalidate cached link",
			slog.Any("codes", codes),
			slog.String("error", err.Error()),
		)
	}
}
