package service

import (
	"context"

	"github.com/gamassss/shortlink/internal/domain"
)

const (
	defaultAnalyticsDays = 30
	maxAnalyticsDays     = 365
)

type AnalyticsService struct {
	links  LinkRepository
	clicks ClickRepository
}

func NewAnalyticsService(links LinkRepository, clicks ClickRepository) *AnalyticsService {
	return &AnalyticsService{
		links:  links,
		clicks: clicks,
	}
}

// Summary reports click statistics for one of the owner's links. Totals come
// from the link's counters; breakdowns come from the click log.
func (s *AnalyticsService) Summary(ctx context.Context, ownerID, linkID string, days int) (analytics *domain.LinkAnalytics, err error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.Summary")
	defer func() { endSpan(span, err) }()

	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	if days < 1 {
		days = defaultAnalyticsDays
	}
	if days > maxAnalyticsDays {
		days = maxAnalyticsDays
	}

	link, err := s.links.GetByIDForOwner(ctx, linkID, ownerID)
	if err != nil {
		return nil, storageError(err)
	}

	analytics, err = s.clicks.GetAnalytics(ctx, link.ID, days)
	if err != nil {
		return nil, storageError(err)
	}

	analytics.LinkID = link.ID
	analytics.ShortCode = link.ShortCode
	analytics.Destination = link.Destination
	analytics.TotalClicks = link.ClickCount
	analytics.UniqueClicks = link.UniqueClicks
	analytics.LastClickedAt = link.LastClickedAt
	analytics.CreatedAt = link.CreatedAt

	return analytics, nil
}

func (s *AnalyticsService) ClickHistory(ctx context.Context, ownerID, linkID string, page, pageSize int) (*domain.ClickHistory, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	page, pageSize = normalizePage(page, pageSize)

	link, err := s.links.GetByIDForOwner(ctx, linkID, ownerID)
	if err != nil {
		return nil, storageError(err)
	}

	history, err := s.clicks.GetClickHistory(ctx, link.ID, page, pageSize)
	if err != nil {
		return nil, storageError(err)
	}
	return history, nil
}
