// Package memory is an in-process link and click store with the same
// semantics as the Postgres repositories. It backs local runs without a
// database and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/google/uuid"
)

type Store struct {
	mu     sync.RWMutex
	links  map[string]*domain.Link
	codes  map[string]string
	clicks map[string][]domain.ClickEvent
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{
		links:  make(map[string]*domain.Link),
		codes:  make(map[string]string),
		clicks: make(map[string][]domain.ClickEvent),
		now:    time.Now,
	}
}

func (s *Store) Create(ctx context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := link.Codes()
	for _, code := range codes {
		if _, taken := s.codes[code]; taken {
			return domain.ErrConflict
		}
	}

	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if _, exists := s.links[link.ID]; exists {
		return domain.ErrConflict
	}

	link.CreatedAt = s.now()
	link.IsActive = true

	stored := *link
	s.links[link.ID] = &stored
	for _, code := range codes {
		s.codes[code] = link.ID
	}

	return nil
}

func (s *Store) IsCodeAvailable(ctx context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, taken := s.codes[code]
	return !taken, nil
}

func (s *Store) GetActiveByCode(ctx context.Context, code string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[s.codes[code]]
	if !ok || !link.IsActive {
		return nil, domain.ErrNotFound
	}

	found := *link
	return &found, nil
}

func (s *Store) GetByIDForOwner(ctx context.Context, id, ownerID string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, err := s.ownedLocked(id, ownerID)
	if err != nil {
		return nil, err
	}

	found := *link
	return &found, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Link, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := []domain.Link{}
	for _, link := range s.links {
		if link.IsActive && link.OwnerID != "" && link.OwnerID == ownerID {
			owned = append(owned, *link)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID < owned[j].ID
	})

	total := int64(len(owned))
	if offset >= len(owned) {
		return []domain.Link{}, total, nil
	}

	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}

	return owned[offset:end], total, nil
}

func (s *Store) Update(ctx context.Context, link *domain.Link, previousAlias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.ownedLocked(link.ID, link.OwnerID)
	if err != nil {
		return err
	}

	if previousAlias != link.CustomAlias && link.CustomAlias != "" && link.CustomAlias != stored.ShortCode {
		if _, taken := s.codes[link.CustomAlias]; taken {
			return domain.ErrConflict
		}
	}

	if previousAlias != link.CustomAlias {
		if previousAlias != "" && previousAlias != stored.ShortCode && s.codes[previousAlias] == stored.ID {
			delete(s.codes, previousAlias)
		}
		if link.CustomAlias != "" && link.CustomAlias != stored.ShortCode {
			s.codes[link.CustomAlias] = stored.ID
		}
	}

	stored.Destination = link.Destination
	stored.CustomAlias = link.CustomAlias

	return nil
}

func (s *Store) SoftDelete(ctx context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.ownedLocked(id, ownerID)
	if err != nil {
		return err
	}

	link.IsActive = false
	return nil
}

func (s *Store) ownedLocked(id, ownerID string) (*domain.Link, error) {
	link, ok := s.links[id]
	if !ok || !link.IsActive || link.OwnerID == "" || link.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return link, nil
}

func (s *Store) InsertClick(ctx context.Context, click *domain.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[click.LinkID]; !ok {
		return domain.ErrNotFound
	}

	s.clicks[click.LinkID] = append(s.clicks[click.LinkID], *click)
	return nil
}

func (s *Store) HasPriorClick(ctx context.Context, click *domain.ClickEvent) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, prior := range s.clicks[click.LinkID] {
		if prior.IPAddress == click.IPAddress && clickBefore(prior, *click) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) IncrementCounters(ctx context.Context, linkID string, unique bool, clickedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkID]
	if !ok {
		return domain.ErrNotFound
	}

	link.ClickCount++
	if unique {
		link.UniqueClicks++
	}
	if link.LastClickedAt == nil || clickedAt.After(*link.LastClickedAt) {
		at := clickedAt
		link.LastClickedAt = &at
	}

	return nil
}

func (s *Store) GetAnalytics(ctx context.Context, linkID string, days int) (*domain.LinkAnalytics, error) {
	s.mu.RLock()
	clicks := append([]domain.ClickEvent(nil), s.clicks[linkID]...)
	s.mu.RUnlock()

	analytics := &domain.LinkAnalytics{LinkID: linkID}

	ips := make(map[string]struct{})
	byDate := make(map[string]int64)
	referrers := make(map[string]int64)
	browsers := make(map[string]int64)
	since := s.now().AddDate(0, 0, -days)

	for _, c := range clicks {
		if c.IPAddress != "" {
			ips[c.IPAddress] = struct{}{}
		}
		if !c.ClickedAt.Before(since) {
			byDate[c.ClickedAt.UTC().Format("2006-01-02")]++
		}

		referer := c.Referer
		if referer == "" {
			referer = "Direct"
		}
		referrers[referer]++

		browser := c.Browser
		if browser == "" {
			browser = "unknown"
		}
		browsers[browser]++

		analytics.DeviceStats.Add(c.DeviceType, 1)
	}

	analytics.DistinctIPs = int64(len(ips))

	analytics.ClicksByDate = []domain.ClicksByDate{}
	for date, count := range byDate {
		analytics.ClicksByDate = append(analytics.ClicksByDate, domain.ClicksByDate{Date: date, Count: count})
	}
	sort.Slice(analytics.ClicksByDate, func(i, j int) bool {
		return analytics.ClicksByDate[i].Date > analytics.ClicksByDate[j].Date
	})

	analytics.TopReferrers = []domain.ReferrerStats{}
	for referer, count := range referrers {
		analytics.TopReferrers = append(analytics.TopReferrers, domain.ReferrerStats{Referer: referer, Count: count})
	}
	sort.Slice(analytics.TopReferrers, func(i, j int) bool {
		a, b := analytics.TopReferrers[i], analytics.TopReferrers[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Referer < b.Referer
	})
	if len(analytics.TopReferrers) > 5 {
		analytics.TopReferrers = analytics.TopReferrers[:5]
	}

	analytics.Browsers = []domain.BrowserStats{}
	for browser, count := range browsers {
		analytics.Browsers = append(analytics.Browsers, domain.BrowserStats{Browser: browser, Count: count})
	}
	sort.Slice(analytics.Browsers, func(i, j int) bool {
		a, b := analytics.Browsers[i], analytics.Browsers[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Browser < b.Browser
	})

	analytics.RecentClicks = page(newestFirst(clicks), 10, 0)

	return analytics, nil
}

func (s *Store) GetClickHistory(ctx context.Context, linkID string, pageNum, pageSize int) (*domain.ClickHistory, error) {
	s.mu.RLock()
	clicks := append([]domain.ClickEvent(nil), s.clicks[linkID]...)
	s.mu.RUnlock()

	total := int64(len(clicks))

	return &domain.ClickHistory{
		Clicks:     page(newestFirst(clicks), pageSize, (pageNum-1)*pageSize),
		Total:      total,
		Page:       pageNum,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// clickBefore orders clicks by (clicked_at, id), matching the row comparison
// the Postgres store uses.
func clickBefore(a, b domain.ClickEvent) bool {
	if !a.ClickedAt.Equal(b.ClickedAt) {
		return a.ClickedAt.Before(b.ClickedAt)
	}
	return a.ID < b.ID
}

func newestFirst(clicks []domain.ClickEvent) []domain.ClickEvent {
	sort.Slice(clicks, func(i, j int) bool {
		return clickBefore(clicks[j], clicks[i])
	})
	return clicks
}

func page(clicks []domain.ClickEvent, limit, offset int) []domain.ClickEvent {
	if offset >= len(clicks) {
		return []domain.ClickEvent{}
	}
	end := offset + limit
	if end > len(clicks) {
		end = len(clicks)
	}
	return clicks[offset:end]
}
