package mocks

import (
	"context"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Create(ctx context.Context, link *domain.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockLinkRepository) IsCodeAvailable(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockLinkRepository) GetActiveByCode(ctx context.Context, code string) (*domain.Link, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*domain.Link, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Link, int64, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Link), args.Get(1).(int64), args.Error(2)
}

func (m *MockLinkRepository) Update(ctx context.Context, link *domain.Link, previousAlias string) error {
	args := m.Called(ctx, link, previousAlias)
	return args.Error(0)
}

func (m *MockLinkRepository) SoftDelete(ctx context.Context, id, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

type MockClickRepository struct {
	mock.Mock
}

func (m *MockClickRepository) InsertClick(ctx context.Context, click *domain.ClickEvent) error {
	args := m.Called(ctx, click)
	return args.Error(0)
}

func (m *MockClickRepository) HasPriorClick(ctx context.Context, click *domain.ClickEvent) (bool, error) {
	args := m.Called(ctx, click)
	return args.Bool(0), args.Error(1)
}

func (m *MockClickRepository) IncrementCounters(ctx context.Context, linkID string, unique bool, clickedAt time.Time) error {
	args := m.Called(ctx, linkID, unique, clickedAt)
	return args.Error(0)
}

func (m *MockClickRepository) GetAnalytics(ctx context.Context, linkID string, days int) (*domain.LinkAnalytics, error) {
	args := m.Called(ctx, linkID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LinkAnalytics), args.Error(1)
}

func (m *MockClickRepository) GetClickHistory(ctx context.Context, linkID string, page, pageSize int) (*domain.ClickHistory, error) {
	args := m.Called(ctx, linkID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClickHistory), args.Error(1)
}

type MockLinkCache struct {
	mock.Mock
}

func (m *MockLinkCache) GetLink(ctx context.Context, code string) (*domain.Link, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkCache) SetLink(ctx context.Context, code string, link *domain.Link, ttl time.Duration) error {
	args := m.Called(ctx, code, link, ttl)
	return args.Error(0)
}

func (m *MockLinkCache) Invalidate(ctx context.Context, codes ...string) error {
	args := m.Called(ctx, codes)
	return args.Error(0)
}

type MockMetadataFetcher struct {
	mock.Mock
}

func (m *MockMetadataFetcher) Fetch(ctx context.Context, url string) *domain.PageMetadata {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.PageMetadata)
}
