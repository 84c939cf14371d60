package mocks

import (
	"context"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockLinkService struct {
	mock.Mock
}

func (m *MockLinkService) Create(ctx context.Context, ownerID string, req *domain.CreateLinkRequest) (*domain.Link, error) {
	args := m.Called(ctx, ownerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkService) List(ctx context.Context, ownerID string, page, pageSize int) (*domain.LinkPage, error) {
	args := m.Called(ctx, ownerID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LinkPage), args.Error(1)
}

func (m *MockLinkService) Get(ctx context.Context, ownerID, id string) (*domain.Link, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkService) Update(ctx context.Context, ownerID, id string, req *domain.UpdateLinkRequest) (*domain.Link, error) {
	args := m.Called(ctx, ownerID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkService) Delete(ctx context.Context, ownerID, id string) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, code string) (*domain.Link, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Summary(ctx context.Context, ownerID, linkID string, days int) (*domain.LinkAnalytics, error) {
	args := m.Called(ctx, ownerID, linkID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LinkAnalytics), args.Error(1)
}

func (m *MockAnalyticsService) ClickHistory(ctx context.Context, ownerID, linkID string, page, pageSize int) (*domain.ClickHistory, error) {
	args := m.Called(ctx, ownerID, linkID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClickHistory), args.Error(1)
}

// MockDispatcher records dispatched clicks on a channel so tests can wait for
// them without sleeping.
type MockDispatcher struct {
	Clicks chan *domain.ClickMessage
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{Clicks: make(chan *domain.ClickMessage, 16)}
}

func (m *MockDispatcher) Dispatch(click *domain.ClickMessage) {
	m.Clicks <- click
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, linkID string, attrs domain.ClickAttributes) {
	m.Called(ctx, linkID, attrs)
}
