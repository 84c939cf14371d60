package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsHandler_Summary(t *testing.T) {
	tests := []struct {
		name  string
		query string
		days  int
	}{
		{"default window", "", 30},
		{"explicit window", "?days=7", 7},
		{"out of range", "?days=1000", 30},
		{"not a number", "?days=week", 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockAnalyticsService)
			handler := NewAnalyticsHandler(mockService)
			router := setupTestRouter()
			router.GET("/api/links/:id/analytics", withOwner("owner-1"), handler.Summary)

			mockService.On("Summary", mock.Anything, "owner-1", "link-1", tt.days).Return(&domain.LinkAnalytics{
				LinkID:       "link-1",
				TotalClicks:  3,
				UniqueClicks: 2,
				TopReferrers: []domain.ReferrerStats{{Referer: "Direct", Count: 3}},
			}, nil).Once()

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/links/link-1/analytics"+tt.query, nil))

			assert.Equal(t, http.StatusOK, w.Code)

			var analytics domain.LinkAnalytics
			require.NoError(t, json.Unmarshal(decode(t, w).Data, &analytics))
			assert.Equal(t, int64(3), analytics.TotalClicks)
			assert.Equal(t, int64(2), analytics.UniqueClicks)
			mockService.AssertExpectations(t)
		})
	}
}

func TestAnalyticsHandler_SummaryNotOwned(t *testing.T) {
	mockService := new(mocks.MockAnalyticsService)
	handler := NewAnalyticsHandler(mockService)
	router := setupTestRouter()
	router.GET("/api/links/:id/analytics", withOwner("owner-2"), handler.Summary)

	mockService.On("Summary", mock.Anything, "owner-2", "link-1", 30).Return(nil, domain.ErrNotFound).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/links/link-1/analytics", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyticsHandler_ClickHistory(t *testing.T) {
	mockService := new(mocks.MockAnalyticsService)
	handler := NewAnalyticsHandler(mockService)
	router := setupTestRouter()
	router.GET("/api/links/:id/clicks", withOwner("owner-1"), handler.ClickHistory)

	mockService.On("ClickHistory", mock.Anything, "owner-1", "link-1", 3, 50).Return(&domain.ClickHistory{
		Clicks:     []domain.ClickEvent{{ID: "c1", LinkID: "link-1", DeviceType: "desktop"}},
		Total:      101,
		Page:       3,
		PageSize:   50,
		TotalPages: 3,
	}, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/links/link-1/clicks?page=3&page_size=50", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var history domain.ClickHistory
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &history))
	require.Len(t, history.Clicks, 1)
	assert.Equal(t, int64(101), history.Total)
	mockService.AssertExpectations(t)
}
