package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndResolve(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	link := &domain.Link{ShortCode: "abc12345", CustomAlias: "promo", Destination: "https://example.com", OwnerID: "owner"}
	require.NoError(t, store.Create(ctx, link))
	assert.NotEmpty(t, link.ID)
	assert.True(t, link.IsActive)

	for _, code := range []string{"abc12345", "promo"} {
		got, err := store.GetActiveByCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, link.ID, got.ID)
	}

	_, err := store.GetActiveByCode(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_UnifiedNamespace(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &domain.Link{ShortCode: "taken001", Destination: "https://a.example"}))

	err := store.Create(ctx, &domain.Link{ShortCode: "fresh001", CustomAlias: "taken001", Destination: "https://b.example"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	available, err := store.IsCodeAvailable(ctx, "fresh001")
	require.NoError(t, err)
	assert.True(t, available, "a rejected create claims nothing")
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &domain.Link{ShortCode: "copy0001", Destination: "https://example.com"}))

	got, err := store.GetActiveByCode(ctx, "copy0001")
	require.NoError(t, err)
	got.Destination = "https://mutated.example"

	again, err := store.GetActiveByCode(ctx, "copy0001")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", again.Destination)
}

func TestStore_UpdateAndDelete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	link := &domain.Link{ShortCode: "upd00001", CustomAlias: "old", Destination: "https://example.com", OwnerID: "owner"}
	require.NoError(t, store.Create(ctx, link))
	require.NoError(t, store.Create(ctx, &domain.Link{ShortCode: "busy0001", Destination: "https://example.com"}))

	link.CustomAlias = "busy0001"
	assert.ErrorIs(t, store.Update(ctx, link, "old"), domain.ErrConflict)

	link.CustomAlias = "new"
	require.NoError(t, store.Update(ctx, link, "old"))

	available, _ := store.IsCodeAvailable(ctx, "old")
	assert.True(t, available)
	_, err := store.GetActiveByCode(ctx, "new")
	assert.NoError(t, err)

	stranger := *link
	stranger.OwnerID = "stranger"
	assert.ErrorIs(t, store.Update(ctx, &stranger, "new"), domain.ErrNotFound)

	require.NoError(t, store.SoftDelete(ctx, link.ID, "owner"))
	_, err = store.GetActiveByCode(ctx, "upd00001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.SoftDelete(ctx, link.ID, "owner"), domain.ErrNotFound)
}

func TestStore_ListByOwner(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		store.now = func() time.Time { return at }
		require.NoError(t, store.Create(ctx, &domain.Link{
			ShortCode:   fmt.Sprintf("list%04d", i),
			Destination: "https://example.com",
			OwnerID:     "owner",
		}))
	}
	require.NoError(t, store.Create(ctx, &domain.Link{ShortCode: "anon0001", Destination: "https://example.com"}))

	links, total, err := store.ListByOwner(ctx, "owner", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, links, 2)
	assert.Equal(t, "list0004", links[0].ShortCode)
	assert.Equal(t, "list0003", links[1].ShortCode)

	links, _, err = store.ListByOwner(ctx, "owner", 2, 4)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	links, _, err = store.ListByOwner(ctx, "owner", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, links)

	links, total, err = store.ListByOwner(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, links)
}

func TestStore_ClickOrdering(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	link := &domain.Link{ShortCode: "clk00001", Destination: "https://example.com"}
	require.NoError(t, store.Create(ctx, link))

	at := time.Now()
	first := &domain.ClickEvent{ID: "a", LinkID: link.ID, IPAddress: "1.1.1.1", ClickedAt: at}
	second := &domain.ClickEvent{ID: "b", LinkID: link.ID, IPAddress: "1.1.1.1", ClickedAt: at}
	require.NoError(t, store.InsertClick(ctx, first))
	require.NoError(t, store.InsertClick(ctx, second))

	prior, err := store.HasPriorClick(ctx, first)
	require.NoError(t, err)
	assert.False(t, prior)

	prior, err = store.HasPriorClick(ctx, second)
	require.NoError(t, err)
	assert.True(t, prior, "same timestamp falls back to id order")

	assert.ErrorIs(t, store.InsertClick(ctx, &domain.ClickEvent{ID: "c", LinkID: "nope"}), domain.ErrNotFound)
}

func TestStore_ConcurrentIncrements(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	link := &domain.Link{ShortCode: "cnt00001", Destination: "https://example.com"}
	require.NoError(t, store.Create(ctx, link))

	const k = 200
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.IncrementCounters(ctx, link.ID, false, time.Now()))
		}()
	}
	wg.Wait()

	got, err := store.GetActiveByCode(ctx, "cnt00001")
	require.NoError(t, err)
	assert.Equal(t, int64(k), got.ClickCount)
	assert.Zero(t, got.UniqueClicks)
}

func TestStore_Analytics(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	link := &domain.Link{ShortCode: "ana00001", Destination: "https://example.com"}
	require.NoError(t, store.Create(ctx, link))

	now := time.Now()
	clicks := []domain.ClickEvent{
		{ID: "1", IPAddress: "1.1.1.1", Referer: "https://t.example", DeviceType: "mobile", Browser: "Safari", ClickedAt: now.Add(-3 * time.Minute)},
		{ID: "2", IPAddress: "1.1.1.1", DeviceType: "desktop", Browser: "Chrome", ClickedAt: now.Add(-2 * time.Minute)},
		{ID: "3", IPAddress: "", DeviceType: "", Browser: "", ClickedAt: now.Add(-time.Minute)},
		{ID: "4", IPAddress: "2.2.2.2", DeviceType: "desktop", Browser: "Chrome", ClickedAt: now.AddDate(0, 0, -40)},
	}
	for i := range clicks {
		clicks[i].LinkID = link.ID
		require.NoError(t, store.InsertClick(ctx, &clicks[i]))
	}

	analytics, err := store.GetAnalytics(ctx, link.ID, 30)
	require.NoError(t, err)

	assert.Equal(t, int64(2), analytics.DistinctIPs)
	var inWindow int64
	for _, d := range analytics.ClicksByDate {
		inWindow += d.Count
	}
	assert.Equal(t, int64(3), inWindow)
	assert.Equal(t, domain.ReferrerStats{Referer: "Direct", Count: 3}, analytics.TopReferrers[0])
	assert.Equal(t, domain.DeviceStats{Mobile: 1, Desktop: 2, Unknown: 1}, analytics.DeviceStats)
	assert.Equal(t, domain.BrowserStats{Browser: "Chrome", Count: 2}, analytics.Browsers[0])
	require.Len(t, analytics.RecentClicks, 4)
	assert.Equal(t, "3", analytics.RecentClicks[0].ID)

	history, err := store.GetClickHistory(ctx, link.ID, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), history.Total)
	assert.Equal(t, 2, history.TotalPages)
	require.Len(t, history.Clicks, 1)
	assert.Equal(t, "4", history.Clicks[0].ID)
}
