//go:build integration

package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/internal/repository/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("testdb"),
		testpostgres.WithUsername("testuser"),
		testpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, postgres.Migrate(connStr, slog.New(slog.NewTextHandler(io.Discard, nil))))

	dbPool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(dbPool.Close)

	return dbPool
}

func newLink(code, alias, owner string) *domain.Link {
	return &domain.Link{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		Destination: "https://example.com/" + code,
		ShortCode:   code,
		CustomAlias: alias,
	}
}

func newClick(linkID, ip string, at time.Time) *domain.ClickEvent {
	id, _ := uuid.NewV7()
	return &domain.ClickEvent{
		ID:         id.String(),
		LinkID:     linkID,
		IPAddress:  ip,
		DeviceType: "desktop",
		Browser:    "Chrome",
		ClickedAt:  at,
	}
}

func TestLinkRepository(t *testing.T) {
	db := setupTestDatabase(t)
	repo := postgres.NewLinkRepository(db)
	ctx := context.Background()

	t.Run("create and resolve by short code and alias", func(t *testing.T) {
		link := newLink("abc12345", "", "owner-1")
		require.NoError(t, repo.Create(ctx, link))
		assert.NotZero(t, link.CreatedAt)
		assert.True(t, link.IsActive)

		got, err := repo.GetActiveByCode(ctx, "abc12345")
		require.NoError(t, err)
		assert.Equal(t, link.ID, got.ID)
		assert.Equal(t, "owner-1", got.OwnerID)
		assert.Zero(t, got.ClickCount)

		aliased := newLink("my-alias", "my-alias", "")
		require.NoError(t, repo.Create(ctx, aliased))

		got, err = repo.GetActiveByCode(ctx, "my-alias")
		require.NoError(t, err)
		assert.Equal(t, "my-alias", got.CustomAlias)
		assert.Empty(t, got.OwnerID)
	})

	t.Run("codes share one namespace", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newLink("shared01", "", "")))

		err := repo.Create(ctx, newLink("other001", "shared01", ""))
		assert.ErrorIs(t, err, domain.ErrConflict)

		err = repo.Create(ctx, newLink("shared01", "", ""))
		assert.ErrorIs(t, err, domain.ErrConflict)

		available, err := repo.IsCodeAvailable(ctx, "shared01")
		require.NoError(t, err)
		assert.False(t, available)

		available, err = repo.IsCodeAvailable(ctx, "free0001")
		require.NoError(t, err)
		assert.True(t, available)

		_, err = repo.GetActiveByCode(ctx, "other001")
		assert.ErrorIs(t, err, domain.ErrNotFound, "failed create must not leave a partial link")
	})

	t.Run("update swaps alias codes", func(t *testing.T) {
		link := newLink("upd00001", "first", "owner-2")
		require.NoError(t, repo.Create(ctx, link))

		link.CustomAlias = "second"
		link.Destination = "https://example.org/next"
		require.NoError(t, repo.Update(ctx, link, "first"))

		_, err := repo.GetActiveByCode(ctx, "first")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		got, err := repo.GetActiveByCode(ctx, "second")
		require.NoError(t, err)
		assert.Equal(t, "https://example.org/next", got.Destination)

		available, err := repo.IsCodeAvailable(ctx, "first")
		require.NoError(t, err)
		assert.True(t, available)

		link.CustomAlias = "shared01"
		assert.ErrorIs(t, repo.Update(ctx, link, "second"), domain.ErrConflict)
	})

	t.Run("owner scoping and soft delete", func(t *testing.T) {
		link := newLink("own00001", "", "owner-3")
		require.NoError(t, repo.Create(ctx, link))

		_, err := repo.GetByIDForOwner(ctx, link.ID, "someone-else")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = repo.GetByIDForOwner(ctx, "not-a-uuid", "owner-3")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		assert.ErrorIs(t, repo.SoftDelete(ctx, link.ID, "someone-else"), domain.ErrNotFound)
		require.NoError(t, repo.SoftDelete(ctx, link.ID, "owner-3"))

		_, err = repo.GetActiveByCode(ctx, "own00001")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		available, err := repo.IsCodeAvailable(ctx, "own00001")
		require.NoError(t, err)
		assert.False(t, available, "deleted links keep their codes")
	})

	t.Run("list by owner newest first", func(t *testing.T) {
		for _, code := range []string{"lst00001", "lst00002", "lst00003"} {
			require.NoError(t, repo.Create(ctx, newLink(code, "", "owner-4")))
		}

		links, total, err := repo.ListByOwner(ctx, "owner-4", 2, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, links, 2)
		assert.False(t, links[0].CreatedAt.Before(links[1].CreatedAt))
	})
}

func TestClickRepository(t *testing.T) {
	db := setupTestDatabase(t)
	links := postgres.NewLinkRepository(db)
	clicks := postgres.NewClickRepository(db)
	ctx := context.Background()

	t.Run("prior click ordering", func(t *testing.T) {
		link := newLink("clk00001", "", "owner")
		require.NoError(t, links.Create(ctx, link))

		base := time.Now().UTC().Truncate(time.Microsecond)
		first := newClick(link.ID, "10.0.0.1", base)
		second := newClick(link.ID, "10.0.0.1", base.Add(time.Second))
		other := newClick(link.ID, "10.0.0.2", base.Add(2*time.Second))
		for _, c := range []*domain.ClickEvent{first, second, other} {
			require.NoError(t, clicks.InsertClick(ctx, c))
		}

		prior, err := clicks.HasPriorClick(ctx, first)
		require.NoError(t, err)
		assert.False(t, prior, "a click never counts itself")

		prior, err = clicks.HasPriorClick(ctx, second)
		require.NoError(t, err)
		assert.True(t, prior)

		prior, err = clicks.HasPriorClick(ctx, other)
		require.NoError(t, err)
		assert.False(t, prior)
	})

	t.Run("missing ip counts as one visitor", func(t *testing.T) {
		link := newLink("clk00002", "", "owner")
		require.NoError(t, links.Create(ctx, link))

		base := time.Now().UTC()
		a := newClick(link.ID, "", base)
		b := newClick(link.ID, "", base.Add(time.Second))
		require.NoError(t, clicks.InsertClick(ctx, a))
		require.NoError(t, clicks.InsertClick(ctx, b))

		prior, err := clicks.HasPriorClick(ctx, b)
		require.NoError(t, err)
		assert.True(t, prior)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		link := newLink("clk00003", "", "owner")
		require.NoError(t, links.Create(ctx, link))

		const k = 50
		var wg sync.WaitGroup
		for i := 0; i < k; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, clicks.IncrementCounters(ctx, link.ID, i%2 == 0, time.Now()))
			}(i)
		}
		wg.Wait()

		got, err := links.GetActiveByCode(ctx, "clk00003")
		require.NoError(t, err)
		assert.Equal(t, int64(k), got.ClickCount)
		assert.Equal(t, int64(k/2), got.UniqueClicks)
		assert.NotNil(t, got.LastClickedAt)
	})

	t.Run("increment on missing link", func(t *testing.T) {
		err := clicks.IncrementCounters(ctx, uuid.NewString(), true, time.Now())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("analytics and history", func(t *testing.T) {
		link := newLink("clk00004", "", "owner")
		require.NoError(t, links.Create(ctx, link))

		base := time.Now().UTC()
		for i, ip := range []string{"1.1.1.1", "1.1.1.1", "2.2.2.2"} {
			c := newClick(link.ID, ip, base.Add(time.Duration(i)*time.Second))
			if i == 0 {
				c.Referer = "https://news.example"
				c.DeviceType = "mobile"
			}
			require.NoError(t, clicks.InsertClick(ctx, c))
		}

		analytics, err := clicks.GetAnalytics(ctx, link.ID, 30)
		require.NoError(t, err)
		assert.Equal(t, int64(2), analytics.DistinctIPs)
		assert.Equal(t, int64(1), analytics.DeviceStats.Mobile)
		assert.Equal(t, int64(2), analytics.DeviceStats.Desktop)
		require.NotEmpty(t, analytics.TopReferrers)
		assert.Equal(t, "Direct", analytics.TopReferrers[0].Referer)
		assert.Equal(t, int64(2), analytics.TopReferrers[0].Count)
		require.Len(t, analytics.Browsers, 1)
		assert.Equal(t, int64(3), analytics.Browsers[0].Count)
		assert.Len(t, analytics.RecentClicks, 3)

		history, err := clicks.GetClickHistory(ctx, link.ID, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), history.Total)
		assert.Equal(t, 2, history.TotalPages)
		assert.Len(t, history.Clicks, 1)
		assert.Equal(t, "https://news.example", history.Clicks[0].Referer)
	})
}
