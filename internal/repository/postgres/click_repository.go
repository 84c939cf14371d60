package postgres

import (
	"context"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const clickColumns = `
	id::text, link_id::text, COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(referer, ''),
	COALESCE(device_type, ''), COALESCE(browser, ''), clicked_at`

type ClickRepository struct {
	db *pgxpool.Pool
}

func NewClickRepository(db *pgxpool.Pool) *ClickRepository {
	return &ClickRepository{db: db}
}

func (r *ClickRepository) InsertClick(ctx context.Context, click *domain.ClickEvent) error {
	query := `
		INSERT INTO clicks (id, link_id, ip_address, user_agent, referer, device_type, browser, clicked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		click.ID,
		click.LinkID,
		nullIfEmpty(click.IPAddress),
		nullIfEmpty(click.UserAgent),
		nullIfEmpty(click.Referer),
		nullIfEmpty(click.DeviceType),
		nullIfEmpty(click.Browser),
		click.ClickedAt,
	)
	return mapError(err)
}

// HasPriorClick reports whether the link already has a click from the same
// IP ordered strictly before click by (clicked_at, id). Missing IPs compare
// equal to each other.
func (r *ClickRepository) HasPriorClick(ctx context.Context, click *domain.ClickEvent) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM clicks
			WHERE link_id = $1
				AND ip_address IS NOT DISTINCT FROM $2
				AND (clicked_at, id) < ($3, $4::uuid)
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, click.LinkID, nullIfEmpty(click.IPAddress), click.ClickedAt, click.ID).Scan(&exists)
	if err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

// IncrementCounters bumps the link's counters in a single statement so
// concurrent clicks never lose updates.
func (r *ClickRepository) IncrementCounters(ctx context.Context, linkID string, unique bool, clickedAt time.Time) error {
	var uniqueDelta int64
	if unique {
		uniqueDelta = 1
	}

	query := `
		UPDATE links
		SET click_count = click_count + 1,
			unique_clicks = unique_clicks + $2,
			last_clicked_at = GREATEST(last_clicked_at, $3)
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, linkID, uniqueDelta, clickedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetAnalytics fills the click-derived parts of a link summary. Link-row
// totals are the caller's to copy.
func (r *ClickRepository) GetAnalytics(ctx context.Context, linkID string, days int) (*domain.LinkAnalytics, error) {
	analytics := &domain.LinkAnalytics{LinkID: linkID}

	err := r.db.QueryRow(ctx, `SELECT COUNT(DISTINCT ip_address) FROM clicks WHERE link_id = $1`, linkID).
		Scan(&analytics.DistinctIPs)
	if err != nil {
		return nil, mapError(err)
	}

	if analytics.ClicksByDate, err = r.getClicksByDate(ctx, linkID, days); err != nil {
		return nil, mapError(err)
	}
	if analytics.TopReferrers, err = r.getTopReferrers(ctx, linkID, 5); err != nil {
		return nil, mapError(err)
	}
	if analytics.DeviceStats, err = r.getDeviceStats(ctx, linkID); err != nil {
		return nil, mapError(err)
	}
	if analytics.Browsers, err = r.getBrowsers(ctx, linkID); err != nil {
		return nil, mapError(err)
	}
	if analytics.RecentClicks, err = r.listClicks(ctx, linkID, 10, 0); err != nil {
		return nil, mapError(err)
	}

	return analytics, nil
}

func (r *ClickRepository) getClicksByDate(ctx context.Context, linkID string, days int) ([]domain.ClicksByDate, error) {
	query := `
		SELECT
			DATE(clicked_at) AS date,
			COUNT(*) AS count
		FROM clicks
		WHERE link_id = $1
			AND clicked_at >= NOW() - INTERVAL '1 day' * $2
		GROUP BY DATE(clicked_at)
		ORDER BY date DESC
	`

	rows, err := r.db.Query(ctx, query, linkID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.ClicksByDate{}
	for rows.Next() {
		var cbd domain.ClicksByDate
		var date time.Time
		if err := rows.Scan(&date, &cbd.Count); err != nil {
			return nil, err
		}
		cbd.Date = date.Format("2006-01-02")
		results = append(results, cbd)
	}

	return results, rows.Err()
}

func (r *ClickRepository) getTopReferrers(ctx context.Context, linkID string, limit int) ([]domain.ReferrerStats, error) {
	query := `
		SELECT
			COALESCE(NULLIF(referer, ''), 'Direct') AS source,
			COUNT(*) AS count
		FROM clicks
		WHERE link_id = $1
		GROUP BY source
		ORDER BY count DESC, source
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, linkID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.ReferrerStats{}
	for rows.Next() {
		var rs domain.ReferrerStats
		if err := rows.Scan(&rs.Referer, &rs.Count); err != nil {
			return nil, err
		}
		results = append(results, rs)
	}

	return results, rows.Err()
}

func (r *ClickRepository) getDeviceStats(ctx context.Context, linkID string) (domain.DeviceStats, error) {
	query := `
		SELECT COALESCE(device_type, 'unknown'), COUNT(*)
		FROM clicks
		WHERE link_id = $1
		GROUP BY 1
	`

	var stats domain.DeviceStats
	rows, err := r.db.Query(ctx, query, linkID)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var deviceType string
		var count int64
		if err := rows.Scan(&deviceType, &count); err != nil {
			return stats, err
		}
		stats.Add(deviceType, count)
	}

	return stats, rows.Err()
}

func (r *ClickRepository) getBrowsers(ctx context.Context, linkID string) ([]domain.BrowserStats, error) {
	query := `
		SELECT COALESCE(browser, 'unknown') AS name, COUNT(*) AS count
		FROM clicks
		WHERE link_id = $1
		GROUP BY name
		ORDER BY count DESC, name
	`

	rows, err := r.db.Query(ctx, query, linkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.BrowserStats{}
	for rows.Next() {
		var bs domain.BrowserStats
		if err := rows.Scan(&bs.Browser, &bs.Count); err != nil {
			return nil, err
		}
		results = append(results, bs)
	}

	return results, rows.Err()
}

func (r *ClickRepository) GetClickHistory(ctx context.Context, linkID string, page, pageSize int) (*domain.ClickHistory, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM clicks WHERE link_id = $1`, linkID).Scan(&total)
	if err != nil {
		return nil, mapError(err)
	}

	clicks, err := r.listClicks(ctx, linkID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, mapError(err)
	}

	return &domain.ClickHistory{
		Clicks:     clicks,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

func (r *ClickRepository) listClicks(ctx context.Context, linkID string, limit, offset int) ([]domain.ClickEvent, error) {
	query := `
		SELECT ` + clickColumns + `
		FROM clicks
		WHERE link_id = $1
		ORDER BY clicked_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, linkID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clicks := []domain.ClickEvent{}
	for rows.Next() {
		click, err := scanClick(rows)
		if err != nil {
			return nil, err
		}
		clicks = append(clicks, *click)
	}

	return clicks, rows.Err()
}

func scanClick(row pgx.Row) (*domain.ClickEvent, error) {
	var click domain.ClickEvent
	err := row.Scan(
		&click.ID,
		&click.LinkID,
		&click.IPAddress,
		&click.UserAgent,
		&click.Referer,
		&click.DeviceType,
		&click.Browser,
		&click.ClickedAt,
	)
	if err != nil {
		return nil, err
	}
	return &click, nil
}
