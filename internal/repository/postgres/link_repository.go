package postgres

import (
	"context"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const linkColumns = `
	l.id::text, COALESCE(l.owner_id, ''), l.destination, l.short_code, COALESCE(l.custom_alias, ''),
	l.created_at, l.expires_at, l.is_active, l.click_count, l.unique_clicks, l.last_clicked_at,
	l.title, l.description, l.favicon_url`

type LinkRepository struct {
	db *pgxpool.Pool
}

func NewLinkRepository(db *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{db: db}
}

// Create inserts the link and claims every code it answers to in one
// transaction. A code already held by another link yields domain.ErrConflict.
func (r *LinkRepository) Create(ctx context.Context, link *domain.Link) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO links (id, owner_id, destination, short_code, custom_alias, expires_at, title, description, favicon_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, is_active
	`

	err = tx.QueryRow(ctx, query,
		link.ID,
		nullIfEmpty(link.OwnerID),
		link.Destination,
		link.ShortCode,
		nullIfEmpty(link.CustomAlias),
		link.ExpiresAt,
		link.Title,
		link.Description,
		link.FaviconURL,
	).Scan(&link.CreatedAt, &link.IsActive)
	if err != nil {
		return mapError(err)
	}

	batch := &pgx.Batch{}
	for _, code := range link.Codes() {
		batch.Queue(`INSERT INTO link_codes (code, link_id) VALUES ($1, $2)`, code, link.ID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapError(err)
	}

	return mapError(tx.Commit(ctx))
}

// IsCodeAvailable reports whether no link, active or not, answers to code.
func (r *LinkRepository) IsCodeAvailable(ctx context.Context, code string) (bool, error) {
	var available bool
	err := r.db.QueryRow(ctx, `SELECT NOT EXISTS (SELECT 1 FROM link_codes WHERE code = $1)`, code).Scan(&available)
	if err != nil {
		return false, mapError(err)
	}
	return available, nil
}

func (r *LinkRepository) GetActiveByCode(ctx context.Context, code string) (*domain.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM link_codes c
		JOIN links l ON l.id = c.link_id
		WHERE c.code = $1 AND l.is_active
	`

	link, err := scanLink(r.db.QueryRow(ctx, query, code))
	if err != nil {
		return nil, mapError(err)
	}
	return link, nil
}

func (r *LinkRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*domain.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links l
		WHERE l.id = $1 AND l.owner_id = $2 AND l.is_active
	`

	link, err := scanLink(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		return nil, mapError(err)
	}
	return link, nil
}

// ListByOwner returns one page of the owner's active links, newest first,
// along with the owner's total active link count.
func (r *LinkRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Link, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM links WHERE owner_id = $1 AND is_active`
	if err := r.db.QueryRow(ctx, countQuery, ownerID).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `
		SELECT ` + linkColumns + `
		FROM links l
		WHERE l.owner_id = $1 AND l.is_active
		ORDER BY l.created_at DESC, l.id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	links := []domain.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, 0, mapError(err)
		}
		links = append(links, *link)
	}

	return links, total, mapError(rows.Err())
}

// Update persists destination and alias edits. previousAlias is the alias
// the stored row held before the edit; its code is released and the new one
// claimed in the same transaction.
func (r *LinkRepository) Update(ctx context.Context, link *domain.Link, previousAlias string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE links SET destination = $3, custom_alias = $4
		WHERE id = $1 AND owner_id = $2 AND is_active
	`

	tag, err := tx.Exec(ctx, query, link.ID, link.OwnerID, link.Destination, nullIfEmpty(link.CustomAlias))
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if previousAlias != link.CustomAlias {
		if previousAlias != "" && previousAlias != link.ShortCode {
			_, err := tx.Exec(ctx, `DELETE FROM link_codes WHERE code = $1 AND link_id = $2`, previousAlias, link.ID)
			if err != nil {
				return mapError(err)
			}
		}
		if link.CustomAlias != "" && link.CustomAlias != link.ShortCode {
			_, err := tx.Exec(ctx, `INSERT INTO link_codes (code, link_id) VALUES ($1, $2)`, link.CustomAlias, link.ID)
			if err != nil {
				return mapError(err)
			}
		}
	}

	return mapError(tx.Commit(ctx))
}

// SoftDelete deactivates the link. Its codes stay claimed.
func (r *LinkRepository) SoftDelete(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx, `UPDATE links SET is_active = false WHERE id = $1 AND owner_id = $2 AND is_active`, id, ownerID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanLink(row pgx.Row) (*domain.Link, error) {
	var link domain.Link
	err := row.Scan(
		&link.ID,
		&link.OwnerID,
		&link.Destination,
		&link.ShortCode,
		&link.CustomAlias,
		&link.CreatedAt,
		&link.ExpiresAt,
		&link.IsActive,
		&link.ClickCount,
		&link.UniqueClicks,
		&link.LastClickedAt,
		&link.Title,
		&link.Description,
		&link.FaviconURL,
	)
	if err != nil {
		return nil, err
	}
	return &link, nil
}
