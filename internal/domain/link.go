package domain

import "time"

type Link struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id,omitempty"`
	Destination   string     `json:"destination"`
	ShortCode     string     `json:"short_code"`
	CustomAlias   string     `json:"custom_alias,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at"`
	IsActive      bool       `json:"is_active"`
	ClickCount    int64      `json:"click_count"`
	UniqueClicks  int64      `json:"unique_clicks"`
	LastClickedAt *time.Time `json:"last_clicked_at"`
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	FaviconURL    *string    `json:"favicon_url"`
}

// Codes returns every code the link answers to. The short code comes first.
func (l *Link) Codes() []string {
	if l.CustomAlias == "" || l.CustomAlias == l.ShortCode {
		return []string{l.ShortCode}
	}
	return []string{l.ShortCode, l.CustomAlias}
}

type PageMetadata struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	FaviconURL  *string `json:"favicon_url"`
}

type CreateLinkRequest struct {
	URL         string `json:"url" validate:"required,max=2048"`
	CustomAlias string `json:"custom_alias,omitempty" validate:"omitempty,max=50,alias"`
	ExpiryHours int    `json:"expiry_hours,omitempty" validate:"omitempty,gte=1"`
}

// UpdateLinkRequest carries partial edits. A nil field is left untouched and an
// empty CustomAlias clears the alias.
type UpdateLinkRequest struct {
	URL         *string `json:"url,omitempty" validate:"omitempty,max=2048"`
	CustomAlias *string `json:"custom_alias,omitempty" validate:"omitempty,max=50"`
}

type LinkPage struct {
	Links      []Link `json:"links"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}
