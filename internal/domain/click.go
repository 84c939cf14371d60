package domain

import "time"

type ClickEvent struct {
	ID         string    `json:"id"`
	LinkID     string    `json:"link_id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Referer    string    `json:"referer,omitempty"`
	DeviceType string    `json:"device_type,omitempty"`
	Browser    string    `json:"browser,omitempty"`
	ClickedAt  time.Time `json:"clicked_at"`
}

// ClickAttributes are the request-derived fields recorded with a click.
type ClickAttributes struct {
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	Referer    string `json:"referer,omitempty"`
	DeviceType string `json:"device_type,omitempty"`
	Browser    string `json:"browser,omitempty"`
}

// ClickMessage is the unit of work handed from the redirect path to the
// click accountant, in process or over the queue.
type ClickMessage struct {
	LinkID     string          `json:"link_id"`
	RequestID  string          `json:"request_id,omitempty"`
	Attributes ClickAttributes `json:"attributes"`
}

type LinkAnalytics struct {
	LinkID        string          `json:"link_id"`
	ShortCode     string          `json:"short_code"`
	Destination   string          `json:"destination"`
	TotalClicks   int64           `json:"total_clicks"`
	UniqueClicks  int64           `json:"unique_clicks"`
	DistinctIPs   int64           `json:"distinct_ips"`
	LastClickedAt *time.Time      `json:"last_clicked_at"`
	CreatedAt     time.Time       `json:"created_at"`
	ClicksByDate  []ClicksByDate  `json:"clicks_by_date"`
	TopReferrers  []ReferrerStats `json:"top_referrers"`
	DeviceStats   DeviceStats     `json:"device_stats"`
	Browsers      []BrowserStats  `json:"browsers"`
	RecentClicks  []ClickEvent    `json:"recent_clicks"`
}

type ClicksByDate struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type ReferrerStats struct {
	Referer string `json:"referer"`
	Count   int64  `json:"count"`
}

type BrowserStats struct {
	Browser string `json:"browser"`
	Count   int64  `json:"count"`
}

type DeviceStats struct {
	Mobile  int64 `json:"mobile"`
	Desktop int64 `json:"desktop"`
	Tablet  int64 `json:"tablet"`
	Bot     int64 `json:"bot"`
	Unknown int64 `json:"unknown"`
}

// Add counts n clicks for the given device type.
func (d *DeviceStats) Add(deviceType string, n int64) {
	switch deviceType {
	case "mobile":
		d.Mobile += n
	case "desktop":
		d.Desktop += n
	case "tablet":
		d.Tablet += n
	case "bot":
		d.Bot += n
	default:
		d.Unknown += n
	}
}

type ClickHistory struct {
	Clicks     []ClickEvent `json:"clicks"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}
