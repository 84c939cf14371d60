// Package metadata fetches a destination page and extracts its title,
// description and favicon for display alongside a link.
package metadata

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/internal/logger"
	"github.com/gamassss/shortlink/internal/metrics"
	"github.com/gamassss/shortlink/pkg/validator"
	"github.com/imroc/req/v3"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Timeout   time.Duration
	UserAgent string
}

type Fetcher struct {
	client  *req.Client
	metrics *metrics.Metrics
}

func NewFetcher(cfg Config, m *metrics.Metrics) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	client := req.C().
		SetTimeout(cfg.Timeout).
		SetUserAgent(cfg.UserAgent).
		SetCommonHeader("Accept", "text/html,application/xhtml+xml").
		DisableAutoReadResponse()

	return &Fetcher{
		client:  client,
		metrics: m,
	}
}

// Fetch never fails. Anything that goes wrong yields metadata with every
// field nil.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) *domain.PageMetadata {
	empty := &domain.PageMetadata{}

	if !validator.IsValidURL(pageURL) {
		f.metrics.MetadataFetch("invalid")
		return empty
	}

	log := logger.FromContext(ctx)

	resp, err := f.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		f.metrics.MetadataFetch("error")
		log.Debug("Metadata fetch failed", slog.String("url", pageURL), slog.String("error", err.Error()))
		return empty
	}
	defer resp.Body.Close()

	if !resp.IsSuccessState() {
		f.metrics.MetadataFetch("non_2xx")
		log.Debug("Metadata fetch returned non-2xx", slog.String("url", pageURL), slog.Int("status", resp.StatusCode))
		return empty
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		f.metrics.MetadataFetch("error")
		return empty
	}

	meta := extract(doc)
	meta.FaviconURL = resolveFavicon(pageURL, meta.FaviconURL)

	f.metrics.MetadataFetch("ok")
	return meta
}

// extract walks the document once and keeps the first title, description
// and icon link it sees. FaviconURL holds the raw href.
func extract(doc *html.Node) *domain.PageMetadata {
	meta := &domain.PageMetadata{}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if meta.Title == nil && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					meta.Title = nonEmpty(n.FirstChild.Data)
				}
			case atom.Meta:
				if meta.Description == nil && strings.EqualFold(attr(n, "name"), "description") {
					meta.Description = nonEmpty(attr(n, "content"))
				}
			case atom.Link:
				if meta.FaviconURL == nil && strings.Contains(strings.ToLower(attr(n, "rel")), "icon") {
					meta.FaviconURL = nonEmpty(attr(n, "href"))
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return meta
}

// resolveFavicon turns an icon href into an absolute URL. Relative paths
// without a leading slash, and pages without an icon link, fall back to
// /favicon.ico on the page's origin.
func resolveFavicon(pageURL string, href *string) *string {
	page, err := url.Parse(pageURL)
	if err != nil || page.Host == "" {
		return nil
	}
	origin := page.Scheme + "://" + page.Host

	var resolved string
	switch {
	case href == nil:
		resolved = origin + "/favicon.ico"
	case strings.HasPrefix(*href, "http"):
		resolved = *href
	case strings.HasPrefix(*href, "//"):
		resolved = "https:" + *href
	case strings.HasPrefix(*href, "/"):
		resolved = origin + *href
	default:
		resolved = origin + "/favicon.ico"
	}

	return &resolved
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
