package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gamassss/shortlink/internal/dispatch"
	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/internal/logger"
	"github.com/gamassss/shortlink/internal/metrics"
	"github.com/gamassss/shortlink/pkg/detector"
	"github.com/gin-gonic/gin"
)

type Resolver interface {
	Resolve(ctx context.Context, code string) (*domain.Link, error)
}

type RedirectHandler struct {
	resolver    Resolver
	dispatcher  dispatch.Dispatcher
	fallbackURL string
	metrics     *metrics.Metrics
}

func NewRedirectHandler(resolver Resolver, dispatcher dispatch.Dispatcher, fallbackURL string, m *metrics.Metrics) *RedirectHandler {
	if fallbackURL == "" {
		fallbackURL = "/"
	}

	return &RedirectHandler{
		resolver:    resolver,
		dispatcher:  dispatcher,
		fallbackURL: fallbackURL,
		metrics:     m,
	}
}

// Redirect sends the visitor on with a 302. The click is handed off before
// responding and never delays the redirect.
func (h *RedirectHandler) Redirect(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Param("code")

	link, err := h.resolver.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.metrics.Redirect("not_found")
			c.Redirect(http.StatusFound, h.fallback("not-found"))
			return
		}

		h.metrics.Redirect("error")
		logger.FromContext(ctx).Error("Redirect failed", slog.String("code", code), slog.String("error", err.Error()))
		c.Redirect(http.StatusFound, h.fallback("server-error"))
		return
	}

	h.dispatcher.Dispatch(&domain.ClickMessage{
		LinkID:     link.ID,
		RequestID:  logger.RequestIDFromContext(ctx),
		Attributes: clickAttributes(c.Request),
	})

	h.metrics.Redirect("found")
	c.Redirect(http.StatusFound, link.Destination)
}

func (h *RedirectHandler) fallback(reason string) string {
	sep := "?"
	if strings.Contains(h.fallbackURL, "?") {
		sep = "&"
	}
	return h.fallbackURL + sep + "error=" + url.QueryEscape(reason)
}

func clickAttributes(r *http.Request) domain.ClickAttributes {
	userAgent := r.UserAgent()

	return domain.ClickAttributes{
		IPAddress:  detector.GetClientIP(r.RemoteAddr, r.Header.Get("X-Forwarded-For"), r.Header.Get("X-Real-IP")),
		UserAgent:  userAgent,
		Referer:    r.Referer(),
		DeviceType: detector.DetectDeviceType(userAgent),
		Browser:    detector.DetectBrowser(userAgent),
	}
}
