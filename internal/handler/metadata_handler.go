package handler

import (
	"context"
	"net/http"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/pkg/response"
	"github.com/gin-gonic/gin"
)

type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) *domain.PageMetadata
}

type MetadataHandler struct {
	fetcher MetadataFetcher
}

func NewMetadataHandler(fetcher MetadataFetcher) *MetadataHandler {
	return &MetadataHandler{fetcher: fetcher}
}

type metadataRequest struct {
	URL string `json:"url"`
}

// Fetch answers with the page's metadata. Unreachable pages yield an object
// with every field null rather than an error.
func (h *MetadataHandler) Fetch(c *gin.Context) {
	var req metadataRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		response.BadRequest(c, "URL is required")
		return
	}

	meta := h.fetcher.Fetch(c.Request.Context(), req.URL)
	if meta == nil {
		meta = &domain.PageMetadata{}
	}

	c.JSON(http.StatusOK, meta)
}
