package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/internal/middleware"
	"github.com/gamassss/shortlink/pkg/response"
	"github.com/gamassss/shortlink/pkg/validator"
	"github.com/gin-gonic/gin"
)

type LinkService interface {
	Create(ctx context.Context, ownerID string, req *domain.CreateLinkRequest) (*domain.Link, error)
	List(ctx context.Context, ownerID string, page, pageSize int) (*domain.LinkPage, error)
	Get(ctx context.Context, ownerID, id string) (*domain.Link, error)
	Update(ctx context.Context, ownerID, id string, req *domain.UpdateLinkRequest) (*domain.Link, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type LinkHandler struct {
	service LinkService
	baseURL string
}

func NewLinkHandler(service LinkService, baseURL string) *LinkHandler {
	return &LinkHandler{
		service: service,
		baseURL: baseURL,
	}
}

type linkResponse struct {
	*domain.Link
	ShortURL string `json:"short_url"`
}

type linkPageResponse struct {
	Links      []linkResponse `json:"links"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// present advertises the custom alias when the link has one.
func (h *LinkHandler) present(link *domain.Link) linkResponse {
	code := link.ShortCode
	if link.CustomAlias != "" {
		code = link.CustomAlias
	}

	return linkResponse{
		Link:     link,
		ShortURL: h.baseURL + "/" + code,
	}
}

func (h *LinkHandler) Create(c *gin.Context) {
	var req domain.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	if errs := validator.Validate(&req); len(errs) > 0 {
		response.ValidationErrors(c, errs)
		return
	}

	link, err := h.service.Create(c.Request.Context(), middleware.OwnerID(c), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, "Link created successfully", h.present(link))
}

func (h *LinkHandler) List(c *gin.Context) {
	page, pageSize := pagination(c)

	result, err := h.service.List(c.Request.Context(), middleware.OwnerID(c), page, pageSize)
	if err != nil {
		response.FromError(c, err)
		return
	}

	links := make([]linkResponse, 0, len(result.Links))
	for i := range result.Links {
		links = append(links, h.present(&result.Links[i]))
	}

	response.OK(c, "Links retrieved successfully", linkPageResponse{
		Links:      links,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	})
}

func (h *LinkHandler) Get(c *gin.Context) {
	link, err := h.service.Get(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "Link retrieved successfully", h.present(link))
}

func (h *LinkHandler) Update(c *gin.Context) {
	var req domain.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	if errs := validator.Validate(&req); len(errs) > 0 {
		response.ValidationErrors(c, errs)
		return
	}

	link, err := h.service.Update(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, "Link updated successfully", h.present(link))
}

func (h *LinkHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.OwnerID(c), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func pagination(c *gin.Context) (int, int) {
	page := 1
	if pageParam := c.Query("page"); pageParam != "" {
		if p, err := strconv.Atoi(pageParam); err == nil && p > 0 {
			page = p
		}
	}

	pageSize := 20
	if sizeParam := c.Query("page_size"); sizeParam != "" {
		if s, err := strconv.Atoi(sizeParam); err == nil && s > 0 && s <= 100 {
			pageSize = s
		}
	}

	return page, pageSize
}
