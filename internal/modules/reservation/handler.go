package reservation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campusreserve/internal/domain"
	"campusreserve/internal/middleware"
	"campusreserve/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/reservations")
	{
		g.POST("", h.Submit)
		g.GET("", h.ListMine)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Edit)
		g.POST("/:id/cancel", h.Cancel)
		g.POST("/:id/attachment", h.UploadAttachment)
		g.GET("/:id/attachment", h.AttachmentURL)
	}
}

func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	r, err := h.service.Submit(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		h.fail(c, err, "Failed to create reservation")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"reservation": r})
}

func (h *Handler) Edit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	r, err := h.service.Edit(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		h.fail(c, err, "Failed to update reservation")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req CancelRequest
	// body is optional
	_ = c.ShouldBindJSON(&req)

	res, err := h.service.Cancel(c.Request.Context(), middleware.ActorFrom(c), id, req.Reason)
	if err != nil {
		h.fail(c, err, "Failed to cancel reservation")
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	r, err := h.service.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		h.fail(c, err, "Failed to load reservation")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) ListMine(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	state := domain.ReservationState(c.Query("state"))
	if state != "" && !state.Valid() {
		response.Error(c, http.StatusBadRequest, "INVALID_STATE", "Unknown reservation state")
		return
	}

	res, err := h.service.ListMine(c.Request.Context(), middleware.ActorFrom(c), ListRequest{State: state, Page: page, Limit: limit})
	if err != nil {
		h.fail(c, err, "Failed to list reservations")
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) UploadAttachment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Multipart field 'file' is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Cannot read uploaded file")
		return
	}
	defer f.Close()

	r, err := h.service.Attach(c.Request.Context(), middleware.ActorFrom(c), id, fh.Filename, fh.Size, f)
	if err != nil {
		h.fail(c, err, "Failed to store attachment")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) AttachmentURL(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	url, err := h.service.AttachmentURL(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		h.fail(c, err, "Failed to sign attachment URL")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": url})
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	if response.DomainError(c, err) {
		return
	}
	switch {
	case errors.Is(err, ErrAttachmentsDisabled):
		response.Error(c, http.StatusServiceUnavailable, "ATTACHMENTS_DISABLED", err.Error())
	case errors.Is(err, ErrNoAttachment):
		response.Error(c, http.StatusNotFound, "NO_ATTACHMENT", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid reservation ID")
		return 0, false
	}
	return id, true
}
