package report

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campusreserve/internal/domain"
	"campusreserve/internal/pkg/response"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// RegisterRoutes mounts the calendar on authed and the export on admin.
func (h *Handler) RegisterRoutes(authed, admin *gin.RouterGroup) {
	authed.GET("/calendar", h.Calendar)
	admin.GET("/reports/reservations.csv", h.ExportCSV)
}

func (h *Handler) ExportCSV(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}

	// Buffered so a failed query still produces a JSON error instead of a
	// truncated attachment.
	var buf bytes.Buffer
	if err := h.service.ExportCSV(c.Request.Context(), &buf, from, to); err != nil {
		h.log.Error("report: csv export failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export reservations")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="reservations.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) Calendar(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	events, err := h.service.Calendar(c.Request.Context(), from, to)
	if err != nil {
		h.log.Error("report: calendar failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load calendar")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"events": events})
}

func dateRange(c *gin.Context) (string, string, bool) {
	from, to := c.Query("from"), c.Query("to")
	for name, v := range map[string]string{"from": from, "to": to} {
		if v == "" {
			continue
		}
		if _, err := domain.ParseDate(v); err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", fmt.Sprintf("%s must be a YYYY-MM-DD date", name))
			return "", "", false
		}
	}
	if from != "" && to != "" && to < from {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "to must not be before from")
		return "", "", false
	}
	return from, to, true
}
