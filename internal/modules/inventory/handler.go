package inventory

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campusreserve/internal/middleware"
	"campusreserve/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts read endpoints on public and write endpoints on
// admin, which must already be restricted to administrators.
func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	spaces := public.Group("/spaces")
	{
		spaces.GET("", h.ListSpaces)
		spaces.GET("/:id", h.GetSpace)
	}
	resources := public.Group("/resources")
	{
		resources.GET("", h.ListResources)
		resources.GET("/:id", h.GetResource)
		resources.GET("/:id/availability", h.Availability)
	}

	adminSpaces := admin.Group("/spaces")
	{
		adminSpaces.POST("", h.CreateSpace)
		adminSpaces.PUT("/:id", h.UpdateSpace)
		adminSpaces.POST("/:id/activate", h.ActivateSpace)
		adminSpaces.POST("/:id/deactivate", h.DeactivateSpace)
		adminSpaces.DELETE("/:id", h.DeleteSpace)
	}
	adminResources := admin.Group("/resources")
	{
		adminResources.POST("", h.CreateResource)
		adminResources.PUT("/:id", h.UpdateResource)
		adminResources.DELETE("/:id", h.DeleteResource)
	}
}

/* ---------- SPACE HANDLERS ---------- */

// ListSpaces handles GET /spaces. Only active spaces are listed unless
// an admin passes all=true.
func (h *Handler) ListSpaces(c *gin.Context) {
	activeOnly := !(c.Query("all") == "true" && middleware.ActorFrom(c).IsAdmin())
	spaces, err := h.service.ListSpaces(c.Request.Context(), activeOnly)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"spaces": spaces})
}

func (h *Handler) GetSpace(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sp, err := h.service.GetSpace(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"space": sp})
}

func (h *Handler) CreateSpace(c *gin.Context) {
	var req SpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	sp, err := h.service.CreateSpace(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"space": sp})
}

func (h *Handler) UpdateSpace(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	sp, err := h.service.UpdateSpace(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"space": sp})
}

func (h *Handler) ActivateSpace(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sp, err := h.service.ActivateSpace(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"space": sp})
}

func (h *Handler) DeactivateSpace(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.service.DeactivateSpace(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) DeleteSpace(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteSpace(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

/* ---------- RESOURCE HANDLERS ---------- */

func (h *Handler) ListResources(c *gin.Context) {
	list, err := h.service.ListResources(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resources": list})
}

func (h *Handler) GetResource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.service.GetResource(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resource": res})
}

func (h *Handler) CreateResource(c *gin.Context) {
	var req ResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	res, err := h.service.CreateResource(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"resource": res})
}

func (h *Handler) UpdateResource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	res, err := h.service.UpdateResource(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resource": res})
}

func (h *Handler) DeleteResource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteResource(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// Availability handles GET /resources/:id/availability?date=&start=&end=
func (h *Handler) Availability(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters")
		return
	}
	res, err := h.service.Availability(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if response.DomainError(c, err) {
		return
	}
	_ = c.Error(err)
	response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID")
		return 0, false
	}
	return id, true
}
