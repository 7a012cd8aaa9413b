package admission

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campusreserve/internal/domain"
	"campusreserve/internal/middleware"
	"campusreserve/internal/pkg/response"
	"campusreserve/internal/pkg/validator"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes mounts the decision endpoints. rg must already be
// restricted to administrators.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/reservations")
	{
		g.GET("", h.Queue)
		g.POST("/:id/approve", h.Approve)
		g.POST("/:id/reject", h.Reject)
		g.POST("/:id/force-cancel", h.ForceCancel)
	}
}

func (h *Handler) Queue(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	spaceID, _ := strconv.ParseInt(c.Query("space_id"), 10, 64)
	state := domain.ReservationState(c.DefaultQuery("state", string(domain.StatePending)))
	if !state.Valid() {
		response.Error(c, http.StatusBadRequest, "INVALID_STATE", "Unknown reservation state")
		return
	}

	res, err := h.engine.Queue(c.Request.Context(), QueueRequest{State: state, SpaceID: spaceID, Page: page, Limit: limit})
	if err != nil {
		h.fail(c, err, "Failed to load reservations")
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ApproveRequest
	// confirmed defaults to false without a body
	_ = c.ShouldBindJSON(&req)

	res, err := h.engine.Approve(c.Request.Context(), middleware.ActorFrom(c), id, req.Confirmed)
	if err != nil {
		h.fail(c, err, "Failed to approve reservation")
		return
	}

	switch res.Outcome {
	case OutcomeConfirmationRequired:
		response.ErrorWithDetails(c, http.StatusConflict, "CONFIRMATION_REQUIRED",
			"Approving this reservation will reject overlapping pending requests; resend with confirmed=true",
			gin.H{"competitors": res.Competitors})
	default:
		response.Success(c, http.StatusOK, res)
	}
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req RejectRequest
	_ = c.ShouldBindJSON(&req)
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	r, err := h.engine.Reject(c.Request.Context(), middleware.ActorFrom(c), id, req.Reason)
	if err != nil {
		h.fail(c, err, "Failed to reject reservation")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) ForceCancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ForceCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "A cancellation reason is required", errs)
		return
	}

	r, err := h.engine.ForceCancel(c.Request.Context(), middleware.ActorFrom(c), id, req.Reason)
	if err != nil {
		h.fail(c, err, "Failed to cancel reservation")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	if response.DomainError(c, err) {
		return
	}
	_ = c.Error(err)
	response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid reservation ID")
		return 0, false
	}
	return id, true
}
