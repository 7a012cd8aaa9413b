package admission

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusreserve/internal/domain"
)

func newRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", admin.UserID)
		c.Set("role", string(admin.Role))
		c.Next()
	})
	NewHandler(f.engine).RegisterRoutes(r.Group("/admin"))
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestHandler_ApproveNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)
	c := f.reserve(t, f.space.ID, "09:00", "10:00", domain.StatePending)
	d := f.reserve(t, f.space.ID, "09:30", "10:30", domain.StatePending)

	code, env := do(t, router, http.MethodPost, "/admin/reservations/"+itoa(c.ID)+"/approve", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFIRMATION_REQUIRED", env.Error.Code)
	assert.Equal(t, []any{float64(d.ID)}, env.Error.Details["competitors"])

	code, env = do(t, router, http.MethodPost, "/admin/reservations/"+itoa(c.ID)+"/approve", `{"confirmed":true}`)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	var res ApprovalResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, OutcomeApproved, res.Outcome)
	assert.Equal(t, []int64{d.ID}, res.Rejected)
}

func TestHandler_ErrorMapping(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)
	projector := f.resource(t, "Projector", 1)
	f.reserve(t, f.space.ID, "10:00", "11:00", domain.StateApproved,
		domain.ReservationResource{ResourceID: projector.ID, Quantity: 1})
	occupied := f.reserve(t, f.space.ID, "10:30", "11:30", domain.StatePending)
	rejected := f.reserve(t, f.space.ID, "13:00", "14:00", domain.StateRejected)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"space occupied", http.MethodPost, "/admin/reservations/" + itoa(occupied.ID) + "/approve", `{"confirmed":true}`, http.StatusConflict, "SPACE_OCCUPIED"},
		{"reject twice", http.MethodPost, "/admin/reservations/" + itoa(rejected.ID) + "/reject", `{}`, http.StatusConflict, "INVALID_TRANSITION"},
		{"missing", http.MethodPost, "/admin/reservations/999/reject", `{}`, http.StatusNotFound, "NOT_FOUND"},
		{"bad id", http.MethodPost, "/admin/reservations/abc/approve", ``, http.StatusBadRequest, "INVALID_ID"},
		{"cancel without reason", http.MethodPost, "/admin/reservations/" + itoa(occupied.ID) + "/force-cancel", `{}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown state", http.MethodGet, "/admin/reservations?state=LOST", ``, http.StatusBadRequest, "INVALID_STATE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestHandler_QueueDefaultsToPending(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)
	f.reserve(t, f.space.ID, "09:00", "10:00", domain.StatePending)
	f.reserve(t, f.space.ID, "11:00", "12:00", domain.StateApproved)

	code, env := do(t, router, http.MethodGet, "/admin/reservations", "")
	require.Equal(t, http.StatusOK, code)

	var res QueueResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.EqualValues(t, 1, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, domain.StatePending, res.Items[0].State)
}
