package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campusreserve/internal/domain"
	"campusreserve/internal/pkg/testdb"
	"campusreserve/internal/repository"
)

func seed(t *testing.T) *repository.ReservationRepository {
	t.Helper()
	db := testdb.New(t)
	ctx := context.Background()

	space := &domain.Space{Name: "Room 12", IsActive: true}
	require.NoError(t, repository.NewSpaceRepository(db).Create(ctx, space))
	projector := &domain.Resource{Name: "Projector", Stock: 3}
	require.NoError(t, repository.NewResourceRepository(db).Create(ctx, projector))

	repo := repository.NewReservationRepository(db)
	for _, r := range []*domain.Reservation{
		{RequesterID: 3, SpaceID: space.ID, Date: "2030-06-01", StartTime: "09:00", EndTime: "10:30", State: domain.StateApproved,
			Reason: "Thesis defense, group 4", Items: []domain.ReservationResource{{ResourceID: projector.ID, Quantity: 2}}},
		{RequesterID: 4, SpaceID: space.ID, Date: "2030-06-02", StartTime: "11:00", EndTime: "12:00", State: domain.StatePending},
		{RequesterID: 5, SpaceID: space.ID, Date: "2030-06-03", StartTime: "14:00", EndTime: "16:00", State: domain.StateFinalized},
		{RequesterID: 6, SpaceID: space.ID, Date: "2030-07-01", StartTime: "14:00", EndTime: "15:00", State: domain.StateApproved},
	} {
		require.NoError(t, repo.Create(ctx, r))
	}
	return repo
}

func TestExportCSV_OnlyReportingStatesInRange(t *testing.T) {
	repo := seed(t)
	svc := NewService(repo, []domain.ReservationState{domain.StateApproved, domain.StateFinalized})

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf, "2030-06-01", "2030-06-30"))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])

	first := records[1]
	assert.Equal(t, "Room 12", first[2])
	assert.Equal(t, "1.50", first[6])
	assert.Equal(t, "Thesis defense, group 4", first[8])
	assert.Equal(t, "Projector x2", first[9])
	assert.Equal(t, "FINALIZED", records[2][7])
}

func TestExportCSV_DefaultsToApproved(t *testing.T) {
	svc := NewService(seed(t), nil)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf, "", ""))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestCalendar(t *testing.T) {
	svc := NewService(seed(t), nil)

	events, err := svc.Calendar(context.Background(), "2030-06-01", "")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Occupied: Room 12", events[0].Title)
	assert.Equal(t, "2030-06-01T09:00", events[0].Start)
	assert.Equal(t, "2030-06-01T10:30", events[0].End)
}

func TestHandler_ExportAndRangeValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(NewService(seed(t), nil), zap.NewNop()).RegisterRoutes(&router.RouterGroup, router.Group("/admin"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/reports/reservations.csv?from=2030-06-01", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "reservations.csv")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calendar?from=June", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calendar?from=2030-06-02&to=2030-06-01", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
