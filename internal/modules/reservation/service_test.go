package reservation

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusreserve/internal/config"
	"campusreserve/internal/domain"
	"campusreserve/internal/modules/ledger"
	"campusreserve/internal/pkg/testdb"
	"campusreserve/internal/repository"
)

var (
	alice = domain.Actor{UserID: 10, Role: domain.RoleRequester}
	bob   = domain.Actor{UserID: 11, Role: domain.RoleRequester}
)

type recordingNotifier struct {
	mu          sync.Mutex
	submitted   []int64
	transitions []domain.ReservationState
}

func (n *recordingNotifier) Submitted(_ context.Context, r *domain.Reservation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, r.ID)
}

func (n *recordingNotifier) Transitioned(_ context.Context, r *domain.Reservation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transitions = append(n.transitions, r.State)
}

type memStore struct {
	objects map[string]string
	failPut bool
}

func (m *memStore) Put(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if m.failPut {
		return errors.New("bucket unavailable")
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = contentType + ":" + string(b)
	return nil
}

func (m *memStore) PresignGet(_ context.Context, key string) (string, error) {
	return "https://files.example/" + key + "?sig=1", nil
}

type env struct {
	svc      *Service
	notifs   *recordingNotifier
	store    *memStore
	space    *domain.Space
	other    *domain.Space
	resource *domain.Resource
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testdb.New(t)
	ctx := context.Background()

	spaces := repository.NewSpaceRepository(db)
	space := &domain.Space{Name: "Lecture Hall 2", IsActive: true}
	other := &domain.Space{Name: "Lecture Hall 3", IsActive: true}
	require.NoError(t, spaces.Create(ctx, space))
	require.NoError(t, spaces.Create(ctx, other))
	projector := &domain.Resource{Name: "Projector", Stock: 2}
	require.NoError(t, repository.NewResourceRepository(db).Create(ctx, projector))

	notifs := &recordingNotifier{}
	store := &memStore{objects: map[string]string{}}
	svc := NewService(db, NewValidator(config.DefaultRules(), time.UTC), notifs, store, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2030, 4, 1, 12, 0, 0, 0, time.UTC) }

	return &env{svc: svc, notifs: notifs, store: store, space: space, other: other, resource: projector}
}

func (e *env) request(spaceID int64, date, start, end string, qty int) SubmitRequest {
	req := SubmitRequest{SpaceID: spaceID, Date: date, StartTime: start, EndTime: end, Reason: "Workshop"}
	if qty > 0 {
		req.Items = []ItemRequest{{ResourceID: e.resource.ID, Quantity: qty}}
	}
	return req
}

func TestSubmit_StoresPendingAndNotifies(t *testing.T) {
	e := setup(t)

	r, err := e.svc.Submit(context.Background(), alice, e.request(e.space.ID, "2030-04-10", "10:00", "12:00", 1))
	require.NoError(t, err)

	assert.Equal(t, domain.StatePending, r.State)
	assert.Equal(t, alice.UserID, r.RequesterID)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "Projector", r.Items[0].Resource.Name)
	assert.Equal(t, []int64{r.ID}, e.notifs.submitted)
}

func TestSubmit_MergesDuplicateItems(t *testing.T) {
	e := setup(t)
	req := e.request(e.space.ID, "2030-04-10", "10:00", "12:00", 0)
	req.Items = []ItemRequest{
		{ResourceID: e.resource.ID, Quantity: 1},
		{ResourceID: e.resource.ID, Quantity: 1},
	}

	r, err := e.svc.Submit(context.Background(), alice, req)
	require.NoError(t, err)
	require.Len(t, r.Items, 1)
	assert.Equal(t, 2, r.Items[0].Quantity)
}

func TestSubmit_StockCountsPendingReservations(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	_, err := e.svc.Submit(ctx, alice, e.request(e.space.ID, "2030-04-10", "10:00", "11:00", 2))
	require.NoError(t, err)

	_, err = e.svc.Submit(ctx, bob, e.request(e.other.ID, "2030-04-10", "10:30", "11:30", 1))
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 0, ise.Available)
	assert.Equal(t, 1, ise.Requested)

	_, err = e.svc.Submit(ctx, bob, e.request(e.other.ID, "2030-04-10", "11:00", "12:00", 2))
	assert.NoError(t, err, "touching windows share stock")
}

func TestSubmit_ValidationErrors(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	t.Run("field checks", func(t *testing.T) {
		_, err := e.svc.Submit(ctx, alice, SubmitRequest{SpaceID: e.space.ID, Date: "tomorrow", StartTime: "10:00", EndTime: "11:00"})
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "date", ve.Violations[0].Field)
	})

	t.Run("rules are collected together", func(t *testing.T) {
		_, err := e.svc.Submit(ctx, alice, e.request(e.space.ID, "2030-04-02", "10:00", "10:30", 0))
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.True(t, ve.Has(CodeLeadTime))
		assert.True(t, ve.Has(CodeMinDuration))
	})

	t.Run("unknown resource", func(t *testing.T) {
		req := e.request(e.space.ID, "2030-04-10", "10:00", "11:00", 0)
		req.Items = []ItemRequest{{ResourceID: 999, Quantity: 1}}
		_, err := e.svc.Submit(ctx, alice, req)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.True(t, ve.Has("unknown_resource"))
	})

	t.Run("unknown space", func(t *testing.T) {
		_, err := e.svc.Submit(ctx, alice, e.request(999, "2030-04-10", "10:00", "11:00", 0))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("buffer around pending", func(t *testing.T) {
		_, err := e.svc.Submit(ctx, alice, e.request(e.space.ID, "2030-04-12", "10:00", "11:00", 0))
		require.NoError(t, err)
		_, err = e.svc.Submit(ctx, bob, e.request(e.space.ID, "2030-04-12", "11:30", "12:30", 0))
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.True(t, ve.Has(CodeBuffer))
	})
}

func TestSubmit_QuantityBounds(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	repo := repository.NewReservationRepository(e.svc.db)

	t.Run("huge duplicate lines cannot wrap around", func(t *testing.T) {
		req := e.request(e.space.ID, "2030-04-10", "10:00", "11:00", 0)
		req.Items = []ItemRequest{
			{ResourceID: e.resource.ID, Quantity: math.MaxInt/2 + 1},
			{ResourceID: e.resource.ID, Quantity: math.MaxInt/2 + 1},
		}
		_, err := e.svc.Submit(ctx, alice, req)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
	})

	t.Run("merged total above the line limit", func(t *testing.T) {
		req := e.request(e.space.ID, "2030-04-10", "10:00", "11:00", 0)
		req.Items = []ItemRequest{
			{ResourceID: e.resource.ID, Quantity: 60000},
			{ResourceID: e.resource.ID, Quantity: 60000},
		}
		_, err := e.svc.Submit(ctx, alice, req)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.True(t, ve.Has("quantity"))
	})

	t.Run("repository refuses non-positive lines", func(t *testing.T) {
		r := &domain.Reservation{RequesterID: alice.UserID, SpaceID: e.space.ID, Date: "2030-04-10",
			StartTime: "15:00", EndTime: "16:00", State: domain.StatePending,
			Items: []domain.ReservationResource{{ResourceID: e.resource.ID, Quantity: -5}}}
		var ve *domain.ValidationError
		require.ErrorAs(t, repo.Create(ctx, r), &ve)
	})

	_, total, err := repo.List(ctx, repository.ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)

	avail, err := ledger.New(repo, repository.NewResourceRepository(e.svc.db)).
		Available(ctx, e.resource.ID, domain.Slot{Date: "2030-04-10", Start: "10:00", End: "11:00"})
	require.NoError(t, err)
	assert.Equal(t, 2, avail)
}

func TestSubmit_SpaceDeactivatedBeforeCommit(t *testing.T) {
	e := setup(t)
	db := e.svc.db

	// flip the space off right after validation read it as active
	flipped := false
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:deactivate_space", func(tx *gorm.DB) {
		if flipped || tx.Statement.Table != "reservations" {
			return
		}
		flipped = true
		require.NoError(t, db.Exec("UPDATE spaces SET is_active = ? WHERE id = ?", false, e.space.ID).Error)
	}))

	_, err := e.svc.Submit(context.Background(), alice, e.request(e.space.ID, "2030-04-10", "10:00", "11:00", 1))
	require.True(t, flipped)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(CodeSpaceInactive))
	assert.Empty(t, e.notifs.submitted)
}

func TestEdit(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	r, err := e.svc.Submit(ctx, alice, e.request(e.space.ID, "2030-04-10", "10:00", "12:00", 2))
	require.NoError(t, err)

	t.Run("own pending reservation can move without tripping its own buffer", func(t *testing.T) {
		got, err := e.svc.Edit(ctx, alice, r.ID, e.request(e.space.ID, "2030-04-10", "11:00", "13:00", 2))
		require.NoError(t, err)
		assert.Equal(t, domain.Clock("11:00"), got.StartTime)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 2, got.Items[0].Quantity)
	})

	t.Run("other requester", func(t *testing.T) {
		_, err := e.svc.Edit(ctx, bob, r.ID, e.request(e.space.ID, "2030-04-10", "11:00", "13:00", 0))
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("not pending", func(t *testing.T) {
		repo := repository.NewReservationRepository(e.svc.db)
		require.NoError(t, repo.Transition(ctx, r.ID, []domain.ReservationState{domain.StatePending}, domain.StateApproved, "", nil))
		_, err := e.svc.Edit(ctx, alice, r.ID, e.request(e.space.ID, "2030-04-10", "15:00", "16:00", 0))
		assert.ErrorIs(t, err, domain.ErrNotEditable)
	})
}

func TestCancel(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	repo := repository.NewReservationRepository(e.svc.db)

	t.Run("pending is deleted", func(t *testing.T) {
		r, err := e.svc.Submit(ctx, alice, e.request(e.space.ID, "2030-04-10", "10:00", "11:00", 1))
		require.NoError(t, err)

		res, err := e.svc.Cancel(ctx, alice, r.ID, "")
		require.NoError(t, err)
		assert.True(t, res.Deleted)
		_, err = repo.GetByID(ctx, r.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("approved becomes cancelled", func(t *testing.T) {
		r, err := e.svc.Submit(ctx, alice, e.request(e.space.ID, "2030-04-15", "10:00", "11:00", 0))
		require.NoError(t, err)
		require.NoError(t, repo.Transition(ctx, r.ID, []domain.ReservationState{domain.StatePending}, domain.StateApproved, "", nil))

		res, err := e.svc.Cancel(ctx, alice, r.ID, "")
		require.NoError(t, err)
		assert.False(t, res.Deleted)
		assert.Equal(t, domain.StateCancelled, res.Reservation.State)
		assert.Equal(t, "Cancelled by requester", res.Reservation.StateReason)
		assert.Contains(t, e.notifs.transitions, domain.StateCancelled)

		_, err = e.svc.Cancel(ctx, alice, r.ID, "")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("past approved reservation is finalized", func(t *testing.T) {
		past := &domain.Reservation{RequesterID: alice.UserID, SpaceID: e.space.ID, Date: "2030-03-20",
			StartTime: "10:00", EndTime: "11:00", State: domain.StateApproved}
		require.NoError(t, repo.Create(ctx, past))

		_, err := e.svc.Cancel(ctx, alice, past.ID, "")
		assert.ErrorIs(t, err, domain.ErrReservationFinalized)
	})

	t.Run("someone else's reservation", func(t *testing.T) {
		r, err := e.svc.Submit(ctx, alice, e.request(e.space.ID, "2030-04-20", "10:00", "11:00", 0))
		require.NoError(t, err)
		_, err = e.svc.Cancel(ctx, bob, r.ID, "")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestGetAndListMine(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	mine, err := e.svc.Submit(ctx, alice, e.request(e.space.ID, "2030-04-10", "10:00", "11:00", 0))
	require.NoError(t, err)
	_, err = e.svc.Submit(ctx, bob, e.request(e.other.ID, "2030-04-10", "10:00", "11:00", 0))
	require.NoError(t, err)

	list, err := e.svc.ListMine(ctx, alice, ListRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, 20, list.Limit)

	_, err = e.svc.Get(ctx, bob, mine.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = e.svc.Get(ctx, domain.Actor{UserID: 1, Role: domain.RoleAdmin}, mine.ID)
	assert.NoError(t, err)
}

func TestAttach(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	r, err := e.svc.Submit(ctx, alice, e.request(e.space.ID, "2030-04-10", "10:00", "11:00", 0))
	require.NoError(t, err)

	t.Run("rejects type and size together", func(t *testing.T) {
		_, err := e.svc.Attach(ctx, alice, r.ID, "notes.docx", 6<<20, strings.NewReader("x"))
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.True(t, ve.Has("attachment_type"))
		assert.True(t, ve.Has("attachment_size"))
	})

	t.Run("stores pdf and signs a url", func(t *testing.T) {
		got, err := e.svc.Attach(ctx, alice, r.ID, "Program.PDF", 7, strings.NewReader("%PDF-1."))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got.AttachmentKey, "reservations/"))
		assert.True(t, strings.HasSuffix(got.AttachmentKey, ".pdf"))
		assert.Equal(t, "application/pdf:%PDF-1.", e.store.objects[got.AttachmentKey])

		url, err := e.svc.AttachmentURL(ctx, alice, r.ID)
		require.NoError(t, err)
		assert.Contains(t, url, got.AttachmentKey)
	})

	t.Run("store failure is surfaced", func(t *testing.T) {
		e.store.failPut = true
		defer func() { e.store.failPut = false }()
		_, err := e.svc.Attach(ctx, alice, r.ID, "costs.xlsx", 3, strings.NewReader("abc"))
		assert.ErrorContains(t, err, "bucket unavailable")
	})

	t.Run("disabled storage", func(t *testing.T) {
		svc := NewService(e.svc.db, e.svc.validator, e.notifs, nil, zap.NewNop())
		_, err := svc.AttachmentURL(ctx, alice, r.ID)
		assert.ErrorIs(t, err, ErrAttachmentsDisabled)
	})
}
