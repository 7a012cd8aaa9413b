package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusreserve/internal/domain"
	"campusreserve/internal/modules/ledger"
	"campusreserve/internal/repository"
)

// Notifier receives the reservations whose state an admission changed,
// after the transaction that changed them has committed.
type Notifier interface {
	Transitioned(ctx context.Context, r *domain.Reservation)
}

// Engine takes the administrative decisions on reservations. Every decision
// runs in one transaction; notifications go out only after commit.
type Engine struct {
	db           *gorm.DB
	reservations *repository.ReservationRepository
	spaces       *repository.SpaceRepository
	resources    *repository.ResourceRepository
	notifs       Notifier
	log          *zap.Logger
	loc          *time.Location
	now          func() time.Time
}

func NewEngine(db *gorm.DB, notifs Notifier, loc *time.Location, log *zap.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		db:           db,
		reservations: repository.NewReservationRepository(db),
		spaces:       repository.NewSpaceRepository(db),
		resources:    repository.NewResourceRepository(db),
		notifs:       notifs,
		log:          log,
		loc:          loc,
		now:          time.Now,
	}
}

// errNeedsConfirmation aborts the approval transaction when competitors
// show up that the operator has not seen yet.
type errNeedsConfirmation struct {
	competitors []int64
}

func (e *errNeedsConfirmation) Error() string {
	return fmt.Sprintf("approval needs confirmation, competitors: %v", e.competitors)
}

// Approve moves a PENDING reservation to APPROVED.
//
// An APPROVED reservation overlapping it on the same space fails the call
// with SpaceOccupiedError. Overlapping PENDING reservations are competitors:
// without confirmed the call only reports them; with confirmed they are all
// rejected in the same transaction. Resource stock is checked against other
// APPROVED reservations only, with the resource rows locked. Reservations on
// an inactive space or dated before today are never approved.
func (e *Engine) Approve(ctx context.Context, actor domain.Actor, id int64, confirmed bool) (*ApprovalResult, error) {
	r, err := e.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.State != domain.StatePending {
		return &ApprovalResult{Outcome: OutcomeNoop, Reservation: r}, nil
	}
	if r.Elapsed(e.today()) {
		return nil, domain.ErrReservationFinalized
	}
	space, err := e.spaces.GetByID(ctx, r.SpaceID)
	if err != nil {
		return nil, err
	}
	if !space.IsActive {
		return nil, domain.SpaceInactive()
	}

	competitors, err := e.conflicts(ctx, e.reservations, r)
	if err != nil {
		return nil, err
	}
	if len(competitors) > 0 && !confirmed {
		return &ApprovalResult{
			Outcome:     OutcomeConfirmationRequired,
			Reservation: r,
			Competitors: reservationIDs(competitors),
		}, nil
	}

	seen := make(map[int64]struct{}, len(competitors))
	for _, c := range competitors {
		seen[c.ID] = struct{}{}
	}

	reason := fmt.Sprintf("System: approved priority request #%d.", r.ID)
	var rejected []int64

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservations := e.reservations.WithTx(tx)
		resources := e.resources.WithTx(tx)

		// Lock order is space, reservation, resources. The space lock
		// serializes admissions there so the conflict reads below stay true
		// until commit; the reservation lock holds off a concurrent edit.
		space, err := e.spaces.WithTx(tx).LockByID(ctx, r.SpaceID)
		if err != nil {
			return err
		}
		if !space.IsActive {
			return domain.SpaceInactive()
		}
		// a missing row was withdrawn by its owner after the first read
		if _, err := reservations.LockByID(ctx, r.ID); err != nil {
			return withdrawn(r.ID, err)
		}
		fresh, err := reservations.GetByID(ctx, r.ID)
		if err != nil {
			return withdrawn(r.ID, err)
		}
		if fresh.State != domain.StatePending || fresh.SpaceID != r.SpaceID {
			return &domain.StateChangedError{ReservationID: r.ID, Expected: domain.StatePending, Actual: fresh.State}
		}
		r = fresh

		current, err := e.conflicts(ctx, reservations, r)
		if err != nil {
			return err
		}
		var unseen []int64
		for _, c := range current {
			if _, ok := seen[c.ID]; !ok {
				unseen = append(unseen, c.ID)
			}
		}
		if len(unseen) > 0 {
			return &errNeedsConfirmation{competitors: reservationIDs(current)}
		}

		if err := e.checkStock(ctx, reservations, resources, r); err != nil {
			return err
		}

		if err := reservations.Transition(ctx, r.ID,
			[]domain.ReservationState{domain.StatePending}, domain.StateApproved, "", &actor.UserID); err != nil {
			return err
		}

		for _, c := range current {
			err := reservations.Transition(ctx, c.ID,
				[]domain.ReservationState{domain.StatePending}, domain.StateRejected, reason, &actor.UserID)
			switch {
			case err == nil:
				rejected = append(rejected, c.ID)
			case repository.IsStateChanged(err), errors.Is(err, domain.ErrNotFound):
				// withdrawn by its owner meanwhile
			default:
				return err
			}
		}
		return nil
	})

	var nc *errNeedsConfirmation
	switch {
	case errors.As(err, &nc):
		return &ApprovalResult{
			Outcome:     OutcomeConfirmationRequired,
			Reservation: r,
			Competitors: nc.competitors,
		}, nil
	case repository.IsLockConflict(err):
		return nil, &domain.StateChangedError{ReservationID: r.ID, Expected: domain.StatePending}
	case err != nil:
		return nil, err
	}

	e.log.Info("reservation approved",
		zap.Int64("reservation_id", r.ID),
		zap.Int64("admin_id", actor.UserID),
		zap.Int64s("rejected", rejected),
	)

	approved, err := e.reservations.GetByID(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	e.notifs.Transitioned(ctx, approved)
	e.notifyAll(ctx, rejected)

	return &ApprovalResult{
		Outcome:     OutcomeApproved,
		Reservation: approved,
		Competitors: reservationIDs(competitors),
		Rejected:    rejected,
	}, nil
}

// Reject moves a PENDING reservation to REJECTED. Any other state,
// including REJECTED itself, is an invalid transition.
func (e *Engine) Reject(ctx context.Context, actor domain.Actor, id int64, reason string) (*domain.Reservation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Rejected by admin"
	}

	err := e.reservations.Transition(ctx, id,
		[]domain.ReservationState{domain.StatePending}, domain.StateRejected, reason, &actor.UserID)
	var sc *domain.StateChangedError
	if errors.As(err, &sc) {
		return nil, fmt.Errorf("%w: reservation #%d is %s", domain.ErrInvalidTransition, id, sc.Actual)
	}
	if err != nil {
		return nil, err
	}

	r, err := e.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e.log.Info("reservation rejected", zap.Int64("reservation_id", id), zap.Int64("admin_id", actor.UserID))
	e.notifs.Transitioned(ctx, r)
	return r, nil
}

// ForceCancel cancels a PENDING or APPROVED reservation on the admin's
// authority, freeing its slot and resources at once. Reservations whose date
// has passed are finalized and cannot be cancelled.
func (e *Engine) ForceCancel(ctx context.Context, actor domain.Actor, id int64, reason string) (*domain.Reservation, error) {
	r, err := e.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.State == domain.StateFinalized || r.Elapsed(e.today()) {
		return nil, domain.ErrReservationFinalized
	}
	if r.State.Terminal() {
		return nil, fmt.Errorf("%w: reservation #%d is %s", domain.ErrInvalidTransition, id, r.State)
	}

	err = e.reservations.Transition(ctx, id, domain.ActiveStates, domain.StateCancelled,
		"Cancelled by admin: "+strings.TrimSpace(reason), &actor.UserID)
	if err != nil {
		return nil, err
	}

	r, err = e.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e.log.Info("reservation force-cancelled", zap.Int64("reservation_id", id), zap.Int64("admin_id", actor.UserID))
	e.notifs.Transitioned(ctx, r)
	return r, nil
}

// Queue pages through reservations for the admin dashboard, optionally
// filtered by state and space.
func (e *Engine) Queue(ctx context.Context, req QueueRequest) (*QueueResult, error) {
	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	items, total, err := e.reservations.List(ctx, repository.ListFilter{
		State:   req.State,
		SpaceID: req.SpaceID,
		Limit:   limit,
		Offset:  (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	return &QueueResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// FinalizeElapsed marks APPROVED reservations dated before today as
// FINALIZED and returns how many rows changed.
func (e *Engine) FinalizeElapsed(ctx context.Context) (int64, error) {
	n, err := e.reservations.FinalizeElapsed(ctx, e.today())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.log.Info("finalized elapsed reservations", zap.Int64("count", n))
	}
	return n, nil
}

func withdrawn(id int64, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.StateChangedError{ReservationID: id, Expected: domain.StatePending}
	}
	return err
}

// conflicts fails with SpaceOccupiedError when an APPROVED reservation
// overlaps r and otherwise returns the overlapping PENDING competitors.
func (e *Engine) conflicts(ctx context.Context, reservations *repository.ReservationRepository, r *domain.Reservation) ([]domain.Reservation, error) {
	overlapping, err := reservations.Overlapping(ctx, r.SpaceID, r.Slot(), domain.ActiveStates, r.ID)
	if err != nil {
		return nil, err
	}
	var occupied []int64
	competitors := make([]domain.Reservation, 0, len(overlapping))
	for _, o := range overlapping {
		if o.State == domain.StateApproved {
			occupied = append(occupied, o.ID)
			continue
		}
		competitors = append(competitors, o)
	}
	if len(occupied) > 0 {
		return nil, &domain.SpaceOccupiedError{ReservationID: r.ID, ConflictIDs: occupied}
	}
	return competitors, nil
}

// checkStock locks r's resource rows in id order and verifies each line
// still fits beside the other APPROVED reservations in the window.
func (e *Engine) checkStock(ctx context.Context, reservations *repository.ReservationRepository, resources *repository.ResourceRepository, r *domain.Reservation) error {
	if len(r.Items) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(r.Items))
	for _, it := range r.Items {
		ids = append(ids, it.ResourceID)
	}
	locked, err := resources.LockByIDs(ctx, ids)
	if err != nil {
		return err
	}

	demands := make([]ledger.Demand, 0, len(r.Items))
	for _, it := range r.Items {
		res, ok := locked[it.ResourceID]
		if !ok {
			return fmt.Errorf("resource #%d of reservation #%d: %w", it.ResourceID, r.ID, domain.ErrNotFound)
		}
		demands = append(demands, ledger.Demand{Resource: res, Quantity: it.Quantity})
	}

	return ledger.New(reservations, resources).
		Check(ctx, demands, r.Slot(), []domain.ReservationState{domain.StateApproved}, r.ID)
}

func (e *Engine) notifyAll(ctx context.Context, ids []int64) {
	for _, id := range ids {
		r, err := e.reservations.GetByID(ctx, id)
		if err != nil {
			e.log.Warn("notify: reload failed", zap.Int64("reservation_id", id), zap.Error(err))
			continue
		}
		e.notifs.Transitioned(ctx, r)
	}
}

func (e *Engine) today() string {
	return e.now().In(e.loc).Format(domain.DateLayout)
}

func reservationIDs(rs []domain.Reservation) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
