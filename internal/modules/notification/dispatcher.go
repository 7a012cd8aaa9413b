package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"campusreserve/internal/domain"
)

// Dispatcher turns reservation lifecycle events into notices and hands them
// to every sink. It is called after the owning transaction commits; delivery
// errors are logged and never returned to the caller.
type Dispatcher struct {
	sinks   []Sink
	admins  AdminDirectory
	log     *zap.Logger
	timeout time.Duration
}

func NewDispatcher(admins AdminDirectory, log *zap.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{sinks: sinks, admins: admins, log: log, timeout: timeout}
}

// Submitted alerts administrators that a new request is waiting.
func (d *Dispatcher) Submitted(ctx context.Context, r *domain.Reservation) {
	ids, err := d.admins.AdminIDs(ctx)
	if err != nil {
		d.log.Warn("notify: admin lookup failed", zap.Int64("reservation_id", r.ID), zap.Error(err))
		return
	}
	d.emit(ctx, Notice{
		UserIDs: ids,
		Type:    domain.NotifReservationSubmitted,
		Level:   domain.LevelInfo,
		Title:   "New reservation request",
		Message: fmt.Sprintf("User #%d requested %s on %s (%s-%s).",
			r.RequesterID, spaceName(r), r.Date, r.StartTime, r.EndTime),
		Link:          "/admin/reservations?state=PENDING",
		ReservationID: r.ID,
		SpaceID:       r.SpaceID,
	})
}

// Transitioned tells the requester their reservation changed state.
func (d *Dispatcher) Transitioned(ctx context.Context, r *domain.Reservation) {
	n := Notice{
		UserIDs:       []int64{r.RequesterID},
		Title:         "Your reservation was updated",
		Link:          fmt.Sprintf("/reservations/%d", r.ID),
		ReservationID: r.ID,
		SpaceID:       r.SpaceID,
	}
	subject := fmt.Sprintf("Your reservation for %s on %s", spaceName(r), r.Date)

	switch r.State {
	case domain.StateApproved:
		n.Type, n.Level = domain.NotifReservationApproved, domain.LevelSuccess
		n.Message = subject + " was APPROVED."
	case domain.StateRejected:
		n.Type, n.Level = domain.NotifReservationRejected, domain.LevelDanger
		n.Message = subject + " was REJECTED." + withReason(r.StateReason)
	case domain.StateCancelled:
		n.Type, n.Level = domain.NotifReservationCancelled, domain.LevelWarning
		n.Message = subject + " was CANCELLED." + withReason(r.StateReason)
	default:
		n.Level = domain.LevelInfo
		n.Message = fmt.Sprintf("%s changed to %s.", subject, r.State)
	}
	d.emit(ctx, n)
}

// SpaceDeactivated warns every requester who lost a reservation because
// the space was taken out of service.
func (d *Dispatcher) SpaceDeactivated(ctx context.Context, s *domain.Space, affected []domain.Reservation) {
	seen := make(map[int64]struct{}, len(affected))
	users := make([]int64, 0, len(affected))
	for _, r := range affected {
		if _, ok := seen[r.RequesterID]; ok {
			continue
		}
		seen[r.RequesterID] = struct{}{}
		users = append(users, r.RequesterID)
	}
	if len(users) == 0 {
		return
	}
	d.emit(ctx, Notice{
		UserIDs: users,
		Type:    domain.NotifSpaceDeactivated,
		Level:   domain.LevelWarning,
		Title:   "Space deactivated",
		Message: fmt.Sprintf("The space '%s' was deactivated. Upcoming reservations there were cancelled; check your history.", s.Name),
		SpaceID: s.ID,
	})
}

func (d *Dispatcher) emit(ctx context.Context, n Notice) {
	if len(n.UserIDs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	for _, s := range d.sinks {
		if err := s.Deliver(ctx, n); err != nil {
			d.log.Warn("notify: delivery failed",
				zap.String("sink", fmt.Sprintf("%T", s)),
				zap.String("type", string(n.Type)),
				zap.Int64("reservation_id", n.ReservationID),
				zap.Error(err),
			)
		}
	}
}

func spaceName(r *domain.Reservation) string {
	if r.Space != nil && r.Space.Name != "" {
		return r.Space.Name
	}
	return fmt.Sprintf("space #%d", r.SpaceID)
}

func withReason(reason string) string {
	if reason == "" {
		return ""
	}
	return " Reason: " + reason
}

// Nop discards every event.
type Nop struct{}

func (Nop) Submitted(context.Context, *domain.Reservation)                         {}
func (Nop) Transitioned(context.Context, *domain.Reservation)                      {}
func (Nop) SpaceDeactivated(context.Context, *domain.Space, []domain.Reservation) {}
