package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusreserve/internal/domain"
	"campusreserve/internal/modules/ledger"
	"campusreserve/internal/pkg/validator"
	"campusreserve/internal/repository"
)

// Service manages the space registry and the resource catalogue.
type Service struct {
	db           *gorm.DB
	spaces       *repository.SpaceRepository
	resources    *repository.ResourceRepository
	reservations *repository.ReservationRepository
	ledger       *ledger.Ledger
	notifs       Notifier
	log          *zap.Logger
	loc          *time.Location
	now          func() time.Time
}

func NewService(db *gorm.DB, notifs Notifier, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	reservations := repository.NewReservationRepository(db)
	resources := repository.NewResourceRepository(db)
	return &Service{
		db:           db,
		spaces:       repository.NewSpaceRepository(db),
		resources:    resources,
		reservations: reservations,
		ledger:       ledger.New(reservations, resources),
		notifs:       notifs,
		log:          log,
		loc:          loc,
		now:          time.Now,
	}
}

/* ---------- SPACES ---------- */

func (s *Service) CreateSpace(ctx context.Context, req SpaceRequest) (*domain.Space, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	sp := &domain.Space{
		Name:     strings.TrimSpace(req.Name),
		Location: strings.TrimSpace(req.Location),
		Capacity: req.Capacity,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := s.spaces.Create(ctx, sp); err != nil {
		return nil, duplicate(err, "name")
	}
	return sp, nil
}

// UpdateSpace edits the descriptive fields. The active flag only changes
// through ActivateSpace and DeactivateSpace.
func (s *Service) UpdateSpace(ctx context.Context, id int64, req SpaceRequest) (*domain.Space, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	sp, err := s.spaces.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sp.Name = strings.TrimSpace(req.Name)
	sp.Location = strings.TrimSpace(req.Location)
	sp.Capacity = req.Capacity
	if err := s.spaces.Update(ctx, sp); err != nil {
		return nil, duplicate(err, "name")
	}
	return s.spaces.GetByID(ctx, id)
}

func (s *Service) GetSpace(ctx context.Context, id int64) (*domain.Space, error) {
	return s.spaces.GetByID(ctx, id)
}

func (s *Service) ListSpaces(ctx context.Context, activeOnly bool) ([]domain.Space, error) {
	return s.spaces.List(ctx, activeOnly)
}

func (s *Service) IsActive(ctx context.Context, id int64) (bool, error) {
	sp, err := s.spaces.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return sp.IsActive, nil
}

func (s *Service) ActivateSpace(ctx context.Context, id int64) (*domain.Space, error) {
	if _, err := s.spaces.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.spaces.SetActive(ctx, id, true); err != nil {
		return nil, err
	}
	return s.spaces.GetByID(ctx, id)
}

// DeactivateSpace takes the space out of service and cancels its PENDING and
// APPROVED reservations dated today or later. Past and terminal reservations
// are left alone. Deactivating an inactive space changes nothing.
func (s *Service) DeactivateSpace(ctx context.Context, actor domain.Actor, id int64) (*DeactivationResult, error) {
	var (
		space     *domain.Space
		cancelled []domain.Reservation
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		spaces := s.spaces.WithTx(tx)
		reservations := s.reservations.WithTx(tx)

		var err error
		space, err = spaces.LockByID(ctx, id)
		if err != nil {
			return err
		}
		changed, err := spaces.SetActive(ctx, id, false)
		if err != nil {
			return err
		}
		space.IsActive = false
		if !changed {
			return nil
		}

		affected, err := reservations.FutureActiveForSpace(ctx, id, s.today())
		if err != nil {
			return err
		}
		reason := fmt.Sprintf("System: space '%s' was deactivated.", space.Name)
		for _, r := range affected {
			err := reservations.Transition(ctx, r.ID, domain.ActiveStates, domain.StateCancelled, reason, actorID(actor))
			if repository.IsStateChanged(err) {
				continue
			}
			if err != nil {
				return err
			}
			r.State = domain.StateCancelled
			r.StateReason = reason
			cancelled = append(cancelled, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("space deactivated",
		zap.Int64("space_id", id),
		zap.Int("cancelled", len(cancelled)),
	)
	if len(cancelled) == 0 {
		return &DeactivationResult{Space: space, Cancelled: []domain.Reservation{}}, nil
	}
	s.notifs.SpaceDeactivated(ctx, space, cancelled)
	return &DeactivationResult{Space: space, Cancelled: cancelled}, nil
}

// DeleteSpace removes a space no reservation has ever referenced.
func (s *Service) DeleteSpace(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		spaces := s.spaces.WithTx(tx)
		if _, err := spaces.LockByID(ctx, id); err != nil {
			return err
		}
		n, err := spaces.CountReservations(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &domain.ReferentialConflictError{Entity: "space", ID: id, References: n}
		}
		return spaces.Delete(ctx, id)
	})
	return referenced(err, "space", id)
}

/* ---------- RESOURCES ---------- */

func (s *Service) CreateResource(ctx context.Context, req ResourceRequest) (*domain.Resource, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	res := &domain.Resource{
		Name:  strings.TrimSpace(req.Name),
		Code:  normalizeCode(req.Code),
		Stock: req.Stock,
	}
	if err := s.resources.Create(ctx, res); err != nil {
		return nil, duplicate(err, "name")
	}
	return res, nil
}

func (s *Service) UpdateResource(ctx context.Context, id int64, req ResourceRequest) (*domain.Resource, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	res, err := s.resources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res.Name = strings.TrimSpace(req.Name)
	res.Code = normalizeCode(req.Code)
	res.Stock = req.Stock
	if err := s.resources.Update(ctx, res); err != nil {
		return nil, duplicate(err, "name")
	}
	return s.resources.GetByID(ctx, id)
}

func (s *Service) GetResource(ctx context.Context, id int64) (*domain.Resource, error) {
	return s.resources.GetByID(ctx, id)
}

func (s *Service) ListResources(ctx context.Context) ([]domain.Resource, error) {
	return s.resources.List(ctx)
}

// DeleteResource removes a resource no reservation has ever requested.
func (s *Service) DeleteResource(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resources := s.resources.WithTx(tx)
		locked, err := resources.LockByIDs(ctx, []int64{id})
		if err != nil {
			return err
		}
		if _, ok := locked[id]; !ok {
			return domain.ErrNotFound
		}
		n, err := resources.CountAssociations(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &domain.ReferentialConflictError{Entity: "resource", ID: id, References: n}
		}
		return resources.Delete(ctx, id)
	})
	return referenced(err, "resource", id)
}

// referenced maps a foreign key failure from a reservation inserted after
// the count to the same conflict the count would have reported.
func referenced(err error, entity string, id int64) error {
	if repository.IsForeignKeyViolation(err) {
		return &domain.ReferentialConflictError{Entity: entity, ID: id}
	}
	return err
}

// Availability reports how many units of the resource are still free in
// the window, counting PENDING and APPROVED reservations.
func (s *Service) Availability(ctx context.Context, id int64, req AvailabilityRequest) (*Availability, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	start, _ := domain.ParseClock(req.Start)
	end, _ := domain.ParseClock(req.End)
	if end.Minutes() <= start.Minutes() {
		return nil, &domain.ValidationError{Violations: []domain.Violation{{
			Field: "end", Code: "ordering", Message: "End time must be after start time",
		}}}
	}

	res, err := s.resources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	slot := domain.Slot{Date: req.Date, Start: start, End: end}
	avail, err := s.ledger.Available(ctx, id, slot)
	if err != nil {
		return nil, err
	}
	return &Availability{
		ResourceID: id,
		Stock:      res.Stock,
		Available:  avail,
		Date:       slot.Date,
		Start:      string(start),
		End:        string(end),
	}, nil
}

func (s *Service) today() string {
	return s.now().In(s.loc).Format(domain.DateLayout)
}

func check(v any) error {
	errs := validator.Validate(v)
	if errs == nil {
		return nil
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	vs := make([]domain.Violation, 0, len(fields))
	for _, f := range fields {
		vs = append(vs, domain.Violation{Field: f, Code: errs[f], Message: fmt.Sprintf("%s failed %q check", f, errs[f])})
	}
	return &domain.ValidationError{Violations: vs}
}

func duplicate(err error, field string) error {
	if repository.IsUniqueViolation(err) {
		return &domain.ValidationError{Violations: []domain.Violation{{
			Field: field, Code: "duplicate", Message: fmt.Sprintf("%s is already taken", field),
		}}}
	}
	return err
}

func normalizeCode(code *string) *string {
	if code == nil {
		return nil
	}
	c := strings.TrimSpace(*code)
	if c == "" {
		return nil
	}
	return &c
}

func actorID(a domain.Actor) *int64 {
	if a.UserID == 0 {
		return nil
	}
	return &a.UserID
}
