package reservation

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusreserve/internal/domain"
	"campusreserve/internal/modules/ledger"
	"campusreserve/internal/pkg/validator"
	"campusreserve/internal/repository"
)

type Service struct {
	db           *gorm.DB
	reservations *repository.ReservationRepository
	spaces       *repository.SpaceRepository
	resources    *repository.ResourceRepository
	validator    *Validator
	notifs       Notifier
	attachments  AttachmentStore
	log          *zap.Logger
	loc          *time.Location
	now          func() time.Time
}

func NewService(
	db *gorm.DB,
	v *Validator,
	notifs Notifier,
	attachments AttachmentStore,
	log *zap.Logger,
) *Service {
	return &Service{
		db:           db,
		reservations: repository.NewReservationRepository(db),
		spaces:       repository.NewSpaceRepository(db),
		resources:    repository.NewResourceRepository(db),
		validator:    v,
		notifs:       notifs,
		attachments:  attachments,
		log:          log,
		loc:          v.loc,
		now:          time.Now,
	}
}

// Submit validates the request and stores it as PENDING. The space row and
// then the resource rows are locked while the active flag is re-read and the
// remaining stock is checked against every PENDING and APPROVED reservation
// overlapping the slot.
func (s *Service) Submit(ctx context.Context, actor domain.Actor, req SubmitRequest) (*domain.Reservation, error) {
	slot, items, err := s.prepare(ctx, req, 0)
	if err != nil {
		return nil, err
	}

	r := &domain.Reservation{
		RequesterID: actor.UserID,
		SpaceID:     req.SpaceID,
		Date:        slot.Date,
		StartTime:   slot.Start,
		EndTime:     slot.End,
		Reason:      strings.TrimSpace(req.Reason),
		State:       domain.StatePending,
		Items:       items,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockActiveSpace(ctx, tx, req.SpaceID); err != nil {
			return err
		}
		if err := s.checkStock(ctx, tx, items, slot, 0); err != nil {
			return err
		}
		return s.reservations.WithTx(tx).Create(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.reservations.GetByID(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("reservation submitted",
		zap.Int64("reservation_id", created.ID),
		zap.Int64("requester_id", actor.UserID),
		zap.Int64("space_id", created.SpaceID),
		zap.String("date", created.Date),
	)
	s.notifs.Submitted(ctx, created)
	return created, nil
}

// Edit rewrites a PENDING reservation owned by actor. Its resource items are
// replaced wholesale.
func (s *Service) Edit(ctx context.Context, actor domain.Actor, id int64, req SubmitRequest) (*domain.Reservation, error) {
	cur, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.RequesterID != actor.UserID {
		return nil, domain.ErrForbidden
	}
	if cur.State != domain.StatePending {
		return nil, domain.ErrNotEditable
	}

	slot, items, err := s.prepare(ctx, req, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.reservations.WithTx(tx)
		if err := s.lockActiveSpace(ctx, tx, req.SpaceID); err != nil {
			return err
		}
		if _, err := repo.LockByID(ctx, id); err != nil {
			return err
		}
		if err := s.checkStock(ctx, tx, items, slot, id); err != nil {
			return err
		}
		if err := repo.UpdatePending(ctx, &domain.Reservation{
			ID:        id,
			SpaceID:   req.SpaceID,
			Date:      slot.Date,
			StartTime: slot.Start,
			EndTime:   slot.End,
			Reason:    strings.TrimSpace(req.Reason),
		}); err != nil {
			return err
		}
		return repo.ReplaceItems(ctx, id, items)
	})
	if err != nil {
		return nil, err
	}
	return s.reservations.GetByID(ctx, id)
}

// Cancel withdraws actor's reservation. A PENDING request is deleted since
// it never held anything; an APPROVED one becomes CANCELLED with the reason.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id int64, reason string) (*CancelResult, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.RequesterID != actor.UserID {
		return nil, domain.ErrForbidden
	}

	switch r.State {
	case domain.StatePending:
		if err := s.reservations.DeletePending(ctx, id); err != nil {
			return nil, err
		}
		s.log.Info("pending reservation withdrawn", zap.Int64("reservation_id", id), zap.Int64("requester_id", actor.UserID))
		return &CancelResult{Deleted: true}, nil

	case domain.StateApproved:
		if r.Elapsed(s.today()) {
			return nil, domain.ErrReservationFinalized
		}
		reason = strings.TrimSpace(reason)
		if reason == "" {
			reason = "Cancelled by requester"
		}
		err := s.reservations.Transition(ctx, id,
			[]domain.ReservationState{domain.StateApproved}, domain.StateCancelled, reason, &actor.UserID)
		if err != nil {
			return nil, err
		}
		updated, err := s.reservations.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.notifs.Transitioned(ctx, updated)
		return &CancelResult{Reservation: updated}, nil

	default:
		return nil, fmt.Errorf("%w: reservation is %s", domain.ErrInvalidTransition, r.State)
	}
}

// Get returns a reservation visible to actor: their own, or any for admins.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.RequesterID != actor.UserID && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return r, nil
}

// ListMine pages through the actor's own reservations, newest date first.
func (s *Service) ListMine(ctx context.Context, actor domain.Actor, req ListRequest) (*ListResult, error) {
	page, limit := normalizePage(req.Page, req.Limit)
	items, total, err := s.reservations.List(ctx, repository.ListFilter{
		RequesterID: actor.UserID,
		State:       req.State,
		Limit:       limit,
		Offset:      (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Attach stores a supporting document (pdf, xls or xlsx up to 5 MB) and
// records its key on the reservation, replacing any earlier one.
func (s *Service) Attach(ctx context.Context, actor domain.Actor, id int64, filename string, size int64, body io.Reader) (*domain.Reservation, error) {
	if s.attachments == nil {
		return nil, ErrAttachmentsDisabled
	}
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.RequesterID != actor.UserID {
		return nil, domain.ErrForbidden
	}
	if r.State.Terminal() {
		return nil, fmt.Errorf("%w: reservation is %s", domain.ErrInvalidTransition, r.State)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := allowedAttachmentTypes[ext]
	var vs []domain.Violation
	if !ok {
		vs = append(vs, domain.Violation{Field: "file", Code: "attachment_type", Message: "Only PDF or Excel (.xls, .xlsx) files are accepted"})
	}
	if size > maxAttachmentSize {
		vs = append(vs, domain.Violation{Field: "file", Code: "attachment_size", Message: "Attachments may not exceed 5 MB"})
	}
	if len(vs) > 0 {
		return nil, &domain.ValidationError{Violations: vs}
	}

	key := fmt.Sprintf("reservations/%d/%s%s", id, uuid.NewString(), ext)
	if err := s.attachments.Put(ctx, key, contentType, io.LimitReader(body, maxAttachmentSize), size); err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}
	if err := s.reservations.SetAttachment(ctx, id, key); err != nil {
		return nil, err
	}
	r.AttachmentKey = key
	return r, nil
}

// AttachmentURL returns a short-lived download link for the document.
func (s *Service) AttachmentURL(ctx context.Context, actor domain.Actor, id int64) (string, error) {
	if s.attachments == nil {
		return "", ErrAttachmentsDisabled
	}
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return "", err
	}
	if r.AttachmentKey == "" {
		return "", ErrNoAttachment
	}
	return s.attachments.PresignGet(ctx, r.AttachmentKey)
}

// prepare runs field checks and the submission rules, returning the
// normalized slot and merged resource items.
func (s *Service) prepare(ctx context.Context, req SubmitRequest, selfID int64) (domain.Slot, []domain.ReservationResource, error) {
	if errs := validator.Validate(req); errs != nil {
		return domain.Slot{}, nil, fieldErrors(errs)
	}

	start, _ := domain.ParseClock(req.StartTime)
	end, _ := domain.ParseClock(req.EndTime)
	slot := domain.Slot{Date: req.Date, Start: start, End: end}

	space, err := s.spaces.GetByID(ctx, req.SpaceID)
	if err != nil {
		return domain.Slot{}, nil, err
	}

	existing, err := s.reservations.ForSpaceDate(ctx, space.ID, slot.Date, domain.ActiveStates, selfID)
	if err != nil {
		return domain.Slot{}, nil, err
	}
	if vs := s.validator.Validate(Candidate{Slot: slot, SpaceActive: space.IsActive}, existing, s.now()); len(vs) > 0 {
		return domain.Slot{}, nil, &domain.ValidationError{Violations: vs}
	}
	items, err := mergeItems(req.Items)
	if err != nil {
		return domain.Slot{}, nil, err
	}
	return slot, items, nil
}

// lockActiveSpace takes the space row lock first, in the same order as
// admission, and fails if the space was deactivated since validation.
func (s *Service) lockActiveSpace(ctx context.Context, tx *gorm.DB, spaceID int64) error {
	space, err := s.spaces.WithTx(tx).LockByID(ctx, spaceID)
	if err != nil {
		return err
	}
	if !space.IsActive {
		return domain.SpaceInactive()
	}
	return nil
}

// checkStock locks the requested resource rows and verifies the slot still
// has room for every item among PENDING and APPROVED reservations.
func (s *Service) checkStock(ctx context.Context, tx *gorm.DB, items []domain.ReservationResource, slot domain.Slot, selfID int64) error {
	if len(items) == 0 {
		return nil
	}
	resources := s.resources.WithTx(tx)
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ResourceID)
	}
	locked, err := resources.LockByIDs(ctx, ids)
	if err != nil {
		return err
	}

	demands := make([]ledger.Demand, 0, len(items))
	var unknown []domain.Violation
	for _, it := range items {
		res, ok := locked[it.ResourceID]
		if !ok {
			unknown = append(unknown, domain.Violation{
				Field:   "items",
				Code:    "unknown_resource",
				Message: fmt.Sprintf("Resource #%d does not exist", it.ResourceID),
			})
			continue
		}
		demands = append(demands, ledger.Demand{Resource: res, Quantity: it.Quantity})
	}
	if len(unknown) > 0 {
		return &domain.ValidationError{Violations: unknown}
	}

	return ledger.New(s.reservations.WithTx(tx), resources).
		Check(ctx, demands, slot, domain.ActiveStates, selfID)
}

func (s *Service) today() string {
	return s.now().In(s.loc).Format(domain.DateLayout)
}

// mergeItems folds duplicate resource lines into one, ordered by resource id.
// Each line and each merged total must stay within domain.MaxItemQuantity.
func mergeItems(in []ItemRequest) ([]domain.ReservationResource, error) {
	qty := make(map[int64]int, len(in))
	for _, it := range in {
		if err := domain.CheckQuantity(it.ResourceID, it.Quantity); err != nil {
			return nil, err
		}
		qty[it.ResourceID] += it.Quantity
		if err := domain.CheckQuantity(it.ResourceID, qty[it.ResourceID]); err != nil {
			return nil, err
		}
	}
	out := make([]domain.ReservationResource, 0, len(qty))
	for id, q := range qty {
		out = append(out, domain.ReservationResource{ResourceID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out, nil
}

func fieldErrors(errs map[string]string) *domain.ValidationError {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	vs := make([]domain.Violation, 0, len(fields))
	for _, f := range fields {
		vs = append(vs, domain.Violation{
			Field:   f,
			Code:    errs[f],
			Message: fmt.Sprintf("%s failed %q check", f, errs[f]),
		})
	}
	return &domain.ValidationError{Violations: vs}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}
