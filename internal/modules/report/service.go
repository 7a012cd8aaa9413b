// Package report renders read-only views of decided reservations: a CSV
// export for administrators and a calendar feed of occupied slots.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"campusreserve/internal/domain"
)

// Source lists reservations in the given states dated within [from, to].
type Source interface {
	InStates(ctx context.Context, states []domain.ReservationState, from, to string) ([]domain.Reservation, error)
}

type Service struct {
	source   Source
	okStates []domain.ReservationState
}

func NewService(source Source, okStates []domain.ReservationState) *Service {
	if len(okStates) == 0 {
		okStates = []domain.ReservationState{domain.StateApproved}
	}
	return &Service{source: source, okStates: okStates}
}

var csvHeader = []string{
	"id", "requester_id", "space", "date", "start_time", "end_time",
	"duration_hours", "state", "reason", "resources",
}

// ExportCSV writes one row per reservation whose state counts for
// reporting, ordered by date and start time.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, from, to string) error {
	rows, err := s.source.InStates(ctx, s.okStates, from, to)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range rows {
		r := &rows[i]
		if err := cw.Write([]string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.RequesterID, 10),
			spaceName(r),
			r.Date,
			string(r.StartTime),
			string(r.EndTime),
			strconv.FormatFloat(durationHours(r), 'f', 2, 64),
			string(r.State),
			r.Reason,
			resourceSummary(r.Items),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type Event struct {
	ReservationID int64  `json:"reservation_id"`
	SpaceID       int64  `json:"space_id"`
	Title         string `json:"title"`
	Start         string `json:"start"`
	End           string `json:"end"`
	AllDay        bool   `json:"allDay"`
}

// Calendar returns APPROVED reservations as calendar events. Requester
// details are left out because every authenticated user can see the feed.
func (s *Service) Calendar(ctx context.Context, from, to string) ([]Event, error) {
	rows, err := s.source.InStates(ctx, []domain.ReservationState{domain.StateApproved}, from, to)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		events = append(events, Event{
			ReservationID: r.ID,
			SpaceID:       r.SpaceID,
			Title:         "Occupied: " + spaceName(r),
			Start:         fmt.Sprintf("%sT%s", r.Date, r.StartTime),
			End:           fmt.Sprintf("%sT%s", r.Date, r.EndTime),
		})
	}
	return events, nil
}

func durationHours(r *domain.Reservation) float64 {
	d := r.Slot().Duration()
	if d <= 0 {
		return 0
	}
	return d.Hours()
}

func resourceSummary(items []domain.ReservationResource) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		name := fmt.Sprintf("resource #%d", it.ResourceID)
		if it.Resource != nil {
			name = it.Resource.Name
		}
		parts = append(parts, fmt.Sprintf("%s x%d", name, it.Quantity))
	}
	return strings.Join(parts, "; ")
}

func spaceName(r *domain.Reservation) string {
	if r.Space != nil {
		return r.Space.Name
	}
	return fmt.Sprintf("space #%d", r.SpaceID)
}
