package notification

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"

	"campusreserve/internal/domain"
)

type inboxWriter interface {
	CreateBatch(ctx context.Context, items []domain.Notification) error
}

// StoreSink persists one inbox row per recipient.
type StoreSink struct {
	repo inboxWriter
}

func NewStoreSink(repo inboxWriter) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Deliver(ctx context.Context, n Notice) error {
	data, err := json.Marshal(map[string]int64{
		"reservation_id": n.ReservationID,
		"space_id":       n.SpaceID,
	})
	if err != nil {
		return err
	}

	rows := make([]domain.Notification, 0, len(n.UserIDs))
	for _, uid := range n.UserIDs {
		rows = append(rows, domain.Notification{
			UserID:  uid,
			Type:    n.Type,
			Level:   n.Level,
			Title:   n.Title,
			Message: n.Message,
			Link:    n.Link,
			Data:    datatypes.JSON(data),
		})
	}
	return s.repo.CreateBatch(ctx, rows)
}

type eventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// QueueSink forwards notices to the message broker for external delivery
// (mail, push) by other services.
type QueueSink struct {
	pub eventPublisher
}

func NewQueueSink(pub eventPublisher) *QueueSink {
	return &QueueSink{pub: pub}
}

func (s *QueueSink) Deliver(ctx context.Context, n Notice) error {
	return s.pub.Publish(ctx, string(n.Type), n)
}
