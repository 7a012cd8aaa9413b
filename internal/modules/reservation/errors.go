package reservation

import "errors"

var (
	ErrAttachmentsDisabled = errors.New("attachment storage is not configured")
	ErrNoAttachment        = errors.New("reservation has no attachment")
)

const (
	maxAttachmentSize = 5 << 20
)

var allowedAttachmentTypes = map[string]string{
	".pdf":  "application/pdf",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}
