package models

import (
	"context"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"gorm.io/gorm"
)

// Outbox publish statuses for NotificationRecord.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// NotificationRecord is a transactional-outbox row. Domain transactions
// append rows; the dispatcher publishes them to Pub/Sub after commit so a
// rollback never leaks a notification.
type NotificationRecord struct {
	ID             int    `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	Type           string `gorm:"size:100;not null" json:"type"`
	ReferenceType  string `gorm:"size:10;not null;index:idx_outbox_ref,priority:1" json:"reference_type"`
	ReferenceId    int    `gorm:"not null;index:idx_outbox_ref,priority:2" json:"reference_id"`
	OrganizationId int    `gorm:"not null;index" json:"organization_id"`
	OriginUserId   int    `json:"origin_user_id"`
	Payload        []byte `gorm:"type:blob" json:"payload"`

	PublishStatus    string     `gorm:"size:20;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (n *NotificationRecord) GetId() int {
	return n.ID
}

// ConvertToNotificationMessage maps an outbox row onto the wire shape.
func ConvertToNotificationMessage(record NotificationRecord) config.NotificationMessage {
	return config.NotificationMessage{
		ID:             record.ID,
		Type:           record.Type,
		ReferenceId:    record.ReferenceId,
		ReferenceType:  record.ReferenceType,
		OrganizationId: record.OrganizationId,
		OriginUserId:   record.OriginUserId,
		OccurredAt:     record.CreatedAt,
		Payload:        record.Payload,
		CorrelationId:  record.CorrelationId,
	}
}

// EnqueueNotificationTx appends an outbox row inside the caller's
// transaction so the notification commits or rolls back with the domain
// change. Delivery happens after commit, from the dispatcher.
func EnqueueNotificationTx(ctx context.Context, tx *gorm.DB, notifType string, referenceId int, referenceType string, organizationId int) error {
	record := &NotificationRecord{
		Type:           notifType,
		ReferenceType:  referenceType,
		ReferenceId:    referenceId,
		OrganizationId: organizationId,
		OriginUserId:   utils.GetUserIdFromContext(ctx),
		PublishStatus:  OutboxPublishStatusPending,
		CorrelationId:  utils.GetCorrelationIdFromContext(ctx),
	}
	return tx.Create(record).Error
}
