package models

import "time"

// NotificationType identifies what a notification is about
type NotificationType string

const (
	TypeContractExpiring NotificationType = "contract_expiring"
	TypeContractExpired  NotificationType = "contract_expired"
	TypeDeadline         NotificationType = "deadline"
	TypeUrgent           NotificationType = "urgent"
	TypePaymentDue       NotificationType = "payment_due"
	TypeDocumentRequired NotificationType = "document_required"
	TypeHearing          NotificationType = "hearing"
	TypeCustom           NotificationType = "custom"
)

// Priority levels, always derived from days remaining (see notification.PriorityForDays)
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Notification struct {
	ID           string            `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string            `gorm:"type:uuid;not null;index" json:"user_id"`
	Type         NotificationType  `gorm:"not null" json:"type"`
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	EntityType   string            `json:"entity_type"` // contract, process, invoice, tribunal_case
	EntityID     string            `gorm:"index" json:"entity_id"`
	EntityName   string            `json:"entity_name"`
	Priority     Priority          `gorm:"not null" json:"priority"`
	Read         bool              `gorm:"default:false" json:"read"`
	CreatedAt    time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	ScheduledFor *time.Time        `json:"scheduled_for,omitempty"`
	Metadata     map[string]string `gorm:"serializer:json" json:"metadata,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
