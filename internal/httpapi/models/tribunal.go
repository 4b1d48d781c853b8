package models

import "time"

// TribunalUpdate is an immutable record from the court registry feed.
// The ID is assigned by the registry, not by us. The feed is shared by
// the whole practice; who gets notified about an update is decided by
// who tracks its case number, not by a column here.
type TribunalUpdate struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	CaseNumber  string    `gorm:"index" json:"case_number"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status,omitempty"`
	Court       string    `json:"court,omitempty"`
	Division    string    `json:"division,omitempty"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (TribunalUpdate) TableName() string {
	return "tribunal_updates"
}

// TrackedCaseNumber is one case identifier a user has opted into polling.
// Inserts are deduplicated by diffing against existing rows, not by a
// unique constraint.
type TrackedCaseNumber struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;index" json:"user_id"`
	CaseNumber string    `gorm:"not null" json:"case_number"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (TrackedCaseNumber) TableName() string {
	return "tracked_case_numbers"
}
