package models

import "time"

// Notification categories used by the deadline rule evaluator.
const (
	CategoryContract = "contract"
	CategoryDeadline = "deadline"
	CategoryPayment  = "payment"
	CategoryDocument = "document"
	CategoryHearing  = "hearing"
)

// NotificationSettings is one row per user, lazily created with defaults
// on first update and never deleted.
type NotificationSettings struct {
	UserID string `gorm:"primaryKey;type:uuid" json:"user_id"`

	// Quiet hours window in local time, "HH:MM"
	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   string `gorm:"default:'22:00'" json:"quiet_hours_start"`
	QuietHoursEnd     string `gorm:"default:'08:00'" json:"quiet_hours_end"`

	ContractEnabled bool `gorm:"default:true" json:"contract_enabled"`
	DeadlineEnabled bool `gorm:"default:true" json:"deadline_enabled"`
	PaymentEnabled  bool `gorm:"default:true" json:"payment_enabled"`
	DocumentEnabled bool `gorm:"default:true" json:"document_enabled"`
	HearingEnabled  bool `gorm:"default:true" json:"hearing_enabled"`

	// Day offsets before a due date at which a reminder fires
	ContractOffsets []int `gorm:"serializer:json" json:"contract_offsets"`
	DeadlineOffsets []int `gorm:"serializer:json" json:"deadline_offsets"`
	PaymentOffsets  []int `gorm:"serializer:json" json:"payment_offsets"`

	BrowserAlerts bool `gorm:"default:true" json:"browser_alerts"`
	EmailAlerts   bool `json:"email_alerts"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (NotificationSettings) TableName() string {
	return "notification_settings"
}

// DefaultSettings returns the settings a user gets before their first update.
func DefaultSettings(userID string) *NotificationSettings {
	return &NotificationSettings{
		UserID:          userID,
		QuietHoursStart: "22:00",
		QuietHoursEnd:   "08:00",
		ContractEnabled: true,
		DeadlineEnabled: true,
		PaymentEnabled:  true,
		DocumentEnabled: true,
		HearingEnabled:  true,
		ContractOffsets: []int{30, 15, 7, 1},
		DeadlineOffsets: []int{7, 3, 1},
		PaymentOffsets:  []int{7, 3, 1},
		BrowserAlerts:   true,
	}
}

// EnabledFor reports whether reminders are enabled for a category.
func (s *NotificationSettings) EnabledFor(category string) bool {
	switch category {
	case CategoryContract:
		return s.ContractEnabled
	case CategoryPayment:
		return s.PaymentEnabled
	case CategoryDocument:
		return s.DocumentEnabled
	case CategoryHearing:
		return s.HearingEnabled
	default:
		return s.DeadlineEnabled
	}
}

// OffsetsFor returns the day-offset array for a category. Document and
// hearing reminders share the generic deadline offsets.
func (s *NotificationSettings) OffsetsFor(category string) []int {
	switch category {
	case CategoryContract:
		return s.ContractOffsets
	case CategoryPayment:
		return s.PaymentOffsets
	default:
		return s.DeadlineOffsets
	}
}

// SettingsPatch carries a partial settings update; nil fields are left as-is.
type SettingsPatch struct {
	QuietHoursEnabled *bool   `json:"quiet_hours_enabled,omitempty"`
	QuietHoursStart   *string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd     *string `json:"quiet_hours_end,omitempty"`
	ContractEnabled   *bool   `json:"contract_enabled,omitempty"`
	DeadlineEnabled   *bool   `json:"deadline_enabled,omitempty"`
	PaymentEnabled    *bool   `json:"payment_enabled,omitempty"`
	DocumentEnabled   *bool   `json:"document_enabled,omitempty"`
	HearingEnabled    *bool   `json:"hearing_enabled,omitempty"`
	ContractOffsets   []int   `json:"contract_offsets,omitempty"`
	DeadlineOffsets   []int   `json:"deadline_offsets,omitempty"`
	PaymentOffsets    []int   `json:"payment_offsets,omitempty"`
	BrowserAlerts     *bool   `json:"browser_alerts,omitempty"`
	EmailAlerts       *bool   `json:"email_alerts,omitempty"`
}

// Apply merges the patch into the settings record.
func (s *NotificationSettings) Apply(p *SettingsPatch) {
	if p.QuietHoursEnabled != nil {
		s.QuietHoursEnabled = *p.QuietHoursEnabled
	}
	if p.QuietHoursStart != nil {
		s.QuietHoursStart = *p.QuietHoursStart
	}
	if p.QuietHoursEnd != nil {
		s.QuietHoursEnd = *p.QuietHoursEnd
	}
	if p.ContractEnabled != nil {
		s.ContractEnabled = *p.ContractEnabled
	}
	if p.DeadlineEnabled != nil {
		s.DeadlineEnabled = *p.DeadlineEnabled
	}
	if p.PaymentEnabled != nil {
		s.PaymentEnabled = *p.PaymentEnabled
	}
	if p.DocumentEnabled != nil {
		s.DocumentEnabled = *p.DocumentEnabled
	}
	if p.HearingEnabled != nil {
		s.HearingEnabled = *p.HearingEnabled
	}
	if p.ContractOffsets != nil {
		s.ContractOffsets = p.ContractOffsets
	}
	if p.DeadlineOffsets != nil {
		s.DeadlineOffsets = p.DeadlineOffsets
	}
	if p.PaymentOffsets != nil {
		s.PaymentOffsets = p.PaymentOffsets
	}
	if p.BrowserAlerts != nil {
		s.BrowserAlerts = *p.BrowserAlerts
	}
	if p.EmailAlerts != nil {
		s.EmailAlerts = *p.EmailAlerts
	}
}
