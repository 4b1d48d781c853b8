package notification

import (
	"context"
	"fmt"
	"math"
	"time"
	"unicode"

	"lexhub/internal/httpapi/models"
)

// Entity is the evaluator's view of a contract, process step, invoice,
// or similar record with a due date.
type Entity struct {
	ID      string
	Name    string
	DueDate *time.Time
	Open    bool
}

// PriorityForDays maps days remaining to a priority. This is the single
// source of truth; no other code assigns priority from dates.
func PriorityForDays(days int) models.Priority {
	switch {
	case days <= 0:
		return models.PriorityUrgent
	case days <= 1:
		return models.PriorityHigh
	case days <= 7:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// DaysRemaining counts whole days until due, rounding up, so a deadline
// later today still counts as day 0... +1h tomorrow counts as 1.
func DaysRemaining(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

// derivedType picks the notification type for a category given how many
// days remain. Past-due contracts become contract_expired; past-due
// generic deadlines become urgent.
func derivedType(category string, days int) models.NotificationType {
	switch category {
	case models.CategoryContract:
		if days <= 0 {
			return models.TypeContractExpired
		}
		return models.TypeContractExpiring
	case models.CategoryPayment:
		return models.TypePaymentDue
	case models.CategoryDocument:
		return models.TypeDocumentRequired
	case models.CategoryHearing:
		return models.TypeHearing
	default:
		if days <= 0 {
			return models.TypeUrgent
		}
		return models.TypeDeadline
	}
}

// CheckEntities runs the deadline rules over freshly loaded entity data.
// It is invoked by callers when data loads, not on a timer. For each
// open entity whose days-remaining hits one of the category's offsets,
// a notification is created unless an unread one already matches the
// dedup key (entity id, derived type, unread).
func (s *Service) CheckEntities(ctx context.Context, userID, category string, entities []Entity) {
	settings := s.settingsOrDefault(ctx, userID)
	if !settings.EnabledFor(category) {
		return
	}
	offsets := settings.OffsetsFor(category)
	if len(offsets) == 0 {
		return
	}

	unread, err := s.repo.UnreadByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("rule_eval_unread_lookup_failed", "error", err)
	}

	now := s.now()
	for _, entity := range entities {
		if !entity.Open || entity.DueDate == nil {
			continue
		}
		days := DaysRemaining(*entity.DueDate, now)
		if !containsOffset(offsets, days) {
			continue
		}
		notifType := derivedType(category, days)
		if hasUnreadMatch(unread, entity.ID, notifType) {
			continue
		}

		created, err := s.Create(ctx, userID, CreateInput{
			Type:       notifType,
			Title:      ruleTitle(category, days),
			Message:    ruleMessage(entity.Name, days),
			EntityType: category,
			EntityID:   entity.ID,
			EntityName: entity.Name,
			Priority:   PriorityForDays(days),
		})
		if err != nil {
			s.logger.Warn("rule_eval_create_failed", "entity_id", entity.ID, "error", err)
			continue
		}
		// Guard against a second hit for the same entity in this batch.
		unread = append(unread, *created)
	}
}

func containsOffset(offsets []int, days int) bool {
	for _, offset := range offsets {
		if offset == days {
			return true
		}
	}
	return false
}

func hasUnreadMatch(unread []models.Notification, entityID string, notifType models.NotificationType) bool {
	for _, n := range unread {
		if !n.Read && n.EntityID == entityID && n.Type == notifType {
			return true
		}
	}
	return false
}

func ruleTitle(category string, days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("Overdue %s", category)
	case days == 0:
		return fmt.Sprintf("%s due today", titleCase(category))
	case days == 1:
		return fmt.Sprintf("%s due tomorrow", titleCase(category))
	default:
		return fmt.Sprintf("%s due in %d days", titleCase(category), days)
	}
}

func ruleMessage(name string, days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("%s is %d days overdue", name, -days)
	case days == 0:
		return fmt.Sprintf("%s is due today", name)
	default:
		return fmt.Sprintf("%s is due in %d days", name, days)
	}
}

func titleCase(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
