package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lexhub/internal/httpapi/models"
)

const retentionWindow = 30 * 24 * time.Hour

// Repository is the dual-tier notification store the service writes
// through. Storage failures are already degraded inside the repository;
// any error surfacing here is logged and swallowed so callers never see
// backend trouble.
type Repository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	UnreadByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, userID, id string) error
	MarkAllAsRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID, id string) error
	PruneLocal(ctx context.Context, cutoff time.Time)
}

type SettingsRepository interface {
	Get(ctx context.Context, userID string) (*models.NotificationSettings, error)
	Save(ctx context.Context, s *models.NotificationSettings) error
}

// Dispatcher decides whether a freshly created notification surfaces a
// platform alert. It must never fail the creation path.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *models.Notification, settings *models.NotificationSettings)
}

// CreateInput is the caller-facing shape for explicit notification
// creation; rule evaluation builds the same thing internally.
type CreateInput struct {
	Type         models.NotificationType `json:"type"`
	Title        string                  `json:"title"`
	Message      string                  `json:"message"`
	EntityType   string                  `json:"entity_type"`
	EntityID     string                  `json:"entity_id"`
	EntityName   string                  `json:"entity_name"`
	Priority     models.Priority         `json:"priority"`
	ScheduledFor *time.Time              `json:"scheduled_for,omitempty"`
	Metadata     map[string]string       `json:"metadata,omitempty"`
}

type Service struct {
	repo     Repository
	settings SettingsRepository
	alerts   Dispatcher
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, settings SettingsRepository, alerts Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		settings: settings,
		alerts:   alerts,
		logger:   logger,
		now:      time.Now,
	}
}

// Create persists a notification and then attempts an alert. Alert
// failure never rolls back the record; storage failure degrades to the
// local tier inside the repository.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*models.Notification, error) {
	if input.Type == "" {
		return nil, errors.New("notification type is required")
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}

	n := &models.Notification{
		ID:           uuid.NewString(),
		UserID:       userID,
		Type:         input.Type,
		Title:        input.Title,
		Message:      input.Message,
		EntityType:   input.EntityType,
		EntityID:     input.EntityID,
		EntityName:   input.EntityName,
		Priority:     input.Priority,
		CreatedAt:    s.now(),
		ScheduledFor: input.ScheduledFor,
		Metadata:     input.Metadata,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("notification_persist_failed", "notification_id", n.ID, "error", err)
	}

	settings := s.settingsOrDefault(ctx, userID)
	s.alerts.Dispatch(ctx, n, settings)

	return n, nil
}

func (s *Service) List(ctx context.Context, userID string) []models.Notification {
	notifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("notification_list_failed", "error", err)
		return nil
	}
	return notifications
}

func (s *Service) Unread(ctx context.Context, userID string) []models.Notification {
	notifications, err := s.repo.UnreadByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("notification_unread_failed", "error", err)
		return nil
	}
	return notifications
}

func (s *Service) MarkAsRead(ctx context.Context, userID, id string) {
	if err := s.repo.MarkAsRead(ctx, userID, id); err != nil {
		s.logger.Warn("notification_mark_read_failed", "notification_id", id, "error", err)
	}
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID string) {
	if err := s.repo.MarkAllAsRead(ctx, userID); err != nil {
		s.logger.Warn("notification_mark_all_read_failed", "error", err)
	}
}

func (s *Service) Delete(ctx context.Context, userID, id string) {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		s.logger.Warn("notification_delete_failed", "notification_id", id, "error", err)
	}
}

// Settings returns the user's settings, substituting defaults when no
// row exists yet. The default row is not persisted until first update.
func (s *Service) Settings(ctx context.Context, userID string) *models.NotificationSettings {
	return s.settingsOrDefault(ctx, userID)
}

// UpdateSettings merges a partial patch into the user's settings,
// lazily creating the row with defaults on first update.
func (s *Service) UpdateSettings(ctx context.Context, userID string, patch *models.SettingsPatch) *models.NotificationSettings {
	settings := s.settingsOrDefault(ctx, userID)
	settings.Apply(patch)
	settings.UpdatedAt = s.now()
	if err := s.settings.Save(ctx, settings); err != nil {
		s.logger.Warn("settings_save_failed", "error", err)
	}
	return settings
}

func (s *Service) settingsOrDefault(ctx context.Context, userID string) *models.NotificationSettings {
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("settings_read_failed", "error", err)
	}
	if settings == nil {
		settings = models.DefaultSettings(userID)
	}
	return settings
}

// StartSweeper launches the hourly retention sweep dropping local
// notifications older than 30 days. Remote retention is untouched.
func (s *Service) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("notification_sweeper_stopped")
				return
			case <-ticker.C:
				s.repo.PruneLocal(ctx, s.now().Add(-retentionWindow))
			}
		}
	}()
}
