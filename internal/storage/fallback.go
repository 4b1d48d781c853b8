package storage

import (
	"context"
	"log/slog"
	"time"

	"lexhub/internal/httpapi/models"
)

// The fallback repositories compose the remote backend with the local
// document store. Writes go to the backend when it is reachable and are
// always mirrored locally; reads prefer the backend and replace the
// local shadow on success. Backend failures degrade to local-only
// behavior and are logged, never propagated.

type FallbackNotifications struct {
	remote RemoteNotifications
	local  DocStore
	logger *slog.Logger
}

func NewFallbackNotifications(remote RemoteNotifications, local DocStore, logger *slog.Logger) *FallbackNotifications {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackNotifications{remote: remote, local: local, logger: logger}
}

func (f *FallbackNotifications) Create(ctx context.Context, n *models.Notification) error {
	if f.remote.Available() {
		if err := f.remote.Create(ctx, n); err != nil {
			f.logger.Warn("backend_create_failed", "notification_id", n.ID, "error", err)
		}
	}

	var local []models.Notification
	if err := f.local.ReadDoc(ctx, n.UserID, TableNotifications, &local); err != nil {
		f.logger.Warn("local_read_failed", "table", TableNotifications, "error", err)
	}
	local = append([]models.Notification{*n}, local...)
	return f.local.WriteDoc(ctx, n.UserID, TableNotifications, local)
}

func (f *FallbackNotifications) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	if f.remote.Available() {
		notifications, err := f.remote.ListByUser(ctx, userID)
		if err == nil {
			// Successful backend read fully replaces the shadow.
			if werr := f.local.WriteDoc(ctx, userID, TableNotifications, notifications); werr != nil {
				f.logger.Warn("local_write_failed", "table", TableNotifications, "error", werr)
			}
			return notifications, nil
		}
		f.logger.Warn("backend_list_failed, falling back to local", "error", err)
	}

	var local []models.Notification
	if err := f.local.ReadDoc(ctx, userID, TableNotifications, &local); err != nil {
		f.logger.Warn("local_read_failed", "table", TableNotifications, "error", err)
	}
	return local, nil
}

func (f *FallbackNotifications) UnreadByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	all, err := f.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	unread := make([]models.Notification, 0, len(all))
	for _, n := range all {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

func (f *FallbackNotifications) MarkAsRead(ctx context.Context, userID, id string) error {
	if f.remote.Available() {
		if err := f.remote.MarkAsRead(ctx, userID, id); err != nil {
			f.logger.Warn("backend_mark_read_failed", "notification_id", id, "error", err)
		}
	}
	return f.mutateLocal(ctx, userID, func(local []models.Notification) []models.Notification {
		for i := range local {
			if local[i].ID == id {
				local[i].Read = true
			}
		}
		return local
	})
}

func (f *FallbackNotifications) MarkAllAsRead(ctx context.Context, userID string) error {
	if f.remote.Available() {
		if err := f.remote.MarkAllAsRead(ctx, userID); err != nil {
			f.logger.Warn("backend_mark_all_read_failed", "error", err)
		}
	}
	return f.mutateLocal(ctx, userID, func(local []models.Notification) []models.Notification {
		for i := range local {
			local[i].Read = true
		}
		return local
	})
}

func (f *FallbackNotifications) Delete(ctx context.Context, userID, id string) error {
	if f.remote.Available() {
		if err := f.remote.Delete(ctx, userID, id); err != nil {
			f.logger.Warn("backend_delete_failed", "notification_id", id, "error", err)
		}
	}
	return f.mutateLocal(ctx, userID, func(local []models.Notification) []models.Notification {
		kept := local[:0]
		for _, n := range local {
			if n.ID != id {
				kept = append(kept, n)
			}
		}
		return kept
	})
}

// PruneLocal drops local notifications created before the cutoff for
// every user with a shadow document. Backend retention is untouched.
func (f *FallbackNotifications) PruneLocal(ctx context.Context, cutoff time.Time) {
	userIDs, err := f.local.Users(ctx, TableNotifications)
	if err != nil {
		f.logger.Warn("local_scan_failed", "table", TableNotifications, "error", err)
		return
	}
	for _, userID := range userIDs {
		err := f.mutateLocal(ctx, userID, func(local []models.Notification) []models.Notification {
			kept := local[:0]
			for _, n := range local {
				if n.CreatedAt.After(cutoff) {
					kept = append(kept, n)
				}
			}
			return kept
		})
		if err != nil {
			f.logger.Warn("local_prune_failed", "user_id", userID, "error", err)
		}
	}
}

func (f *FallbackNotifications) mutateLocal(ctx context.Context, userID string, fn func([]models.Notification) []models.Notification) error {
	var local []models.Notification
	if err := f.local.ReadDoc(ctx, userID, TableNotifications, &local); err != nil {
		f.logger.Warn("local_read_failed", "table", TableNotifications, "error", err)
	}
	return f.local.WriteDoc(ctx, userID, TableNotifications, fn(local))
}

type FallbackSettings struct {
	remote RemoteSettings
	local  DocStore
	logger *slog.Logger
}

func NewFallbackSettings(remote RemoteSettings, local DocStore, logger *slog.Logger) *FallbackSettings {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackSettings{remote: remote, local: local, logger: logger}
}

// Get returns the user's settings or nil when no row exists on either
// tier; callers substitute defaults.
func (f *FallbackSettings) Get(ctx context.Context, userID string) (*models.NotificationSettings, error) {
	if f.remote.Available() {
		settings, err := f.remote.Get(ctx, userID)
		if err == nil && settings != nil {
			if werr := f.local.WriteDoc(ctx, userID, TableSettings, settings); werr != nil {
				f.logger.Warn("local_write_failed", "table", TableSettings, "error", werr)
			}
			return settings, nil
		}
		if err != nil {
			f.logger.Warn("backend_settings_read_failed, falling back to local", "error", err)
		}
	}

	var local models.NotificationSettings
	if err := f.local.ReadDoc(ctx, userID, TableSettings, &local); err != nil {
		f.logger.Warn("local_read_failed", "table", TableSettings, "error", err)
	}
	if local.UserID == "" {
		return nil, nil
	}
	return &local, nil
}

func (f *FallbackSettings) Save(ctx context.Context, s *models.NotificationSettings) error {
	if f.remote.Available() {
		if err := f.remote.Save(ctx, s); err != nil {
			f.logger.Warn("backend_settings_save_failed", "error", err)
		}
	}
	return f.local.WriteDoc(ctx, s.UserID, TableSettings, s)
}

type FallbackUpdates struct {
	remote RemoteUpdates
	local  DocStore
	logger *slog.Logger
}

func NewFallbackUpdates(remote RemoteUpdates, local DocStore, logger *slog.Logger) *FallbackUpdates {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackUpdates{remote: remote, local: local, logger: logger}
}

// SaveNew persists freshly seen updates to the backend (best effort,
// not retried within the tick) and mirrors the full feed buffer to the
// local shadow under the shared feed scope.
func (f *FallbackUpdates) SaveNew(ctx context.Context, fresh, buffer []models.TribunalUpdate) error {
	if f.remote.Available() {
		if err := f.remote.Insert(ctx, fresh); err != nil {
			f.logger.Warn("backend_updates_insert_failed", "count", len(fresh), "error", err)
		}
	}
	return f.local.WriteDoc(ctx, FeedDocID, TableUpdates, buffer)
}

// Recent returns the most recent feed entries; the poller uses it to
// warm its buffer at startup.
func (f *FallbackUpdates) Recent(ctx context.Context, limit int) ([]models.TribunalUpdate, error) {
	if f.remote.Available() {
		updates, err := f.remote.Recent(ctx, limit)
		if err == nil {
			return updates, nil
		}
		f.logger.Warn("backend_updates_read_failed, falling back to local", "error", err)
	}

	var local []models.TribunalUpdate
	if err := f.local.ReadDoc(ctx, FeedDocID, TableUpdates, &local); err != nil {
		f.logger.Warn("local_read_failed", "table", TableUpdates, "error", err)
	}
	if len(local) > limit {
		local = local[:limit]
	}
	return local, nil
}
