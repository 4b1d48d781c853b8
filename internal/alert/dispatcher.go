package alert

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"lexhub/internal/httpapi/models"
)

// Surface is the platform alert channel. Permission denial and delivery
// failure are both non-fatal; the notification record already exists by
// the time the surface is consulted.
type Surface interface {
	RequestPermission(ctx context.Context) (bool, error)
	Show(ctx context.Context, title, body, tag string) error
}

// Dispatcher decides whether a new notification surfaces a platform
// alert. It is pure decision logic over settings plus the local clock;
// persistence is never touched here.
type Dispatcher struct {
	surface Surface
	logger  *slog.Logger
	now     func() time.Time
}

func NewDispatcher(surface Surface, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{surface: surface, logger: logger, now: time.Now}
}

func (d *Dispatcher) Dispatch(ctx context.Context, n *models.Notification, settings *models.NotificationSettings) {
	if settings == nil || !settings.BrowserAlerts {
		return
	}
	if settings.QuietHoursEnabled && d.inQuietHours(settings.QuietHoursStart, settings.QuietHoursEnd) {
		d.logger.Debug("alert_suppressed_quiet_hours", "notification_id", n.ID)
		return
	}

	granted, err := d.surface.RequestPermission(ctx)
	if err != nil {
		d.logger.Warn("alert_permission_request_failed", "error", err)
		return
	}
	if !granted {
		return
	}

	// The notification id doubles as the dedupe tag so duplicate
	// platform delivery coalesces.
	if err := d.surface.Show(ctx, n.Title, n.Message, n.ID); err != nil {
		d.logger.Warn("alert_delivery_failed", "notification_id", n.ID, "error", err)
	}
}

func (d *Dispatcher) inQuietHours(start, end string) bool {
	startMin, okStart := parseClock(start)
	endMin, okEnd := parseClock(end)
	if !okStart || !okEnd {
		return false
	}
	t := d.now()
	return withinWindow(t.Hour()*60+t.Minute(), startMin, endMin)
}

// withinWindow tests a minutes-of-day value against [start, end],
// handling windows that wrap past midnight.
func withinWindow(current, start, end int) bool {
	if start <= end {
		return current >= start && current <= end
	}
	return current >= start || current <= end
}

// parseClock parses "HH:MM" into minutes of day.
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, false
	}
	return hours*60 + minutes, true
}
