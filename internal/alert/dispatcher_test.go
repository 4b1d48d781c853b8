package alert

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"lexhub/internal/httpapi/models"
)

type fakeSurface struct {
	granted       bool
	permissionErr error
	showErr       error
	shown         []string
}

func (f *fakeSurface) RequestPermission(ctx context.Context) (bool, error) {
	return f.granted, f.permissionErr
}

func (f *fakeSurface) Show(ctx context.Context, title, body, tag string) error {
	f.shown = append(f.shown, tag)
	return f.showErr
}

func testDispatcher(surface *fakeSurface, at time.Time) *Dispatcher {
	d := NewDispatcher(surface, slog.Default())
	d.now = func() time.Time { return at }
	return d
}

func quietSettings(enabled bool, start, end string) *models.NotificationSettings {
	s := models.DefaultSettings("user1")
	s.QuietHoursEnabled = enabled
	s.QuietHoursStart = start
	s.QuietHoursEnd = end
	return s
}

func sample() *models.Notification {
	return &models.Notification{ID: "n1", Title: "Hearing scheduled", Message: "Case 42/2026"}
}

func TestDispatchShowsAlert(t *testing.T) {
	surface := &fakeSurface{granted: true}
	d := testDispatcher(surface, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	d.Dispatch(context.Background(), sample(), quietSettings(false, "22:00", "08:00"))

	if len(surface.shown) != 1 || surface.shown[0] != "n1" {
		t.Fatalf("expected one alert tagged n1, got %v", surface.shown)
	}
}

func TestDispatchQuietHours(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		hour       int
		suppressed bool
	}{
		{"wraparound window at night", "22:00", "08:00", 23, true},
		{"wraparound window early morning", "22:00", "08:00", 7, true},
		{"wraparound window in the day", "22:00", "08:00", 9, false},
		{"same-day window inside", "08:00", "22:00", 12, true},
		{"same-day window outside", "08:00", "22:00", 23, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := &fakeSurface{granted: true}
			d := testDispatcher(surface, time.Date(2026, 3, 10, tt.hour, 0, 0, 0, time.UTC))

			d.Dispatch(context.Background(), sample(), quietSettings(true, tt.start, tt.end))

			if suppressed := len(surface.shown) == 0; suppressed != tt.suppressed {
				t.Errorf("at %02d:00 with window %s-%s: suppressed=%v, want %v",
					tt.hour, tt.start, tt.end, suppressed, tt.suppressed)
			}
		})
	}
}

func TestDispatchDisabledChannel(t *testing.T) {
	surface := &fakeSurface{granted: true}
	d := testDispatcher(surface, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	settings := models.DefaultSettings("user1")
	settings.BrowserAlerts = false
	d.Dispatch(context.Background(), sample(), settings)

	if len(surface.shown) != 0 {
		t.Fatalf("expected no alert with browser alerts disabled, got %v", surface.shown)
	}
}

func TestDispatchPermissionDenied(t *testing.T) {
	surface := &fakeSurface{granted: false}
	d := testDispatcher(surface, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	d.Dispatch(context.Background(), sample(), models.DefaultSettings("user1"))

	if len(surface.shown) != 0 {
		t.Fatal("expected no alert when permission is denied")
	}
}

func TestDispatchPermissionError(t *testing.T) {
	surface := &fakeSurface{granted: true, permissionErr: errors.New("surface gone")}
	d := testDispatcher(surface, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	d.Dispatch(context.Background(), sample(), models.DefaultSettings("user1"))

	if len(surface.shown) != 0 {
		t.Fatal("expected no alert when the permission request fails")
	}
}

func TestDispatchMalformedQuietWindow(t *testing.T) {
	surface := &fakeSurface{granted: true}
	d := testDispatcher(surface, time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC))

	// An unparseable window never suppresses.
	d.Dispatch(context.Background(), sample(), quietSettings(true, "25:00", "late"))

	if len(surface.shown) != 1 {
		t.Fatal("expected alert to go out with a malformed quiet window")
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"22:00", 1320, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"noon", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseClock(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseClock(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
