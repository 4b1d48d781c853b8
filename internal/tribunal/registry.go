package tribunal

import (
	"context"
	"log/slog"
	"sync"

	"lexhub/internal/storage"
)

// Registry holds the case numbers users have opted into polling. The
// set is append-only, deduplicated by exact string equality, and
// mirrored across both storage tiers per user. The poller queries each
// distinct number once and notifies everyone tracking it.
type Registry struct {
	mu      sync.Mutex
	numbers []string                       // distinct, insertion order
	owners  map[string]map[string]struct{} // case number -> tracking user ids
	byUser  map[string][]string            // per-user numbers, insertion order

	remote storage.RemoteTracked
	local  storage.DocStore
	logger *slog.Logger
}

func NewRegistry(remote storage.RemoteTracked, local storage.DocStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		owners: make(map[string]map[string]struct{}),
		byUser: make(map[string][]string),
		remote: remote,
		local:  local,
		logger: logger,
	}
}

// Load populates the in-memory set at startup from every user's rows.
// A successful backend read fully replaces the local fallback;
// otherwise the local per-user shadows are used as-is.
func (r *Registry) Load(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.remote.Available() {
		rows, err := r.remote.ListAll(ctx)
		if err == nil {
			r.resetLocked()
			for _, row := range rows {
				r.addLocked(row.UserID, row.CaseNumber)
			}
			for userID, numbers := range r.byUser {
				if werr := r.local.WriteDoc(ctx, userID, storage.TableTrackedNumbers, numbers); werr != nil {
					r.logger.Warn("tracked_local_mirror_failed", "user_id", userID, "error", werr)
				}
			}
			return
		}
		r.logger.Warn("tracked_backend_read_failed, falling back to local", "error", err)
	}

	userIDs, err := r.local.Users(ctx, storage.TableTrackedNumbers)
	if err != nil {
		r.logger.Warn("tracked_local_scan_failed", "error", err)
	}
	r.resetLocked()
	for _, userID := range userIDs {
		var numbers []string
		if err := r.local.ReadDoc(ctx, userID, storage.TableTrackedNumbers, &numbers); err != nil {
			r.logger.Warn("tracked_local_read_failed", "user_id", userID, "error", err)
			continue
		}
		for _, number := range numbers {
			r.addLocked(userID, number)
		}
	}
}

// Add merges case numbers into the user's set. New numbers are diffed
// against existing backend rows so repeated registration inserts
// nothing twice; the user's full set is always mirrored to the local
// tier regardless of the backend outcome.
func (r *Registry) Add(ctx context.Context, userID string, numbers []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, number := range numbers {
		r.addLocked(userID, number)
	}

	if r.remote.Available() {
		existing, err := r.remote.List(ctx, userID)
		if err != nil {
			r.logger.Warn("tracked_backend_diff_failed", "error", err)
		} else {
			existingSet := make(map[string]struct{}, len(existing))
			for _, number := range existing {
				existingSet[number] = struct{}{}
			}
			var missing []string
			for _, number := range r.byUser[userID] {
				if _, ok := existingSet[number]; !ok {
					missing = append(missing, number)
				}
			}
			if err := r.remote.Insert(ctx, userID, missing); err != nil {
				r.logger.Warn("tracked_backend_insert_failed", "count", len(missing), "error", err)
			}
		}
	}

	if err := r.local.WriteDoc(ctx, userID, storage.TableTrackedNumbers, r.byUser[userID]); err != nil {
		r.logger.Warn("tracked_local_mirror_failed", "user_id", userID, "error", err)
	}
}

// Numbers returns the distinct tracked set across all users, in
// insertion order.
func (r *Registry) Numbers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.numbers))
	copy(out, r.numbers)
	return out
}

// NumbersFor returns one user's tracked numbers in insertion order.
func (r *Registry) NumbersFor(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.byUser[userID]))
	copy(out, r.byUser[userID])
	return out
}

// Owners returns the user ids tracking the given case number.
func (r *Registry) Owners(number string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.owners[number]))
	for userID := range r.owners[number] {
		out = append(out, userID)
	}
	return out
}

func (r *Registry) addLocked(userID, number string) {
	if number == "" || userID == "" {
		return
	}
	set, ok := r.owners[number]
	if !ok {
		set = make(map[string]struct{})
		r.owners[number] = set
		r.numbers = append(r.numbers, number)
	}
	if _, seen := set[userID]; seen {
		return
	}
	set[userID] = struct{}{}
	r.byUser[userID] = append(r.byUser[userID], number)
}

func (r *Registry) resetLocked() {
	r.numbers = nil
	r.owners = make(map[string]map[string]struct{})
	r.byUser = make(map[string][]string)
}
