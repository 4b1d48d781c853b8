package tribunal

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"lexhub/internal/httpapi/models"
	"lexhub/internal/notification"
)

const (
	defaultBaseInterval = 15 * time.Second
	defaultMaxInterval  = 120 * time.Second

	// Per-call budget so one stalled registry call cannot block the loop.
	callTimeout = 10 * time.Second

	// The update feed keeps only the most recent entries.
	bufferCap = 20

	// Bound on the dedup set; oldest ids are evicted first.
	seenLimit = 2048

	recentPageSize = 10
)

// CaseClient is the court-registry collaborator the poller queries.
type CaseClient interface {
	LookupByCaseNumber(ctx context.Context, number string) ([]CaseRecord, error)
	ListRecent(ctx context.Context, page, size int) ([]CaseRecord, error)
}

// UpdateStore persists newly seen updates and mirrors the feed buffer,
// and hands the persisted feed back for warm starts.
type UpdateStore interface {
	SaveNew(ctx context.Context, fresh, buffer []models.TribunalUpdate) error
	Recent(ctx context.Context, limit int) ([]models.TribunalUpdate, error)
}

// NotificationCreator synthesizes the per-tick notification for a batch
// of new updates.
type NotificationCreator interface {
	Create(ctx context.Context, userID string, input notification.CreateInput) (*models.Notification, error)
}

// Poller is the background loop that queries the court registry for
// tracked case numbers, dedupes the results, persists them, and fans
// the feed out to subscribers. One tick is ever in flight: the next is
// scheduled only after the current one, including its fan-out and
// backoff decision, completes.
type Poller struct {
	client   CaseClient
	store    UpdateStore
	registry *Registry
	bus      *Bus
	notifier NotificationCreator
	logger   *slog.Logger

	baseInterval time.Duration
	maxInterval  time.Duration
	interval     time.Duration

	seen      map[string]struct{}
	seenOrder []string
	buffer    []models.TribunalUpdate

	started atomic.Bool
}

type PollerConfig struct {
	BaseInterval time.Duration
	MaxInterval  time.Duration
}

func NewPoller(cfg PollerConfig, client CaseClient, store UpdateStore, registry *Registry, bus *Bus, notifier NotificationCreator, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.BaseInterval
	if base <= 0 {
		base = defaultBaseInterval
	}
	max := cfg.MaxInterval
	if max <= 0 {
		max = defaultMaxInterval
	}
	return &Poller{
		client:       client,
		store:        store,
		registry:     registry,
		bus:          bus,
		notifier:     notifier,
		logger:       logger,
		baseInterval: base,
		maxInterval:  max,
		interval:     base,
		seen:         make(map[string]struct{}),
	}
}

// Start launches the polling loop. Calling it again is a no-op; the
// loop runs until the context is cancelled and never stops on error.
func (p *Poller) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.logger.Info("tribunal_poller_started", "base_interval", p.baseInterval, "max_interval", p.maxInterval)
	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	p.warm(ctx)
	for {
		p.runTick(ctx)

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("tribunal_poller_stopped")
			return
		case <-timer.C:
		}
	}
}

// runTick executes one tick and applies the backoff decision: any error
// doubles the retry interval up to the cap, success resets it.
func (p *Poller) runTick(ctx context.Context) {
	if err := p.tick(ctx); err != nil {
		p.interval = p.interval * 2
		if p.interval > p.maxInterval {
			p.interval = p.maxInterval
		}
		p.logger.Warn("tribunal_poll_failed", "retry_in", p.interval, "error", err)
		return
	}
	p.interval = p.baseInterval
}

func (p *Poller) tick(ctx context.Context) error {
	records, err := p.query(ctx)
	if err != nil {
		return err
	}

	var fresh []models.TribunalUpdate
	for _, record := range records {
		if !p.markSeen(record.ID) {
			continue
		}
		fresh = append(fresh, mapRecord(record))
	}

	if len(fresh) > 0 {
		for _, update := range fresh {
			p.buffer = prepend(p.buffer, update)
		}

		// Best effort, not retried within the tick; the updates stay in
		// the buffer either way.
		if err := p.store.SaveNew(ctx, fresh, p.buffer); err != nil {
			p.logger.Warn("tribunal_updates_persist_failed", "count", len(fresh), "error", err)
		}

		// One alert-worthy notification per tick for each user tracking
		// the case behind the most recent update, regardless of batch
		// size. Recent-cases results have no tracker and notify nobody.
		latest := p.buffer[0]
		for _, owner := range p.registry.Owners(latest.CaseNumber) {
			if _, err := p.notifier.Create(ctx, owner, notification.CreateInput{
				Type:       models.TypeCustom,
				Title:      "New tribunal update",
				Message:    fmt.Sprintf("%s: %s", latest.CaseNumber, latest.Title),
				EntityType: "tribunal_case",
				EntityID:   latest.CaseNumber,
				EntityName: latest.CaseNumber,
				Priority:   models.PriorityMedium,
				Metadata:   map[string]string{"update_id": latest.ID},
			}); err != nil {
				p.logger.Warn("tribunal_notification_failed", "user_id", owner, "error", err)
			}
		}
	}

	p.bus.Publish(p.buffer)
	return nil
}

// warm restores the feed buffer from the persisted tier before the
// first tick, so a restart does not present an empty feed and does not
// re-notify about updates already delivered.
func (p *Poller) warm(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	recent, err := p.store.Recent(cctx, bufferCap)
	if err != nil {
		p.logger.Warn("tribunal_feed_warm_failed", "error", err)
		return
	}
	// Stored most-recent-first; replay oldest-first so prepend rebuilds
	// the original order.
	for i := len(recent) - 1; i >= 0; i-- {
		if !p.markSeen(recent[i].ID) {
			continue
		}
		p.buffer = prepend(p.buffer, recent[i])
	}
	if len(p.buffer) > 0 {
		p.bus.Publish(p.buffer)
	}
}

// query fetches records for each tracked number sequentially, or one
// page of recent cases when nothing is tracked yet.
func (p *Poller) query(ctx context.Context) ([]CaseRecord, error) {
	numbers := p.registry.Numbers()
	if len(numbers) == 0 {
		cctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		return p.client.ListRecent(cctx, 1, recentPageSize)
	}

	var records []CaseRecord
	for _, number := range numbers {
		cctx, cancel := context.WithTimeout(ctx, callTimeout)
		found, err := p.client.LookupByCaseNumber(cctx, number)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", number, err)
		}
		records = append(records, found...)
	}
	return records, nil
}

// markSeen reports whether the id is new, recording it if so. An id
// seen earlier in the process lifetime is never re-emitted.
func (p *Poller) markSeen(id string) bool {
	if _, ok := p.seen[id]; ok {
		return false
	}
	p.seen[id] = struct{}{}
	p.seenOrder = append(p.seenOrder, id)
	if len(p.seenOrder) > seenLimit {
		oldest := p.seenOrder[0]
		p.seenOrder = p.seenOrder[1:]
		delete(p.seen, oldest)
	}
	return true
}

func prepend(buffer []models.TribunalUpdate, update models.TribunalUpdate) []models.TribunalUpdate {
	buffer = append([]models.TribunalUpdate{update}, buffer...)
	if len(buffer) > bufferCap {
		buffer = buffer[:bufferCap]
	}
	return buffer
}

func mapRecord(record CaseRecord) models.TribunalUpdate {
	date, err := time.Parse(time.RFC3339, record.Date)
	if err != nil {
		if date, err = time.Parse("2006-01-02", record.Date); err != nil {
			date = time.Now()
		}
	}
	return models.TribunalUpdate{
		ID:          record.ID,
		CaseNumber:  record.CaseNumber,
		Title:       record.Parties,
		Description: fmt.Sprintf("Case %s: %s", record.CaseNumber, record.Status),
		Date:        date,
		Status:      record.Status,
		Court:       record.Court,
		Division:    record.Division,
	}
}
