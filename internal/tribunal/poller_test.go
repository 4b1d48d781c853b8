package tribunal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"lexhub/internal/httpapi/models"
	"lexhub/internal/notification"
)

type fakeClient struct {
	recent    []CaseRecord
	byNumber  map[string][]CaseRecord
	err       error
	lookups   int
	lookupSeq []string
}

func (c *fakeClient) LookupByCaseNumber(ctx context.Context, number string) ([]CaseRecord, error) {
	c.lookups++
	c.lookupSeq = append(c.lookupSeq, number)
	if c.err != nil {
		return nil, c.err
	}
	return c.byNumber[number], nil
}

func (c *fakeClient) ListRecent(ctx context.Context, page, size int) ([]CaseRecord, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.recent, nil
}

type fakeStore struct {
	saves      int
	lastFresh  []models.TribunalUpdate
	lastBuffer []models.TribunalUpdate
	recent     []models.TribunalUpdate
	err        error
}

func (s *fakeStore) SaveNew(ctx context.Context, fresh, buffer []models.TribunalUpdate) error {
	s.saves++
	s.lastFresh = fresh
	s.lastBuffer = buffer
	return s.err
}

func (s *fakeStore) Recent(ctx context.Context, limit int) ([]models.TribunalUpdate, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := s.recent
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeNotifier struct {
	inputs []notification.CreateInput
	users  []string
}

func (n *fakeNotifier) Create(ctx context.Context, userID string, input notification.CreateInput) (*models.Notification, error) {
	n.inputs = append(n.inputs, input)
	n.users = append(n.users, userID)
	return &models.Notification{ID: "created", UserID: userID}, nil
}

// memDocs is an in-memory DocStore standing in for the Redis tier.
type memDocs struct {
	docs map[string][]byte
}

func newMemDocs() *memDocs {
	return &memDocs{docs: make(map[string][]byte)}
}

func (m *memDocs) key(userID, table string) string {
	return userID + "/" + table
}

func (m *memDocs) ReadDoc(ctx context.Context, userID, table string, out any) error {
	raw, ok := m.docs[m.key(userID, table)]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil
	}
	return nil
}

func (m *memDocs) WriteDoc(ctx context.Context, userID, table string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.docs[m.key(userID, table)] = raw
	return nil
}

func (m *memDocs) Users(ctx context.Context, table string) ([]string, error) {
	var users []string
	suffix := "/" + table
	for key := range m.docs {
		if strings.HasSuffix(key, suffix) {
			users = append(users, strings.TrimSuffix(key, suffix))
		}
	}
	return users, nil
}

type fakeTracked struct {
	available  bool
	rows       []models.TrackedCaseNumber
	listErr    error
	listAllErr error
	inserts    [][]string
}

func (f *fakeTracked) Available() bool {
	return f.available
}

func (f *fakeTracked) List(ctx context.Context, userID string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var numbers []string
	for _, row := range f.rows {
		if row.UserID == userID {
			numbers = append(numbers, row.CaseNumber)
		}
	}
	return numbers, nil
}

func (f *fakeTracked) ListAll(ctx context.Context) ([]models.TrackedCaseNumber, error) {
	if f.listAllErr != nil {
		return nil, f.listAllErr
	}
	out := make([]models.TrackedCaseNumber, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeTracked) Insert(ctx context.Context, userID string, numbers []string) error {
	f.inserts = append(f.inserts, numbers)
	for _, number := range numbers {
		f.rows = append(f.rows, models.TrackedCaseNumber{UserID: userID, CaseNumber: number})
	}
	return nil
}

func record(id, caseNumber string) CaseRecord {
	return CaseRecord{
		ID:         id,
		CaseNumber: caseNumber,
		Parties:    "Doe v. Acme",
		Status:     "scheduled",
		Court:      "District Court",
		Division:   "Civil",
		Date:       "2026-03-10",
	}
}

func newTestPoller(t *testing.T, client CaseClient, store UpdateStore, notifier NotificationCreator) (*Poller, *Bus) {
	t.Helper()
	registry := NewRegistry(&fakeTracked{}, newMemDocs(), slog.Default())
	bus := NewBus()
	p := NewPoller(PollerConfig{
		BaseInterval: 15 * time.Second,
		MaxInterval:  120 * time.Second,
	}, client, store, registry, bus, notifier, slog.Default())
	return p, bus
}

func TestBackoffDoublesAndResets(t *testing.T) {
	client := &fakeClient{err: errors.New("registry down")}
	p, _ := newTestPoller(t, client, &fakeStore{}, &fakeNotifier{})

	want := []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second, 120 * time.Second}
	for i, expected := range want {
		p.runTick(context.Background())
		if p.interval != expected {
			t.Fatalf("after failure %d interval = %v, want %v", i+1, p.interval, expected)
		}
	}

	client.err = nil
	p.runTick(context.Background())
	if p.interval != 15*time.Second {
		t.Fatalf("after success interval = %v, want 15s", p.interval)
	}
}

func TestTickDedupAcrossTicks(t *testing.T) {
	client := &fakeClient{byNumber: map[string][]CaseRecord{
		"42/2026": {record("u1", "42/2026")},
	}}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	p, _ := newTestPoller(t, client, store, notifier)
	p.registry.Add(context.Background(), "user-a", []string{"42/2026"})

	p.runTick(context.Background())
	p.runTick(context.Background())

	if len(p.buffer) != 1 {
		t.Fatalf("buffer has %d entries, want 1", len(p.buffer))
	}
	if store.saves != 1 {
		t.Fatalf("store.SaveNew called %d times, want 1", store.saves)
	}
	if len(notifier.inputs) != 1 {
		t.Fatalf("%d notifications created, want 1", len(notifier.inputs))
	}
}

func TestTickNotifiesTrackingUser(t *testing.T) {
	client := &fakeClient{byNumber: map[string][]CaseRecord{
		"42/2026": {record("u1", "42/2026")},
	}}
	notifier := &fakeNotifier{}
	p, _ := newTestPoller(t, client, &fakeStore{}, notifier)
	p.registry.Add(context.Background(), "user-a", []string{"42/2026"})

	p.runTick(context.Background())

	if len(notifier.users) != 1 || notifier.users[0] != "user-a" {
		t.Fatalf("notification went to %v, want the user tracking the case", notifier.users)
	}
	input := notifier.inputs[0]
	if input.Type != models.TypeCustom || input.Priority != models.PriorityMedium {
		t.Errorf("notification type/priority = %s/%s, want custom/medium", input.Type, input.Priority)
	}
	if input.Metadata["update_id"] != p.buffer[0].ID {
		t.Errorf("notification references update %q, want newest %q", input.Metadata["update_id"], p.buffer[0].ID)
	}
}

func TestTickOneNotificationPerBatch(t *testing.T) {
	client := &fakeClient{byNumber: map[string][]CaseRecord{}}
	for i := 1; i <= 5; i++ {
		client.byNumber["42/2026"] = append(client.byNumber["42/2026"], record(fmt.Sprintf("u%d", i), "42/2026"))
	}
	notifier := &fakeNotifier{}
	p, _ := newTestPoller(t, client, &fakeStore{}, notifier)
	p.registry.Add(context.Background(), "user-a", []string{"42/2026"})

	p.runTick(context.Background())

	if len(notifier.inputs) != 1 {
		t.Fatalf("%d notifications created for one batch, want 1", len(notifier.inputs))
	}
}

func TestTickRecentCasesNotifyNobody(t *testing.T) {
	client := &fakeClient{recent: []CaseRecord{record("u1", "42/2026")}}
	notifier := &fakeNotifier{}
	p, _ := newTestPoller(t, client, &fakeStore{}, notifier)

	p.runTick(context.Background())

	if len(p.buffer) != 1 {
		t.Fatalf("buffer has %d entries, want the recent case", len(p.buffer))
	}
	if len(notifier.inputs) != 0 {
		t.Fatalf("%d notifications for untracked recent cases, want 0", len(notifier.inputs))
	}
}

func TestBufferCapMostRecentFirst(t *testing.T) {
	client := &fakeClient{}
	for i := 1; i <= 25; i++ {
		client.recent = append(client.recent, record(fmt.Sprintf("u%d", i), "42/2026"))
	}
	p, _ := newTestPoller(t, client, &fakeStore{}, &fakeNotifier{})

	p.runTick(context.Background())

	if len(p.buffer) != 20 {
		t.Fatalf("buffer has %d entries, want 20", len(p.buffer))
	}
	if p.buffer[0].ID != "u25" {
		t.Errorf("newest entry is %q, want u25", p.buffer[0].ID)
	}
	if p.buffer[19].ID != "u6" {
		t.Errorf("oldest retained entry is %q, want u6", p.buffer[19].ID)
	}
}

func TestTickPublishesOnlyOnSuccess(t *testing.T) {
	client := &fakeClient{recent: []CaseRecord{record("u1", "42/2026")}}
	p, bus := newTestPoller(t, client, &fakeStore{}, &fakeNotifier{})

	var deliveries int
	unsubscribe := bus.Subscribe(func(updates []models.TribunalUpdate) {
		deliveries++
	})
	defer unsubscribe()

	if deliveries != 1 {
		t.Fatalf("expected immediate delivery on subscribe, got %d", deliveries)
	}

	p.runTick(context.Background())
	if deliveries != 2 {
		t.Fatalf("expected fan-out after successful tick, got %d deliveries", deliveries)
	}

	client.err = errors.New("registry down")
	p.runTick(context.Background())
	if deliveries != 2 {
		t.Fatalf("failed tick must not fan out, got %d deliveries", deliveries)
	}
}

func TestTickPersistFailureKeepsBuffer(t *testing.T) {
	client := &fakeClient{byNumber: map[string][]CaseRecord{
		"42/2026": {record("u1", "42/2026")},
	}}
	store := &fakeStore{err: errors.New("backend down")}
	notifier := &fakeNotifier{}
	p, _ := newTestPoller(t, client, store, notifier)
	p.registry.Add(context.Background(), "user-a", []string{"42/2026"})

	p.runTick(context.Background())

	if len(p.buffer) != 1 {
		t.Fatalf("buffer lost the update on persist failure, have %d entries", len(p.buffer))
	}
	if len(notifier.inputs) != 1 {
		t.Fatal("persist failure must not suppress the notification")
	}
	if p.interval != 15*time.Second {
		t.Fatalf("persist failure must not trigger backoff, interval = %v", p.interval)
	}
}

func TestWarmRestoresFeedWithoutNotifying(t *testing.T) {
	client := &fakeClient{byNumber: map[string][]CaseRecord{
		"42/2026": {record("u1", "42/2026")},
	}}
	store := &fakeStore{recent: []models.TribunalUpdate{
		{ID: "u2", CaseNumber: "42/2026"},
		{ID: "u1", CaseNumber: "42/2026"},
	}}
	notifier := &fakeNotifier{}
	p, bus := newTestPoller(t, client, store, notifier)
	p.registry.Add(context.Background(), "user-a", []string{"42/2026"})

	var deliveries int
	unsubscribe := bus.Subscribe(func(updates []models.TribunalUpdate) {
		deliveries++
	})
	defer unsubscribe()

	p.warm(context.Background())

	if len(p.buffer) != 2 || p.buffer[0].ID != "u2" {
		t.Fatalf("buffer after warm = %v, want persisted feed most-recent-first", p.buffer)
	}
	if deliveries != 2 {
		t.Fatalf("expected fan-out of the warmed feed, got %d deliveries", deliveries)
	}
	if len(notifier.inputs) != 0 {
		t.Fatal("warming must not re-notify about already delivered updates")
	}

	// The warmed ids count as seen; the next tick produces nothing new.
	p.runTick(context.Background())
	if len(notifier.inputs) != 0 {
		t.Fatal("restart must not re-notify about updates persisted before it")
	}
}

func TestQuerySequentialPerNumber(t *testing.T) {
	client := &fakeClient{byNumber: map[string][]CaseRecord{
		"42/2026": {record("u1", "42/2026")},
		"77/2026": {record("u2", "77/2026")},
	}}
	p, _ := newTestPoller(t, client, &fakeStore{}, &fakeNotifier{})
	p.registry.Add(context.Background(), "user-a", []string{"42/2026", "77/2026"})

	p.runTick(context.Background())

	if client.lookups != 2 {
		t.Fatalf("%d lookups, want one per tracked number", client.lookups)
	}
	if client.lookupSeq[0] != "42/2026" || client.lookupSeq[1] != "77/2026" {
		t.Errorf("lookups out of registration order: %v", client.lookupSeq)
	}
	if len(p.buffer) != 2 {
		t.Fatalf("buffer has %d entries, want 2", len(p.buffer))
	}
}

func TestQueryAbortsTickOnLookupFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("registry down")}
	store := &fakeStore{}
	p, _ := newTestPoller(t, client, store, &fakeNotifier{})
	p.registry.Add(context.Background(), "user-a", []string{"42/2026"})

	p.runTick(context.Background())

	if store.saves != 0 {
		t.Fatal("failed tick must not persist anything")
	}
	if p.interval != 30*time.Second {
		t.Fatalf("interval = %v, want 30s after first failure", p.interval)
	}
}

func TestMarkSeenEvictsOldest(t *testing.T) {
	p, _ := newTestPoller(t, &fakeClient{}, &fakeStore{}, &fakeNotifier{})

	for i := 0; i < seenLimit+1; i++ {
		if !p.markSeen(fmt.Sprintf("id-%d", i)) {
			t.Fatalf("id-%d unexpectedly reported as seen", i)
		}
	}

	if len(p.seen) != seenLimit {
		t.Fatalf("seen set has %d entries, want %d", len(p.seen), seenLimit)
	}
	// The oldest id fell out and counts as new again.
	if !p.markSeen("id-0") {
		t.Fatal("evicted id should be treated as new")
	}
}

func TestMapRecordDateFormats(t *testing.T) {
	day := mapRecord(record("u1", "42/2026"))
	if !day.Date.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("plain date parsed as %v", day.Date)
	}

	r := record("u2", "42/2026")
	r.Date = "2026-03-10T14:30:00Z"
	stamped := mapRecord(r)
	if !stamped.Date.Equal(time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("RFC3339 date parsed as %v", stamped.Date)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	p, _ := newTestPoller(t, &fakeClient{}, &fakeStore{}, &fakeNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	p.Start(ctx)
	cancel()

	if !p.started.Load() {
		t.Fatal("poller did not record started state")
	}
}
