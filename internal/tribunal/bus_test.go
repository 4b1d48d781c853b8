package tribunal

import (
	"testing"

	"lexhub/internal/httpapi/models"
)

func update(id string) models.TribunalUpdate {
	return models.TribunalUpdate{ID: id, CaseNumber: "42/2026", Title: "Doe v. Acme"}
}

func TestSubscribeDeliversCurrentBuffer(t *testing.T) {
	bus := NewBus()
	bus.Publish([]models.TribunalUpdate{update("u1"), update("u2")})

	var got []models.TribunalUpdate
	unsubscribe := bus.Subscribe(func(updates []models.TribunalUpdate) {
		got = updates
	})
	defer unsubscribe()

	if len(got) != 2 {
		t.Fatalf("expected the current buffer on subscribe, got %d entries", len(got))
	}
	if got[0].ID != "u1" {
		t.Errorf("buffer order changed: first entry %q", got[0].ID)
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()

	counts := make([]int, 3)
	for i := range counts {
		i := i
		defer bus.Subscribe(func(updates []models.TribunalUpdate) {
			counts[i]++
		})()
	}

	bus.Publish([]models.TribunalUpdate{update("u1")})

	for i, count := range counts {
		// One delivery at subscribe plus one per publish.
		if count != 2 {
			t.Errorf("subscriber %d received %d deliveries, want 2", i, count)
		}
	}
	if bus.SubscriberCount() != 3 {
		t.Errorf("SubscriberCount() = %d, want 3", bus.SubscriberCount())
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	var deliveries int
	unsubscribe := bus.Subscribe(func(updates []models.TribunalUpdate) {
		deliveries++
	})

	bus.Publish([]models.TribunalUpdate{update("u1")})
	unsubscribe()
	bus.Publish([]models.TribunalUpdate{update("u2")})

	if deliveries != 2 {
		t.Fatalf("received %d deliveries, want 2 (subscribe + first publish)", deliveries)
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d after unsubscribe, want 0", bus.SubscriberCount())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	bus := NewBus()
	bus.Publish([]models.TribunalUpdate{update("u1")})

	snapshot := bus.Snapshot()
	snapshot[0].ID = "mutated"

	if bus.Snapshot()[0].ID != "u1" {
		t.Fatal("mutating a snapshot leaked into the bus buffer")
	}
}
