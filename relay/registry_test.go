package relay

import (
	"sync"
	"testing"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/service/config"
)

func TestRelaysCreateLazily(t *testing.T) {
	relays := NewRelays(config.NewEnv())

	if len(relays.Keys()) != 0 {
		t.Fatalf("expected no relays, got %v", relays.Keys())
	}

	rel := relays.Get("room-1")
	if rel == nil {
		t.Fatal("expected a relay")
	}
	if rel.SourceKey() != "room-1" {
		t.Errorf("expected source key room-1, got %s", rel.SourceKey())
	}

	keys := relays.Keys()
	if len(keys) != 1 || keys[0] != "room-1" {
		t.Errorf("expected [room-1], got %v", keys)
	}
}

func TestRelaysReturnSameInstance(t *testing.T) {
	relays := NewRelays(config.NewEnv())

	if relays.Get("room-1") != relays.Get("room-1") {
		t.Error("expected the same relay for the same source key")
	}
}

func TestRelaysConcurrentGet(t *testing.T) {
	relays := NewRelays(config.NewEnv())

	results := make(chan *Relay, 10)
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- relays.Get("room-1")
		}()
	}
	wg.Wait()
	close(results)

	first := <-results
	for rel := range results {
		if rel != first {
			t.Fatal("concurrent Get returned different relays for the same key")
		}
	}

	if len(relays.Keys()) != 1 {
		t.Errorf("expected 1 relay, got %d", len(relays.Keys()))
	}
}

func TestRelaysKeysSorted(t *testing.T) {
	relays := NewRelays(config.NewEnv())

	relays.Get("room-c")
	relays.Get("room-a")
	relays.Get("room-b")

	keys := relays.Keys()
	expected := []string{"room-a", "room-b", "room-c"}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected keys %v, got %v", expected, keys)
		}
	}
}

func TestRelaysCapacityFromConfig(t *testing.T) {
	t.Setenv("SUBSCRIBER_QUEUE_CAPACITY", "2")

	relays := NewRelays(config.NewEnv())
	sub := relays.Get("room-1").Subscribe()

	if !sub.TrySend(model.Frame{Timestamp: 1}) {
		t.Fatal("first send should be accepted")
	}
	if !sub.TrySend(model.Frame{Timestamp: 2}) {
		t.Fatal("second send should be accepted")
	}
	if sub.TrySend(model.Frame{Timestamp: 3}) {
		t.Fatal("third send should be dropped at capacity 2")
	}
}
