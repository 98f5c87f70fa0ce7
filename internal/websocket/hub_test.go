package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, familyID *int64, superadmin bool) *Client {
	return &Client{
		hub:        hub,
		conn:       nil,
		send:       make(chan []byte, sendBufferSize),
		familyID:   familyID,
		superadmin: superadmin,
	}
}

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return ev
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
		return Event{}
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, nil, false)
	c2 := mockClient(hub, nil, false)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, nil, false)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastGlobalEvent(t *testing.T) {
	hub := NewHub(slog.Default())

	famA := int64(1)
	c1 := mockClient(hub, &famA, false)
	c2 := mockClient(hub, nil, false)
	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast(NewEvent("task", "created", 42, nil))

	// Events without a family reach every client
	for _, c := range []*Client{c1, c2} {
		ev := recvEvent(t, c)
		if ev.Type != "task_created" {
			t.Errorf("type = %q, want task_created", ev.Type)
		}
		if ev.ID != 42 {
			t.Errorf("id = %d, want 42", ev.ID)
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestBroadcastFamilyScoping(t *testing.T) {
	hub := NewHub(slog.Default())

	famA, famB := int64(1), int64(2)
	inFamily := mockClient(hub, &famA, false)
	otherFamily := mockClient(hub, &famB, false)
	noFamily := mockClient(hub, nil, false)
	super := mockClient(hub, nil, true)
	for _, c := range []*Client{inFamily, otherFamily, noFamily, super} {
		hub.Register(c)
	}

	hub.Broadcast(NewEvent("assignment", "approved", 7, &famA))

	for _, c := range []*Client{inFamily, super} {
		ev := recvEvent(t, c)
		if ev.FamilyID == nil || *ev.FamilyID != famA {
			t.Errorf("family_id = %v, want %d", ev.FamilyID, famA)
		}
	}
	for _, c := range []*Client{otherFamily, noFamily} {
		select {
		case <-c.send:
			t.Error("client outside the family should not receive the event")
		default:
		}
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Broadcast(NewEvent("assignment", "completed", 1, nil))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, nil, false)
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewEvent("task", "updated", int64(i), nil))
	}

	// This should drop the event, not panic or block
	hub.Broadcast(NewEvent("task", "dropped", 999, nil))

	// Drain to verify buffer was full
	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d events, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewEvent(t *testing.T) {
	fam := int64(3)
	ev := NewEvent("reward", "redeemed", 5, &fam)
	if ev.Type != "reward_redeemed" {
		t.Errorf("type = %q, want reward_redeemed", ev.Type)
	}
	if ev.Entity != "reward" {
		t.Errorf("entity = %q, want reward", ev.Entity)
	}
	if ev.Action != "redeemed" {
		t.Errorf("action = %q, want redeemed", ev.Action)
	}
	if ev.FamilyID == nil || *ev.FamilyID != fam {
		t.Errorf("family_id = %v, want %d", ev.FamilyID, fam)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	// Register, broadcast, and unregister concurrently
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, nil, false)
			hub.Register(c)
			hub.Broadcast(NewEvent("task", "updated", 0, nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
