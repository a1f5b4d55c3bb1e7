package roomhub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type fakeTransport struct {
	mu     sync.Mutex
	msgs   []any
	got    chan any
	block  chan struct{} // non-nil makes WriteJSON wait
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{got: make(chan any, 256)}
}

func (f *fakeTransport) WriteJSON(v any) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.msgs = append(f.msgs, v)
	f.mu.Unlock()
	f.got <- v
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func waitMsg(t *testing.T, tr *fakeTransport) any {
	t.Helper()
	select {
	case v := <-tr.got:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for a message")
		return nil
	}
}

func assertNoMsg(t *testing.T, tr *fakeTransport) {
	t.Helper()
	select {
	case v := <-tr.got:
		t.Fatalf("unexpected message: %#v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestHub() *Hub {
	return New(logger.InitLogger("hub-test", logger.LevelError))
}

func TestJoinIsIdempotent(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	tr := newFakeTransport()
	conn := hub.Register(ctx, uuid.MustNew(), tr)
	defer hub.Unregister(ctx, conn.ID())

	room := RideRoom(uuid.MustNew())
	if err := hub.Join(conn.ID(), room); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := hub.Join(conn.ID(), room); err != nil {
		t.Fatalf("second join failed: %v", err)
	}

	if got := hub.Members(room); got != 1 {
		t.Fatalf("expected 1 member, got %d", got)
	}

	hub.Publish(ctx, room, "hello")
	waitMsg(t, tr)
	assertNoMsg(t, tr) // joined twice but delivered once
}

func TestJoinUnknownConnection(t *testing.T) {
	hub := newTestHub()

	if err := hub.Join(uuid.MustNew(), "ride:whatever"); !errors.Is(err, ErrConnIsNotFound) {
		t.Fatalf("expected ErrConnIsNotFound, got %v", err)
	}
}

func TestPublishReachesEveryMember(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	room := RideRoom(uuid.MustNew())

	var transports []*fakeTransport
	for i := 0; i < 3; i++ {
		tr := newFakeTransport()
		conn := hub.Register(ctx, uuid.MustNew(), tr)
		if err := hub.Join(conn.ID(), room); err != nil {
			t.Fatalf("join failed: %v", err)
		}
		transports = append(transports, tr)
	}

	hub.Publish(ctx, room, "event")

	for i, tr := range transports {
		if got := waitMsg(t, tr); got != "event" {
			t.Fatalf("member %d got %#v", i, got)
		}
	}
}

func TestPublishToEmptyRoomIsNoop(t *testing.T) {
	hub := newTestHub()

	// must not panic or block
	hub.Publish(context.Background(), "ride:empty", "event")
}

func TestNoReplayForLateJoiners(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	room := RideRoom(uuid.MustNew())
	hub.Publish(ctx, room, "before-join")

	tr := newFakeTransport()
	conn := hub.Register(ctx, uuid.MustNew(), tr)
	if err := hub.Join(conn.ID(), room); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	hub.Publish(ctx, room, "after-join")

	if got := waitMsg(t, tr); got != "after-join" {
		t.Fatalf("late joiner must only see messages published after joining, got %#v", got)
	}
	assertNoMsg(t, tr)
}

func TestUnregisterLeavesAllRooms(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	tr := newFakeTransport()
	conn := hub.Register(ctx, uuid.MustNew(), tr)

	roomA := RideRoom(uuid.MustNew())
	roomB := DriverRoom(uuid.MustNew())
	if err := hub.Join(conn.ID(), roomA); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := hub.Join(conn.ID(), roomB); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	hub.Unregister(ctx, conn.ID())

	if hub.Members(roomA) != 0 || hub.Members(roomB) != 0 {
		t.Fatalf("unregistered connection still counted as a member")
	}
	if hub.Connections() != 0 {
		t.Fatalf("unregistered connection still tracked")
	}

	tr.mu.Lock()
	closed := tr.closed
	tr.mu.Unlock()
	if !closed {
		t.Fatalf("transport not closed on unregister")
	}

	// repeated unregister is a no-op
	hub.Unregister(ctx, conn.ID())
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	room := RideRoom(uuid.MustNew())

	stuck := newFakeTransport()
	stuck.block = make(chan struct{}) // writer never progresses
	stuckConn := hub.Register(ctx, uuid.MustNew(), stuck)
	if err := hub.Join(stuckConn.ID(), room); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	healthy := newFakeTransport()
	healthyConn := hub.Register(ctx, uuid.MustNew(), healthy)
	if err := hub.Join(healthyConn.ID(), room); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	// enough to overflow the stuck subscriber's buffer
	const published = defaultSendBuffer + 20

	done := make(chan struct{})
	go func() {
		for i := 0; i < published; i++ {
			hub.Publish(ctx, room, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publisher blocked by a slow subscriber")
	}

	// the healthy subscriber sees everything
	for i := 0; i < published; i++ {
		waitMsg(t, healthy)
	}

	close(stuck.block)
	hub.Unregister(ctx, stuckConn.ID())
	hub.Unregister(ctx, healthyConn.ID())
}

func TestConcurrentJoinLeave(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()

	room := RideRoom(uuid.MustNew())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr := newFakeTransport()
			conn := hub.Register(ctx, uuid.MustNew(), tr)
			for j := 0; j < 50; j++ {
				_ = hub.Join(conn.ID(), room)
				hub.Publish(ctx, room, j)
				hub.Leave(conn.ID(), room)
			}
			hub.Unregister(ctx, conn.ID())
		}()
	}
	wg.Wait()

	if hub.Members(room) != 0 {
		t.Fatalf("room should be empty after all leaves")
	}
	if hub.Connections() != 0 {
		t.Fatalf("all connections should be unregistered")
	}
}
