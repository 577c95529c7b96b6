package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClient struct {
	id     string
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (f *fakeClient) ID() string { return f.id }

func (f *fakeClient) Send(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.sent = append(f.sent, data)
	return true
}

func (f *fakeClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeClient) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestSessionTryAcquireAndRelease(t *testing.T) {
	s := &Session{}

	// first acquire should succeed
	if !s.TryAcquire() {
		t.Error("first TryAcquire should succeed")
	}

	// second acquire should fail (already processing)
	if s.TryAcquire() {
		t.Error("second TryAcquire should fail")
	}

	// release and try again
	s.Release()

	if !s.TryAcquire() {
		t.Error("TryAcquire after Release should succeed")
	}
	s.Release()
}

func TestRegistryGetCreatesSession(t *testing.T) {
	reg := NewRegistry()

	sess1 := reg.Get("telegram:123")
	if sess1 == nil {
		t.Fatal("Get should create new session")
	}

	// same ID should return same session
	sess2 := reg.Get("telegram:123")
	if sess1 != sess2 {
		t.Error("Get should return same session for same ID")
	}

	if reg.Get("discord:222") == sess1 {
		t.Error("different IDs should get different sessions")
	}
}

func TestRegistryLockSerializesSession(t *testing.T) {
	reg := NewRegistry()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := reg.Lock("session_a")
			defer unlock()

			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}

	wg.Wait()

	if maxActive.Load() != 1 {
		t.Errorf("expected at most 1 concurrent holder, got %d", maxActive.Load())
	}
}

func TestRegistryLockIndependentSessions(t *testing.T) {
	reg := NewRegistry()

	unlockA := reg.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := reg.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b should not wait for a")
	}
}

func TestRegistryRegisterAndBroadcast(t *testing.T) {
	reg := NewRegistry()
	a := &fakeClient{id: "a"}
	b := &fakeClient{id: "b"}
	c := &fakeClient{id: "c", closed: true}

	reg.Register(a)
	reg.Register(b)
	reg.Register(c)

	if reg.Count() != 3 {
		t.Fatalf("expected 3 clients, got %d", reg.Count())
	}

	if n := reg.Broadcast([]byte("hi")); n != 2 {
		t.Errorf("expected 2 deliveries, got %d", n)
	}
	if a.received() != 1 || b.received() != 1 {
		t.Errorf("expected a and b to receive once, got %d and %d", a.received(), b.received())
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	reg := NewRegistry()
	old := &fakeClient{id: "a"}
	repl := &fakeClient{id: "a"}

	reg.Register(old)
	if prev := reg.Register(repl); prev != old {
		t.Fatal("expected previous client to be returned")
	}
	if !old.closed {
		t.Error("expected previous client to be closed")
	}

	// stale unregister must not remove the replacement
	if reg.Unregister(old) {
		t.Error("expected stale unregister to be ignored")
	}
	if got, ok := reg.Client("a"); !ok || got != repl {
		t.Error("expected replacement to stay registered")
	}

	if !reg.Unregister(repl) {
		t.Error("expected unregister to succeed")
	}
	if reg.Count() != 0 {
		t.Errorf("expected 0 clients, got %d", reg.Count())
	}
}

func TestRegistryPrune(t *testing.T) {
	reg := NewRegistry()

	reg.Get("idle")
	busy := reg.Get("busy")
	busy.TryAcquire()
	defer busy.Release()

	time.Sleep(50 * time.Millisecond)
	reg.Get("fresh")

	if n := reg.Prune(25 * time.Millisecond); n != 1 {
		t.Errorf("expected 1 pruned session, got %d", n)
	}
	if reg.Sessions() != 2 {
		t.Errorf("expected 2 sessions left, got %d", reg.Sessions())
	}
}

func TestRegistryForget(t *testing.T) {
	reg := NewRegistry()
	first := reg.Get("a")
	reg.Forget("a")

	if reg.Get("a") == first {
		t.Error("expected a new session after Forget")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c := &fakeClient{id: string(rune('a' + n%26))}
			reg.Register(c)
			reg.Broadcast([]byte("x"))
			reg.Unregister(c)
		}(i)
	}

	wg.Wait()

	if reg.Count() != 0 {
		t.Errorf("expected 0 clients after churn, got %d", reg.Count())
	}
}
