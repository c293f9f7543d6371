package registry

import (
	"errors"
	"sync"
	"testing"
)

type fakeHandle struct {
	mu      sync.Mutex
	writes  [][]byte
	err     error
	writing bool
	overlap bool
}

func (f *fakeHandle) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	if f.writing {
		f.overlap = true
	}
	f.writing = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.writing = false
		f.mu.Unlock()
	}()

	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.writes = append(f.writes, append([]byte(nil), data...))
	f.mu.Unlock()
	return nil
}

func (f *fakeHandle) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func TestRegisterSendUnregister(t *testing.T) {
	r := New(nil)
	h := &fakeHandle{}
	id := r.Register(h)
	if id == "" {
		t.Fatal("Register returned empty id")
	}
	if got := r.Count(); got != 1 {
		t.Fatalf("Count=%d, want 1", got)
	}

	r.Send(id, map[string]string{"type": "ping"})
	if got := h.count(); got != 1 {
		t.Fatalf("writes=%d, want 1", got)
	}
	if string(h.writes[0]) != `{"type":"ping"}` {
		t.Fatalf("payload=%s", h.writes[0])
	}

	r.Unregister(id)
	r.Unregister(id)
	if got := r.Count(); got != 0 {
		t.Fatalf("Count=%d after unregister, want 0", got)
	}

	r.Send(id, map[string]string{"type": "late"})
	if got := h.count(); got != 1 {
		t.Fatalf("writes=%d after unregister, want 1", got)
	}
}

func TestSendSwallowsTransportFailure(t *testing.T) {
	r := New(nil)
	id := r.Register(&fakeHandle{err: errors.New("broken pipe")})
	r.Send(id, map[string]string{"type": "x"})
	if got := r.Count(); got != 1 {
		t.Fatalf("Count=%d, want 1 (send failure must not unregister)", got)
	}
}

func TestDeliverReportsFailures(t *testing.T) {
	r := New(nil)
	broken := errors.New("broken pipe")
	id := r.Register(&fakeHandle{err: broken})

	if err := r.Deliver(id, map[string]string{"type": "x"}); !errors.Is(err, broken) {
		t.Fatalf("Deliver err=%v, want broken pipe", err)
	}
	if err := r.Deliver("missing", map[string]string{"type": "x"}); !errors.Is(err, ErrUnknownConnection) {
		t.Fatalf("Deliver(missing) err=%v, want ErrUnknownConnection", err)
	}
	if err := r.Deliver(id, func() {}); err == nil {
		t.Fatal("Deliver(unmarshalable) err=nil")
	}
}

func TestUnknownUnregisterIsNoop(t *testing.T) {
	r := New(nil)
	r.Unregister("missing")
	if got := r.Count(); got != 0 {
		t.Fatalf("Count=%d, want 0", got)
	}
}

func TestBindUserRemovedOnUnregister(t *testing.T) {
	r := New(nil)
	first := r.Register(&fakeHandle{})
	second := r.Register(&fakeHandle{})

	r.BindUser("u1", first)
	r.BindUser("u1", second)
	r.BindUser("", first)
	r.BindUser("u2", "missing")

	got, ok := r.UserConnection("u1")
	if !ok || got != second {
		t.Fatalf("UserConnection(u1)=%q,%v, want %q,true", got, ok, second)
	}
	if _, ok := r.UserConnection("u2"); ok {
		t.Fatal("UserConnection(u2) ok=true for unknown connection, want false")
	}

	r.Unregister(second)
	if _, ok := r.UserConnection("u1"); ok {
		t.Fatal("UserConnection(u1) ok=true after unregister, want false")
	}
}

func TestConcurrentSendsSerializePerConnection(t *testing.T) {
	r := New(nil)
	h := &fakeHandle{}
	id := r.Register(h)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Send(id, map[string]int{"n": n})
		}(i)
	}
	wg.Wait()

	if got := h.count(); got != 50 {
		t.Fatalf("writes=%d, want 50", got)
	}
	if h.overlap {
		t.Fatal("concurrent writes overlapped on one connection")
	}
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	r := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.Register(&fakeHandle{})
			r.BindUser("user", id)
			r.Send(id, "x")
			r.Unregister(id)
		}()
	}
	wg.Wait()
	if got := r.Count(); got != 0 {
		t.Fatalf("Count=%d, want 0", got)
	}
}
