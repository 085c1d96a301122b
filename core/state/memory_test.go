package state

import (
	"sync"
	"testing"
	"time"
)

func TestGetReturnsIdleSession(t *testing.T) {
	store := NewMemoryStore()
	s := store.Get(1)
	if !s.Idle() {
		t.Fatalf("expected idle session, got depth %d", s.Depth())
	}
	if s.Data == nil {
		t.Fatal("expected initialized data map")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	s := store.Get(7)
	s.Stack = append(s.Stack, Frame{Conversation: "main", State: "menu"})
	s.Data["group"] = "OFFICE_GROUP"
	store.Put(7, s)

	got := store.Get(7)
	got.Stack[0].State = "changed"
	got.Data["group"] = "other"

	again := store.Get(7)
	if again.Stack[0].State != "menu" {
		t.Fatalf("stack aliased: %q", again.Stack[0].State)
	}
	if again.Data["group"] != "OFFICE_GROUP" {
		t.Fatalf("data aliased: %v", again.Data["group"])
	}
}

func TestPutDoesNotAliasCaller(t *testing.T) {
	store := NewMemoryStore()
	s := &Session{Data: map[string]any{"k": 1}}
	store.Put(3, s)
	s.Data["k"] = 2
	if v := store.Get(3).Data["k"]; v != 1 {
		t.Fatalf("expected stored value 1, got %v", v)
	}
}

func TestResetClearsStackAndData(t *testing.T) {
	s := &Session{Stack: []Frame{{Conversation: "a", State: "b"}}, Data: map[string]any{"x": true}}
	s.Reset()
	if !s.Idle() || len(s.Data) != 0 {
		t.Fatalf("reset left %d frames and %d keys", s.Depth(), len(s.Data))
	}
}

func TestLockSerializesSameUser(t *testing.T) {
	store := NewMemoryStore()
	unlock := store.Lock(1)

	acquired := make(chan struct{})
	go func() {
		u := store.Lock(1)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock not acquired after release")
	}
}

func TestLockDoesNotBlockOtherUsers(t *testing.T) {
	store := NewMemoryStore()
	unlock := store.Lock(1)
	defer unlock()

	done := make(chan struct{})
	go func() {
		u := store.Lock(2)
		u()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for another user blocked")
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	unlock := store.Lock(5)
	unlock()
	unlock()
	u := store.Lock(5)
	u()
}

func TestConcurrentDispatchKeepsCounts(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := store.Lock(9)
			defer unlock()
			s := store.Get(9)
			n, _ := s.Data["n"].(int)
			s.Data["n"] = n + 1
			store.Put(9, s)
		}()
	}
	wg.Wait()
	if n := store.Get(9).Data["n"]; n != 50 {
		t.Fatalf("expected 50 serialized increments, got %v", n)
	}
}
