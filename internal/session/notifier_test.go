package session

import (
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublish_OrderAndUnsubscribe(t *testing.T) {
	n := NewNotifier()
	var got []string

	unsubA := n.Subscribe(func(e Event) { got = append(got, "a:"+string(e.Kind)) })
	unsubB := n.Subscribe(func(e Event) { got = append(got, "b:"+string(e.Kind)) })

	n.Publish(Event{Kind: SignedIn, UserID: 1})
	unsubA()
	unsubA()
	n.Publish(Event{Kind: SignedOut, UserID: 1})
	unsubB()

	want := []string{"a:signed_in", "b:signed_in", "b:signed_out"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if n.Len() != 0 {
		t.Fatalf("expected no listeners left, got %d", n.Len())
	}
}

func TestPublish_SubscribeDuringPublish(t *testing.T) {
	n := NewNotifier()
	lateCalls := 0
	n.Subscribe(func(e Event) {
		n.Subscribe(func(Event) { lateCalls++ })
	})

	n.Publish(Event{Kind: SignedUp})
	if lateCalls != 0 {
		t.Fatalf("listener added during publish must not see that event")
	}
	n.Publish(Event{Kind: SignedIn})
	if lateCalls != 1 {
		t.Fatalf("expected late listener to see the next event, got %d calls", lateCalls)
	}
}

func TestPublish_SetsTimestamp(t *testing.T) {
	n := NewNotifier()
	var at Event
	defer n.Subscribe(func(e Event) { at = e })()
	n.Publish(Event{Kind: SignedIn})
	if at.At.IsZero() {
		t.Fatalf("expected publish time to be set")
	}
}

func TestConcurrentSubscribePublish(t *testing.T) {
	n := NewNotifier()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsub := n.Subscribe(func(Event) {})
			unsub()
		}()
		go func() {
			defer wg.Done()
			n.Publish(Event{Kind: SignedIn})
		}()
	}
	wg.Wait()
	if n.Len() != 0 {
		t.Fatalf("expected all listeners removed, got %d", n.Len())
	}
}
