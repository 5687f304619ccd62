package events

import "testing"

func TestPublishIsScopedToAccount(t *testing.T) {
	hub := NewHub()

	alice := hub.Subscribe("acct-alice")
	defer alice.Close()
	bob := hub.Subscribe("acct-bob")
	defer bob.Close()

	hub.Publish(Event{AccountID: "acct-alice", Kind: KindJob})

	select {
	case ev := <-alice.Events():
		if ev.AccountID != "acct-alice" || ev.Kind != KindJob {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected alice to receive the event")
	}

	select {
	case ev := <-bob.Events():
		t.Fatalf("bob received foreign event %+v", ev)
	default:
	}
}

func TestPublishDropsWhenSubscriberIsSlow(t *testing.T) {
	hub := NewHub()
	hub.subscriberBuffer = 2

	sub := hub.Subscribe("acct-1")
	defer sub.Close()

	// Publishing past the buffer must not block.
	for i := 0; i < 10; i++ {
		hub.Publish(Event{AccountID: "acct-1", Kind: KindFacility})
	}

	received := 0
	for {
		select {
		case <-sub.Events():
			received++
			continue
		default:
		}
		break
	}
	if received != 2 {
		t.Fatalf("expected buffer-limited delivery of 2 events, got %d", received)
	}
}

func TestClosedSubscriptionStopsReceiving(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe("acct-1")
	sub.Close()
	sub.Close() // idempotent

	hub.Publish(Event{AccountID: "acct-1", Kind: KindJob})

	select {
	case ev := <-sub.Events():
		t.Fatalf("received event after close: %+v", ev)
	default:
	}
}

func TestPublishWithoutAccountIsIgnored(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe("")
	defer sub.Close()

	hub.Publish(Event{Kind: KindJob})

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}
