package events

import (
	"sync"

	"go.uber.org/fx"
)

const defaultSubscriberBuffer = 16

type Kind string

const (
	KindFacility  Kind = "facility"
	KindJob       Kind = "job"
	KindResources Kind = "resources"
)

// Event is one change notification. AccountID scopes delivery: only
// subscribers authenticated as that account receive the event.
type Event struct {
	AccountID string `json:"account"`
	Kind      Kind   `json:"kind"`
	State     any    `json:"state,omitempty"`
	Tombstone bool   `json:"tombstone,omitempty"`
}

// Hub fans events out to live subscribers keyed by account. Delivery is
// best-effort: a slow subscriber drops events, a disconnected one misses them.
type Hub struct {
	mu               sync.RWMutex
	accounts         map[string]map[uint64]chan Event
	nextID           uint64
	subscriberBuffer int
}

type Subscription struct {
	hub       *Hub
	accountID string
	id        uint64
	ch        chan Event
	once      sync.Once
}

func NewHub() *Hub {
	return &Hub{
		accounts:         make(map[string]map[uint64]chan Event),
		subscriberBuffer: defaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(event Event) {
	if h == nil || event.AccountID == "" {
		return
	}

	h.mu.RLock()
	subs := make([]chan Event, 0, len(h.accounts[event.AccountID]))
	for _, ch := range h.accounts[event.AccountID] {
		subs = append(subs, ch)
	}
	h.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) Subscribe(accountID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.accounts[accountID] == nil {
		h.accounts[accountID] = make(map[uint64]chan Event)
	}
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.subscriberBuffer)
	h.accounts[accountID][id] = ch

	return &Subscription{
		hub:       h,
		accountID: accountID,
		id:        id,
		ch:        ch,
	}
}

func (h *Hub) unsubscribe(accountID string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.accounts[accountID]
	if subs == nil {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(h.accounts, accountID)
	}
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.accountID, s.id)
	})
}

var Module = fx.Module("events",
	fx.Provide(NewHub),
)
