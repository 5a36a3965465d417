// Package notify is the in-process publish/subscribe hub. Repositories
// publish an event after every successful mutation; consumers subscribe
// per entity kind. There is no replay: a subscriber only sees events
// published after it subscribed.
package notify

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

type Event struct {
	Kind   domain.Kind
	Type   EventType
	Entity any
}

// Subscription is one subscriber's independent, ordered event stream.
// The buffer is bounded; when a slow subscriber overflows it, the oldest
// buffered event is dropped so publishers never block.
type Subscription struct {
	ID   uuid.UUID
	Kind domain.Kind

	ch   chan Event
	once sync.Once
}

// Events returns the receive side of the stream. The channel is closed by
// Unsubscribe or by closing the notifier.
func (s *Subscription) Events() <-chan Event { return s.ch }

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

type Notifier struct {
	mu      sync.RWMutex
	log     *logger.Logger
	bufSize int
	subs    map[domain.Kind]map[*Subscription]struct{}
	closed  bool
}

const defaultBufferSize = 64

func New(log *logger.Logger) *Notifier {
	return NewWithBuffer(log, defaultBufferSize)
}

func NewWithBuffer(log *logger.Logger, bufSize int) *Notifier {
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	return &Notifier{
		log:     log.With("component", "ChangeNotifier"),
		bufSize: bufSize,
		subs:    make(map[domain.Kind]map[*Subscription]struct{}),
	}
}

func (n *Notifier) Subscribe(kind domain.Kind) *Subscription {
	sub := &Subscription{
		ID:   uuid.New(),
		Kind: kind,
		ch:   make(chan Event, n.bufSize),
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		sub.close()
		return sub
	}
	set, ok := n.subs[kind]
	if !ok {
		set = make(map[*Subscription]struct{})
		n.subs[kind] = set
	}
	set[sub] = struct{}{}
	n.log.Debug("subscriber added", "subscriptionID", sub.ID, "kind", kind)
	return sub
}

func (n *Notifier) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	n.mu.Lock()
	if set, ok := n.subs[sub.Kind]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(n.subs, sub.Kind)
		}
	}
	n.mu.Unlock()
	sub.close()
}

// Publish delivers to every current subscriber of the event's kind.
// Fire and forget: a full subscriber buffer sheds its oldest entry.
func (n *Notifier) Publish(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	for sub := range n.subs[ev.Kind] {
		select {
		case sub.ch <- ev:
			continue
		default:
		}
		// Buffer full: shed the oldest event, then retry once.
		select {
		case <-sub.ch:
			n.log.Warn("subscriber buffer full, dropping oldest event",
				"subscriptionID", sub.ID, "kind", ev.Kind)
		default:
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Close tears down every subscription. Further publishes are no-ops.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for _, set := range n.subs {
		for sub := range set {
			sub.close()
		}
	}
	n.subs = make(map[domain.Kind]map[*Subscription]struct{})
}
