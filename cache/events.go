package cache

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dailyyoga/cachedkv/store"
)

// attachment is one backend registration behind a facade subscription
type attachment struct {
	notifier store.Notifier
	event    string
	id       store.ListenerID
}

// subscriptions maps facade handles to backend registrations, a
// TargetBoth subscription has one registration per backend
type subscriptions struct {
	nextID atomic.Uint64

	mu   sync.Mutex
	byID map[store.ListenerID][]attachment
}

func newSubscriptions() *subscriptions {
	return &subscriptions{byID: make(map[store.ListenerID][]attachment)}
}

func (s *subscriptions) add(notifiers []store.Notifier, event string, fn store.Listener) store.ListenerID {
	id := store.ListenerID(s.nextID.Add(1))
	if fn == nil || len(notifiers) == 0 {
		return id
	}

	atts := make([]attachment, 0, len(notifiers))
	for _, n := range notifiers {
		atts = append(atts, attachment{notifier: n, event: event, id: n.On(event, fn)})
	}

	s.mu.Lock()
	s.byID[id] = atts
	s.mu.Unlock()
	return id
}

func (s *subscriptions) remove(notifiers []store.Notifier, event string, id store.ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	atts := s.byID[id]
	kept := atts[:0]
	for _, a := range atts {
		if a.event == event && slices.Contains(notifiers, a.notifier) {
			a.notifier.Off(a.event, a.id)
			continue
		}
		kept = append(kept, a)
	}
	if len(kept) == 0 {
		delete(s.byID, id)
		return
	}
	s.byID[id] = kept
}
