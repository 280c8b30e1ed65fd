package history

import (
	"sync"

	"kit-marketplace/logger"
	"kit-marketplace/models"

	"github.com/google/uuid"
)

// MaxPending is the number of undelivered updates a subscription may hold.
// A subscriber that falls further behind is cancelled: its Updates channel
// closes instead of skipping lists.
const MaxPending = 256

// Subscription is a live feed of the ordered history. Each subscription
// queues updates independently, so a slow reader never delays writers or
// other readers.
type Subscription struct {
	id      string
	limit   int
	updates chan []models.ViewedItem
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
	detach  func(id string)

	mu    sync.Mutex
	queue [][]models.ViewedItem
}

func newSubscription(detach func(id string), limit int) *Subscription {
	s := &Subscription{
		id:      uuid.NewString(),
		limit:   limit,
		updates: make(chan []models.ViewedItem),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		detach:  detach,
	}
	go s.run()
	return s
}

// ID identifies the subscription.
func (s *Subscription) ID() string { return s.id }

// Updates delivers one full ordered list per committed write. The channel is
// closed after Cancel or when the store is closed.
func (s *Subscription) Updates() <-chan []models.ViewedItem { return s.updates }

// Cancel stops the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	if s.detach != nil {
		s.detach(s.id)
	}
	s.stop()
}

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// push queues a private copy of items. It reports false once the
// subscription has stopped, either by Cancel or because the queue is full.
func (s *Subscription) push(items []models.ViewedItem) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	s.mu.Lock()
	if s.limit > 0 && len(s.queue) >= s.limit {
		s.queue = nil
		s.mu.Unlock()
		s.stop()
		return false
	}
	s.queue = append(s.queue, cloneItems(items))
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Subscription) run() {
	defer close(s.updates)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.updates <- next:
		case <-s.done:
			return
		}
	}
}

func cloneItems(items []models.ViewedItem) []models.ViewedItem {
	out := make([]models.ViewedItem, len(items))
	for i, it := range items {
		if it.Images != nil {
			it.Images = append([]string(nil), it.Images...)
		}
		out[i] = it
	}
	return out
}

type settled struct {
	items []models.ViewedItem
	ok    bool
}

// hub fans committed lists out to subscribers in commit order. Versions are
// taken inside the write transaction; a version whose commit failed is
// settled with ok=false so later versions are not held back.
type hub struct {
	mu      sync.Mutex
	version uint64
	pending map[uint64]settled
	latest  []models.ViewedItem
	subs    map[string]*Subscription
	limit   int
	closed  bool
}

func newHub(initial []models.ViewedItem) *hub {
	return &hub{
		pending: make(map[uint64]settled),
		latest:  cloneItems(initial),
		subs:    make(map[string]*Subscription),
		limit:   MaxPending,
	}
}

func (h *hub) settle(version uint64, items []models.ViewedItem, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pending[version] = settled{items: items, ok: ok}
	for {
		next, found := h.pending[h.version+1]
		if !found {
			return
		}
		delete(h.pending, h.version+1)
		h.version++
		if !next.ok {
			continue
		}
		h.latest = next.items
		if h.closed {
			continue
		}
		for id, sub := range h.subs {
			if !sub.push(next.items) {
				delete(h.subs, id)
				logger.Debug.Printf("history subscription %s dropped after %d undelivered updates", id, sub.limit)
			}
		}
	}
}

func (h *hub) subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := newSubscription(h.unsubscribe, h.limit)
	if h.closed {
		sub.stop()
		return sub
	}
	h.subs[sub.id] = sub
	sub.push(h.latest)
	return sub
}

func (h *hub) unsubscribe(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		sub.stop()
		delete(h.subs, id)
	}
}
