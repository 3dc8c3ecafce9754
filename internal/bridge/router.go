package bridge

import (
	"strings"
	"sync"
)

const (
	defaultSubscriberCapacity = 100
	defaultBacklogLimit       = 50
	defaultDedupeWindow       = 1024

	// AnyCategory subscribes to envelopes of every category.
	AnyCategory = "*"
)

// RouterOption customizes Router construction.
type RouterOption func(*Router)

// Router fans accepted envelopes out to per-category subscribers with
// buffering, deduplication by message ID, and bounded channels.
type Router struct {
	mu           sync.RWMutex
	subscribers  map[string]map[*subscriber]struct{}
	backlog      map[string][]Envelope
	recentIDs    map[string]struct{}
	recentOrder  []string
	channelSize  int
	backlogLimit int
	dedupeWindow int
	logger       Logger
}

// Subscription represents an active category subscription.
type Subscription struct {
	Envelopes <-chan Envelope
	cancel    func()
}

// Close terminates the subscription.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewRouter constructs a router with sane defaults.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		subscribers:  map[string]map[*subscriber]struct{}{},
		backlog:      map[string][]Envelope{},
		recentIDs:    map[string]struct{}{},
		recentOrder:  make([]string, 0, defaultDedupeWindow),
		channelSize:  defaultSubscriberCapacity,
		backlogLimit: defaultBacklogLimit,
		dedupeWindow: defaultDedupeWindow,
		logger:       nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RouterWithLogger injects a logger for drop messages.
func RouterWithLogger(logger Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// RouterWithSubscriberCapacity overrides the buffered channel size per subscriber.
func RouterWithSubscriberCapacity(cap int) RouterOption {
	return func(r *Router) {
		if cap > 0 {
			r.channelSize = cap
		}
	}
}

// RouterWithBacklogLimit overrides how many envelopes are held per category
// before anyone subscribes.
func RouterWithBacklogLimit(limit int) RouterOption {
	return func(r *Router) {
		if limit > 0 {
			r.backlogLimit = limit
		}
	}
}

// RouterWithDedupeWindow controls how many recent message IDs are retained.
func RouterWithDedupeWindow(size int) RouterOption {
	return func(r *Router) {
		if size > 0 {
			r.dedupeWindow = size
		}
	}
}

// Subscribe registers for envelopes of one category, or AnyCategory.
// Envelopes buffered for that category are replayed first.
func (r *Router) Subscribe(category string) Subscription {
	key := normalizeCategory(category)
	sub := newSubscriber(r.channelSize, r.logger)
	var backlog []Envelope
	r.mu.Lock()
	if r.subscribers[key] == nil {
		r.subscribers[key] = map[*subscriber]struct{}{}
	}
	r.subscribers[key][sub] = struct{}{}
	if key == AnyCategory {
		for cat, queued := range r.backlog {
			backlog = append(backlog, queued...)
			delete(r.backlog, cat)
		}
	} else if queued := r.backlog[key]; len(queued) > 0 {
		backlog = append(backlog, queued...)
		delete(r.backlog, key)
	}
	r.mu.Unlock()
	for _, env := range backlog {
		sub.deliver(env)
	}
	return Subscription{
		Envelopes: sub.channel(),
		cancel: func() {
			r.removeSubscriber(key, sub)
		},
	}
}

// HandleEnvelope satisfies EnvelopeProcessor.
func (r *Router) HandleEnvelope(env Envelope) error {
	r.Route(env)
	return nil
}

// Route delivers the envelope to category and wildcard subscribers, or
// buffers it when there are none.
func (r *Router) Route(env Envelope) {
	if env.MessageID != "" && r.isDuplicate(env.MessageID) {
		return
	}
	key := normalizeCategory(env.Category)
	if key == "" {
		return
	}
	r.mu.RLock()
	subs := r.snapshotSubscribers(key)
	if key != AnyCategory {
		subs = append(subs, r.snapshotSubscribers(AnyCategory)...)
	}
	r.mu.RUnlock()
	if len(subs) == 0 {
		r.bufferEnvelope(key, env)
		return
	}
	for _, sub := range subs {
		sub.deliver(env)
	}
}

func (r *Router) snapshotSubscribers(key string) []*subscriber {
	live := r.subscribers[key]
	if len(live) == 0 {
		return nil
	}
	items := make([]*subscriber, 0, len(live))
	for sub := range live {
		items = append(items, sub)
	}
	return items
}

func (r *Router) removeSubscriber(key string, sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subs := r.subscribers[key]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(r.subscribers, key)
		}
	}
	sub.close()
}

func (r *Router) bufferEnvelope(key string, env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	queue := r.backlog[key]
	if len(queue) >= r.backlogLimit {
		queue = queue[1:]
		r.logger.Printf("bridge: backlog drop for %s (limit %d)", key, r.backlogLimit)
	}
	r.backlog[key] = append(queue, env)
}

func (r *Router) isDuplicate(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recentIDs[id]; ok {
		return true
	}
	r.recentIDs[id] = struct{}{}
	r.recentOrder = append(r.recentOrder, id)
	if len(r.recentOrder) > r.dedupeWindow {
		oldest := r.recentOrder[0]
		r.recentOrder = r.recentOrder[1:]
		delete(r.recentIDs, oldest)
	}
	return false
}

// Category keys are case-sensitive in the catalog, so only whitespace is trimmed.
func normalizeCategory(category string) string {
	return strings.TrimSpace(category)
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan Envelope
	logger Logger
	closed bool
}

func newSubscriber(capacity int, logger Logger) *subscriber {
	if capacity <= 0 {
		capacity = defaultSubscriberCapacity
	}
	return &subscriber{
		ch:     make(chan Envelope, capacity),
		logger: logger,
	}
}

func (s *subscriber) channel() <-chan Envelope {
	return s.ch
}

// deliver never blocks; on overflow the oldest queued envelope is dropped.
func (s *subscriber) deliver(env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- env:
			return
		default:
		}
		select {
		case oldest := <-s.ch:
			s.logger.Printf("bridge: dropped %s %s.%s (queue overflow)", oldest.MessageID, oldest.Category, oldest.API)
		default:
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
