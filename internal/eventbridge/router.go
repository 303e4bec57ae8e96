package eventbridge

import (
	"strings"
	"sync"

	"github.com/kingrea/council-terminal/internal/council"
)

const (
	defaultSubscriberCapacity = 100
	defaultDedupeWindow       = 1024
)

// RouterOption customizes Router construction.
type RouterOption func(*Router)

// Router hands bridge events to whoever has the conversation open. Events for
// a conversation nobody has open are held as that conversation's latest run:
// a run that ended with complete or error is replaced wholesale when the next
// run starts.
type Router struct {
	mu           sync.Mutex
	lanes        map[string]*lane
	seen         map[string]struct{}
	seenOrder    []string
	channelSize  int
	backlogLimit int
	dedupeWindow int
	logger       Logger
}

// lane is the router's view of one conversation.
type lane struct {
	subs map[*subscriber]struct{}
	held []Event
	// finished is set once the held run ended with complete or error.
	finished bool
}

// Subscription represents an active conversation subscription.
type Subscription struct {
	ConversationID string
	Events         <-chan Event
	cancel         func()
}

// Close terminates the subscription.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewRouter constructs a router holding DefaultBacklog events per conversation.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		lanes:        map[string]*lane{},
		seen:         map[string]struct{}{},
		channelSize:  defaultSubscriberCapacity,
		backlogLimit: DefaultBacklog,
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

// RouterWithBacklogLimit sets how many events are held for a conversation
// nobody has open. Settings.Backlog is the usual source.
func RouterWithBacklogLimit(limit int) RouterOption {
	return func(r *Router) {
		if limit > 0 {
			r.backlogLimit = limit
		}
	}
}

func RouterWithDedupeWindow(size int) RouterOption {
	return func(r *Router) {
		if size > 0 {
			r.dedupeWindow = size
		}
	}
}

// Subscribe opens a conversation. Held events are replayed first, in arrival
// order.
func (r *Router) Subscribe(conversationID string) Subscription {
	key := normalizeKey(conversationID)
	sub := newSubscriber(r.channelSize, r.logger)
	r.mu.Lock()
	l := r.lane(key)
	l.subs[sub] = struct{}{}
	replay := l.held
	l.held = nil
	l.finished = false
	r.mu.Unlock()
	for _, event := range replay {
		sub.deliver(event)
	}
	return Subscription{
		ConversationID: conversationID,
		Events:         sub.channel(),
		cancel: func() {
			r.unsubscribe(key, sub)
		},
	}
}

// HandleEvent satisfies the EventProcessor interface.
func (r *Router) HandleEvent(event Event) error {
	r.Route(event)
	return nil
}

// Route delivers event to the conversation's subscribers, or holds it when the
// conversation is not open.
func (r *Router) Route(event Event) {
	key := normalizeKey(event.ConversationID)
	if key == "" {
		return
	}
	r.mu.Lock()
	if event.EventID != "" && r.duplicate(event.EventID) {
		r.mu.Unlock()
		return
	}
	l := r.lane(key)
	if len(l.subs) == 0 {
		r.hold(key, l, event)
		r.mu.Unlock()
		return
	}
	subs := make([]*subscriber, 0, len(l.subs))
	for sub := range l.subs {
		subs = append(subs, sub)
	}
	r.mu.Unlock()
	for _, sub := range subs {
		sub.deliver(event)
	}
}

// Pending reports how many events are held for a conversation nobody has open.
func (r *Router) Pending(conversationID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.lanes[normalizeKey(conversationID)]; ok {
		return len(l.held)
	}
	return 0
}

// lane returns the lane for key, creating it. Callers hold r.mu.
func (r *Router) lane(key string) *lane {
	l, ok := r.lanes[key]
	if !ok {
		l = &lane{subs: map[*subscriber]struct{}{}}
		r.lanes[key] = l
	}
	return l
}

func (r *Router) unsubscribe(key string, sub *subscriber) {
	r.mu.Lock()
	if l, ok := r.lanes[key]; ok {
		delete(l.subs, sub)
		if len(l.subs) == 0 && len(l.held) == 0 {
			delete(r.lanes, key)
		}
	}
	r.mu.Unlock()
	sub.close()
}

// hold queues event for a closed conversation. Callers hold r.mu.
func (r *Router) hold(key string, l *lane, event Event) {
	if l.finished && startsRun(event) {
		if len(l.held) > 0 {
			r.logger.Printf("eventbridge: %s started a new run, discarding %d held events", key, len(l.held))
		}
		l.held = nil
		l.finished = false
	}
	if len(l.held) >= r.backlogLimit {
		victim := evictionIndex(l.held)
		r.logger.Printf("eventbridge: backlog full for %s, dropped %s", key, l.held[victim].Type)
		l.held = append(l.held[:victim], l.held[victim+1:]...)
	}
	l.held = append(l.held, event)
	if event.Payload.Terminal() {
		l.finished = true
	}
}

// duplicate records eventID and reports whether it was already seen. Callers
// hold r.mu.
func (r *Router) duplicate(eventID string) bool {
	if _, ok := r.seen[eventID]; ok {
		return true
	}
	r.seen[eventID] = struct{}{}
	r.seenOrder = append(r.seenOrder, eventID)
	if len(r.seenOrder) > r.dedupeWindow {
		delete(r.seen, r.seenOrder[0])
		r.seenOrder = r.seenOrder[1:]
	}
	return false
}

func startsRun(event Event) bool {
	_, phase, ok := event.Payload.StageEvent()
	return ok && phase == "start"
}

// evictionIndex picks which held event to give up when the backlog is full:
// the oldest progress update, else the oldest non-result, else the oldest.
func evictionIndex(held []Event) int {
	for i, e := range held {
		if isPreferredDrop(e.Type) {
			return i
		}
	}
	for i, e := range held {
		if !isCriticalEvent(e.Type) {
			return i
		}
	}
	return 0
}

func normalizeKey(conversationID string) string {
	return strings.TrimSpace(strings.ToLower(conversationID))
}

type subscriber struct {
	ch      chan Event
	logger  Logger
	closed  bool
	closeMu sync.Mutex
}

func newSubscriber(capacity int, logger Logger) *subscriber {
	if capacity <= 0 {
		capacity = defaultSubscriberCapacity
	}
	return &subscriber{
		ch:     make(chan Event, capacity),
		logger: logger,
	}
}

func (s *subscriber) channel() <-chan Event {
	return s.ch
}

// deliver holds closeMu for the whole send so close cannot race a write.
func (s *subscriber) deliver(event Event) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- event:
		return
	default:
	}
	var oldest Event
	select {
	case oldest = <-s.ch:
	default:
		// drained by the reader in the meantime
		s.ch <- event
		return
	}
	if shouldDropOldest(oldest, event) {
		s.logDrop(oldest)
		s.ch <- event
	} else {
		s.ch <- oldest
		s.logDrop(event)
	}
}

func (s *subscriber) logDrop(event Event) {
	s.logger.Printf("eventbridge: queue full, dropped %s for %s", event.Type, event.ConversationID)
}

func (s *subscriber) close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// shouldDropOldest picks the victim when a subscriber queue is full. Results
// and terminal events are never dropped in favour of progress noise.
func shouldDropOldest(oldest, incoming Event) bool {
	oldestCritical := isCriticalEvent(oldest.Type)
	incomingCritical := isCriticalEvent(incoming.Type)
	switch {
	case oldestCritical && !incomingCritical:
		return false
	case !oldestCritical && incomingCritical:
		return true
	}
	return isPreferredDrop(oldest.Type) || !isPreferredDrop(incoming.Type)
}

func isCriticalEvent(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case council.EventComplete, council.EventError:
		return true
	}
	return strings.HasSuffix(kind, "_complete") && kind != council.EventTitleComplete
}

func isPreferredDrop(kind string) bool {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case council.EventTiming, council.EventTitleComplete:
		return true
	}
	return false
}
