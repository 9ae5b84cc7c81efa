package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/metrics"
)

// DefaultQueueSize bounds the number of undelivered messages per session
const DefaultQueueSize = 64

// Session is one live connection. Messages for it are queued on a bounded
// channel drained by the transport.
type Session struct {
	ID     string
	UserID int64

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session for an authenticated user
func NewSession(userID int64, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		send:   make(chan []byte, queueSize),
		done:   make(chan struct{}),
	}
}

// Send returns the queue of outbound messages
func (s *Session) Send() <-chan []byte { return s.send }

// Done is closed when the session must stop
func (s *Session) Done() <-chan struct{} { return s.done }

// Close marks the session as finished. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// enqueue never blocks; it reports false when the queue is full or the
// session is closed
func (s *Session) enqueue(msg []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// Hub is the session/channel registry. Channels are keyed by wishlist id.
type Hub struct {
	mu       sync.RWMutex
	channels map[int64]map[*Session]struct{}
	sessions map[*Session]map[int64]struct{}
	// open holds every registered session, joined or not
	open     map[*Session]struct{}

	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// NewHub creates an empty registry
func NewHub(logger *logrus.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		channels: make(map[int64]map[*Session]struct{}),
		sessions: make(map[*Session]map[int64]struct{}),
		open:     make(map[*Session]struct{}),
		logger:   logger,
		metrics:  m,
	}
}

// Join subscribes s to the wishlist channel. It reports whether the
// subscription is new; joining twice is a no-op.
func (h *Hub) Join(s *Session, wishlistID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.channels[wishlistID]
	if !ok {
		subs = make(map[*Session]struct{})
		h.channels[wishlistID] = subs
	}
	if _, joined := subs[s]; joined {
		return false
	}
	subs[s] = struct{}{}

	joined, ok := h.sessions[s]
	if !ok {
		joined = make(map[int64]struct{})
		h.sessions[s] = joined
	}
	joined[wishlistID] = struct{}{}

	h.metrics.Subscribed()
	return true
}

// Leave unsubscribes s from the wishlist channel. It reports whether s was
// subscribed.
func (h *Hub) Leave(s *Session, wishlistID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.unsubscribeLocked(s, wishlistID) {
		return false
	}
	h.metrics.Unsubscribed(1)
	return true
}

// Register tracks s so that CloseAll reaches it before it joins a channel
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.open[s] = struct{}{}
}

// Remove drops s from every channel and forgets it
func (h *Hub) Remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.open, s)

	n := 0
	for wishlistID := range h.sessions[s] {
		if h.unsubscribeLocked(s, wishlistID) {
			n++
		}
	}
	delete(h.sessions, s)
	if n > 0 {
		h.metrics.Unsubscribed(n)
	}
}

func (h *Hub) unsubscribeLocked(s *Session, wishlistID int64) bool {
	subs, ok := h.channels[wishlistID]
	if !ok {
		return false
	}
	if _, joined := subs[s]; !joined {
		return false
	}

	delete(subs, s)
	if len(subs) == 0 {
		delete(h.channels, wishlistID)
	}
	if joined, ok := h.sessions[s]; ok {
		delete(joined, wishlistID)
		if len(joined) == 0 {
			delete(h.sessions, s)
		}
	}
	return true
}

// IsJoined reports whether s is subscribed to the wishlist channel
func (h *Hub) IsJoined(s *Session, wishlistID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.channels[wishlistID][s]
	return ok
}

// Subscribers returns the number of sessions in the wishlist channel
func (h *Hub) Subscribers(wishlistID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.channels[wishlistID])
}

// Channels returns the wishlist ids s is subscribed to
func (h *Hub) Channels(s *Session) []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]int64, 0, len(h.sessions[s]))
	for id := range h.sessions[s] {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast queues msg on every session in the wishlist channel except the
// one whose ID equals exceptID. Sessions whose queue is full are closed and
// removed. It returns the number of sessions the message was queued for.
func (h *Hub) Broadcast(wishlistID int64, msg []byte, exceptID string) int {
	h.mu.RLock()
	subs := h.channels[wishlistID]
	if len(subs) == 0 {
		h.mu.RUnlock()
		return 0
	}
	targets := make([]*Session, 0, len(subs))
	for s := range subs {
		if exceptID != "" && s.ID == exceptID {
			continue
		}
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	var slow []*Session
	for _, s := range targets {
		if s.enqueue(msg) {
			delivered++
			h.metrics.Delivered()
			continue
		}
		h.metrics.Dropped()
		slow = append(slow, s)
	}

	for _, s := range slow {
		h.logger.WithFields(logrus.Fields{
			"session_id":  s.ID,
			"user_id":     s.UserID,
			"wishlist_id": wishlistID,
		}).Warn("Dropping slow realtime session")
		s.Close()
		h.Remove(s)
	}

	return delivered
}

// EvictUser unsubscribes every session of userID from the wishlist channel.
// It returns the number of sessions removed.
func (h *Hub) EvictUser(wishlistID, userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for s := range h.channels[wishlistID] {
		if s.UserID == userID && h.unsubscribeLocked(s, wishlistID) {
			n++
		}
	}
	if n > 0 {
		h.metrics.Unsubscribed(n)
	}
	return n
}

// CloseChannel unsubscribes every session from the wishlist channel
func (h *Hub) CloseChannel(wishlistID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for s := range h.channels[wishlistID] {
		if h.unsubscribeLocked(s, wishlistID) {
			n++
		}
	}
	if n > 0 {
		h.metrics.Unsubscribed(n)
	}
	return n
}

// CloseAll closes every registered or subscribed session. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.open {
		s.Close()
	}
	for s := range h.sessions {
		s.Close()
	}
}
