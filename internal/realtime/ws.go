package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Authorizer decides whether a user may subscribe to a wishlist channel
type Authorizer interface {
	AuthorizeChannel(ctx context.Context, userID, wishlistID int64) error
}

// Server upgrades authenticated HTTP requests into realtime sessions
type Server struct {
	hub        *Hub
	dispatcher *Dispatcher
	authz      Authorizer
	logger     *logrus.Logger
	metrics    *metrics.Metrics
	upgrader   websocket.Upgrader
	queueSize  int
}

// NewServer creates the WebSocket endpoint. An empty allowedOrigins accepts
// same-origin requests only.
func NewServer(hub *Hub, dispatcher *Dispatcher, authz Authorizer, allowedOrigins []string, logger *logrus.Logger, m *metrics.Metrics) *Server {
	s := &Server{
		hub:        hub,
		dispatcher: dispatcher,
		authz:      authz,
		logger:     logger,
		metrics:    m,
		queueSize:  DefaultQueueSize,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || origin == allowed {
					return true
				}
			}
			return false
		}
	}
	return s
}

// Serve upgrades the request and runs the session until the connection
// closes. userID must already be authenticated.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	session := NewSession(userID, s.queueSize)
	s.hub.Register(session)
	log := s.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"user_id":    userID,
	})

	s.metrics.SessionOpened()
	log.Info("Realtime session opened")

	defer func() {
		s.hub.Remove(session)
		session.Close()
		conn.Close()
		s.metrics.SessionClosed()
		log.Info("Realtime session closed")
	}()

	s.sendFrame(session, EventConnected, 0, ConnectedPayload{SessionID: session.ID, UserID: userID})

	go s.writePump(conn, session, log)
	s.readPump(r.Context(), conn, session, log)
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, session *Session, log *logrus.Entry) {
	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.WithError(err).Warn("Failed to set initial read deadline")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ControlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("WebSocket read error")
			}
			return
		}
		s.handleControl(ctx, session, msg, log)

		select {
		case <-session.Done():
			return
		default:
		}
	}
}

// handleControl applies one inbound control message. Join requires read
// access to the wishlist; typing is only relayed to channels the session has
// joined.
func (s *Server) handleControl(ctx context.Context, session *Session, msg ControlMessage, log *logrus.Entry) {
	log = log.WithFields(logrus.Fields{"control": msg.Type, "wishlist_id": msg.WishlistID})

	switch msg.Type {
	case ControlJoinWishlist:
		if err := s.authz.AuthorizeChannel(ctx, session.UserID, msg.WishlistID); err != nil {
			log.WithError(err).Warn("Channel join denied")
			s.sendFrame(session, EventError, msg.WishlistID, ErrorPayload{Message: "cannot join wishlist"})
			return
		}
		if s.hub.Join(session, msg.WishlistID) {
			log.Debug("Joined wishlist channel")
		}

	case ControlLeaveWishlist:
		if s.hub.Leave(session, msg.WishlistID) {
			log.Debug("Left wishlist channel")
		}

	case ControlTypingComment:
		if !s.hub.IsJoined(session, msg.WishlistID) {
			return
		}
		ev, err := NewEvent(EventUserTypingComment, msg.WishlistID, session.UserID, TypingPayload{
			ItemID:   msg.ItemID,
			UserID:   session.UserID,
			IsTyping: msg.IsTyping,
		})
		if err != nil {
			log.WithError(err).Error("Failed to build typing event")
			return
		}
		ev.Origin = session.ID
		s.dispatcher.PublishEvent(ctx, ev)

	default:
		s.sendFrame(session, EventError, msg.WishlistID, ErrorPayload{Message: "unknown message type"})
	}
}

// sendFrame queues a session-level frame that is not broadcast
func (s *Server) sendFrame(session *Session, eventType EventType, wishlistID int64, payload any) {
	ev, err := NewEvent(eventType, wishlistID, 0, payload)
	if err != nil {
		return
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return
	}
	session.enqueue(msg)
}

func (s *Server) writePump(conn *websocket.Conn, session *Session, log *logrus.Entry) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		// Unblocks readPump when the write side fails first.
		conn.Close()
	}()

	for {
		select {
		case <-session.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case msg := <-session.Send():
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.WithError(err).Warn("Failed to set write deadline")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Debug("WebSocket write failed")
				session.Close()
				return
			}

		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.WithError(err).Debug("Ping failed")
				session.Close()
				return
			}
		}
	}
}
