package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Kerhoff/WishShare/internal/realtime"
)

// Stream is a live connection to the server's realtime endpoint
type Stream struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// Dial opens a realtime connection authenticated with token
func Dial(ctx context.Context, baseURL, token string) (*Stream, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/api/ws")
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", u.Host, err)
	}
	return &Stream{conn: conn}, nil
}

func (s *Stream) send(msg realtime.ControlMessage) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}
	return nil
}

// Join subscribes to a wishlist channel
func (s *Stream) Join(wishlistID int64) error {
	return s.send(realtime.ControlMessage{Type: realtime.ControlJoinWishlist, WishlistID: wishlistID})
}

// Leave unsubscribes from a wishlist channel
func (s *Stream) Leave(wishlistID int64) error {
	return s.send(realtime.ControlMessage{Type: realtime.ControlLeaveWishlist, WishlistID: wishlistID})
}

// Typing tells the other viewers whether the user is typing a comment
func (s *Stream) Typing(wishlistID, itemID int64, typing bool) error {
	return s.send(realtime.ControlMessage{
		Type:       realtime.ControlTypingComment,
		WishlistID: wishlistID,
		ItemID:     itemID,
		IsTyping:   typing,
	})
}

// Next blocks until the next event arrives
func (s *Stream) Next() (realtime.Event, error) {
	var ev realtime.Event
	if err := s.conn.ReadJSON(&ev); err != nil {
		return realtime.Event{}, err
	}
	return ev, nil
}

// Watch applies every incoming event to view and then calls fn, until ctx
// is done or the connection fails. Events the view cannot apply are skipped.
func (s *Stream) Watch(ctx context.Context, view *View, fn func(realtime.Event)) error {
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	for {
		ev, err := s.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := view.Apply(ev); err != nil {
			continue
		}
		if fn != nil {
			fn(ev)
		}
	}
}

// Close sends a close frame and closes the connection
func (s *Stream) Close() error {
	s.wmu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.wmu.Unlock()
	return s.conn.Close()
}
