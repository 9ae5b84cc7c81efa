package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/auth"
	"github.com/Kerhoff/WishShare/internal/metrics"
	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/realtime"
	"github.com/Kerhoff/WishShare/internal/repository"
	"github.com/Kerhoff/WishShare/internal/repository/memory"
	"github.com/Kerhoff/WishShare/internal/service"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	ts, _ := newTestAPIWith(t, nil)
	return ts
}

// newTestAPIWith builds the full stack on the memory store. wrap, when set,
// may replace repositories before the service is built.
func newTestAPIWith(t *testing.T, wrap func(*service.Repositories)) (*httptest.Server, *realtime.Dispatcher) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := metrics.New()

	tokens, err := auth.NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	store := memory.New()
	hub := realtime.NewHub(logger, m)
	dispatcher := realtime.NewDispatcher(hub, nil, logger, m)
	repos := service.Repositories{
		Users:     store.Users(),
		Wishlists: store.Wishlists(),
		Items:     store.Items(),
		Comments:  store.Comments(),
		Reactions: store.Reactions(),
	}
	if wrap != nil {
		wrap(&repos)
	}
	svc := service.New(repos, tokens, dispatcher, logger, m)
	ws := realtime.NewServer(hub, dispatcher, svc, nil, logger, m)

	ts := httptest.NewServer(NewServer(svc, ws, []string{"http://app.example.com"}, logger, m).Handler())
	t.Cleanup(ts.Close)
	return ts, dispatcher
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		c.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatal(err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func signUp(t *testing.T, ts *httptest.Server, email, name string) (*client, *models.User) {
	t.Helper()

	c := &client{t: t, base: ts.URL}
	var sess service.Session
	status := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email":        email,
		"password":     "password123",
		"display_name": name,
	}, &sess)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, status)
	}
	c.token = sess.Token
	return c, sess.User
}

func TestAuthFlow(t *testing.T) {
	ts := newTestAPI(t)

	anon := &client{t: t, base: ts.URL}
	if status := anon.do(http.MethodGet, "/api/auth/me", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("anonymous me = %d", status)
	}

	alice, user := signUp(t, ts, "alice@example.com", "Alice")

	var me models.User
	if status := alice.do(http.MethodGet, "/api/auth/me", nil, &me); status != http.StatusOK || me.ID != user.ID {
		t.Fatalf("me = %d %+v", status, me)
	}

	bad := &client{t: t, base: ts.URL}
	if status := bad.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "nope",
	}, nil); status != http.StatusUnauthorized {
		t.Fatalf("bad login = %d", status)
	}

	var sess service.Session
	if status := bad.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "password123",
	}, &sess); status != http.StatusOK || sess.Token == "" {
		t.Fatalf("login = %d", status)
	}

	if status := anon.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "alice@example.com", "password": "password123", "display_name": "Again",
	}, nil); status != http.StatusConflict {
		t.Fatalf("duplicate register = %d", status)
	}

	var updated models.User
	if status := alice.do(http.MethodPut, "/api/auth/me", map[string]string{"display_name": "Al"}, &updated); status != http.StatusOK || updated.DisplayName != "Al" {
		t.Fatalf("update me = %d %+v", status, updated)
	}
}

func TestBirthdayOverHTTP(t *testing.T) {
	ts := newTestAPI(t)
	alice, aliceUser := signUp(t, ts, "a@x.com", "Alice")
	bob, _ := signUp(t, ts, "b@x.com", "Bob")

	var list models.Wishlist
	if status := alice.do(http.MethodPost, "/api/wishlists", map[string]any{"name": "Birthday", "is_public": false}, &list); status != http.StatusCreated {
		t.Fatalf("create wishlist = %d", status)
	}
	base := fmt.Sprintf("/api/wishlists/%d", list.ID)

	if status := bob.do(http.MethodGet, base, nil, nil); status != http.StatusForbidden {
		t.Fatalf("bob before invite = %d", status)
	}
	if status := alice.do(http.MethodPost, base+"/invite", map[string]string{"email": "b@x.com"}, nil); status != http.StatusOK {
		t.Fatalf("invite = %d", status)
	}
	if status := alice.do(http.MethodPost, base+"/invite", map[string]string{"email": "b@x.com"}, nil); status != http.StatusConflict {
		t.Fatalf("repeat invite = %d", status)
	}

	var bike models.Item
	if status := bob.do(http.MethodPost, base+"/items", map[string]any{"name": "Bike", "priority": "high"}, &bike); status != http.StatusCreated {
		t.Fatalf("create item = %d", status)
	}
	itemPath := fmt.Sprintf("%s/items/%d", base, bike.ID)

	var claimed models.Item
	if status := alice.do(http.MethodPost, itemPath+"/claim", nil, &claimed); status != http.StatusOK {
		t.Fatalf("claim = %d", status)
	}
	if claimed.Status != models.ItemStatusClaimed || *claimed.ClaimedByID != aliceUser.ID {
		t.Fatalf("claimed = %+v", claimed)
	}
	if status := bob.do(http.MethodPost, itemPath+"/claim", nil, nil); status != http.StatusConflict {
		t.Fatalf("second claim = %d", status)
	}

	var comment models.Comment
	if status := bob.do(http.MethodPost, itemPath+"/comments", map[string]string{"text": "red one!"}, &comment); status != http.StatusCreated {
		t.Fatalf("comment = %d", status)
	}
	if status := bob.do(http.MethodPost, itemPath+"/reactions", map[string]string{"emoji": "🎉"}, nil); status != http.StatusOK {
		t.Fatalf("reaction = %d", status)
	}

	var got models.Item
	if status := alice.do(http.MethodGet, itemPath, nil, &got); status != http.StatusOK {
		t.Fatalf("get item = %d", status)
	}
	if len(got.Comments) != 1 || len(got.Reactions) != 1 {
		t.Fatalf("item children = %+v / %+v", got.Comments, got.Reactions)
	}

	if status := bob.do(http.MethodDelete, fmt.Sprintf("%s/comments/%d", itemPath, comment.ID), nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete comment = %d", status)
	}
	if status := bob.do(http.MethodDelete, base, nil, nil); status != http.StatusForbidden {
		t.Fatalf("member delete wishlist = %d", status)
	}
	if status := alice.do(http.MethodDelete, base, nil, nil); status != http.StatusNoContent {
		t.Fatalf("owner delete wishlist = %d", status)
	}
	if status := alice.do(http.MethodGet, base+"/items", nil, nil); status != http.StatusNotFound {
		t.Fatalf("items after delete = %d", status)
	}
}

func TestValidationResponse(t *testing.T) {
	ts := newTestAPI(t)
	alice, _ := signUp(t, ts, "a@x.com", "Alice")

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/wishlists", strings.NewReader(`{"name":"","color":"red"}`))
	req.Header.Set("Authorization", "Bearer "+alice.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body validationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Errors) != 2 {
		t.Fatalf("errors = %+v", body.Errors)
	}

	if status := alice.do(http.MethodGet, "/api/wishlists/abc", nil, nil); status != http.StatusBadRequest {
		t.Fatalf("bad id = %d", status)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestAPI(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/wishlists", nil)
	req.Header.Set("Origin", "http://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://app.example.com" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestLiveItemAdded(t *testing.T) {
	ts := newTestAPI(t)
	alice, _ := signUp(t, ts, "a@x.com", "Alice")
	bob, _ := signUp(t, ts, "b@x.com", "Bob")

	var w42, w43 models.Wishlist
	alice.do(http.MethodPost, "/api/wishlists", map[string]any{"name": "Watched"}, &w42)
	alice.do(http.MethodPost, "/api/wishlists", map[string]any{"name": "Unwatched"}, &w43)
	alice.do(http.MethodPost, fmt.Sprintf("/api/wishlists/%d/invite", w42.ID), map[string]string{"email": "b@x.com"}, nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws?token=" + bob.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() realtime.Event {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev realtime.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		return ev
	}

	if ev := read(); ev.Type != realtime.EventConnected {
		t.Fatalf("first frame = %s", ev.Type)
	}

	conn.WriteJSON(realtime.ControlMessage{Type: realtime.ControlJoinWishlist, WishlistID: w42.ID})
	// Bob cannot read the second wishlist; the error frame also confirms the
	// first join was processed.
	conn.WriteJSON(realtime.ControlMessage{Type: realtime.ControlJoinWishlist, WishlistID: w43.ID})
	if ev := read(); ev.Type != realtime.EventError {
		t.Fatalf("denied join frame = %s", ev.Type)
	}

	alice.do(http.MethodPost, fmt.Sprintf("/api/wishlists/%d/items", w43.ID), map[string]any{"name": "Hidden"}, nil)
	var lamp models.Item
	alice.do(http.MethodPost, fmt.Sprintf("/api/wishlists/%d/items", w42.ID), map[string]any{"name": "Lamp"}, &lamp)

	ev := read()
	if ev.Type != realtime.EventItemAdded || ev.WishlistID != w42.ID {
		t.Fatalf("event = %s on %d", ev.Type, ev.WishlistID)
	}
	var p realtime.ItemPayload
	if err := ev.Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Item.ID != lamp.ID || p.Item.Name != "Lamp" {
		t.Fatalf("payload item = %+v", p.Item)
	}
}

// failingItems fails every item insert with a driver-level error
type failingItems struct {
	repository.ItemRepository
}

func (failingItems) Create(context.Context, *models.Item) (*models.Item, error) {
	return nil, errors.New("pq: connection reset by peer")
}

func TestStoreFailureIsInternalError(t *testing.T) {
	ts, dispatcher := newTestAPIWith(t, func(repos *service.Repositories) {
		repos.Items = failingItems{ItemRepository: repos.Items}
	})

	var (
		mu   sync.Mutex
		seen []realtime.EventType
	)
	dispatcher.Observe(func(ev realtime.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.Type)
	})

	alice, _ := signUp(t, ts, "alice@example.com", "Alice")
	var list models.Wishlist
	if status := alice.do(http.MethodPost, "/api/wishlists", map[string]any{"name": "Birthday"}, &list); status != http.StatusCreated {
		t.Fatalf("create wishlist = %d", status)
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/wishlists/%d/items", ts.URL, list.ID),
		strings.NewReader(`{"name":"Bike"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+alice.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("body %q: %v", raw, err)
	}
	if len(body) != 1 || body["error"] != "internal server error" {
		t.Fatalf("body = %s", raw)
	}
	if strings.Contains(string(raw), "pq:") {
		t.Fatalf("driver error leaked: %s", raw)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, typ := range seen {
		if typ == realtime.EventItemAdded {
			t.Fatalf("failed insert was broadcast: %v", seen)
		}
	}
}
