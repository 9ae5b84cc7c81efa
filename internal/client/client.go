package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Kerhoff/WishShare/internal/models"
)

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// AuthResponse is returned by login and registration
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Client calls the WishShare HTTP API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the server at baseURL. token may be empty for
// Login and Register.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Token returns the bearer token the client sends
func (c *Client) Token() string { return c.token }

// Login signs in and keeps the issued token for later calls
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Me returns the signed-in user
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Wishlists returns the wishlists the user owns or belongs to
func (c *Client) Wishlists(ctx context.Context) ([]*models.Wishlist, error) {
	var out []*models.Wishlist
	if err := c.do(ctx, http.MethodGet, "/api/wishlists", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Wishlist returns one wishlist
func (c *Client) Wishlist(ctx context.Context, id int64) (*models.Wishlist, error) {
	var out models.Wishlist
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/wishlists/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Items returns the items of a wishlist
func (c *Client) Items(ctx context.Context, wishlistID int64) ([]*models.Item, error) {
	var out []*models.Item
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/wishlists/%d/items", wishlistID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Claim claims an item for the signed-in user
func (c *Client) Claim(ctx context.Context, wishlistID, itemID int64) (*models.Item, error) {
	var out models.Item
	path := fmt.Sprintf("/api/wishlists/%d/items/%d/claim", wishlistID, itemID)
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
