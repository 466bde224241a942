// Package client is a typed HTTP client for the catmatch API plus the
// cached state a front end derives from it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oggyb/catmatch/internal/db"
	svcErr "github.com/oggyb/catmatch/internal/errors"
	"github.com/oggyb/catmatch/internal/service/matches"
	"github.com/oggyb/catmatch/internal/service/profile"
)

// Client calls the API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// APIError is a non-2xx answer. Kind is derived from the status code.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Kind maps the HTTP status back onto the service error taxonomy.
func (e *APIError) Kind() svcErr.Kind {
	switch e.Status {
	case http.StatusUnauthorized:
		return svcErr.KindUnauthenticated
	case http.StatusForbidden:
		return svcErr.KindUnauthorized
	case http.StatusNotFound:
		return svcErr.KindNotFound
	case http.StatusBadRequest:
		return svcErr.KindInvalidInput
	case http.StatusConflict:
		return svcErr.KindConflict
	case http.StatusGatewayTimeout:
		return svcErr.KindTimeout
	default:
		return svcErr.KindUpstream
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Candidates is GET /api/cats. Message is set when none are left.
type Candidates struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Cats    []db.Cat `json:"cats"`
}

func (c *Client) Cats(ctx context.Context) (*Candidates, error) {
	var out Candidates
	if err := c.do(ctx, http.MethodGet, "/api/cats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Cat(ctx context.Context, catID string) (*profile.CatWithOwner, error) {
	var out profile.CatWithOwner
	if err := c.do(ctx, http.MethodGet, "/api/cats/"+url.PathEscape(catID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SwipeResult is POST /api/swipe.
type SwipeResult struct {
	Success      bool   `json:"success"`
	IsMatch      bool   `json:"isMatch"`
	IsSampleUser bool   `json:"isSampleUser"`
	MatchID      string `json:"matchId"`
}

func (c *Client) Swipe(ctx context.Context, catID string, liked bool) (*SwipeResult, error) {
	var out SwipeResult
	body := map[string]any{"catId": catID, "liked": liked}
	if err := c.do(ctx, http.MethodPost, "/api/swipe", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Matches(ctx context.Context) ([]matches.View, error) {
	var out struct {
		Matches []matches.View `json:"matches"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/matches", nil, &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}

// Messages lists a transcript; a non-empty after returns only newer messages.
func (c *Client) Messages(ctx context.Context, matchID, after string) ([]db.Message, string, error) {
	path := "/api/messages/" + url.PathEscape(matchID)
	if after != "" {
		path += "?after=" + url.QueryEscape(after)
	}
	var out struct {
		Messages   []db.Message `json:"messages"`
		NextCursor string       `json:"nextCursor"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, "", err
	}
	return out.Messages, out.NextCursor, nil
}

func (c *Client) SendMessage(ctx context.Context, matchID, content string) (*db.Message, error) {
	var out struct {
		Message db.Message `json:"message"`
	}
	body := map[string]string{"matchId": matchID, "content": content}
	if err := c.do(ctx, http.MethodPost, "/api/messages", body, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func (c *Client) MarkRead(ctx context.Context, matchID string) error {
	return c.do(ctx, http.MethodPost, "/api/messages/"+url.PathEscape(matchID)+"/read", nil, nil)
}

func (c *Client) UpdateUser(ctx context.Context, displayName, email, photoURL string) error {
	body := map[string]string{}
	if displayName != "" {
		body["displayName"] = displayName
	}
	if email != "" {
		body["email"] = email
	}
	if photoURL != "" {
		body["photoURL"] = photoURL
	}
	return c.do(ctx, http.MethodPost, "/api/update-user", body, nil)
}

func (c *Client) UpdateCat(ctx context.Context, in profile.CatInput) (*db.Cat, error) {
	var out db.Cat
	if err := c.do(ctx, http.MethodPost, "/api/cats/update", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*profile.Me, error) {
	var out profile.Me
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
