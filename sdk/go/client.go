package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"levelranks/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the levelranks HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// ModifyPoints adds delta to a live player's points and returns the amount
// applied and the new total. An empty reason is recorded as external.
func (c *Client) ModifyPoints(ctx context.Context, playerID string, delta int64, reason string, show bool) (applied, total int64, err error) {
	q := url.Values{}
	q.Set("delta", strconv.FormatInt(delta, 10))
	q.Set("show", strconv.FormatBool(show))
	if reason != "" {
		q.Set("reason", reason)
	}
	var body struct {
		Applied int64 `json:"applied"`
		Total   int64 `json:"total"`
	}
	if err := c.playerCall(ctx, http.MethodPost, playerID, "/points", q, &body); err != nil {
		return 0, 0, err
	}
	return body.Applied, body.Total, nil
}

// SetPoints overwrites a live player's points.
func (c *Client) SetPoints(ctx context.Context, playerID string, value int64) error {
	q := url.Values{}
	q.Set("value", strconv.FormatInt(value, 10))
	var body struct {
		Total int64 `json:"total"`
	}
	return c.playerCall(ctx, http.MethodPut, playerID, "/points", q, &body)
}

// Flush writes a live player to storage and waits for the result.
func (c *Client) Flush(ctx context.Context, playerID string) error {
	var body struct {
		OK bool `json:"ok"`
	}
	if err := c.playerCall(ctx, http.MethodPost, playerID, "/flush", nil, &body); err != nil {
		return err
	}
	if !body.OK {
		return errors.New("flush not acknowledged")
	}
	return nil
}

// SetSettings replaces a live player's message preferences.
func (c *Client) SetSettings(ctx context.Context, playerID string, settings core.Settings) error {
	if strings.TrimSpace(playerID) == "" {
		return ErrEmptyPlayerID
	}
	var body core.Settings
	return c.send(ctx, http.MethodPut, "/players/"+url.PathEscape(playerID)+"/settings", nil, settings, &body)
}

// Reset wipes a live player's statistics and returns the restored points.
func (c *Client) Reset(ctx context.Context, playerID string) (int64, error) {
	var body struct {
		Total int64 `json:"total"`
	}
	if err := c.playerCall(ctx, http.MethodPost, playerID, "/reset", nil, &body); err != nil {
		return 0, err
	}
	return body.Total, nil
}

// GetPlayer fetches the live state of a player.
func (c *Client) GetPlayer(ctx context.Context, playerID string) (Player, error) {
	var p Player
	if err := c.playerCall(ctx, http.MethodGet, playerID, "", nil, &p); err != nil {
		return Player{}, err
	}
	return p, nil
}

// Stat reads one named stat, e.g. "kdr" or "weapon.ak47.kills".
func (c *Client) Stat(ctx context.Context, playerID, key string) (any, error) {
	var body struct {
		Value any `json:"value"`
	}
	if err := c.playerCall(ctx, http.MethodGet, playerID, "/stats/"+url.PathEscape(key), nil, &body); err != nil {
		return nil, err
	}
	return body.Value, nil
}

// Leaderboard returns the top limit stored players.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]core.Standing, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var top []core.Standing
	if err := c.do(ctx, http.MethodGet, "/leaderboard", q, &top); err != nil {
		return nil, err
	}
	return top, nil
}

// TotalPlayers returns the number of stored players.
func (c *Client) TotalPlayers(ctx context.Context) (int, error) {
	var body struct {
		Total int `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/leaderboard/total", nil, &body); err != nil {
		return 0, err
	}
	return body.Total, nil
}

// Ranks returns the configured rank table, lowest first.
func (c *Client) Ranks(ctx context.Context) ([]core.Rank, error) {
	var ranks []core.Rank
	if err := c.do(ctx, http.MethodGet, "/ranks", nil, &ranks); err != nil {
		return nil, err
	}
	return ranks, nil
}

// Health probes /healthz. An unhealthy server answers 503 with a status
// body, which is returned alongside a nil error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return HealthStatus{}, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthStatus{}, err
	}
	defer resp.Body.Close()

	var hs HealthStatus
	if resp.StatusCode == http.StatusServiceUnavailable {
		err := json.NewDecoder(resp.Body).Decode(&hs)
		return hs, err
	}
	if err := decodeJSON(resp, &hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// A non-empty playerID limits the stream to that player.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, playerID string) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	target := c.wsURL
	if playerID != "" {
		target += "?player=" + url.QueryEscape(playerID)
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, target, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var evt core.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			default:
				// drop if consumer is slow
			}
		}
	}()
	return out, nil
}

func (c *Client) playerCall(ctx context.Context, method, playerID, suffix string, q url.Values, target any) error {
	if strings.TrimSpace(playerID) == "" {
		return ErrEmptyPlayerID
	}
	return c.do(ctx, method, "/players/"+url.PathEscape(playerID)+suffix, q, target)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, target any) error {
	return c.send(ctx, method, path, q, nil, target)
}

// send encodes payload as the JSON request body when it is non-nil.
func (c *Client) send(ctx context.Context, method, path string, q url.Values, payload, target any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := decodeJSON(resp, target); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
