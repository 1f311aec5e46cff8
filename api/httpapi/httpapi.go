package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	wsadapter "levelranks/adapters/websocket"
	"levelranks/analytics"
	"levelranks/core"
	"levelranks/identity"
	"levelranks/realtime"
	"levelranks/session"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// Analytics, if set, exposes aggregated KPIs.
	Analytics *analytics.AggregationEngine
	Logger    *slog.Logger
}

// PlayerView is the JSON shape of GET /players/{id}.
type PlayerView struct {
	core.Progression
	Rank      core.Rank  `json:"rank"`
	NextRank  *core.Rank `json:"next_rank,omitempty"`
	Position  int        `json:"position"`
	KDR       float64    `json:"kdr"`
	Accuracy  float64    `json:"accuracy"`
	HSPercent float64    `json:"hs_percent"`
}

type api struct {
	sess      *session.Session
	analytics *analytics.AggregationEngine
	log       *slog.Logger
}

// NewMux builds an http.Handler exposing the ranking REST API and WebSocket stream.
// Routes:
//   - GET  {prefix}/healthz
//   - GET  {prefix}/players
//   - GET  {prefix}/players/{id}
//   - GET  {prefix}/players/{id}/stats/{key}
//   - POST {prefix}/players/{id}/points?delta=25&reason=external&show=true
//   - PUT  {prefix}/players/{id}/points?value=1000
//   - PUT  {prefix}/players/{id}/settings
//   - POST {prefix}/players/{id}/reset
//   - POST {prefix}/players/{id}/flush
//   - GET  {prefix}/leaderboard?limit=10
//   - GET  {prefix}/leaderboard/total
//   - GET  {prefix}/ranks
//   - GET  {prefix}/analytics/{period}
//   - WS   {prefix}/ws?player={id}
func NewMux(sess *session.Session, hub *realtime.Hub, opts Options) http.Handler {
	a := &api{sess: sess, analytics: opts.Analytics, log: opts.Logger}
	if a.log == nil {
		a.log = slog.Default()
	}

	mux := http.NewServeMux()
	route := func(method, path string, h http.HandlerFunc) {
		mux.HandleFunc(method+" "+withPrefix(opts.PathPrefix, path), h)
	}

	route(http.MethodGet, "/healthz", a.healthCheck)
	route(http.MethodGet, "/players", a.listPlayers)
	route(http.MethodGet, "/players/{id}", a.getPlayer)
	route(http.MethodGet, "/players/{id}/stats/{key}", a.getStat)
	route(http.MethodPost, "/players/{id}/points", a.modifyPoints)
	route(http.MethodPut, "/players/{id}/points", a.setPoints)
	route(http.MethodPut, "/players/{id}/settings", a.setSettings)
	route(http.MethodPost, "/players/{id}/reset", a.resetPlayer)
	route(http.MethodPost, "/players/{id}/flush", a.flushPlayer)
	route(http.MethodGet, "/leaderboard", a.leaderboard)
	route(http.MethodGet, "/leaderboard/total", a.total)
	route(http.MethodGet, "/ranks", a.ranks)
	if a.analytics != nil {
		route(http.MethodGet, "/analytics/{period}", a.aggregated)
	}

	// WebSocket events
	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

// healthCheck verifies the storage answers a cheap count query.
func (a *api) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]any{
		"status":  "healthy",
		"players": len(a.sess.Players()),
		"checks":  map[string]any{"storage": "ok"},
	}
	if _, err := a.sess.TotalPlayers(ctx); err != nil {
		a.log.Warn("health check failed", "error", err)
		status["status"] = "unhealthy"
		status["checks"] = map[string]any{"storage": "failed"}
		writeJSONStatus(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, status)
}

func (a *api) listPlayers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.sess.Players())
}

func (a *api) getPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	p, ok := a.sess.Snapshot(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_loaded", "player is not in the session", nil)
		return
	}
	pos, err := a.sess.Position(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
		return
	}
	ranks := a.sess.Ranks()
	view := PlayerView{
		Progression: p,
		Rank:        ranks.Resolve(p.Points),
		Position:    pos,
		KDR:         p.KDR(),
		Accuracy:    p.Accuracy(),
		HSPercent:   p.HeadshotPercent(),
	}
	if next, ok := ranks.Next(p.Points); ok {
		view.NextRank = &next
	}
	writeJSON(w, view)
}

func (a *api) getStat(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	v, ok := a.sess.Stat(id, key)
	if !ok {
		if _, loaded := a.sess.Snapshot(id); !loaded {
			writeError(w, http.StatusNotFound, "not_loaded", "player is not in the session", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "unknown_stat", "unknown stat key", map[string]string{"key": key})
		return
	}
	writeJSON(w, map[string]any{"key": key, "value": v})
}

func (a *api) modifyPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	delta, err := strconv.ParseInt(q.Get("delta"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_delta", "delta must be an integer", nil)
		return
	}
	show := true
	if raw := q.Get("show"); raw != "" {
		if show, err = strconv.ParseBool(raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_show", "show must be a boolean", nil)
			return
		}
	}
	applied, err := a.sess.ModifyPoints(r.Context(), id, delta, core.Reason(q.Get("reason")), show)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	total, _ := a.sess.Stat(id, "points")
	writeJSON(w, map[string]any{"applied": applied, "total": total})
}

func (a *api) setPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	value, err := strconv.ParseInt(r.URL.Query().Get("value"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_value", "value must be an integer", nil)
		return
	}
	if err := a.sess.SetPoints(r.Context(), id, value); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, map[string]any{"total": value})
}

func (a *api) setSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	var settings core.Settings
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_settings", "body must be a settings object", map[string]string{"error": err.Error()})
		return
	}
	if err := a.sess.SetSettings(r.Context(), id, settings); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, settings)
}

func (a *api) resetPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	if err := a.sess.Reset(r.Context(), id); err != nil {
		writeSessionError(w, err)
		return
	}
	total, _ := a.sess.Stat(id, "points")
	writeJSON(w, map[string]any{"total": total})
}

func (a *api) flushPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	if err := a.sess.Flush(id).Wait(r.Context()); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *api) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100", nil)
			return
		}
		limit = n
	}
	top, err := a.sess.Top(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
		return
	}
	if top == nil {
		top = []core.Standing{}
	}
	writeJSON(w, top)
}

func (a *api) total(w http.ResponseWriter, r *http.Request) {
	n, err := a.sess.TotalPlayers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
		return
	}
	writeJSON(w, map[string]any{"total": n})
}

func (a *api) ranks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.sess.Ranks().All())
}

func (a *api) aggregated(w http.ResponseWriter, r *http.Request) {
	period := analytics.AggregationPeriod(r.PathValue("period"))
	switch period {
	case analytics.PeriodDaily, analytics.PeriodWeekly, analytics.PeriodMonthly:
	default:
		writeError(w, http.StatusBadRequest, "invalid_period", "period must be daily, weekly or monthly", nil)
		return
	}
	writeJSON(w, a.analytics.GetAllAggregatedData(period))
}

// Helpers

func playerID(w http.ResponseWriter, r *http.Request) (core.PlayerID, bool) {
	id, err := identity.Normalize(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_player", err.Error(), nil)
		return "", false
	}
	return id, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrPlayerNotLoaded):
		writeError(w, http.StatusNotFound, "not_loaded", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
	}
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	writeJSONStatus(w, status, apiError{Code: code, Message: msg, Details: details})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-API-Key")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a simple token-bucket limiter per client key.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiter := newRateLimiter(rpm, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return ""
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimiter struct {
	rpm   float64
	burst float64
	mu    sync.Mutex
	b     map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int) *rateLimiter {
	return &rateLimiter{
		rpm:   float64(rpm),
		burst: float64(burst),
		b:     make(map[string]*bucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.b[key]
	if !ok {
		l.b[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	b.tokens += elapsed * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	if b.tokens < 1 {
		b.last = now
		return false
	}
	b.tokens--
	b.last = now
	return true
}
