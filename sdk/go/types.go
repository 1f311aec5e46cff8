package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"levelranks/core"
)

// Player mirrors GET /players/{id}.
type Player struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Points    int64                      `json:"points"`
	Kills     int64                      `json:"kills"`
	Deaths    int64                      `json:"deaths"`
	Assists   int64                      `json:"assists"`
	Headshots int64                      `json:"headshots"`
	Playtime  int64                      `json:"playtime"`
	LastSeen  time.Time                  `json:"last_seen"`
	Weapons   map[string]core.WeaponStat `json:"weapons,omitempty"`
	Rank      core.Rank                  `json:"rank"`
	NextRank  *core.Rank                 `json:"next_rank,omitempty"`
	Position  int                        `json:"position"`
	KDR       float64                    `json:"kdr"`
	Accuracy  float64                    `json:"accuracy"`
	HSPercent float64                    `json:"hs_percent"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status  string         `json:"status"`
	Players int            `json:"players"`
	Checks  map[string]any `json:"checks"`
}

// APIError is the error body returned by the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("levelranks: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotLoaded reports whether err means the player is not in the session.
func IsNotLoaded(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "not_loaded"
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("request failed: status %d", resp.StatusCode)
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyPlayerID is returned when the player id is empty.
var ErrEmptyPlayerID = errors.New("player id is required")
