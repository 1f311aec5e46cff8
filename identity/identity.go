// Package identity turns the player identifiers accepted by the API into the
// canonical STEAM_X:Y:Z form used as store keys.
package identity

import (
	"errors"
	"strings"

	"github.com/leighmacdonald/steamid/v4/steamid"

	"levelranks/core"
)

var ErrInvalidID = errors.New("invalid player id")

// Normalize accepts a SteamID64, Steam3 or STEAM_X:Y:Z string and returns the
// STEAM_X:Y:Z form. Inputs that are not SteamIDs are returned trimmed so
// non-Steam deployments can use their own ids.
func Normalize(raw string) (core.PlayerID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidID
	}
	if !looksLikeSteamID(s) {
		return core.NormalizePlayerID(core.PlayerID(s))
	}
	sid := steamid.New(s)
	if !sid.Valid() {
		return "", ErrInvalidID
	}
	return core.PlayerID(string(sid.Steam(false))), nil
}

func looksLikeSteamID(s string) bool {
	if strings.HasPrefix(strings.ToUpper(s), "STEAM_") || strings.HasPrefix(s, "[U:") {
		return true
	}
	if len(s) != 17 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
