package core

import (
	"errors"
	"math"
	"strings"
)

// PlayerID uniquely identifies a player across sessions.
type PlayerID string

// Reason is the key describing why points changed. It doubles as the message
// key handed to the messaging collaborator.
type Reason string

const (
	ReasonKill            Reason = "kill"
	ReasonDeath           Reason = "death"
	ReasonHeadshot        Reason = "headshot"
	ReasonAssist          Reason = "assist"
	ReasonAssistFlash     Reason = "assistflash"
	ReasonTeamKill        Reason = "teamkill"
	ReasonTeamAssist      Reason = "teamassist"
	ReasonTeamAssistFlash Reason = "teamassistflash"
	ReasonSuicide         Reason = "suicide"

	ReasonNoScope      Reason = "noscope"
	ReasonThroughSmoke Reason = "thrusmoke"
	ReasonBlind        Reason = "blind"
	ReasonPenetrated   Reason = "penetrated"
	ReasonLongDistance Reason = "longdistance"
	ReasonKnife        Reason = "knife"
	ReasonTaser        Reason = "taser"
	ReasonGrenade      Reason = "grenade"
	ReasonInferno      Reason = "inferno"
	ReasonImpact       Reason = "impact"

	ReasonDoubleKill   Reason = "doublekill"
	ReasonTripleKill   Reason = "triplekill"
	ReasonDomination   Reason = "domination"
	ReasonRampage      Reason = "rampage"
	ReasonMegaKill     Reason = "megakill"
	ReasonOwnage       Reason = "ownage"
	ReasonUltraKill    Reason = "ultrakill"
	ReasonKillingSpree Reason = "killingspree"
	ReasonMonsterKill  Reason = "monsterkill"
	ReasonUnstoppable  Reason = "unstoppable"
	ReasonGodLike      Reason = "godlike"

	ReasonRoundWin  Reason = "roundwin"
	ReasonRoundLose Reason = "roundlose"
	ReasonMVP       Reason = "mvp"

	ReasonBombPlant        Reason = "bombplant"
	ReasonBombDefuse       Reason = "bombdefuse"
	ReasonBombDefuseOthers Reason = "bombdefuseothers"
	ReasonBombExploded     Reason = "bombexploded"
	ReasonBombPickup       Reason = "bombpickup"
	ReasonBombDrop         Reason = "bombdrop"

	ReasonHostageRescue    Reason = "hostagerescue"
	ReasonHostageRescueAll Reason = "hostagerescueall"
	ReasonHostageHurt      Reason = "hostagehurt"
	ReasonHostageKill      Reason = "hostagekill"

	ReasonPlaytime Reason = "playtime"
	ReasonExternal Reason = "external"
)

// Award is a single point delta paired with its reason.
type Award struct {
	Reason Reason
	Amount int64
}

// Settings holds per-player message preferences. Summary is stored for
// compatibility with the lvl_base_settings table; the round recap itself
// follows the server-wide summary mode.
type Settings struct {
	Messages    bool `json:"messages"`
	Summary     bool `json:"summary"`
	RankChanges bool `json:"rank_changes"`
}

// DefaultSettings returns the preferences a new player starts with.
func DefaultSettings() Settings {
	return Settings{Messages: true, Summary: false, RankChanges: true}
}

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, errors.New("integer overflow in AddSafe")
	}
	return base + delta, nil
}

// NormalizePlayerID trims player identifiers. Ids keep their case since
// SteamID text forms are case-sensitive.
func NormalizePlayerID(id PlayerID) (PlayerID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty player id")
	}
	return PlayerID(s), nil
}
