package scoring

import (
	"time"

	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"

	"levelranks/core"
)

// Event is a gameplay event delivered by the game-event source. The set of
// variants is closed; Rules.Handle switches over all of them.
type Event interface {
	isEvent()
}

// Kill is a player death. Attacker is empty for world kills.
type Kill struct {
	Attacker      core.PlayerID
	Victim        core.PlayerID
	Assister      core.PlayerID
	AssistedFlash bool
	Weapon        string
	Headshot      bool
	NoScope       bool
	ThroughSmoke  bool
	AttackerBlind bool
	Penetrated    int
	Distance      float64
	// At defaults to the rules clock when zero.
	At time.Time
}

// Hurt is damage dealt by one player to another.
type Hurt struct {
	Attacker     core.PlayerID
	Victim       core.PlayerID
	Weapon       string
	HealthDamage int64
	ArmorDamage  int64
	HitGroup     int
}

// WeaponFire is a single shot.
type WeaponFire struct {
	Player core.PlayerID
	Weapon string
}

type BombPlanted struct{ Player core.PlayerID }
type BombDefused struct{ Player core.PlayerID }
type BombExploded struct{ Player core.PlayerID }
type BombPickup struct{ Player core.PlayerID }
type BombDropped struct{ Player core.PlayerID }

type HostageRescued struct{ Player core.PlayerID }

// HostagesRescuedAll rewards the whole counter-terrorist side.
type HostagesRescuedAll struct{}

type HostageHurt struct{ Player core.PlayerID }
type HostageKilled struct{ Player core.PlayerID }

type RoundMVP struct{ Player core.PlayerID }

// RoundStart clears round-scoped accumulators.
type RoundStart struct{}

// RoundEnd carries the winning side. A winner of TeamUnassigned or
// TeamSpectators awards nothing.
type RoundEnd struct {
	Winner common.Team
}

// MatchEnd closes a map; it updates game counters and awards no points.
type MatchEnd struct {
	Winner common.Team
}

// PlaytimeTick is emitted periodically to drive playtime rewards.
type PlaytimeTick struct {
	Now time.Time
}

func (Kill) isEvent()               {}
func (Hurt) isEvent()               {}
func (WeaponFire) isEvent()         {}
func (BombPlanted) isEvent()        {}
func (BombDefused) isEvent()        {}
func (BombExploded) isEvent()       {}
func (BombPickup) isEvent()         {}
func (BombDropped) isEvent()        {}
func (HostageRescued) isEvent()     {}
func (HostagesRescuedAll) isEvent() {}
func (HostageHurt) isEvent()        {}
func (HostageKilled) isEvent()      {}
func (RoundMVP) isEvent()           {}
func (RoundStart) isEvent()         {}
func (RoundEnd) isEvent()           {}
func (MatchEnd) isEvent()           {}
func (PlaytimeTick) isEvent()       {}

// Participant is one connected player as the event source reports it.
type Participant struct {
	ID   core.PlayerID `json:"id"`
	Name string        `json:"name"`
	Team common.Team   `json:"team"`
	Bot  bool          `json:"bot"`
}

// Playing reports whether the participant is on a playing side.
func (p Participant) Playing() bool {
	return p.Team == common.TeamTerrorists || p.Team == common.TeamCounterTerrorists
}
