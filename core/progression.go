package core

import (
	"math"
	"time"
)

// WeaponStat holds per-weapon combat counters.
type WeaponStat struct {
	Kills     int64 `json:"kills" db:"kills"`
	Deaths    int64 `json:"deaths" db:"deaths"`
	Headshots int64 `json:"headshots" db:"headshots"`
	Hits      int64 `json:"hits" db:"hits"`
	Shots     int64 `json:"shots" db:"shots"`
	Damage    int64 `json:"damage" db:"damage"`
}

// Hit groups as reported by the game's hurt event.
const (
	HitGroupGeneric  = 0
	HitGroupHead     = 1
	HitGroupChest    = 2
	HitGroupStomach  = 3
	HitGroupLeftArm  = 4
	HitGroupRightArm = 5
	HitGroupLeftLeg  = 6
	HitGroupRightLeg = 7
	HitGroupNeck     = 8
)

// HitStats counts landed hits per body part and the damage dealt.
type HitStats struct {
	DmgHealth int64 `json:"dmg_health"`
	DmgArmor  int64 `json:"dmg_armor"`
	Head      int64 `json:"head"`
	Chest     int64 `json:"chest"`
	Stomach   int64 `json:"stomach"`
	LeftArm   int64 `json:"left_arm"`
	RightArm  int64 `json:"right_arm"`
	LeftLeg   int64 `json:"left_leg"`
	RightLeg  int64 `json:"right_leg"`
	Neck      int64 `json:"neck"`
}

// Record adds one hit. Unknown groups count as chest hits.
func (h *HitStats) Record(group int, health, armor int64) {
	h.DmgHealth += health
	h.DmgArmor += armor
	switch group {
	case HitGroupHead:
		h.Head++
	case HitGroupStomach:
		h.Stomach++
	case HitGroupLeftArm:
		h.LeftArm++
	case HitGroupRightArm:
		h.RightArm++
	case HitGroupLeftLeg:
		h.LeftLeg++
	case HitGroupRightLeg:
		h.RightLeg++
	case HitGroupNeck:
		h.Neck++
	default:
		h.Chest++
	}
}

// Total is the number of recorded hits across all groups.
func (h HitStats) Total() int64 {
	return h.Head + h.Chest + h.Stomach + h.LeftArm + h.RightArm + h.LeftLeg + h.RightLeg + h.Neck
}

// Progression is the persistent rank state of one player.
// Copies must go through Clone since Weapons is a map.
type Progression struct {
	ID        PlayerID `json:"id"`
	Name      string   `json:"name"`
	Points    int64    `json:"points"`
	RankIndex int      `json:"rank_index"`

	Kills     int64 `json:"kills"`
	Deaths    int64 `json:"deaths"`
	Assists   int64 `json:"assists"`
	Headshots int64 `json:"headshots"`
	Shots     int64 `json:"shots"`
	Hits      int64 `json:"hits"`
	Damage    int64 `json:"damage"`

	RoundsWon    int64 `json:"rounds_won"`
	RoundsLost   int64 `json:"rounds_lost"`
	RoundsPlayed int64 `json:"rounds_played"`
	GamesWon     int64 `json:"games_won"`
	GamesLost    int64 `json:"games_lost"`
	GamesPlayed  int64 `json:"games_played"`

	// Playtime is in seconds.
	Playtime  int64     `json:"playtime"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	Settings  Settings              `json:"settings"`
	Weapons   map[string]WeaponStat `json:"weapons,omitempty"`
	HitGroups HitStats              `json:"hit_groups"`

	// Session-only state, never persisted.
	RoundPoints    int64      `json:"-"`
	Streak         Killstreak `json:"-"`
	JoinedAt       time.Time  `json:"-"`
	LastPlaytimeAt time.Time  `json:"-"`
}

// NewProgression default-initializes a player that has no stored record.
func NewProgression(id PlayerID, name string, startPoints int64, now time.Time) Progression {
	return Progression{
		ID:        id,
		Name:      name,
		Points:    startPoints,
		FirstSeen: now,
		LastSeen:  now,
		Settings:  DefaultSettings(),
		Weapons:   map[string]WeaponStat{},
	}
}

// Clone returns a deep copy.
func (p Progression) Clone() Progression {
	cp := p
	cp.Weapons = make(map[string]WeaponStat, len(p.Weapons))
	for k, v := range p.Weapons {
		cp.Weapons[k] = v
	}
	return cp
}

// ResetStats restores startPoints and zeroes every counter, weapon and hit
// stat. Identity, settings and first-seen time are kept; the rank index is
// left for the caller to re-resolve.
func (p *Progression) ResetStats(startPoints int64) {
	*p = Progression{
		ID:             p.ID,
		Name:           p.Name,
		Points:         startPoints,
		RankIndex:      p.RankIndex,
		FirstSeen:      p.FirstSeen,
		LastSeen:       p.LastSeen,
		Settings:       p.Settings,
		Weapons:        map[string]WeaponStat{},
		JoinedAt:       p.JoinedAt,
		LastPlaytimeAt: p.LastPlaytimeAt,
	}
}

// UpdateWeapon applies fn to the counters of weapon, creating them on demand.
func (p *Progression) UpdateWeapon(weapon string, fn func(*WeaponStat)) {
	if weapon == "" {
		return
	}
	if p.Weapons == nil {
		p.Weapons = map[string]WeaponStat{}
	}
	ws := p.Weapons[weapon]
	fn(&ws)
	p.Weapons[weapon] = ws
}

// KDR returns kills per death rounded to two decimals.
func (p Progression) KDR() float64 {
	if p.Deaths == 0 {
		return float64(p.Kills)
	}
	return roundTo(float64(p.Kills)/float64(p.Deaths), 2)
}

// HeadshotPercent returns the share of kills that were headshots.
func (p Progression) HeadshotPercent() float64 {
	if p.Kills == 0 {
		return 0
	}
	return roundTo(float64(p.Headshots)/float64(p.Kills)*100, 1)
}

// Accuracy returns the share of shots that hit.
func (p Progression) Accuracy() float64 {
	if p.Shots == 0 {
		return 0
	}
	return roundTo(float64(p.Hits)/float64(p.Shots)*100, 1)
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.RoundToEven(v*pow) / pow
}

// Standing is one row of the stored ranking.
type Standing struct {
	ID     PlayerID `json:"id" db:"steam"`
	Name   string   `json:"name" db:"name"`
	Points int64    `json:"points" db:"value"`
}
