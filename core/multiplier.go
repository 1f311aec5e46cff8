package core

import "math"

// VipPolicy scales positive awards for players holding a membership flag.
type VipPolicy struct {
	Multiplier float64  `json:"multiplier" toml:"multiplier"`
	Flags      []string `json:"flags" toml:"flags"`
}

// Apply returns amount scaled by the multiplier, truncated toward zero, when
// the player holds one of the configured flags. Non-positive amounts are
// never scaled.
func (v VipPolicy) Apply(amount int64, holds func(flag string) bool) int64 {
	if amount <= 0 || v.Multiplier <= 1.0 || len(v.Flags) == 0 || holds == nil {
		return amount
	}
	for _, flag := range v.Flags {
		if holds(flag) {
			return int64(float64(amount) * v.Multiplier)
		}
	}
	return amount
}

// DynamicPolicy balances kill and death awards by the relative standing of
// the two players involved.
type DynamicPolicy struct {
	Enabled bool    `json:"enabled" toml:"enabled"`
	Min     float64 `json:"min" toml:"min"`
	Max     float64 `json:"max" toml:"max"`
}

// Multiplier returns other/max(acting,1) clamped to [Min, Max], or exactly 1
// when balancing is off or the other player has no positive points.
func (d DynamicPolicy) Multiplier(acting, other int64) float64 {
	if !d.Enabled || other <= 0 {
		return 1.0
	}
	ratio := float64(other) / float64(max(acting, 1))
	return math.Max(d.Min, math.Min(d.Max, ratio))
}

// Scale applies Multiplier to base, rounding half to even.
func (d DynamicPolicy) Scale(base, acting, other int64) int64 {
	m := d.Multiplier(acting, other)
	if m == 1.0 {
		return base
	}
	return int64(math.RoundToEven(float64(base) * m))
}

// WeaponClass groups weapons that carry their own kill bonus.
type WeaponClass int

const (
	WeaponOther WeaponClass = iota
	WeaponKnife
	WeaponTaser
	WeaponHEGrenade
	WeaponIncendiary
	WeaponUtility
)

// KillDetails are the combat facts that drive special kill bonuses.
type KillDetails struct {
	Class         WeaponClass
	NoScope       bool
	ThroughSmoke  bool
	AttackerBlind bool
	Penetrated    int
	Distance      float64
}

// SpecialKillPoints holds the bonus for each special kill condition.
type SpecialKillPoints struct {
	NoScope          int64   `json:"no_scope" toml:"no_scope"`
	ThroughSmoke     int64   `json:"through_smoke" toml:"through_smoke"`
	Blind            int64   `json:"blind" toml:"blind"`
	Penetrated       int64   `json:"penetrated" toml:"penetrated"`
	LongDistanceKill int64   `json:"long_distance_kill" toml:"long_distance_kill"`
	LongDistance     float64 `json:"long_distance" toml:"long_distance"`
	Knife            int64   `json:"knife" toml:"knife"`
	Taser            int64   `json:"taser" toml:"taser"`
	Grenade          int64   `json:"grenade" toml:"grenade"`
	Inferno          int64   `json:"inferno" toml:"inferno"`
	Impact           int64   `json:"impact" toml:"impact"`
}

// Bonuses returns every special kill award the kill qualifies for. The
// conditions are independent and all of them may fire.
func (s SpecialKillPoints) Bonuses(k KillDetails) []Award {
	var out []Award
	add := func(ok bool, reason Reason, amount int64) {
		if ok && amount != 0 {
			out = append(out, Award{Reason: reason, Amount: amount})
		}
	}
	add(k.NoScope, ReasonNoScope, s.NoScope)
	add(k.ThroughSmoke, ReasonThroughSmoke, s.ThroughSmoke)
	add(k.AttackerBlind, ReasonBlind, s.Blind)
	add(k.Penetrated > 0, ReasonPenetrated, s.Penetrated)
	add(k.Distance >= s.LongDistance, ReasonLongDistance, s.LongDistanceKill)
	add(k.Class == WeaponKnife, ReasonKnife, s.Knife)
	add(k.Class == WeaponTaser, ReasonTaser, s.Taser)
	add(k.Class == WeaponHEGrenade, ReasonGrenade, s.Grenade)
	add(k.Class == WeaponIncendiary, ReasonInferno, s.Inferno)
	add(k.Class == WeaponUtility, ReasonImpact, s.Impact)
	return out
}
