package core

import "time"

// Killstreak tracks consecutive scoring kills of one player.
type Killstreak struct {
	Count    int       `json:"count"`
	LastKill time.Time `json:"last_kill"`
}

// RecordKill advances the streak and returns the new count. When maxGap is
// positive and more than maxGap passed since the previous kill the streak
// starts over at 1.
func (k *Killstreak) RecordKill(now time.Time, maxGap time.Duration) int {
	if maxGap > 0 && now.Sub(k.LastKill) > maxGap {
		k.Count = 1
	} else {
		k.Count++
	}
	k.LastKill = now
	return k.Count
}

// Reset clears the streak.
func (k *Killstreak) Reset() {
	k.Count = 0
	k.LastKill = time.Time{}
}

// StreakTier is a killstreak bonus level.
type StreakTier int

const (
	TierNone StreakTier = iota
	TierDoubleKill
	TierTripleKill
	TierDomination
	TierRampage
	TierMegaKill
	TierOwnage
	TierUltraKill
	TierKillingSpree
	TierMonsterKill
	TierUnstoppable
	TierGodLike
)

var tierReasons = [...]Reason{
	TierDoubleKill:   ReasonDoubleKill,
	TierTripleKill:   ReasonTripleKill,
	TierDomination:   ReasonDomination,
	TierRampage:      ReasonRampage,
	TierMegaKill:     ReasonMegaKill,
	TierOwnage:       ReasonOwnage,
	TierUltraKill:    ReasonUltraKill,
	TierKillingSpree: ReasonKillingSpree,
	TierMonsterKill:  ReasonMonsterKill,
	TierUnstoppable:  ReasonUnstoppable,
	TierGodLike:      ReasonGodLike,
}

// Reason returns the reason key for the tier, empty for TierNone.
func (t StreakTier) Reason() Reason {
	if t <= TierNone || int(t) >= len(tierReasons) {
		return ""
	}
	return tierReasons[t]
}

// StreakTierFor maps a streak count to its tier. Counts of 12 and above all
// map to TierGodLike.
func StreakTierFor(count int) StreakTier {
	switch {
	case count < 2:
		return TierNone
	case count >= 12:
		return TierGodLike
	default:
		return StreakTier(count - 1)
	}
}

// StreakBonuses holds the points awarded per tier.
type StreakBonuses struct {
	DoubleKill   int64 `json:"double_kill" toml:"double_kill"`
	TripleKill   int64 `json:"triple_kill" toml:"triple_kill"`
	Domination   int64 `json:"domination" toml:"domination"`
	Rampage      int64 `json:"rampage" toml:"rampage"`
	MegaKill     int64 `json:"mega_kill" toml:"mega_kill"`
	Ownage       int64 `json:"ownage" toml:"ownage"`
	UltraKill    int64 `json:"ultra_kill" toml:"ultra_kill"`
	KillingSpree int64 `json:"killing_spree" toml:"killing_spree"`
	MonsterKill  int64 `json:"monster_kill" toml:"monster_kill"`
	Unstoppable  int64 `json:"unstoppable" toml:"unstoppable"`
	GodLike      int64 `json:"god_like" toml:"god_like"`
}

func (b StreakBonuses) amount(t StreakTier) int64 {
	switch t {
	case TierDoubleKill:
		return b.DoubleKill
	case TierTripleKill:
		return b.TripleKill
	case TierDomination:
		return b.Domination
	case TierRampage:
		return b.Rampage
	case TierMegaKill:
		return b.MegaKill
	case TierOwnage:
		return b.Ownage
	case TierUltraKill:
		return b.UltraKill
	case TierKillingSpree:
		return b.KillingSpree
	case TierMonsterKill:
		return b.MonsterKill
	case TierUnstoppable:
		return b.Unstoppable
	case TierGodLike:
		return b.GodLike
	}
	return 0
}

// Any reports whether at least one tier awards points.
func (b StreakBonuses) Any() bool {
	for t := TierDoubleKill; t <= TierGodLike; t++ {
		if b.amount(t) != 0 {
			return true
		}
	}
	return false
}

// Award returns the bonus for a streak count, if its tier awards points.
func (b StreakBonuses) Award(count int) (Award, bool) {
	tier := StreakTierFor(count)
	amount := b.amount(tier)
	if tier == TierNone || amount == 0 {
		return Award{}, false
	}
	return Award{Reason: tier.Reason(), Amount: amount}, true
}
