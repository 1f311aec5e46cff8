// Package weapons classifies weapon names reported by the game.
package weapons

import (
	"strings"

	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"

	"levelranks/core"
)

const classPrefix = "weapon_"

// Classify maps a weapon name (with or without the "weapon_" prefix) to the
// class that decides its special kill bonus.
func Classify(name string) core.WeaponClass {
	short := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), classPrefix)
	if short == "" {
		return core.WeaponOther
	}
	switch common.MapEquipment(short) {
	case common.EqKnife:
		return core.WeaponKnife
	case common.EqZeus:
		return core.WeaponTaser
	case common.EqHE:
		return core.WeaponHEGrenade
	case common.EqMolotov, common.EqIncendiary:
		return core.WeaponIncendiary
	case common.EqFlash, common.EqSmoke, common.EqDecoy:
		return core.WeaponUtility
	}
	// Event names that the equipment table does not carry.
	switch {
	case strings.Contains(short, "knife") || strings.Contains(short, "bayonet"):
		return core.WeaponKnife
	case strings.Contains(short, "taser"):
		return core.WeaponTaser
	case strings.Contains(short, "hegrenade"):
		return core.WeaponHEGrenade
	case strings.Contains(short, "inferno"), strings.Contains(short, "molotov"), strings.Contains(short, "incgrenade"):
		return core.WeaponIncendiary
	case strings.Contains(short, "flashbang"), strings.Contains(short, "smokegrenade"), strings.Contains(short, "decoy"):
		return core.WeaponUtility
	}
	return core.WeaponOther
}

// StatKey returns the key weapon counters are stored under, e.g. "ak47"
// becomes "weapon_ak47".
func StatKey(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, classPrefix) {
		return n
	}
	return classPrefix + n
}
