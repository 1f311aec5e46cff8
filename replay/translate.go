package replay

import (
	"strconv"
	"strings"

	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/events"

	"levelranks/core"
	"levelranks/identity"
	"levelranks/scoring"
)

// participant maps a demo player to a roster entry. Bots have no SteamID and
// are keyed by name.
func participant(p *common.Player) (scoring.Participant, bool) {
	if p == nil {
		return scoring.Participant{}, false
	}
	if p.IsBot || p.SteamID64 == 0 {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return scoring.Participant{}, false
		}
		return scoring.Participant{ID: core.PlayerID("BOT_" + name), Name: name, Team: p.Team, Bot: true}, true
	}
	id, err := identity.Normalize(strconv.FormatUint(p.SteamID64, 10))
	if err != nil {
		return scoring.Participant{}, false
	}
	return scoring.Participant{ID: id, Name: p.Name, Team: p.Team}, true
}

func playerID(p *common.Player) core.PlayerID {
	part, ok := participant(p)
	if !ok {
		return ""
	}
	return part.ID
}

// weaponName returns the event name the rules classify, e.g. "ak47" or
// "hegrenade".
func weaponName(eq *common.Equipment) string {
	if eq == nil {
		return ""
	}
	switch eq.Type {
	case common.EqKnife:
		return "knife"
	case common.EqZeus:
		return "taser"
	case common.EqHE:
		return "hegrenade"
	case common.EqMolotov:
		return "molotov"
	case common.EqIncendiary:
		return "incgrenade"
	case common.EqFlash:
		return "flashbang"
	case common.EqSmoke:
		return "smokegrenade"
	case common.EqDecoy:
		return "decoy"
	case common.EqUnknown:
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, eq.Type.String())
}

func translateKill(e events.Kill) (scoring.Kill, bool) {
	victim := playerID(e.Victim)
	if victim == "" {
		return scoring.Kill{}, false
	}
	return scoring.Kill{
		Attacker:      playerID(e.Killer),
		Victim:        victim,
		Assister:      playerID(e.Assister),
		AssistedFlash: e.AssistedFlash,
		Weapon:        weaponName(e.Weapon),
		Headshot:      e.IsHeadshot,
		NoScope:       e.NoScope,
		ThroughSmoke:  e.ThroughSmoke,
		AttackerBlind: e.AttackerBlind,
		Penetrated:    e.PenetratedObjects,
		Distance:      float64(e.Distance),
	}, true
}

func translateHurt(e events.PlayerHurt) (scoring.Hurt, bool) {
	attacker, victim := playerID(e.Attacker), playerID(e.Player)
	if attacker == "" || victim == "" {
		return scoring.Hurt{}, false
	}
	return scoring.Hurt{
		Attacker:     attacker,
		Victim:       victim,
		Weapon:       weaponName(e.Weapon),
		HealthDamage: int64(e.HealthDamage),
		ArmorDamage:  int64(e.ArmorDamage),
		HitGroup:     int(e.HitGroup),
	}, true
}

func translateFire(e events.WeaponFire) (scoring.WeaponFire, bool) {
	shooter := playerID(e.Shooter)
	name := weaponName(e.Weapon)
	if shooter == "" || name == "" {
		return scoring.WeaponFire{}, false
	}
	return scoring.WeaponFire{Player: shooter, Weapon: name}, true
}

// matchWinner compares final scores; a draw has no winner.
func matchWinner(t, ct int) common.Team {
	switch {
	case t > ct:
		return common.TeamTerrorists
	case ct > t:
		return common.TeamCounterTerrorists
	}
	return common.TeamUnassigned
}
