package session

import (
	"strings"

	"levelranks/core"
	"levelranks/weapons"
)

// Snapshot returns a copy of a loaded player's progression.
func (s *Session) Snapshot(id core.PlayerID) (core.Progression, bool) {
	rec, ok := s.store.Get(id)
	if !ok {
		return core.Progression{}, false
	}
	return rec.View(), true
}

// Stat reads one named field of a loaded player. Keys are case-insensitive;
// per-weapon counters use the weapon.<name>.<field> form and hit groups the
// hits.<group> form.
func (s *Session) Stat(id core.PlayerID, key string) (any, bool) {
	rec, ok := s.store.Get(id)
	if !ok {
		return nil, false
	}
	p := rec.View()
	key = strings.ToLower(strings.TrimSpace(key))

	if rest, ok := strings.CutPrefix(key, "weapon."); ok {
		return weaponStat(p, rest)
	}
	if rest, ok := strings.CutPrefix(key, "hits."); ok {
		return hitStat(p.HitGroups, rest)
	}

	switch key {
	case "value", "points":
		return p.Points, true
	case "kills":
		return p.Kills, true
	case "deaths":
		return p.Deaths, true
	case "assists":
		return p.Assists, true
	case "headshots":
		return p.Headshots, true
	case "shoots", "shots":
		return p.Shots, true
	case "hits":
		return p.Hits, true
	case "damage":
		return p.Damage, true
	case "roundwin":
		return p.RoundsWon, true
	case "roundlose":
		return p.RoundsLost, true
	case "roundsplayed":
		return p.RoundsPlayed, true
	case "gamewin":
		return p.GamesWon, true
	case "gamelose":
		return p.GamesLost, true
	case "gamesplayed":
		return p.GamesPlayed, true
	case "playtime":
		return p.Playtime, true
	case "roundpoints":
		return p.RoundPoints, true
	case "kdr":
		return p.KDR(), true
	case "accuracy":
		return p.Accuracy(), true
	case "hspercent":
		return p.HeadshotPercent(), true
	}

	ranks := s.cfg.ranks
	switch key {
	case "rankname":
		return ranks.Resolve(p.Points).Name, true
	case "ranktag":
		return ranks.Resolve(p.Points).Tag, true
	case "rankcolor":
		return ranks.Resolve(p.Points).Color, true
	case "rankid":
		return ranks.ResolveIndex(p.Points), true
	case "nextrank":
		next, ok := ranks.Next(p.Points)
		if !ok {
			return "", true
		}
		return next.Name, true
	case "pointstonext":
		next, ok := ranks.Next(p.Points)
		if !ok {
			return int64(0), true
		}
		return next.Points - p.Points, true
	}
	return nil, false
}

func weaponStat(p core.Progression, rest string) (any, bool) {
	i := strings.LastIndexByte(rest, '.')
	if i <= 0 || i == len(rest)-1 {
		return nil, false
	}
	name, field := rest[:i], rest[i+1:]
	ws := p.Weapons[weapons.StatKey(name)]
	switch field {
	case "kills":
		return ws.Kills, true
	case "deaths":
		return ws.Deaths, true
	case "headshots":
		return ws.Headshots, true
	case "hits":
		return ws.Hits, true
	case "shots", "shoots":
		return ws.Shots, true
	case "damage":
		return ws.Damage, true
	}
	return nil, false
}

func hitStat(h core.HitStats, group string) (any, bool) {
	switch group {
	case "head":
		return h.Head, true
	case "chest":
		return h.Chest, true
	case "stomach", "belly":
		return h.Stomach, true
	case "leftarm":
		return h.LeftArm, true
	case "rightarm":
		return h.RightArm, true
	case "leftleg":
		return h.LeftLeg, true
	case "rightleg":
		return h.RightLeg, true
	case "neck":
		return h.Neck, true
	case "dmghealth":
		return h.DmgHealth, true
	case "dmgarmor":
		return h.DmgArmor, true
	case "total":
		return h.Total(), true
	}
	return nil, false
}
