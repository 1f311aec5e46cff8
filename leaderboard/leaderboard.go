package leaderboard

import "levelranks/core"

// Entry is one player's standing.
type Entry struct {
	Player core.PlayerID
	Points int64
}

// Board abstracts leaderboard operations.
type Board interface {
	Update(player core.PlayerID, points int64)
	Remove(player core.PlayerID)
	TopN(n int) []Entry
	Get(player core.PlayerID) (Entry, bool)
	// Position is 1 + the number of players with strictly more points, or 0
	// for an unknown player. Tied players share a position.
	Position(player core.PlayerID) int
	Len() int
}
