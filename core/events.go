package core

import "time"

// EventType enumerates engine events.
type EventType string

const (
	EventPointsChanged EventType = "points_changed"
	EventRankChanged   EventType = "rank_changed"
	EventRoundSummary  EventType = "round_summary"
	EventPlayerLoaded  EventType = "player_loaded"
)

// Event is an immutable notification produced by the engine.
type Event struct {
	Type     EventType      `json:"type"`
	Time     time.Time      `json:"time"`
	PlayerID PlayerID       `json:"player_id"`
	Reason   Reason         `json:"reason,omitempty"`
	Delta    int64          `json:"delta,omitempty"`
	Total    int64          `json:"total,omitempty"`
	Context  string         `json:"context,omitempty"`
	OldRank  string         `json:"old_rank,omitempty"`
	NewRank  string         `json:"new_rank,omitempty"`
	Promoted bool           `json:"promoted,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewPointsChanged(player PlayerID, reason Reason, delta, total int64, context string) Event {
	return Event{Type: EventPointsChanged, Time: time.Now().UTC(), PlayerID: player, Reason: reason, Delta: delta, Total: total, Context: context}
}

func NewRankChanged(player PlayerID, oldRank, newRank Rank, promoted bool, total int64) Event {
	return Event{Type: EventRankChanged, Time: time.Now().UTC(), PlayerID: player, OldRank: oldRank.Name, NewRank: newRank.Name, Promoted: promoted, Total: total}
}

func NewRoundSummary(player PlayerID, roundPoints, total int64) Event {
	return Event{Type: EventRoundSummary, Time: time.Now().UTC(), PlayerID: player, Delta: roundPoints, Total: total}
}

func NewPlayerLoaded(player PlayerID, total int64, fromStorage bool) Event {
	return Event{Type: EventPlayerLoaded, Time: time.Now().UTC(), PlayerID: player, Total: total, Metadata: map[string]any{"stored": fromStorage}}
}
