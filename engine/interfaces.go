package engine

import (
	"context"
	"time"

	"levelranks/core"
)

// Persistence abstracts durable storage of player progression.
type Persistence interface {
	// Load returns the stored progression; ok is false when none exists.
	Load(ctx context.Context, id core.PlayerID) (p core.Progression, ok bool, err error)
	Save(ctx context.Context, p core.Progression) error
	SaveBatch(ctx context.Context, ps []core.Progression) error
	// Position is 1 + the number of players with strictly more points, or 0
	// when the player is not stored.
	Position(ctx context.Context, id core.PlayerID) (int, error)
	TotalPlayers(ctx context.Context) (int, error)
	Top(ctx context.Context, n int) ([]core.Standing, error)
}

// Purger is implemented by persistence that can drop inactive players.
type Purger interface {
	Purge(ctx context.Context, inactiveSince time.Time) (int64, error)
}

// PointNotice describes one applied point delta.
type PointNotice struct {
	Player  core.PlayerID
	Amount  int64
	Reason  core.Reason
	Context string
	Total   int64
}

// RankChange describes a promotion or demotion.
type RankChange struct {
	Player   core.PlayerID
	Old      core.Rank
	New      core.Rank
	Promoted bool
	Total    int64
}

// RoundSummary is the per-player recap sent at round end.
type RoundSummary struct {
	Player      core.PlayerID
	RoundPoints int64
	Total       int64
}

// Notifier is the messaging collaborator.
type Notifier interface {
	Notify(ctx context.Context, n PointNotice)
	NotifyRankChange(ctx context.Context, c RankChange)
	NotifySummary(ctx context.Context, s RoundSummary)
}

// Display mirrors rank tags and scores onto the scoreboard.
type Display interface {
	SetRankTag(id core.PlayerID, tag string)
	SetScore(id core.PlayerID, points int64)
}

// Membership answers VIP flag lookups.
type Membership interface {
	HasFlag(id core.PlayerID, flag string) bool
}
