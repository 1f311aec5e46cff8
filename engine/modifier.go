package engine

import (
	"context"
	"log/slog"

	"levelranks/core"
	"levelranks/progression"
)

// ModifierConfig holds the switches that shape a point application.
type ModifierConfig struct {
	Clantags        bool
	ScoreSync       bool
	RoundEndSummary bool
	ShowPlayerNames bool
	Vip             core.VipPolicy
}

// Modifier applies point deltas to live records and informs the display and
// messaging collaborators.
type Modifier struct {
	ranks    *core.RankTable
	cfg      ModifierConfig
	notifier Notifier
	display  Display
	members  Membership
	log      *slog.Logger
}

// NewModifier panics on a nil rank table or notifier. A nil display or
// membership disables scoreboard mirroring or VIP scaling respectively.
func NewModifier(ranks *core.RankTable, cfg ModifierConfig, notifier Notifier, display Display, members Membership, log *slog.Logger) *Modifier {
	if ranks == nil || notifier == nil {
		panic("NewModifier requires non-nil ranks and notifier")
	}
	if display == nil {
		display = nopDisplay{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Modifier{ranks: ranks, cfg: cfg, notifier: notifier, display: display, members: members, log: log}
}

// Ranks returns the rank table the modifier resolves against.
func (m *Modifier) Ranks() *core.RankTable { return m.ranks }

// Apply adds amount to the player's points and returns the amount actually
// applied after VIP scaling. A zero amount is a no-op.
func (m *Modifier) Apply(ctx context.Context, rec *progression.Record, amount int64, reason core.Reason, showMessage bool, contextName string) int64 {
	if amount == 0 {
		return 0
	}
	id := rec.ID()
	amount = m.cfg.Vip.Apply(amount, m.holds(id))

	var (
		oldRank, newRank core.Rank
		total            int64
		settings         core.Settings
	)
	applied := rec.UpdateIf(func(p *core.Progression) bool {
		next, err := core.AddSafe(p.Points, amount)
		if err != nil {
			return false
		}
		round, err := core.AddSafe(p.RoundPoints, amount)
		if err != nil {
			return false
		}
		oldRank = m.ranks.Resolve(p.Points)
		p.Points = next
		p.RoundPoints = round
		p.RankIndex = m.ranks.ResolveIndex(next)
		newRank = m.ranks.Resolve(next)
		total = next
		settings = p.Settings
		return true
	})
	if !applied {
		m.log.Warn("point delta overflows, ignored", "player_id", id, "amount", amount, "reason", reason)
		return 0
	}

	changed := oldRank.Name != newRank.Name
	if m.cfg.Clantags && changed {
		m.display.SetRankTag(id, newRank.Tag)
	}
	if m.cfg.ScoreSync {
		m.display.SetScore(id, total)
	}
	if showMessage && !m.cfg.RoundEndSummary && settings.Messages {
		name := ""
		if m.cfg.ShowPlayerNames {
			name = contextName
		}
		m.notifier.Notify(ctx, PointNotice{Player: id, Amount: amount, Reason: reason, Context: name, Total: total})
	}
	if changed && settings.RankChanges {
		m.notifier.NotifyRankChange(ctx, RankChange{Player: id, Old: oldRank, New: newRank, Promoted: amount > 0, Total: total})
	}
	return amount
}

// Set overwrites the player's points, keeping the rank index and the
// scoreboard in sync.
func (m *Modifier) Set(ctx context.Context, rec *progression.Record, points int64) {
	id := rec.ID()
	var oldRank, newRank core.Rank
	rec.Update(func(p *core.Progression) {
		oldRank = m.ranks.Resolve(p.Points)
		p.Points = points
		p.RankIndex = m.ranks.ResolveIndex(points)
		newRank = m.ranks.Resolve(points)
	})
	if m.cfg.Clantags && oldRank.Name != newRank.Name {
		m.display.SetRankTag(id, newRank.Tag)
	}
	if m.cfg.ScoreSync {
		m.display.SetScore(id, points)
	}
	m.log.DebugContext(ctx, "points set", "player_id", id, "points", points, "rank", newRank.Name)
}

// RefreshDisplay pushes the current tag and score of a record, used when a
// player finishes loading.
func (m *Modifier) RefreshDisplay(rec *progression.Record) {
	p := rec.View()
	if m.cfg.Clantags {
		m.display.SetRankTag(p.ID, m.ranks.Resolve(p.Points).Tag)
	}
	if m.cfg.ScoreSync {
		m.display.SetScore(p.ID, p.Points)
	}
}

func (m *Modifier) holds(id core.PlayerID) func(string) bool {
	if m.members == nil {
		return nil
	}
	return func(flag string) bool { return m.members.HasFlag(id, flag) }
}

type nopDisplay struct{}

func (nopDisplay) SetRankTag(core.PlayerID, string) {}
func (nopDisplay) SetScore(core.PlayerID, int64) {}
