package config

import (
	"log/slog"

	"levelranks/engine"
	"levelranks/session"
)

// SessionOptions translates the ranking, rules and storage sections into
// session options. Invalid rank rows are logged and skipped.
func (c *Config) SessionOptions(log *slog.Logger) []session.Option {
	if log == nil {
		log = slog.Default()
	}
	ranks, dropped := c.RankTable()
	if len(dropped) > 0 {
		log.Warn("ignoring invalid ranks", "ranks", dropped)
	}
	rules := c.Rules.Scoring()
	return []session.Option{
		session.WithRanks(ranks),
		session.WithRules(rules),
		session.WithModifier(engine.ModifierConfig{
			Clantags:        c.Ranking.Clantags,
			ScoreSync:       c.Ranking.ScoreSync,
			RoundEndSummary: rules.RoundEndSummary,
			ShowPlayerNames: c.Ranking.ShowPlayerNames,
			Vip:             c.Ranking.Vip,
		}),
		session.WithLogger(log),
		session.WithStartPoints(c.Ranking.StartPoints),
		session.WithFlushInterval(c.Storage.FlushInterval),
		session.WithWriteTimeout(c.Storage.WriteTimeout),
		session.WithLoadTimeout(c.Storage.LoadTimeout),
		session.WithPurgeAfter(c.Storage.PurgeAfter),
		session.WithPositionCache(c.Ranking.CacheSize, c.Ranking.CacheTTL),
	}
}
