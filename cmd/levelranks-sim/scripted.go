package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"
	"github.com/spf13/cobra"

	"levelranks/core"
	"levelranks/identity"
	"levelranks/replay"
	"levelranks/scoring"
)

var scriptedWeapons = []string{"ak47", "m4a1", "awp", "deagle", "usp_silencer", "glock", "knife", "hegrenade"}

// match plays a seeded best-of-rounds game between two sides. The same seed
// always produces the same event sequence.
type match struct {
	rng     *rand.Rand
	clock   *replay.Clock
	sink    replay.Sink
	sides   map[common.Team][]core.PlayerID
	elapsed time.Duration
	wins    map[common.Team]int
}

func newMatch(sink replay.Sink, clock *replay.Clock, seed uint64, perSide int) *match {
	m := &match{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		clock: clock,
		sink:  sink,
		sides: map[common.Team][]core.PlayerID{},
		wins:  map[common.Team]int{},
	}
	n := 0
	for _, team := range []common.Team{common.TeamTerrorists, common.TeamCounterTerrorists} {
		for i := 0; i < perSide; i++ {
			n++
			id, _ := identity.Normalize(fmt.Sprintf("STEAM_1:%d:%d", n%2, 4000+n))
			m.sides[team] = append(m.sides[team], id)
		}
	}
	return m
}

func (m *match) advance(d time.Duration) {
	m.elapsed += d
	m.clock.Set(m.elapsed)
}

// Run joins every player, plays the rounds and ends the match.
func (m *match) Run(ctx context.Context, rounds int) error {
	n := 0
	for _, team := range []common.Team{common.TeamTerrorists, common.TeamCounterTerrorists} {
		for _, id := range m.sides[team] {
			n++
			done, err := m.sink.Join(ctx, scoring.Participant{ID: id, Name: fmt.Sprintf("player%02d", n), Team: team})
			if err != nil {
				return fmt.Errorf("join %s: %w", id, err)
			}
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	for r := 0; r < rounds; r++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.round(ctx)
	}

	winner := common.TeamUnassigned
	switch t, ct := m.wins[common.TeamTerrorists], m.wins[common.TeamCounterTerrorists]; {
	case t > ct:
		winner = common.TeamTerrorists
	case ct > t:
		winner = common.TeamCounterTerrorists
	}
	m.sink.Handle(ctx, scoring.MatchEnd{Winner: winner})
	return nil
}

func (m *match) round(ctx context.Context) {
	m.sink.Handle(ctx, scoring.RoundStart{})

	alive := map[common.Team][]core.PlayerID{
		common.TeamTerrorists:        append([]core.PlayerID(nil), m.sides[common.TeamTerrorists]...),
		common.TeamCounterTerrorists: append([]core.PlayerID(nil), m.sides[common.TeamCounterTerrorists]...),
	}
	frags := map[core.PlayerID]int{}

	for len(alive[common.TeamTerrorists]) > 0 && len(alive[common.TeamCounterTerrorists]) > 0 {
		m.advance(time.Duration(3+m.rng.IntN(12)) * time.Second)

		side, other := common.TeamTerrorists, common.TeamCounterTerrorists
		if m.rng.IntN(2) == 1 {
			side, other = other, side
		}
		ai := m.rng.IntN(len(alive[side]))
		vi := m.rng.IntN(len(alive[other]))
		attacker, victim := alive[side][ai], alive[other][vi]

		m.sink.Handle(ctx, scoring.Kill{
			Attacker: attacker,
			Victim:   victim,
			Weapon:   scriptedWeapons[m.rng.IntN(len(scriptedWeapons))],
			Headshot: m.rng.IntN(10) < 4,
			Distance: float64(m.rng.IntN(45)),
			At:       m.clock.Now(),
		})
		frags[attacker]++
		alive[other] = append(alive[other][:vi], alive[other][vi+1:]...)
	}

	winner := common.TeamTerrorists
	if len(alive[common.TeamTerrorists]) == 0 {
		winner = common.TeamCounterTerrorists
	}
	m.wins[winner]++

	var mvp core.PlayerID
	best := 0
	for _, id := range m.sides[winner] {
		if frags[id] > best {
			mvp, best = id, frags[id]
		}
	}
	if mvp != "" {
		m.sink.Handle(ctx, scoring.RoundMVP{Player: mvp})
	}
	m.advance(5 * time.Second)
	m.sink.Handle(ctx, scoring.RoundEnd{Winner: winner})
}

var (
	scriptedRounds  int
	scriptedPlayers int
	scriptedSeed    uint64
)

var scriptedCmd = &cobra.Command{
	Use:   "scripted",
	Short: "play a seeded match between generated players",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if scriptedPlayers < 1 {
			return fmt.Errorf("--players must be at least 1")
		}

		clock := replay.NewClock(time.Now())
		sess, store, err := openSession(cfg, clock)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeAll(sess, store); err != nil {
				slog.Error("failed to close session", "error", err)
			}
		}()

		m := newMatch(sess, clock, scriptedSeed, scriptedPlayers)
		if err := m.Run(ctx, scriptedRounds); err != nil {
			return err
		}
		slog.Info("scripted match finished",
			"rounds", scriptedRounds,
			"t_wins", m.wins[common.TeamTerrorists],
			"ct_wins", m.wins[common.TeamCounterTerrorists])

		if err := sess.FlushAll(ctx); err != nil {
			return fmt.Errorf("write players: %w", err)
		}
		return printStandings(ctx, cmd.OutOrStdout(), sess, topN)
	},
}

func init() {
	scriptedCmd.Flags().IntVar(&scriptedRounds, "rounds", 16, "rounds to play")
	scriptedCmd.Flags().IntVar(&scriptedPlayers, "players", 5, "players per side")
	scriptedCmd.Flags().Uint64Var(&scriptedSeed, "seed", 1, "random seed")
	rootCmd.AddCommand(scriptedCmd)
}
