// Package replay feeds the events of a recorded CS demo into a session, so
// rank progression can be computed offline from match recordings.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	demoinfocs "github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs"
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/events"

	"levelranks/core"
	"levelranks/progression"
	"levelranks/scoring"
)

// Sink receives the translated events. *session.Session implements it.
type Sink interface {
	Join(ctx context.Context, p scoring.Participant) (<-chan struct{}, error)
	Leave(ctx context.Context, id core.PlayerID) *progression.Flush
	SetTeam(id core.PlayerID, team common.Team)
	SetWarmup(on bool)
	Handle(ctx context.Context, ev scoring.Event)
}

// Stats summarizes a replay.
type Stats struct {
	Players int
	Rounds  int
	Kills   int
	Events  int
	Ticks   int
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithTickInterval emits a PlaytimeTick every d of demo time. Zero disables ticks.
func WithTickInterval(d time.Duration) Option { return func(r *Replayer) { r.tickEvery = d } }

func WithLogger(l *slog.Logger) Option {
	return func(r *Replayer) {
		if l != nil {
			r.log = l
		}
	}
}

// Replayer translates demo events into session calls. It is single-use and
// driven from the parser goroutine only.
type Replayer struct {
	sink  Sink
	clock *Clock
	log   *slog.Logger

	tickEvery time.Duration
	lastTick  time.Duration

	joined map[core.PlayerID]common.Team
	stats  Stats
}

func New(sink Sink, clock *Clock, opts ...Option) *Replayer {
	r := &Replayer{
		sink:      sink,
		clock:     clock,
		log:       slog.Default(),
		tickEvery: time.Minute,
		joined:    map[core.PlayerID]common.Team{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run parses the demo to the end, or until ctx is cancelled.
func (r *Replayer) Run(ctx context.Context, demo io.Reader) (Stats, error) {
	p := demoinfocs.NewParser(demo)
	defer p.Close()

	at := func() time.Duration { return p.CurrentTime() }

	p.RegisterEventHandler(func(e events.PlayerConnect) { r.ensure(ctx, at(), e.Player) })
	p.RegisterEventHandler(func(e events.PlayerDisconnected) { r.disconnect(ctx, at(), e.Player) })
	p.RegisterEventHandler(func(e events.PlayerTeamChange) { r.teamChange(ctx, at(), e.Player, e.NewTeam) })
	p.RegisterEventHandler(func(e events.IsWarmupPeriodChanged) { r.sink.SetWarmup(e.NewIsWarmupPeriod) })

	p.RegisterEventHandler(func(e events.Kill) { r.kill(ctx, at(), e) })
	p.RegisterEventHandler(func(e events.PlayerHurt) {
		if ev, ok := translateHurt(e); ok {
			r.ensure(ctx, at(), e.Attacker, e.Player)
			r.handle(ctx, at(), ev)
		}
	})
	p.RegisterEventHandler(func(e events.WeaponFire) {
		if ev, ok := translateFire(e); ok {
			r.ensure(ctx, at(), e.Shooter)
			r.handle(ctx, at(), ev)
		}
	})

	p.RegisterEventHandler(func(e events.BombPlanted) {
		r.playerEvent(ctx, at(), e.Player, func(id core.PlayerID) scoring.Event { return scoring.BombPlanted{Player: id} })
	})
	p.RegisterEventHandler(func(e events.BombDefused) {
		r.playerEvent(ctx, at(), e.Player, func(id core.PlayerID) scoring.Event { return scoring.BombDefused{Player: id} })
	})
	p.RegisterEventHandler(func(e events.BombExplode) {
		r.playerEvent(ctx, at(), e.Player, func(id core.PlayerID) scoring.Event { return scoring.BombExploded{Player: id} })
	})
	p.RegisterEventHandler(func(e events.BombPickup) {
		r.playerEvent(ctx, at(), e.Player, func(id core.PlayerID) scoring.Event { return scoring.BombPickup{Player: id} })
	})
	p.RegisterEventHandler(func(e events.BombDropped) {
		r.playerEvent(ctx, at(), e.Player, func(id core.PlayerID) scoring.Event { return scoring.BombDropped{Player: id} })
	})
	p.RegisterEventHandler(func(e events.HostageRescued) {
		r.playerEvent(ctx, at(), e.Player, func(id core.PlayerID) scoring.Event { return scoring.HostageRescued{Player: id} })
	})
	p.RegisterEventHandler(func(events.HostageRescuedAll) { r.handle(ctx, at(), scoring.HostagesRescuedAll{}) })
	p.RegisterEventHandler(func(e events.RoundMVPAnnouncement) {
		r.playerEvent(ctx, at(), e.Player, func(id core.PlayerID) scoring.Event { return scoring.RoundMVP{Player: id} })
	})

	p.RegisterEventHandler(func(events.RoundStart) { r.handle(ctx, at(), scoring.RoundStart{}) })
	p.RegisterEventHandler(func(e events.RoundEnd) { r.roundEnd(ctx, at(), e.Winner) })
	p.RegisterEventHandler(func(events.AnnouncementWinPanelMatch) {
		gs := p.GameState()
		r.matchEnd(ctx, at(), matchWinner(gs.TeamTerrorists().Score(), gs.TeamCounterTerrorists().Score()))
	})

	stop := context.AfterFunc(ctx, p.Cancel)
	defer stop()

	err := p.ParseToEnd()
	switch {
	case errors.Is(err, demoinfocs.ErrCancelled):
		return r.stats, ctx.Err()
	case errors.Is(err, demoinfocs.ErrUnexpectedEndOfDemo):
		r.log.Warn("demo truncated, keeping events parsed so far")
	case err != nil:
		return r.stats, fmt.Errorf("parse demo: %w", err)
	}
	return r.stats, nil
}

// ensure joins every player not yet seen and waits for the load so that
// the first scored event finds a live record.
func (r *Replayer) ensure(ctx context.Context, at time.Duration, players ...*common.Player) {
	r.clock.Set(at)
	for _, pl := range players {
		part, ok := participant(pl)
		if !ok {
			continue
		}
		if team, seen := r.joined[part.ID]; seen {
			if team != part.Team {
				r.sink.SetTeam(part.ID, part.Team)
				r.joined[part.ID] = part.Team
			}
			continue
		}
		done, err := r.sink.Join(ctx, part)
		if err != nil {
			r.log.Warn("replay join failed", "player_id", part.ID, "error", err)
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
		r.joined[part.ID] = part.Team
		r.stats.Players++
	}
}

func (r *Replayer) disconnect(ctx context.Context, at time.Duration, pl *common.Player) {
	r.clock.Set(at)
	id := playerID(pl)
	if _, ok := r.joined[id]; !ok {
		return
	}
	delete(r.joined, id)
	if err := r.sink.Leave(ctx, id).Wait(ctx); err != nil && !errors.Is(err, progression.ErrNotLoaded) {
		r.log.Warn("replay leave flush failed", "player_id", id, "error", err)
	}
}

func (r *Replayer) teamChange(ctx context.Context, at time.Duration, pl *common.Player, team common.Team) {
	part, ok := participant(pl)
	if !ok {
		return
	}
	if _, seen := r.joined[part.ID]; !seen {
		r.ensure(ctx, at, pl)
	}
	r.sink.SetTeam(part.ID, team)
	r.joined[part.ID] = team
}

func (r *Replayer) kill(ctx context.Context, at time.Duration, e events.Kill) {
	ev, ok := translateKill(e)
	if !ok {
		return
	}
	r.ensure(ctx, at, e.Killer, e.Victim, e.Assister)
	ev.At = r.clock.Now()
	r.stats.Kills++
	r.handle(ctx, at, ev)
}

func (r *Replayer) playerEvent(ctx context.Context, at time.Duration, pl *common.Player, build func(core.PlayerID) scoring.Event) {
	id := playerID(pl)
	if id == "" {
		return
	}
	r.ensure(ctx, at, pl)
	r.handle(ctx, at, build(id))
}

func (r *Replayer) roundEnd(ctx context.Context, at time.Duration, winner common.Team) {
	r.stats.Rounds++
	r.handle(ctx, at, scoring.RoundEnd{Winner: winner})
}

func (r *Replayer) matchEnd(ctx context.Context, at time.Duration, winner common.Team) {
	r.handle(ctx, at, scoring.MatchEnd{Winner: winner})
}

// handle advances the clock, emits any playtime ticks that fell due, then
// forwards ev.
func (r *Replayer) handle(ctx context.Context, at time.Duration, ev scoring.Event) {
	if ctx.Err() != nil {
		return
	}
	r.clock.Set(at)
	if r.tickEvery > 0 {
		for at-r.lastTick >= r.tickEvery {
			r.lastTick += r.tickEvery
			r.stats.Ticks++
			r.sink.Handle(ctx, scoring.PlaytimeTick{Now: r.clock.base.Add(r.lastTick)})
		}
	}
	r.stats.Events++
	r.sink.Handle(ctx, ev)
}
