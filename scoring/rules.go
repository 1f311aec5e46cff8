// Package scoring turns gameplay events into point changes.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"

	"levelranks/core"
	"levelranks/engine"
	"levelranks/progression"
	"levelranks/weapons"
)

// Points holds the base award of every event reason.
type Points struct {
	Kill            int64 `json:"kill" toml:"kill"`
	Death           int64 `json:"death" toml:"death"`
	Headshot        int64 `json:"headshot" toml:"headshot"`
	Assist          int64 `json:"assist" toml:"assist"`
	AssistFlash     int64 `json:"assist_flash" toml:"assist_flash"`
	TeamKill        int64 `json:"team_kill" toml:"team_kill"`
	TeamAssist      int64 `json:"team_assist" toml:"team_assist"`
	TeamAssistFlash int64 `json:"team_assist_flash" toml:"team_assist_flash"`
	Suicide         int64 `json:"suicide" toml:"suicide"`

	RoundWin  int64 `json:"round_win" toml:"round_win"`
	RoundLose int64 `json:"round_lose" toml:"round_lose"`
	MVP       int64 `json:"mvp" toml:"mvp"`

	BombPlant        int64 `json:"bomb_plant" toml:"bomb_plant"`
	BombDefuse       int64 `json:"bomb_defuse" toml:"bomb_defuse"`
	BombDefuseOthers int64 `json:"bomb_defuse_others" toml:"bomb_defuse_others"`
	BombExploded     int64 `json:"bomb_exploded" toml:"bomb_exploded"`
	BombPickup       int64 `json:"bomb_pickup" toml:"bomb_pickup"`
	BombDrop         int64 `json:"bomb_drop" toml:"bomb_drop"`

	HostageRescue    int64 `json:"hostage_rescue" toml:"hostage_rescue"`
	HostageRescueAll int64 `json:"hostage_rescue_all" toml:"hostage_rescue_all"`
	HostageHurt      int64 `json:"hostage_hurt" toml:"hostage_hurt"`
	HostageKill      int64 `json:"hostage_kill" toml:"hostage_kill"`

	Playtime int64 `json:"playtime" toml:"playtime"`
}

// Config controls which events award points and how much.
type Config struct {
	Points  Points
	Special core.SpecialKillPoints
	Streaks core.StreakBonuses
	Dynamic core.DynamicPolicy

	// StreakGap restarts a killstreak when exceeded; zero disables the check.
	StreakGap             time.Duration
	StreakResetOnRoundEnd bool
	RoundEndSummary       bool

	MinPlayers    int
	WarmupPoints  bool
	PointsForBots bool
	FFA           bool
	WeaponStats   bool
	HitStats      bool

	PlaytimeInterval time.Duration
}

// DefaultConfig returns the stock point values.
func DefaultConfig() Config {
	return Config{
		Points: Points{
			Kill: 8, Death: -5, Headshot: 5, Assist: 5, AssistFlash: 7,
			TeamKill: -10, TeamAssist: -5, TeamAssistFlash: -7, Suicide: -5,
			RoundWin: 5, RoundLose: -2, MVP: 10,
			BombPlant: 10, BombDefuse: 10, BombDefuseOthers: 3, BombExploded: 10, BombPickup: 2, BombDrop: -2,
			HostageRescue: 15, HostageRescueAll: 10, HostageHurt: -2, HostageKill: -20,
			Playtime: 10,
		},
		Special: core.SpecialKillPoints{
			NoScope: 15, ThroughSmoke: 15, Blind: 5, Penetrated: 3,
			LongDistanceKill: 8, LongDistance: 30,
			Knife: 15, Taser: 20, Grenade: 30, Inferno: 30, Impact: 100,
		},
		Streaks: core.StreakBonuses{
			DoubleKill: 5, TripleKill: 10, Domination: 15, Rampage: 20, MegaKill: 25, Ownage: 30,
			UltraKill: 35, KillingSpree: 40, MonsterKill: 45, Unstoppable: 50, GodLike: 60,
		},
		Dynamic:          core.DynamicPolicy{Enabled: true, Min: 0.5, Max: 3.0},
		MinPlayers:       4,
		WeaponStats:      true,
		HitStats:         true,
		PlaytimeInterval: 5 * time.Minute,
	}
}

// Roster answers who is connected and on which side.
type Roster interface {
	Participant(id core.PlayerID) (Participant, bool)
	Players() []Participant
	Warmup() bool
}

// Records resolves live progression records.
type Records interface {
	Get(id core.PlayerID) (*progression.Record, bool)
}

// Rules applies point rules for one session. It is not safe for concurrent
// use; the owning session serializes calls to Handle.
type Rules struct {
	cfg      Config
	mod      *engine.Modifier
	roster   Roster
	records  Records
	notifier engine.Notifier
	log      *slog.Logger
	now      func() time.Time
}

// Option configures Rules.
type Option func(*Rules)

// WithNotifier enables round summaries.
func WithNotifier(n engine.Notifier) Option { return func(r *Rules) { r.notifier = n } }

func WithLogger(l *slog.Logger) Option {
	return func(r *Rules) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock overrides time.Now for killstreak gaps.
func WithClock(now func() time.Time) Option {
	return func(r *Rules) {
		if now != nil {
			r.now = now
		}
	}
}

// New builds the rules. It panics when a collaborator is nil.
func New(cfg Config, mod *engine.Modifier, roster Roster, records Records, opts ...Option) *Rules {
	if mod == nil || roster == nil || records == nil {
		panic("scoring.New requires modifier, roster and records")
	}
	r := &Rules{cfg: cfg, mod: mod, roster: roster, records: records, log: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Config returns the active configuration.
func (r *Rules) Config() Config { return r.cfg }

// Handle applies the rules for one event.
func (r *Rules) Handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case Kill:
		r.kill(ctx, e)
	case Hurt:
		r.hurt(e)
	case WeaponFire:
		r.weaponFire(e)
	case BombPlanted:
		r.single(ctx, e.Player, r.cfg.Points.BombPlant, core.ReasonBombPlant)
	case BombDefused:
		r.bombDefused(ctx, e)
	case BombExploded:
		r.single(ctx, e.Player, r.cfg.Points.BombExploded, core.ReasonBombExploded)
	case BombPickup:
		r.single(ctx, e.Player, r.cfg.Points.BombPickup, core.ReasonBombPickup)
	case BombDropped:
		r.single(ctx, e.Player, r.cfg.Points.BombDrop, core.ReasonBombDrop)
	case HostageRescued:
		r.single(ctx, e.Player, r.cfg.Points.HostageRescue, core.ReasonHostageRescue)
	case HostagesRescuedAll:
		r.team(ctx, common.TeamCounterTerrorists, "", r.cfg.Points.HostageRescueAll, core.ReasonHostageRescueAll)
	case HostageHurt:
		r.single(ctx, e.Player, r.cfg.Points.HostageHurt, core.ReasonHostageHurt)
	case HostageKilled:
		r.single(ctx, e.Player, r.cfg.Points.HostageKill, core.ReasonHostageKill)
	case RoundMVP:
		r.single(ctx, e.Player, r.cfg.Points.MVP, core.ReasonMVP)
	case RoundStart:
		r.roundStart()
	case RoundEnd:
		r.roundEnd(ctx, e)
	case MatchEnd:
		r.matchEnd(e)
	case PlaytimeTick:
		r.playtime(ctx, e)
	default:
		r.log.Warn("unhandled event", "type", fmt.Sprintf("%T", ev))
	}
}

// CanAward reports whether points are currently awarded: not in warmup
// (unless allowed) and enough human players connected.
func (r *Rules) CanAward() bool {
	if r.roster.Warmup() && !r.cfg.WarmupPoints {
		return false
	}
	humans := 0
	for _, p := range r.roster.Players() {
		if !p.Bot {
			humans++
		}
	}
	return humans >= r.cfg.MinPlayers
}

// human returns the participant and live record of a connected, loaded
// non-bot player.
func (r *Rules) human(id core.PlayerID) (Participant, *progression.Record, bool) {
	if id == "" {
		return Participant{}, nil, false
	}
	p, ok := r.roster.Participant(id)
	if !ok || p.Bot {
		return p, nil, false
	}
	rec, ok := r.records.Get(id)
	if !ok {
		return p, nil, false
	}
	return p, rec, true
}

func (r *Rules) award(ctx context.Context, rec *progression.Record, amount int64, reason core.Reason, name string) {
	if amount == 0 {
		return
	}
	r.mod.Apply(ctx, rec, amount, reason, true, name)
}

func (r *Rules) single(ctx context.Context, id core.PlayerID, amount int64, reason core.Reason) {
	if amount == 0 || !r.CanAward() {
		return
	}
	if _, rec, ok := r.human(id); ok {
		r.award(ctx, rec, amount, reason, "")
	}
}

// team awards every loaded human on side, except skip.
func (r *Rules) team(ctx context.Context, side common.Team, skip core.PlayerID, amount int64, reason core.Reason) {
	if amount == 0 || !r.CanAward() {
		return
	}
	for _, p := range r.roster.Players() {
		if p.Team != side || (skip != "" && p.ID == skip) {
			continue
		}
		if _, rec, ok := r.human(p.ID); ok {
			r.award(ctx, rec, amount, reason, "")
		}
	}
}

func (r *Rules) kill(ctx context.Context, ev Kill) {
	if !r.CanAward() {
		return
	}
	attacker, attackerPresent := r.roster.Participant(ev.Attacker)
	attackerPresent = attackerPresent && ev.Attacker != ""
	victim, victimPresent := r.roster.Participant(ev.Victim)
	_, attackerRec, attackerOK := r.human(ev.Attacker)
	_, victimRec, victimOK := r.human(ev.Victim)
	_, assisterRec, assisterOK := r.human(ev.Assister)
	assister, _ := r.roster.Participant(ev.Assister)

	suicide := !attackerPresent || ev.Attacker == ev.Victim
	teamKill := !suicide && !r.cfg.FFA && victimPresent && attacker.Team == victim.Team
	botKill := victimPresent && victim.Bot
	validKill := !suicide && !teamKill && (!botKill || r.cfg.PointsForBots)
	weapon := ""
	if r.cfg.WeaponStats {
		weapon = weapons.StatKey(ev.Weapon)
	}

	if victimOK {
		switch {
		case suicide:
			r.award(ctx, victimRec, r.cfg.Points.Suicide, core.ReasonSuicide, "")
		case !teamKill:
			var other int64
			if attackerOK {
				other = attackerRec.Points()
			}
			penalty := r.cfg.Dynamic.Scale(r.cfg.Points.Death, victimRec.Points(), other)
			r.award(ctx, victimRec, penalty, core.ReasonDeath, attacker.Name)
			victimRec.Update(func(p *core.Progression) {
				p.Deaths++
				p.UpdateWeapon(weapon, func(w *core.WeaponStat) { w.Deaths++ })
			})
		}
		victimRec.Touch(func(p *core.Progression) { p.Streak.Reset() })
	}

	if attackerOK && !suicide {
		switch {
		case teamKill:
			r.award(ctx, attackerRec, r.cfg.Points.TeamKill, core.ReasonTeamKill, victim.Name)
		case validKill:
			r.validKill(ctx, ev, attackerRec, victimRec, victim.Name, weapon)
		}
	}

	if assisterOK {
		teamAssist := !r.cfg.FFA && victimPresent && assister.Team == victim.Team
		switch {
		case ev.AssistedFlash && teamAssist:
			r.award(ctx, assisterRec, r.cfg.Points.TeamAssistFlash, core.ReasonTeamAssistFlash, "")
		case ev.AssistedFlash:
			r.award(ctx, assisterRec, r.cfg.Points.AssistFlash, core.ReasonAssistFlash, "")
		case teamAssist:
			r.award(ctx, assisterRec, r.cfg.Points.TeamAssist, core.ReasonTeamAssist, "")
		default:
			r.award(ctx, assisterRec, r.cfg.Points.Assist, core.ReasonAssist, "")
			assisterRec.Update(func(p *core.Progression) { p.Assists++ })
		}
	}
}

func (r *Rules) validKill(ctx context.Context, ev Kill, rec, victimRec *progression.Record, victimName, weapon string) {
	var other int64
	if victimRec != nil {
		other = victimRec.Points()
	}
	amount := r.cfg.Dynamic.Scale(r.cfg.Points.Kill, rec.Points(), other)
	r.award(ctx, rec, amount, core.ReasonKill, victimName)
	rec.Update(func(p *core.Progression) {
		p.Kills++
		p.UpdateWeapon(weapon, func(w *core.WeaponStat) {
			w.Kills++
			if ev.Headshot {
				w.Headshots++
			}
		})
	})

	if ev.Headshot {
		r.award(ctx, rec, r.cfg.Points.Headshot, core.ReasonHeadshot, victimName)
		rec.Update(func(p *core.Progression) { p.Headshots++ })
	}

	for _, b := range r.cfg.Special.Bonuses(core.KillDetails{
		Class:         weapons.Classify(ev.Weapon),
		NoScope:       ev.NoScope,
		ThroughSmoke:  ev.ThroughSmoke,
		AttackerBlind: ev.AttackerBlind,
		Penetrated:    ev.Penetrated,
		Distance:      ev.Distance,
	}) {
		r.award(ctx, rec, b.Amount, b.Reason, victimName)
	}

	at := ev.At
	if at.IsZero() {
		at = r.now()
	}
	var count int
	rec.Touch(func(p *core.Progression) { count = p.Streak.RecordKill(at, r.cfg.StreakGap) })
	if bonus, ok := r.cfg.Streaks.Award(count); ok {
		r.award(ctx, rec, bonus.Amount, bonus.Reason, "")
	}
}

func (r *Rules) hurt(ev Hurt) {
	if !r.CanAward() || ev.Attacker == ev.Victim {
		return
	}
	attacker, rec, ok := r.human(ev.Attacker)
	victim, victimPresent := r.roster.Participant(ev.Victim)
	if !ok || !victimPresent {
		return
	}
	if victim.Bot && !r.cfg.PointsForBots {
		return
	}
	if !r.cfg.FFA && attacker.Team == victim.Team {
		return
	}
	if ev.HealthDamage <= 0 && ev.ArmorDamage <= 0 {
		return
	}
	weapon := ""
	if r.cfg.WeaponStats {
		weapon = weapons.StatKey(ev.Weapon)
	}
	rec.Update(func(p *core.Progression) {
		p.Hits++
		p.Damage += ev.HealthDamage
		p.UpdateWeapon(weapon, func(w *core.WeaponStat) {
			w.Hits++
			w.Damage += ev.HealthDamage
		})
		if r.cfg.HitStats {
			p.HitGroups.Record(ev.HitGroup, ev.HealthDamage, ev.ArmorDamage)
		}
	})
}

func (r *Rules) weaponFire(ev WeaponFire) {
	if !r.CanAward() || ev.Weapon == "" {
		return
	}
	_, rec, ok := r.human(ev.Player)
	if !ok {
		return
	}
	weapon := ""
	if r.cfg.WeaponStats {
		weapon = weapons.StatKey(ev.Weapon)
	}
	rec.Update(func(p *core.Progression) {
		p.Shots++
		p.UpdateWeapon(weapon, func(w *core.WeaponStat) { w.Shots++ })
	})
}

func (r *Rules) bombDefused(ctx context.Context, ev BombDefused) {
	r.single(ctx, ev.Player, r.cfg.Points.BombDefuse, core.ReasonBombDefuse)
	r.team(ctx, common.TeamCounterTerrorists, ev.Player, r.cfg.Points.BombDefuseOthers, core.ReasonBombDefuseOthers)
}

func (r *Rules) roundStart() {
	for _, p := range r.roster.Players() {
		if rec, ok := r.records.Get(p.ID); ok {
			rec.Touch(func(p *core.Progression) {
				p.RoundPoints = 0
				p.Streak.Reset()
			})
		}
	}
}

func (r *Rules) roundEnd(ctx context.Context, ev RoundEnd) {
	if r.CanAward() && ev.Winner > common.TeamSpectators {
		for _, p := range r.roster.Players() {
			_, rec, ok := r.human(p.ID)
			if !ok || !p.Playing() {
				continue
			}
			won := p.Team == ev.Winner
			if won {
				r.award(ctx, rec, r.cfg.Points.RoundWin, core.ReasonRoundWin, "")
			} else {
				r.award(ctx, rec, r.cfg.Points.RoundLose, core.ReasonRoundLose, "")
			}
			rec.Update(func(p *core.Progression) {
				if won {
					p.RoundsWon++
				} else {
					p.RoundsLost++
				}
				p.RoundsPlayed++
			})
		}
	}

	for _, p := range r.roster.Players() {
		_, rec, ok := r.human(p.ID)
		if !ok {
			continue
		}
		if r.cfg.StreakResetOnRoundEnd {
			rec.Touch(func(p *core.Progression) { p.Streak.Reset() })
		}
		r.summary(ctx, rec)
	}
}

// summary sends the round recap when round-end summary mode is on and the
// player takes point messages.
func (r *Rules) summary(ctx context.Context, rec *progression.Record) {
	if r.notifier == nil {
		return
	}
	p := rec.View()
	if p.RoundPoints == 0 {
		return
	}
	if !r.cfg.RoundEndSummary || !p.Settings.Messages {
		return
	}
	r.notifier.NotifySummary(ctx, engine.RoundSummary{Player: p.ID, RoundPoints: p.RoundPoints, Total: p.Points})
}

func (r *Rules) matchEnd(ev MatchEnd) {
	if !r.CanAward() || ev.Winner <= common.TeamSpectators {
		return
	}
	for _, p := range r.roster.Players() {
		_, rec, ok := r.human(p.ID)
		if !ok || !p.Playing() {
			continue
		}
		won := p.Team == ev.Winner
		rec.Update(func(p *core.Progression) {
			if won {
				p.GamesWon++
			} else {
				p.GamesLost++
			}
			p.GamesPlayed++
		})
	}
}

func (r *Rules) playtime(ctx context.Context, ev PlaytimeTick) {
	if r.cfg.Points.Playtime == 0 || r.cfg.PlaytimeInterval <= 0 || !r.CanAward() {
		return
	}
	now := ev.Now
	if now.IsZero() {
		now = r.now()
	}
	for _, p := range r.roster.Players() {
		_, rec, ok := r.human(p.ID)
		if !ok || !p.Playing() {
			continue
		}
		due := false
		rec.Touch(func(p *core.Progression) {
			switch {
			case p.LastPlaytimeAt.IsZero():
				p.LastPlaytimeAt = now
			case now.Sub(p.LastPlaytimeAt) >= r.cfg.PlaytimeInterval:
				p.LastPlaytimeAt = now
				due = true
			}
		})
		if due {
			r.award(ctx, rec, r.cfg.Points.Playtime, core.ReasonPlaytime, "")
		}
	}
}
