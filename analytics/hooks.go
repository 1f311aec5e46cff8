package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"levelranks/core"
)

// Hook receives engine events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// Bridge adapts hooks to the event bus handler signature.
func Bridge(hooks ...Hook) func(context.Context, core.Event) {
	return func(_ context.Context, e core.Event) {
		for _, h := range hooks {
			h.OnEvent(e)
		}
	}
}

// DAU tracks daily active players.
type DAU struct {
	mu   sync.Mutex
	days map[string]map[core.PlayerID]struct{}
}

func NewDAU() *DAU { return &DAU{days: map[string]map[core.PlayerID]struct{}{}} }

func (d *DAU) OnEvent(e core.Event) {
	day := e.Time.UTC().Format("2006-01-02")
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.days[day]
	if m == nil {
		m = map[core.PlayerID]struct{}{}
		d.days[day] = m
	}
	m[e.PlayerID] = struct{}{}
}

func (d *DAU) Count(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[day])
}

// Metrics tracks point flow, rank movement and player activity.
type Metrics struct {
	mu sync.RWMutex

	dailyActive   map[string]map[core.PlayerID]struct{}
	weeklyActive  map[string]map[core.PlayerID]struct{}
	monthlyActive map[string]map[core.PlayerID]struct{}

	awardedByDay    map[string]int64
	lostByDay       map[string]int64
	awardedByReason map[core.Reason]int64
	lostByReason    map[core.Reason]int64

	promotionsByDay map[string]int64
	demotionsByDay  map[string]int64
	reachedRank     map[string]int64

	loadedByDay map[string]int64
}

func NewMetrics() *Metrics {
	return &Metrics{
		dailyActive:     make(map[string]map[core.PlayerID]struct{}),
		weeklyActive:    make(map[string]map[core.PlayerID]struct{}),
		monthlyActive:   make(map[string]map[core.PlayerID]struct{}),
		awardedByDay:    make(map[string]int64),
		lostByDay:       make(map[string]int64),
		awardedByReason: make(map[core.Reason]int64),
		lostByReason:    make(map[core.Reason]int64),
		promotionsByDay: make(map[string]int64),
		demotionsByDay:  make(map[string]int64),
		reachedRank:     make(map[string]int64),
		loadedByDay:     make(map[string]int64),
	}
}

func (m *Metrics) OnEvent(e core.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := e.Time.UTC().Format("2006-01-02")
	m.trackActivity(e.PlayerID, day, getWeekKey(e.Time), getMonthKey(e.Time))

	switch e.Type {
	case core.EventPointsChanged:
		if e.Delta > 0 {
			m.awardedByDay[day] += e.Delta
			m.awardedByReason[e.Reason] += e.Delta
		} else {
			m.lostByDay[day] -= e.Delta
			m.lostByReason[e.Reason] -= e.Delta
		}
	case core.EventRankChanged:
		if e.Promoted {
			m.promotionsByDay[day]++
			m.reachedRank[e.NewRank]++
		} else {
			m.demotionsByDay[day]++
		}
	case core.EventPlayerLoaded:
		m.loadedByDay[day]++
	}
}

func (m *Metrics) trackActivity(id core.PlayerID, day, week, month string) {
	for key, set := range map[string]map[string]map[core.PlayerID]struct{}{
		day: m.dailyActive, week: m.weeklyActive, month: m.monthlyActive,
	} {
		if set[key] == nil {
			set[key] = make(map[core.PlayerID]struct{})
		}
		set[key][id] = struct{}{}
	}
}

func (m *Metrics) DailyActive(day string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dailyActive[day])
}

func (m *Metrics) WeeklyActive(week string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.weeklyActive[week])
}

func (m *Metrics) MonthlyActive(month string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.monthlyActive[month])
}

// PointsByDay returns points awarded and points lost on a day.
func (m *Metrics) PointsByDay(day string) (awarded, lost int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.awardedByDay[day], m.lostByDay[day]
}

// RankMovesByDay returns promotions and demotions on a day.
func (m *Metrics) RankMovesByDay(day string) (promotions, demotions int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.promotionsByDay[day], m.demotionsByDay[day]
}

// ReasonTotal is the net point flow of one reason.
type ReasonTotal struct {
	Reason  core.Reason `json:"reason"`
	Awarded int64       `json:"awarded"`
	Lost    int64       `json:"lost"`
}

// TopReasons returns the reasons with the largest point flow.
func (m *Metrics) TopReasons(limit int) []ReasonTotal {
	m.mu.RLock()
	seen := make(map[core.Reason]*ReasonTotal)
	for r, v := range m.awardedByReason {
		seen[r] = &ReasonTotal{Reason: r, Awarded: v}
	}
	for r, v := range m.lostByReason {
		if t, ok := seen[r]; ok {
			t.Lost = v
		} else {
			seen[r] = &ReasonTotal{Reason: r, Lost: v}
		}
	}
	m.mu.RUnlock()

	out := make([]ReasonTotal, 0, len(seen))
	for _, t := range seen {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Awarded+out[i].Lost, out[j].Awarded+out[j].Lost
		if a != b {
			return a > b
		}
		return out[i].Reason < out[j].Reason
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PromotionsTo returns how many promotions reached the named rank.
func (m *Metrics) PromotionsTo(rank string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reachedRank[rank]
}

func getWeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func getMonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
