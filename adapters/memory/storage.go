package memory

import (
	"context"
	"sync"
	"time"

	"levelranks/core"
	"levelranks/engine"
	"levelranks/leaderboard"
)

// Store is a concurrent in-memory Persistence implementation. Rank positions
// come from a skip list kept in step with saved points.
type Store struct {
	players sync.Map // map[core.PlayerID]*playerRecord
	board   leaderboard.Board
}

type playerRecord struct {
	mu sync.Mutex
	p  core.Progression
}

func New() *Store { return &Store{board: leaderboard.NewSkipList()} }

func (s *Store) Load(_ context.Context, id core.PlayerID) (core.Progression, bool, error) {
	v, ok := s.players.Load(id)
	if !ok {
		return core.Progression{}, false, nil
	}
	rec := v.(*playerRecord)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.p.Clone(), true, nil
}

func (s *Store) Save(_ context.Context, p core.Progression) error {
	s.put(p)
	return nil
}

func (s *Store) SaveBatch(_ context.Context, ps []core.Progression) error {
	for _, p := range ps {
		s.put(p)
	}
	return nil
}

func (s *Store) put(p core.Progression) {
	cp := p.Clone()
	if cp.LastSeen.IsZero() {
		cp.LastSeen = time.Now().UTC()
	}
	v, _ := s.players.LoadOrStore(cp.ID, &playerRecord{})
	rec := v.(*playerRecord)
	rec.mu.Lock()
	if !rec.p.FirstSeen.IsZero() && (cp.FirstSeen.IsZero() || rec.p.FirstSeen.Before(cp.FirstSeen)) {
		cp.FirstSeen = rec.p.FirstSeen
	}
	rec.p = cp
	rec.mu.Unlock()
	s.board.Update(cp.ID, cp.Points)
}

func (s *Store) Position(_ context.Context, id core.PlayerID) (int, error) {
	return s.board.Position(id), nil
}

func (s *Store) TotalPlayers(_ context.Context) (int, error) {
	return s.board.Len(), nil
}

func (s *Store) Top(_ context.Context, n int) ([]core.Standing, error) {
	entries := s.board.TopN(n)
	out := make([]core.Standing, 0, len(entries))
	for _, e := range entries {
		st := core.Standing{ID: e.Player, Points: e.Points}
		if v, ok := s.players.Load(e.Player); ok {
			rec := v.(*playerRecord)
			rec.mu.Lock()
			st.Name = rec.p.Name
			rec.mu.Unlock()
		}
		out = append(out, st)
	}
	return out, nil
}

// Purge drops players last seen before inactiveSince.
func (s *Store) Purge(_ context.Context, inactiveSince time.Time) (int64, error) {
	var n int64
	s.players.Range(func(k, v any) bool {
		rec := v.(*playerRecord)
		rec.mu.Lock()
		stale := rec.p.LastSeen.Before(inactiveSince)
		rec.mu.Unlock()
		if stale {
			id := k.(core.PlayerID)
			s.players.Delete(id)
			s.board.Remove(id)
			n++
		}
		return true
	})
	return n, nil
}

var (
	_ engine.Persistence = (*Store)(nil)
	_ engine.Purger      = (*Store)(nil)
)
