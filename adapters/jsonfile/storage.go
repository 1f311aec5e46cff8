package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"levelranks/core"
	"levelranks/engine"
	"levelranks/leaderboard"
)

// Store persists every player to a single JSON file.
// Suitable for local servers and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory copy of the file
	data  map[core.PlayerID]core.Progression
	board leaderboard.Board
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[core.PlayerID]core.Progression{}, board: leaderboard.NewSkipList()}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw map[string]core.Progression
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		id := core.PlayerID(k)
		v.ID = id
		s.data[id] = v
		s.board.Update(id, v.Points)
	}
	return nil
}

// persist writes to a temporary file and renames it over the target.
func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	raw := make(map[string]core.Progression, len(s.data))
	for k, v := range s.data {
		raw[string(k)] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) Load(_ context.Context, id core.PlayerID) (core.Progression, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[id]
	if !ok {
		return core.Progression{}, false, nil
	}
	return p.Clone(), true, nil
}

func (s *Store) Save(ctx context.Context, p core.Progression) error {
	return s.SaveBatch(ctx, []core.Progression{p})
}

func (s *Store) SaveBatch(_ context.Context, ps []core.Progression) error {
	if len(ps) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		cp := p.Clone()
		if cp.LastSeen.IsZero() {
			cp.LastSeen = time.Now().UTC()
		}
		if prev, ok := s.data[cp.ID]; ok && !prev.FirstSeen.IsZero() {
			cp.FirstSeen = prev.FirstSeen
		}
		s.data[cp.ID] = cp
		s.board.Update(cp.ID, cp.Points)
	}
	return s.persist()
}

func (s *Store) Position(_ context.Context, id core.PlayerID) (int, error) {
	return s.board.Position(id), nil
}

func (s *Store) TotalPlayers(_ context.Context) (int, error) {
	return s.board.Len(), nil
}

func (s *Store) Top(_ context.Context, n int) ([]core.Standing, error) {
	entries := s.board.TopN(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Standing, 0, len(entries))
	for _, e := range entries {
		out = append(out, core.Standing{ID: e.Player, Name: s.data[e.Player].Name, Points: e.Points})
	}
	return out, nil
}

func (s *Store) Purge(_ context.Context, inactiveSince time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.data {
		if !p.LastSeen.IsZero() && p.LastSeen.Before(inactiveSince) {
			delete(s.data, id)
			s.board.Remove(id)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.persist()
}

var (
	_ engine.Persistence = (*Store)(nil)
	_ engine.Purger      = (*Store)(nil)
)
