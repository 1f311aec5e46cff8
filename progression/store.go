// Package progression keeps the live progression records of connected
// players and synchronizes them to persistence.
package progression

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"levelranks/core"
)

// ErrNotLoaded is returned when flushing a player that has no live record.
var ErrNotLoaded = errors.New("player not loaded")

// Saver writes progression snapshots.
type Saver interface {
	Save(ctx context.Context, snap core.Progression) error
	SaveBatch(ctx context.Context, snaps []core.Progression) error
}

// Store is a concurrent keyed collection of live records owned by a session.
//
// Writes for one player never overlap: a flush requested while another is in
// flight is coalesced into a single follow-up that snapshots the record once
// the first write completed.
type Store struct {
	records *xsync.MapOf[core.PlayerID, *Record]
	saver   Saver
	ranks   *core.RankTable
	log     *slog.Logger
	now     func() time.Time
	timeout time.Duration

	mu      sync.Mutex
	flights map[core.PlayerID]*flight
	wg      sync.WaitGroup
}

type flight struct {
	rec  *Record
	next *Flush
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for write failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRanks lets Create and Insert derive the rank index of new records.
func WithRanks(t *core.RankTable) Option { return func(s *Store) { s.ranks = t } }

// WithWriteTimeout bounds each background write (default 10s).
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock overrides time.Now, used to stamp LastSeen on writes.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(saver Saver, opts ...Option) *Store {
	if saver == nil {
		panic("progression.New requires a non-nil saver")
	}
	s := &Store{
		records: xsync.NewMapOf[core.PlayerID, *Record](),
		saver:   saver,
		log:     slog.Default(),
		now:     time.Now,
		timeout: 10 * time.Second,
		flights: make(map[core.PlayerID]*flight),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the live record of a connected player.
func (s *Store) Get(id core.PlayerID) (*Record, bool) {
	return s.records.Load(id)
}

// Create default-initializes a record for a player without stored data.
// New records start dirty so the first flush persists them. An existing
// record is returned unchanged.
func (s *Store) Create(id core.PlayerID, name string, startPoints int64) *Record {
	p := core.NewProgression(id, name, startPoints, s.now())
	return s.insert(p, true)
}

// Insert adds a record loaded from persistence.
func (s *Store) Insert(p core.Progression) *Record {
	return s.insert(p.Clone(), false)
}

func (s *Store) insert(p core.Progression, dirty bool) *Record {
	if s.ranks != nil {
		p.RankIndex = s.ranks.ResolveIndex(p.Points)
	}
	rec, _ := s.records.LoadOrStore(p.ID, newRecord(p, dirty))
	return rec
}

// Remove drops the live record. Writes already dispatched keep their copy.
func (s *Store) Remove(id core.PlayerID) {
	s.records.Delete(id)
}

// AllLoaded returns the records present at the time of the call. Records
// may be mutated concurrently while the caller iterates the slice.
func (s *Store) AllLoaded() []*Record {
	out := make([]*Record, 0, s.records.Size())
	s.records.Range(func(_ core.PlayerID, rec *Record) bool {
		out = append(out, rec)
		return true
	})
	return out
}

func (s *Store) Len() int { return s.records.Size() }

// InFlight reports whether a write for id is running.
func (s *Store) InFlight(id core.PlayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.flights[id]
	return ok
}

// Flush snapshots the record now and writes it in the background.
func (s *Store) Flush(id core.PlayerID) *Flush {
	rec, ok := s.records.Load(id)
	if !ok {
		return completedFlush(ErrNotLoaded)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, busy := s.flights[id]; busy {
		return s.coalesceLocked(f, rec)
	}
	h := newFlush()
	s.flights[id] = &flight{rec: rec}
	s.startLocked(id, rec, rec.Snapshot(), h)
	return h
}

// FlushAll writes every dirty record in one batch. Players with a write in
// flight are queued for their follow-up write instead.
func (s *Store) FlushAll() *Flush {
	recs := s.AllLoaded()

	s.mu.Lock()
	var (
		batch   []Snapshot
		members []*Record
		parts   []*Flush
	)
	for _, rec := range recs {
		snap := rec.Snapshot()
		if !snap.Dirty {
			continue
		}
		id := snap.Progression.ID
		if f, busy := s.flights[id]; busy {
			parts = append(parts, s.coalesceLocked(f, rec))
			continue
		}
		s.flights[id] = &flight{rec: rec}
		batch = append(batch, snap)
		members = append(members, rec)
	}
	if len(batch) > 0 {
		h := newFlush()
		s.wg.Add(1)
		go s.writeBatch(batch, members, h)
		parts = append(parts, h)
	}
	s.mu.Unlock()

	return joinFlushes(parts...)
}

// Close waits for in-flight writes. Writes are not cancelled; ctx only
// bounds how long Close waits for them.
func (s *Store) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) coalesceLocked(f *flight, rec *Record) *Flush {
	f.rec = rec
	if f.next == nil {
		f.next = newFlush()
	}
	return f.next
}

func (s *Store) startLocked(id core.PlayerID, rec *Record, snap Snapshot, h *Flush) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.write(rec, snap)
		s.finish(id)
		h.complete(err)
	}()
}

func (s *Store) write(rec *Record, snap Snapshot) error {
	if !snap.Dirty {
		return nil
	}
	snap.Progression.LastSeen = s.now()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.saver.Save(ctx, snap.Progression); err != nil {
		s.log.Error("failed to save player progression",
			"player_id", snap.Progression.ID,
			"error", err)
		return err
	}
	rec.markFlushed(snap.Version)
	return nil
}

func (s *Store) writeBatch(batch []Snapshot, members []*Record, h *Flush) {
	defer s.wg.Done()
	now := s.now()
	snaps := make([]core.Progression, len(batch))
	for i, b := range batch {
		snaps[i] = b.Progression
		snaps[i].LastSeen = now
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	err := s.saver.SaveBatch(ctx, snaps)
	cancel()
	if err != nil {
		s.log.Error("failed to save progression batch", "players", len(snaps), "error", err)
	}
	for i, rec := range members {
		if err == nil {
			rec.markFlushed(batch[i].Version)
		}
		s.finish(batch[i].Progression.ID)
	}
	h.complete(err)
}

// finish releases the flight of id, starting its follow-up write if one was
// requested while the previous write ran.
func (s *Store) finish(id core.PlayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flights[id]
	if !ok {
		return
	}
	if f.next == nil {
		delete(s.flights, id)
		return
	}
	next := f.next
	f.next = nil
	s.startLocked(id, f.rec, f.rec.Snapshot(), next)
}
