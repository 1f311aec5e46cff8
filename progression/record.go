package progression

import (
	"sync"

	"levelranks/core"
)

// Record is the live, mutable progression of one connected player.
// Every mutation bumps the version so a flush can tell whether the record
// changed while its snapshot was being written.
type Record struct {
	mu      sync.Mutex
	p       core.Progression
	dirty   bool
	version uint64
}

// Snapshot is a value copy of a record taken at a point in time.
type Snapshot struct {
	Progression core.Progression
	Version     uint64
	Dirty       bool
}

func newRecord(p core.Progression, dirty bool) *Record {
	if p.Weapons == nil {
		p.Weapons = map[string]core.WeaponStat{}
	}
	return &Record{p: p, dirty: dirty}
}

// ID returns the player id. It never changes after creation.
func (r *Record) ID() core.PlayerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.p.ID
}

// Update mutates the record and marks it dirty.
func (r *Record) Update(fn func(p *core.Progression)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.p)
	r.dirty = true
	r.version++
}

// UpdateIf mutates the record when fn reports a change and marks it dirty
// only then. fn must leave p untouched when it returns false.
func (r *Record) UpdateIf(fn func(p *core.Progression) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !fn(&r.p) {
		return false
	}
	r.dirty = true
	r.version++
	return true
}

// Touch mutates session-only fields without marking the record dirty.
func (r *Record) Touch(fn func(p *core.Progression)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.p)
}

// View returns a deep copy of the current progression.
func (r *Record) View() core.Progression {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.p.Clone()
}

// Points returns the cumulative points.
func (r *Record) Points() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.p.Points
}

// Snapshot copies the record together with its version and dirty flag.
func (r *Record) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{Progression: r.p.Clone(), Version: r.version, Dirty: r.dirty}
}

func (r *Record) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// markFlushed clears the dirty flag when nothing changed since the snapshot
// at version was taken. It reports whether the flag was cleared.
func (r *Record) markFlushed(version uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.version != version {
		return false
	}
	r.dirty = false
	return true
}
