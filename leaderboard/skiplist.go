package leaderboard

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"

	"levelranks/core"
)

const maxLevel = 16
const pFactor = 0.25

type node struct {
	e    Entry
	next [maxLevel]*node
}

// SkipList orders players by (points desc, id asc) with O(log n) updates.
type SkipList struct {
	mu   sync.RWMutex
	head *node
	lvl  int
	byID map[core.PlayerID]*node
	rng  *rand.Rand
}

func NewSkipList() *SkipList {
	var seed [16]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		seed = [16]byte{}
	}
	seed1 := binary.BigEndian.Uint64(seed[:8])
	seed2 := binary.BigEndian.Uint64(seed[8:])

	return &SkipList{
		head: &node{},
		lvl:  1,
		byID: map[core.PlayerID]*node{},
		rng:  rand.New(rand.NewPCG(seed1, seed2)),
	}
}

func (s *SkipList) randomLevel() int {
	lvl := 1
	for lvl < maxLevel && s.rng.Float64() < pFactor {
		lvl++
	}
	return lvl
}

func less(a, b Entry) bool {
	if a.Points == b.Points {
		return a.Player < b.Player
	}
	return a.Points > b.Points
}

// Update inserts or moves a player to new points.
func (s *SkipList) Update(player core.PlayerID, points int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[player]; ok {
		if old.e.Points == points {
			return
		}
		s.removeLocked(player, old.e)
	}
	e := Entry{Player: player, Points: points}
	update := [maxLevel]*node{}
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	lvl := s.randomLevel()
	if lvl > s.lvl {
		for i := s.lvl; i < lvl; i++ {
			update[i] = s.head
		}
		s.lvl = lvl
	}
	n := &node{e: e}
	for i := 0; i < lvl; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n
	}
	s.byID[player] = n
}

func (s *SkipList) removeLocked(player core.PlayerID, e Entry) {
	update := [maxLevel]*node{}
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	target := update[0].next[0]
	if target == nil || target.e.Player != player {
		return
	}
	for i := 0; i < s.lvl; i++ {
		if update[i].next[i] == target {
			update[i].next[i] = target.next[i]
		}
	}
	delete(s.byID, player)
	for s.lvl > 1 && s.head.next[s.lvl-1] == nil {
		s.lvl--
	}
}

func (s *SkipList) Remove(player core.PlayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.byID[player]; ok {
		s.removeLocked(player, n.e)
	}
}

func (s *SkipList) TopN(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	out := make([]Entry, 0, n)
	cur := s.head.next[0]
	for cur != nil && len(out) < n {
		out = append(out, cur.e)
		cur = cur.next[0]
	}
	return out
}

func (s *SkipList) Get(player core.PlayerID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.byID[player]; ok {
		return n.e, true
	}
	return Entry{}, false
}

// Position walks the bottom level up to the first entry tied with the
// player, so it costs O(position).
func (s *SkipList) Position(player core.PlayerID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.byID[player]
	if !ok {
		return 0
	}
	pos := 1
	for cur := s.head.next[0]; cur != nil && cur.e.Points > n.e.Points; cur = cur.next[0] {
		pos++
	}
	return pos
}

func (s *SkipList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

var _ Board = (*SkipList)(nil)
