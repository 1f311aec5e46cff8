package core

import (
	"sort"
	"strings"
)

// Rank is a named tier unlocked at a minimum amount of points.
type Rank struct {
	Name   string `json:"name" toml:"name"`
	Tag    string `json:"tag" toml:"tag"`
	Color  string `json:"color" toml:"color"`
	Hex    string `json:"hex,omitempty" toml:"hex"`
	Points int64  `json:"points" toml:"points"`
}

// UnknownRank is resolved when the rank table is empty.
var UnknownRank = Rank{Name: "Unknown", Tag: "[?]", Color: "WHITE", Points: 0}

// RankTable is an immutable list of ranks sorted ascending by threshold.
// It is safe for concurrent reads.
type RankTable struct {
	ranks []Rank
}

// NewRankTable builds a table from definitions. Later definitions whose name
// matches an earlier one (case-insensitively) are dropped and their names
// returned so the caller can report them.
func NewRankTable(defs []Rank) (*RankTable, []string) {
	seen := make(map[string]struct{}, len(defs))
	ranks := make([]Rank, 0, len(defs))
	var dropped []string
	for _, d := range defs {
		key := strings.ToLower(d.Name)
		if _, dup := seen[key]; dup {
			dropped = append(dropped, d.Name)
			continue
		}
		seen[key] = struct{}{}
		ranks = append(ranks, d)
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Points < ranks[j].Points })
	return &RankTable{ranks: ranks}, dropped
}

// count returns how many ranks have a threshold <= points.
func (t *RankTable) count(points int64) int {
	return sort.Search(len(t.ranks), func(i int) bool { return t.ranks[i].Points > points })
}

// Resolve returns the highest rank whose threshold does not exceed points.
// Points below every threshold resolve to the first rank.
func (t *RankTable) Resolve(points int64) Rank {
	if len(t.ranks) == 0 {
		return UnknownRank
	}
	n := t.count(points)
	if n == 0 {
		return t.ranks[0]
	}
	return t.ranks[n-1]
}

// ResolveIndex returns the 1-based position of Resolve(points), or 0 for an
// empty table.
func (t *RankTable) ResolveIndex(points int64) int {
	if len(t.ranks) == 0 {
		return 0
	}
	if n := t.count(points); n > 0 {
		return n
	}
	return 1
}

// Next returns the first rank above points.
func (t *RankTable) Next(points int64) (Rank, bool) {
	n := t.count(points)
	if n >= len(t.ranks) {
		return Rank{}, false
	}
	return t.ranks[n], true
}

// At returns the rank at a 1-based index.
func (t *RankTable) At(index int) (Rank, bool) {
	if index < 1 || index > len(t.ranks) {
		return Rank{}, false
	}
	return t.ranks[index-1], true
}

func (t *RankTable) Len() int { return len(t.ranks) }

// All returns a copy of the table.
func (t *RankTable) All() []Rank {
	return append([]Rank(nil), t.ranks...)
}

// DefaultRanks returns the stock competitive rank ladder.
func DefaultRanks() []Rank {
	return []Rank{
		{Name: "Silver I", Tag: "S1", Color: "[gray]", Hex: "#808080", Points: 0},
		{Name: "Silver II", Tag: "S2", Color: "[gray]", Hex: "#808080", Points: 100},
		{Name: "Silver III", Tag: "S3", Color: "[gray]", Hex: "#808080", Points: 200},
		{Name: "Silver IV", Tag: "S4", Color: "[gray]", Hex: "#808080", Points: 350},
		{Name: "Silver Elite", Tag: "SE", Color: "[gray]", Hex: "#808080", Points: 500},
		{Name: "Silver Elite Master", Tag: "SEM", Color: "[gray]", Hex: "#808080", Points: 750},
		{Name: "Gold Nova I", Tag: "GN1", Color: "[gold]", Hex: "#FFD700", Points: 1000},
		{Name: "Gold Nova II", Tag: "GN2", Color: "[gold]", Hex: "#FFD700", Points: 1250},
		{Name: "Gold Nova III", Tag: "GN3", Color: "[gold]", Hex: "#FFD700", Points: 1500},
		{Name: "Gold Nova Master", Tag: "GNM", Color: "[gold]", Hex: "#FFD700", Points: 1750},
		{Name: "Master Guardian I", Tag: "MG1", Color: "[lightblue]", Hex: "#87CEEB", Points: 2000},
		{Name: "Master Guardian II", Tag: "MG2", Color: "[lightblue]", Hex: "#87CEEB", Points: 2500},
		{Name: "Master Guardian Elite", Tag: "MGE", Color: "[lightblue]", Hex: "#87CEEB", Points: 3000},
		{Name: "Distinguished Master Guardian", Tag: "DMG", Color: "[blue]", Hex: "#0000FF", Points: 3500},
		{Name: "Legendary Eagle", Tag: "LE", Color: "[purple]", Hex: "#800080", Points: 4000},
		{Name: "Legendary Eagle Master", Tag: "LEM", Color: "[purple]", Hex: "#800080", Points: 5000},
		{Name: "Supreme Master First Class", Tag: "SMFC", Color: "[lightred]", Hex: "#FF6B6B", Points: 6000},
		{Name: "Global Elite", Tag: "GE", Color: "[red]", Hex: "#FF0000", Points: 7500},
	}
}
