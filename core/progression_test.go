package core

import (
	"testing"
	"time"
)

func TestProgressionCloneIsDeep(t *testing.T) {
	p := NewProgression("p1", "Alice", 0, time.Now())
	p.UpdateWeapon("weapon_ak47", func(w *WeaponStat) { w.Kills++ })
	cp := p.Clone()
	p.UpdateWeapon("weapon_ak47", func(w *WeaponStat) { w.Kills++ })
	if cp.Weapons["weapon_ak47"].Kills != 1 {
		t.Fatalf("clone shares weapon map: %+v", cp.Weapons)
	}
}

func TestProgressionComputedStats(t *testing.T) {
	p := Progression{Kills: 10, Deaths: 3, Headshots: 4, Shots: 300, Hits: 100}
	if got := p.KDR(); got != 3.33 {
		t.Fatalf("kdr want 3.33 got %v", got)
	}
	if got := p.HeadshotPercent(); got != 40 {
		t.Fatalf("hs want 40 got %v", got)
	}
	if got := p.Accuracy(); got != 33.3 {
		t.Fatalf("accuracy want 33.3 got %v", got)
	}
	empty := Progression{Kills: 7}
	if empty.KDR() != 7 || empty.HeadshotPercent() != 0 || empty.Accuracy() != 0 {
		t.Fatalf("unexpected zero-division handling: %v %v %v", empty.KDR(), empty.HeadshotPercent(), empty.Accuracy())
	}
}

func TestUpdateWeaponIgnoresEmptyName(t *testing.T) {
	var p Progression
	p.UpdateWeapon("", func(w *WeaponStat) { w.Kills++ })
	if len(p.Weapons) != 0 {
		t.Fatalf("unexpected weapons %+v", p.Weapons)
	}
}

func TestHitStatsRecord(t *testing.T) {
	var h HitStats
	h.Record(HitGroupHead, 90, 10)
	h.Record(HitGroupNeck, 20, 0)
	h.Record(HitGroupStomach, 25, 5)
	h.Record(HitGroupGeneric, 12, 0)
	h.Record(42, 1, 0)
	want := HitStats{DmgHealth: 148, DmgArmor: 15, Head: 1, Chest: 2, Stomach: 1, Neck: 1}
	if h != want {
		t.Fatalf("want %+v got %+v", want, h)
	}
	if h.Total() != 5 {
		t.Fatalf("total want 5 got %d", h.Total())
	}
}

func TestProgressionResetStats(t *testing.T) {
	first := time.Unix(1700000000, 0)
	p := NewProgression("p1", "Alice", 1000, first)
	p.Settings.Summary = true
	p.Kills, p.Deaths, p.Playtime, p.GamesWon, p.RoundPoints = 5, 2, 600, 1, 12
	p.Streak.Count = 3
	p.HitGroups.Record(HitGroupHead, 100, 0)
	p.UpdateWeapon("weapon_ak47", func(w *WeaponStat) { w.Kills = 5 })

	p.ResetStats(0)

	if p.Points != 0 || p.Kills != 0 || p.Deaths != 0 || p.Playtime != 0 || p.GamesWon != 0 || p.RoundPoints != 0 {
		t.Fatalf("counters not cleared: %+v", p)
	}
	if p.Streak.Count != 0 || p.HitGroups != (HitStats{}) || len(p.Weapons) != 0 {
		t.Fatalf("session, hit or weapon state kept: %+v", p)
	}
	if p.ID != "p1" || p.Name != "Alice" || !p.FirstSeen.Equal(first) || !p.Settings.Summary {
		t.Fatalf("identity or settings lost: %+v", p)
	}
}
