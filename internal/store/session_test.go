package store

import (
	"errors"
	"testing"
	"time"
)

func TestSessionRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	if _, err := repo.Best(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Best() on empty store = %v, want ErrNotFound", err)
	}

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	sessions := []*Session{
		{ID: "s1", StartedAt: base, EndedAt: base.Add(10 * time.Minute), Level: 1, Score: 280, PosesCompleted: 2, TargetSeconds: 5},
		{ID: "s2", StartedAt: base.Add(time.Hour), EndedAt: base.Add(time.Hour + 20*time.Minute), Level: 2, Score: 910, PosesCompleted: 5, TargetSeconds: 10},
		{ID: "s3", StartedAt: base.Add(2 * time.Hour), EndedAt: base.Add(2*time.Hour + 5*time.Minute), Level: 1, Score: 100, PosesCompleted: 1, TargetSeconds: 3},
	}
	for _, sess := range sessions {
		if err := repo.Create(sess); err != nil {
			t.Fatalf("Create %s: %v", sess.ID, err)
		}
	}

	all, err := repo.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != "s3" || all[2].ID != "s1" {
		t.Errorf("expected most recent first, got %v %v %v", all[0].ID, all[1].ID, all[2].ID)
	}
	if got := all[1].Duration(); got != 20*time.Minute {
		t.Errorf("Duration() = %v, want 20m", got)
	}

	limited, err := repo.List(2)
	if err != nil {
		t.Fatalf("List(2): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d sessions", len(limited))
	}

	best, err := repo.Best()
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if best.ID != "s2" || best.Score != 910 || best.TargetSeconds != 10 {
		t.Errorf("unexpected best session: %+v", best)
	}
}

func TestSettingsRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if _, err := repo.Get(SettingTargetSeconds); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get on empty store = %v, want ErrNotFound", err)
	}
	if got := repo.GetInt(SettingTargetSeconds, 5); got != 5 {
		t.Errorf("GetInt fallback = %d, want 5", got)
	}

	if err := repo.SetInt(SettingTargetSeconds, 10); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := repo.SetInt(SettingTargetSeconds, 15); err != nil {
		t.Fatalf("SetInt overwrite: %v", err)
	}
	if got := repo.GetInt(SettingTargetSeconds, 5); got != 15 {
		t.Errorf("GetInt = %d, want 15", got)
	}

	if err := repo.Set(SettingTargetSeconds, "soon"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := repo.GetInt(SettingTargetSeconds, 5); got != 5 {
		t.Errorf("malformed value should fall back, got %d", got)
	}
}
