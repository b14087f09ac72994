package store

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ayusman/mindreader/internal/affect"
)

func TestActionRepository_CRUD(t *testing.T) {
	s := newTestStore(t)
	repo := s.Actions()

	a := &Action{
		ID:         "action-1",
		State:      affect.StateSleepy,
		PluginName: "unity-bridge",
		ActionName: "send",
		Config:     json.RawMessage(`{"target":"127.0.0.1:5006"}`),
		Enabled:    true,
	}
	if err := repo.Create(a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}

	got, err := repo.GetByID("action-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.State != affect.StateSleepy || got.PluginName != "unity-bridge" || !got.Enabled {
		t.Errorf("unexpected action %+v", got)
	}
	if string(got.Config) != `{"target":"127.0.0.1:5006"}` {
		t.Errorf("config = %s", got.Config)
	}

	got.State = affect.StateConfused
	got.Enabled = false
	if err := repo.Update(got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	updated, err := repo.GetByID("action-1")
	if err != nil {
		t.Fatalf("GetByID after update failed: %v", err)
	}
	if updated.State != affect.StateConfused || updated.Enabled {
		t.Errorf("update not applied: %+v", updated)
	}

	if err := repo.Delete("action-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID("action-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestActionRepository_NotFound(t *testing.T) {
	s := newTestStore(t)
	repo := s.Actions()

	if err := repo.Update(&Action{ID: "missing", State: affect.StateHappy}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
}

func TestActionRepository_DefaultConfig(t *testing.T) {
	s := newTestStore(t)
	repo := s.Actions()

	if err := repo.Create(&Action{ID: "a", State: affect.StateHappy, PluginName: "p", ActionName: "x"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got, err := repo.GetByID("a")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if string(got.Config) != "{}" {
		t.Errorf("expected empty object config, got %s", got.Config)
	}
}

func TestActionRepository_RejectsUnboundStates(t *testing.T) {
	s := newTestStore(t)

	for _, state := range []affect.State{affect.StateCalibrating, affect.StateAwaitingCalibration, "ANGRY"} {
		err := s.Actions().Create(&Action{ID: string(state), State: state, PluginName: "p", ActionName: "x"})
		if err == nil {
			t.Errorf("state %s should be rejected", state)
		}
	}
}

func TestActionRepository_ListByState(t *testing.T) {
	s := newTestStore(t)
	repo := s.Actions()

	actions := []*Action{
		{ID: "1", State: affect.StateSleepy, PluginName: "p", ActionName: "wake", Enabled: true},
		{ID: "2", State: affect.StateSleepy, PluginName: "p", ActionName: "off", Enabled: false},
		{ID: "3", State: affect.StateHappy, PluginName: "p", ActionName: "cheer", Enabled: true},
	}
	for _, a := range actions {
		if err := repo.Create(a); err != nil {
			t.Fatalf("Create %s failed: %v", a.ID, err)
		}
	}

	sleepy, err := repo.ListByState(affect.StateSleepy)
	if err != nil {
		t.Fatalf("ListByState failed: %v", err)
	}
	if len(sleepy) != 1 || sleepy[0].ID != "1" {
		t.Errorf("expected only the enabled sleepy action, got %v", sleepy)
	}

	confused, err := repo.ListByState(affect.StateConfused)
	if err != nil {
		t.Fatalf("ListByState failed: %v", err)
	}
	if len(confused) != 0 {
		t.Errorf("expected no confused actions, got %d", len(confused))
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 actions, got %d", len(all))
	}
}
