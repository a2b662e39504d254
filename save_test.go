package client

import (
	"encoding/json"
	"os"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session
	s.saveDir = t.TempDir()

	s.episodes[0] = true
	s.episodes[1] = true
	receive(s, 101, 0) // blue key
	receive(s, 106, 1) // bullet capacity
	s.LocationChecked(451000)
	s.LocationChecked(451010)
	s.itemQueue = append(s.itemQueue, 100, 102)
	s.progressive[451001] = struct{}{}
	s.SetCurrentLevel(1, 2)
	s.victory = true

	if err := s.SaveState(); err != nil {
		t.Fatalf("save: %v", err)
	}

	env2 := newTestEnv(t, nil)
	restored := env2.session
	restored.saveDir = s.saveDir
	if err := restored.loadState(); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !restored.LevelState(LevelIndex{0, 0}).Keys[0] {
		t.Fatalf("key lost across save")
	}
	if !restored.LevelState(LevelIndex{0, 0}).IsChecked(0) {
		t.Fatalf("check lost across save")
	}
	if !restored.LevelState(LevelIndex{0, 1}).IsChecked(0) {
		t.Fatalf("second-map check lost across save")
	}
	if got := restored.itemQueue; len(got) != 2 || got[0] != 100 || got[1] != 102 {
		t.Fatalf("item queue = %v, want [100 102]", got)
	}
	if !restored.EpisodeEnabled(1) {
		t.Fatalf("enabled episodes lost")
	}
	if ep, gameMap := restored.CurrentLevel(); ep != 1 || gameMap != 2 {
		t.Fatalf("current level = E%dM%d, want E1M2", ep, gameMap)
	}
	if _, ok := restored.progressive[451001]; !ok {
		t.Fatalf("progression cache lost")
	}
	if !restored.Victory() {
		t.Fatalf("victory lost across save")
	}
	if got := restored.Player().MaxAmmo[0]; got != 400 {
		t.Fatalf("max ammo = %d, want persisted 400", got)
	}
}

func TestLoadStateMergesWithServerReplay(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session
	s.saveDir = t.TempDir()
	receive(s, 101, 0)
	s.LocationChecked(451000)
	if err := s.SaveState(); err != nil {
		t.Fatalf("save: %v", err)
	}

	// The server replay lands first on reconnect; the snapshot must add to
	// it, never subtract.
	env2 := newTestEnv(t, nil)
	restored := env2.session
	restored.saveDir = s.saveDir
	receive(restored, 100, 0)
	restored.LocationChecked(451001)
	if err := restored.loadState(); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !restored.Player().WeaponOwned[2] {
		t.Fatalf("replayed weapon undone by snapshot")
	}
	if !restored.LevelState(LevelIndex{0, 0}).Keys[0] {
		t.Fatalf("persisted key missing")
	}
	state := restored.LevelState(LevelIndex{0, 0})
	if !state.IsChecked(0) || !state.IsChecked(1) {
		t.Fatalf("checks = %v, want merged [1 0] set", state.Checks)
	}
	if got := state.CheckCount(); got != 2 {
		t.Fatalf("merged duplicate check: %v", state.Checks)
	}
}

func TestLoadStateIgnoresUnknownFields(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session
	s.saveDir = t.TempDir()
	if err := s.SaveState(); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(s.SnapshotPath())
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	doc["future_field"] = json.RawMessage(`{"nested": true}`)
	data, err = json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	if err := os.WriteFile(s.SnapshotPath(), data, 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	if err := s.loadState(); err != nil {
		t.Fatalf("load with unknown fields: %v", err)
	}
}

func TestSaveStateWithoutConnect(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.session.SaveState(); err == nil {
		t.Fatalf("save succeeded without a save directory")
	}
}

func TestShutdownSavesAndCloses(t *testing.T) {
	env := newTestEnv(t, nil)
	env.connect(t)

	env.session.Shutdown()

	if !env.conn.closed {
		t.Fatalf("connection left open")
	}
	if _, err := os.Stat(env.session.SnapshotPath()); err != nil {
		t.Fatalf("snapshot missing after shutdown: %v", err)
	}
}

func TestShutdownWithoutConnectIsNoop(t *testing.T) {
	env := newTestEnv(t, nil)
	env.session.Shutdown()
	if env.conn.closed {
		t.Fatalf("shutdown touched a connection that never authenticated")
	}
}
