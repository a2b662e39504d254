package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"doomlink/client/logging/multiworld"
)

// Version identifies the snapshot writer. Stored in every snapshot so a
// future schema change can tell old files apart.
const Version = "1.0.0"

const snapshotName = "apstate.json"

type playerSnapshot struct {
	Health      int             `json:"health"`
	ArmorPoints int             `json:"armor_points"`
	ArmorType   int             `json:"armor_type"`
	ReadyWeapon int             `json:"ready_weapon"`
	KillCount   int             `json:"kill_count"`
	ItemCount   int             `json:"item_count"`
	SecretCount int             `json:"secret_count"`
	Powers      []int           `json:"powers"`
	WeaponOwned []bool          `json:"weapon_owned"`
	Ammo        []int           `json:"ammo"`
	MaxAmmo     []int           `json:"max_ammo"`
	Inventory   []InventorySlot `json:"inventory"`
}

type levelSnapshot struct {
	Completed  bool  `json:"completed"`
	Keys0      bool  `json:"keys0"`
	Keys1      bool  `json:"keys1"`
	Keys2      bool  `json:"keys2"`
	CheckCount int   `json:"check_count"`
	Checks     []int `json:"checks"`
	HasMap     bool  `json:"has_map"`
	Unlocked   bool  `json:"unlocked"`
	Special    bool  `json:"special"`
}

type snapshot struct {
	Player               playerSnapshot    `json:"player"`
	Episodes             [][]levelSnapshot `json:"episodes"`
	ItemQueue            []int64           `json:"item_queue"`
	Ep                   int               `json:"ep"`
	EnabledEpisodes      []bool            `json:"enabled_episodes"`
	Map                  int               `json:"map"`
	ProgressiveLocations []int64           `json:"progressive_locations"`
	Victory              bool              `json:"victory"`
	Version              string            `json:"version"`
}

// SnapshotPath returns where this session persists its state. Empty before
// Connect resolved the seed.
func (s *Session) SnapshotPath() string {
	if s.saveDir == "" {
		return ""
	}
	return filepath.Join(s.saveDir, snapshotName)
}

// SaveState writes the snapshot for this seed and slot.
func (s *Session) SaveState() error {
	path := s.SnapshotPath()
	if path == "" {
		return fmt.Errorf("client: no save directory, not connected")
	}

	snap := snapshot{
		Player: playerSnapshot{
			Health:      s.player.Health,
			ArmorPoints: s.player.ArmorPoints,
			ArmorType:   s.player.ArmorType,
			ReadyWeapon: s.player.ReadyWeapon,
			KillCount:   s.player.KillCount,
			ItemCount:   s.player.ItemCount,
			SecretCount: s.player.SecretCount,
			Powers:      append([]int(nil), s.player.Powers...),
			WeaponOwned: append([]bool(nil), s.player.WeaponOwned...),
			Ammo:        append([]int(nil), s.player.Ammo...),
			MaxAmmo:     append([]int(nil), s.player.MaxAmmo...),
			Inventory:   append([]InventorySlot(nil), s.player.Inventory...),
		},
		ItemQueue:       append([]int64(nil), s.itemQueue...),
		Ep:              s.ep,
		EnabledEpisodes: append([]bool(nil), s.episodes...),
		Map:             s.gameMap,
		Victory:         s.victory,
		Version:         Version,
	}

	snap.Episodes = make([][]levelSnapshot, len(s.levels))
	for ep := range s.levels {
		snap.Episodes[ep] = make([]levelSnapshot, len(s.levels[ep]))
		for mapIdx := range s.levels[ep] {
			state := &s.levels[ep][mapIdx]
			snap.Episodes[ep][mapIdx] = levelSnapshot{
				Completed:  state.Completed,
				Keys0:      state.Keys[0],
				Keys1:      state.Keys[1],
				Keys2:      state.Keys[2],
				CheckCount: len(state.Checks),
				Checks:     append([]int(nil), state.Checks...),
				HasMap:     state.HasMap,
				Unlocked:   state.Unlocked,
				Special:    state.Special,
			}
		}
	}

	for id := range s.progressive {
		snap.ProgressiveLocations = append(snap.ProgressiveLocations, id)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("client: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("client: write snapshot: %w", err)
	}

	multiworld.StateSaved(context.Background(), s.pub, s.settings.SlotName, multiworld.StateSavedPayload{Path: path})
	return nil
}

// loadState merges the persisted snapshot into the session. Progress flags
// merge additively: a grant already applied from the server replay is never
// un-done by an older snapshot. Unknown fields in newer snapshots are
// ignored.
func (s *Session) loadState() error {
	path := s.SnapshotPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("client: parse snapshot %s: %w", path, err)
	}

	s.player.Health = snap.Player.Health
	s.player.ArmorPoints = snap.Player.ArmorPoints
	s.player.ArmorType = snap.Player.ArmorType
	s.player.ReadyWeapon = snap.Player.ReadyWeapon
	s.player.KillCount = snap.Player.KillCount
	s.player.ItemCount = snap.Player.ItemCount
	s.player.SecretCount = snap.Player.SecretCount
	for i := 0; i < len(s.player.Powers) && i < len(snap.Player.Powers); i++ {
		s.player.Powers[i] = snap.Player.Powers[i]
	}
	for i := 0; i < len(s.player.WeaponOwned) && i < len(snap.Player.WeaponOwned); i++ {
		s.player.WeaponOwned[i] = s.player.WeaponOwned[i] || snap.Player.WeaponOwned[i]
	}
	for i := 0; i < len(s.player.Ammo) && i < len(snap.Player.Ammo); i++ {
		s.player.Ammo[i] = snap.Player.Ammo[i]
		// Overwritten once the item replay lands, but the player may enter
		// the game before every grant was re-received.
		s.player.MaxAmmo[i] = snap.Player.MaxAmmo[i]
	}
	for i := 0; i < len(s.player.Inventory) && i < len(snap.Player.Inventory); i++ {
		s.player.Inventory[i] = snap.Player.Inventory[i]
	}

	for ep := range s.levels {
		if ep >= len(snap.Episodes) {
			break
		}
		for mapIdx := range s.levels[ep] {
			if mapIdx >= len(snap.Episodes[ep]) {
				break
			}
			level := snap.Episodes[ep][mapIdx]
			state := &s.levels[ep][mapIdx]
			state.Completed = state.Completed || level.Completed
			state.Keys[0] = state.Keys[0] || level.Keys0
			state.Keys[1] = state.Keys[1] || level.Keys1
			state.Keys[2] = state.Keys[2] || level.Keys2
			state.HasMap = state.HasMap || level.HasMap
			state.Unlocked = state.Unlocked || level.Unlocked
			state.Special = state.Special || level.Special
			for _, index := range level.Checks {
				if !state.IsChecked(index) && len(state.Checks) < CheckMax {
					state.Checks = append(state.Checks, index)
				}
			}
		}
	}

	s.itemQueue = append(s.itemQueue, snap.ItemQueue...)

	if snap.Ep != 0 {
		s.ep = snap.Ep
	}
	if snap.Map != 0 {
		s.gameMap = snap.Map
	}
	for i := 0; i < len(s.episodes) && i < len(snap.EnabledEpisodes); i++ {
		s.episodes[i] = snap.EnabledEpisodes[i]
	}
	for _, id := range snap.ProgressiveLocations {
		s.progressive[id] = struct{}{}
	}
	s.victory = s.victory || snap.Victory
	return nil
}
