// Package client is the multiworld session core: it owns all randomizer
// state for one player slot, drives the connection handshake, applies
// granted items, reports location checks, and persists progress per seed.
//
// The session is single-threaded by design. Network events queue inside the
// connection and only mutate state when the host game calls Update or one of
// the operation methods, so the host never needs locks around session reads.
package client

import (
	"fmt"
	"math/rand"

	"doomlink/client/defs"
	"doomlink/client/internal/apnet"
	"doomlink/client/logging"
)

// Session is all multiworld state for one slot. Not safe for concurrent
// use; see the package comment.
type Session struct {
	def      *defs.GameDef
	settings Settings
	clock    Clock
	pub      logging.Publisher
	rng      *rand.Rand

	conn apnet.Connection

	player PlayerState
	levels [][]LevelState

	episodes []bool
	ep       int
	gameMap  int

	difficulty        int
	randomMonsters    int
	randomItems       int
	randomMusic       int
	flipLevels        int
	checkSanity       bool
	resetLevelOnDeath int
	twoWaysKeydoors   int
	goal              int

	maxAmmoStart []int
	maxAmmoAdd   []int

	victory      bool
	inGame       bool
	initialized  bool
	wasConnected bool

	saveDir string

	itemQueue     []int64
	receivedCount int
	progressive   map[int64]struct{}

	cachedMessages []string
	icons          []NotificationIcon
}

// New builds a session around a loaded game definition. The session is
// offline until Connect succeeds.
func New(def *defs.GameDef, settings Settings, pub logging.Publisher) (*Session, error) {
	if def == nil {
		return nil, fmt.Errorf("client: nil game definition")
	}
	if settings.SlotName == "" {
		return nil, fmt.Errorf("client: slot name is required")
	}
	if pub == nil {
		pub = logging.NopPublisher()
	}
	clock := settings.Clock
	if clock == nil {
		clock = realClock{}
	}

	s := &Session{
		def:         def,
		settings:    settings,
		clock:       clock,
		pub:         pub,
		episodes:    make([]bool, def.EpisodeCount()),
		progressive: make(map[int64]struct{}),
	}

	info := def.GameInfo
	ammoCount := len(info.Ammo)
	s.player = PlayerState{
		Health:           info.StartHealth,
		ArmorPoints:      info.StartArmor,
		ReadyWeapon:      1,
		Powers:           make([]int, info.PowerupCount),
		WeaponOwned:      make([]bool, len(info.Weapons)),
		Ammo:             make([]int, ammoCount),
		MaxAmmo:          make([]int, ammoCount),
		CapacityUpgrades: make([]int, ammoCount),
	}
	if info.InventorySize > 0 {
		s.player.Inventory = make([]InventorySlot, info.InventorySize)
	}

	// The starting loadout: the first two weapons plus whatever ammo they
	// come loaded with.
	for i := 0; i < 2 && i < len(s.player.WeaponOwned); i++ {
		s.player.WeaponOwned[i] = true
		weapon := info.Weapons[i]
		if weapon.AmmoType >= 0 && weapon.AmmoType < ammoCount {
			s.player.Ammo[weapon.AmmoType] = weapon.StartAmmo
		}
	}

	s.maxAmmoStart = make([]int, ammoCount)
	s.maxAmmoAdd = make([]int, ammoCount)
	for i, ammo := range info.Ammo {
		s.maxAmmoStart[i] = ammo.Max
		s.maxAmmoAdd[i] = ammo.Max
	}

	s.levels = make([][]LevelState, def.EpisodeCount())
	for ep := range s.levels {
		s.levels[ep] = make([]LevelState, def.MapCount(ep+1))
	}

	s.applyOverrides()
	return s, nil
}

// applyOverrides forces the locally configured values. Slot data for the
// same keys is ignored later.
func (s *Session) applyOverrides() {
	if s.settings.OverrideSkill != nil {
		s.difficulty = *s.settings.OverrideSkill
	}
	if s.settings.OverrideMonsterRando != nil {
		s.randomMonsters = *s.settings.OverrideMonsterRando
	}
	if s.settings.OverrideItemRando != nil {
		s.randomItems = *s.settings.OverrideItemRando
	}
	if s.settings.OverrideMusicRando != nil {
		s.randomMusic = *s.settings.OverrideMusicRando
	}
	if s.settings.OverrideFlipLevels != nil {
		s.flipLevels = *s.settings.OverrideFlipLevels
	}
	if s.settings.OverrideResetLevelOnDeath != nil {
		s.resetLevelOnDeath = *s.settings.OverrideResetLevelOnDeath
	}
}

// Def exposes the loaded definition tables.
func (s *Session) Def() *defs.GameDef { return s.def }

// LevelState returns the mutable state for a level. The pointer stays valid
// for the session's lifetime.
func (s *Session) LevelState(idx LevelIndex) *LevelState {
	return &s.levels[idx.Ep][idx.Map]
}

// LevelInfo returns the static definition info for a level.
func (s *Session) LevelInfo(idx LevelIndex) *defs.LevelInfo {
	info, _ := s.def.Level(idx.Ep, idx.Map)
	return info
}

// Player returns the mutable player state.
func (s *Session) Player() *PlayerState { return &s.player }

// TryMakeLevelIndex maps engine-native episode/map numbers to a level
// index.
func (s *Session) TryMakeLevelIndex(gameEpisode, gameMap int) (LevelIndex, bool) {
	ep, mapIdx, ok := s.def.ResolveIndex(gameEpisode, gameMap)
	if !ok {
		return LevelIndex{}, false
	}
	return LevelIndex{Ep: ep, Map: mapIdx}, true
}

// EpisodeEnabled reports whether a 0-based episode participates in this
// slot's randomization.
func (s *Session) EpisodeEnabled(ep int) bool {
	return ep >= 0 && ep < len(s.episodes) && s.episodes[ep]
}

// HighestEpisode returns the highest enabled 0-based episode.
func (s *Session) HighestEpisode() int {
	highest := 0
	for i, enabled := range s.episodes {
		if enabled {
			highest = i
		}
	}
	return highest
}

// CurrentLevel returns the 1-based episode/map the player was last in, as
// persisted across runs.
func (s *Session) CurrentLevel() (ep, gameMap int) { return s.ep, s.gameMap }

// SetCurrentLevel records where the player is so a reload resumes there.
func (s *Session) SetCurrentLevel(ep, gameMap int) {
	s.ep = ep
	s.gameMap = gameMap
}

// SetInGame tells the session whether grants may reach the player right
// now. While false, granted items queue.
func (s *Session) SetInGame(inGame bool) { s.inGame = inGame }

// Difficulty returns the effective skill level.
func (s *Session) Difficulty() int { return s.difficulty }

// RandomMonsters returns the monster randomization mode.
func (s *Session) RandomMonsters() int { return s.randomMonsters }

// RandomItems returns the pickup randomization mode.
func (s *Session) RandomItems() int { return s.randomItems }

// ResetLevelOnDeath reports whether death restarts the level.
func (s *Session) ResetLevelOnDeath() bool { return s.resetLevelOnDeath != 0 }

// TwoWaysKeydoors reports whether key doors open from both sides.
func (s *Session) TwoWaysKeydoors() bool { return s.twoWaysKeydoors != 0 }

// CheckSanity reports whether sanity-gated things count as checks.
func (s *Session) CheckSanity() bool { return s.checkSanity }

// Victory reports whether the goal completed.
func (s *Session) Victory() bool { return s.victory }

// Seed returns the room's seed name. Empty before Connect.
func (s *Session) Seed() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.Room().SeedName
}

// recalcMaxAmmo applies the capacity formula to every ammo slot.
func (s *Session) recalcMaxAmmo() {
	for i := range s.player.MaxAmmo {
		max := s.maxAmmoStart[i] + s.maxAmmoAdd[i]*s.player.CapacityUpgrades[i]
		if max > 999 {
			max = 999
		}
		s.player.MaxAmmo[i] = max
	}
}

func (s *Session) message(text string) {
	if s.settings.Callbacks.Message != nil {
		s.settings.Callbacks.Message(text)
	}
}
