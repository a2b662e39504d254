package client

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"doomlink/client/defs"
	"doomlink/client/internal/apnet"
	"doomlink/client/logging/multiworld"
)

var (
	// ErrConnectionRefused means the room rejected the slot.
	ErrConnectionRefused = errors.New("client: connection refused")
	// ErrConnectTimeout means the room never answered the handshake.
	ErrConnectTimeout = errors.New("client: connection timed out")
)

const (
	connectTimeout = 10 * time.Second
	connectPoll    = 100 * time.Millisecond
	scoutTimeout   = 10 * time.Second
)

// Connect dials the room and blocks until the handshake settles, at most
// ten seconds. On success the persisted snapshot for this seed and slot is
// loaded and progression scouting has run; the session is ready for Update
// calls.
func (s *Session) Connect() error {
	dial := s.settings.Dial
	if dial == nil {
		dial = func(opts apnet.Options) (apnet.Connection, error) {
			return apnet.Dial(opts)
		}
	}

	conn, err := dial(apnet.Options{
		Address:  s.settings.Server,
		Game:     s.def.GameName,
		SlotName: s.settings.SlotName,
		Password: s.settings.Password,
	})
	if err != nil {
		return fmt.Errorf("client: connect %s: %w", s.settings.Server, err)
	}
	s.conn = conn

	if err := s.awaitAuthentication(); err != nil {
		conn.Close()
		s.conn = nil
		return err
	}

	room := conn.Room()
	log.Printf("client: authenticated, seed %q", room.SeedName)

	seedDir := "AP_" + room.SeedName + "_" + hex.EncodeToString([]byte(s.settings.SlotName))
	s.saveDir = seedDir
	if s.settings.SaveDir != "" {
		s.saveDir = filepath.Join(s.settings.SaveDir, seedDir)
	}
	if err := os.MkdirAll(s.saveDir, 0o755); err != nil {
		conn.Close()
		s.conn = nil
		dir := s.saveDir
		s.saveDir = ""
		return fmt.Errorf("client: create save directory %s: %w", dir, err)
	}
	s.wasConnected = true

	// Slot data and the checked-location replay queue behind the
	// handshake; apply them before the snapshot so the snapshot augments
	// server configuration.
	conn.Pump(s)

	s.recalcMaxAmmo()

	if err := s.loadState(); err != nil {
		// A missing snapshot is a fresh seed; anything else is reported
		// but does not block connecting.
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("client: load state: %v", err)
		}
	}

	if !s.anyEpisodeEnabled() {
		log.Printf("client: no episode selected, enabling episode 1")
		s.episodes[0] = true
	}

	// Seeded features must come out identical on every launch of the same
	// seed and slot.
	s.rng = rand.New(rand.NewSource(int64(hashSeed(seedDir))))
	s.assignFlips()
	s.assignMusic()

	s.scoutProgression()

	multiworld.Connected(context.Background(), s.pub, s.settings.SlotName, multiworld.ConnectedPayload{
		Seed:   room.SeedName,
		Server: s.settings.Server,
	})
	s.initialized = true
	return nil
}

func (s *Session) awaitAuthentication() error {
	deadline := s.clock.Now().Add(connectTimeout)
	for {
		switch s.conn.Status() {
		case apnet.StatusAuthenticated:
			return nil
		case apnet.StatusRefused:
			return ErrConnectionRefused
		}
		if !s.clock.Now().Before(deadline) {
			return ErrConnectTimeout
		}
		s.clock.Sleep(connectPoll)
	}
}

func (s *Session) anyEpisodeEnabled() bool {
	for _, enabled := range s.episodes {
		if enabled {
			return true
		}
	}
	return false
}

// hashSeed is the classic djb2 string hash. It only has to be stable across
// runs and platforms.
func hashSeed(seed string) uint64 {
	var hash uint64 = 5381
	for _, c := range []byte(seed) {
		hash = hash*33 + uint64(c)
	}
	return hash
}

// assignFlips mirrors levels according to the flip mode: 1 flips everything,
// 2 flips a seeded coin per level.
func (s *Session) assignFlips() {
	switch s.flipLevels {
	case 1:
		for ep := range s.levels {
			for mapIdx := range s.levels[ep] {
				s.levels[ep][mapIdx].Flipped = true
			}
		}
	case 2:
		for ep := range s.levels {
			for mapIdx := range s.levels[ep] {
				s.levels[ep][mapIdx].Flipped = s.rng.Intn(2) == 1
			}
		}
	}
}

// originalMusic returns the music track a level ships with, numbered so
// every level in the game has a distinct track id.
func (s *Session) originalMusic(ep, mapIdx int) int {
	info, ok := s.def.Level(ep, mapIdx)
	if !ok {
		return 0
	}
	if s.def.Episodic() {
		return (info.GameEpisode-1)*s.def.MaxMapCount() + info.GameMap
	}
	return info.GameMap
}

// assignMusic maps default tracks onto every level, then shuffles them for
// the enabled episodes when music randomization is on. Mode 2 draws the
// pool from every episode, not just the enabled ones.
func (s *Session) assignMusic() {
	for ep := range s.levels {
		for mapIdx := range s.levels[ep] {
			s.levels[ep][mapIdx].Music = s.originalMusic(ep, mapIdx)
		}
	}
	if s.randomMusic <= 0 {
		return
	}

	var pool []int
	for ep := range s.levels {
		if !s.episodes[ep] && s.randomMusic != 2 {
			continue
		}
		for mapIdx := range s.levels[ep] {
			pool = append(pool, s.levels[ep][mapIdx].Music)
		}
	}

	for ep := range s.levels {
		if !s.episodes[ep] {
			continue
		}
		for mapIdx := range s.levels[ep] {
			if len(pool) == 0 {
				return
			}
			pick := s.rng.Intn(len(pool))
			s.levels[ep][mapIdx].Music = pool[pick]
			pool = append(pool[:pick], pool[pick+1:]...)
		}
	}
}

// validateLocation reports whether a thing index is a live check for this
// slot: in range, reachable, and not gated behind sanity mode.
func (s *Session) validateLocation(idx LevelIndex, index int) bool {
	info := s.LevelInfo(idx)
	if info == nil || index < 0 || index >= len(info.Things) {
		return false
	}
	thing := info.Things[index]
	if thing.Unreachable {
		return false
	}
	return !thing.CheckSanity || s.checkSanity
}

// scoutProgression asks the server which of this slot's locations hold
// progression items. Skipped when a snapshot already restored the answer.
// A scout timeout degrades gracefully: everything just looks
// non-progression.
func (s *Session) scoutProgression() {
	if len(s.progressive) > 0 {
		log.Printf("client: progression scout cache loaded")
		return
	}

	var scouts []int64
	s.def.EachLocation(func(ref defs.LocationRef, id int64) {
		if ref.Index == -1 {
			return
		}
		if !s.EpisodeEnabled(ref.Ep - 1) {
			return
		}
		if s.validateLocation(LevelIndex{Ep: ref.Ep - 1, Map: ref.Map - 1}, ref.Index) {
			scouts = append(scouts, id)
		}
	})
	if len(scouts) == 0 {
		return
	}

	log.Printf("client: scouting %d locations", len(scouts))
	s.conn.SendLocationScouts(scouts, 0)

	deadline := s.clock.Now().Add(scoutTimeout)
	for len(s.progressive) == 0 {
		s.conn.Pump(s)
		if !s.clock.Now().Before(deadline) {
			log.Printf("client: scout timeout, checks will all look non-progression")
			return
		}
		s.clock.Sleep(connectPoll)
	}
}

// Shutdown saves the snapshot if this session ever connected.
func (s *Session) Shutdown() {
	if !s.wasConnected {
		return
	}
	if err := s.SaveState(); err != nil {
		log.Printf("client: save state: %v", err)
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
