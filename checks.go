package client

import (
	"context"
	"log"

	"doomlink/client/logging/multiworld"
)

// CompleteLocationIndex is the pseudo thing index for finishing a level.
const CompleteLocationIndex = -1

// CheckLocation reports a checked location to the server. The send is
// fire-and-forget: local state only mutates when the server echoes the
// check back, and locations already checked are not re-sent.
func (s *Session) CheckLocation(idx LevelIndex, index int) {
	id, ok := s.locationID(idx, index)
	if !ok {
		return
	}
	if index >= 0 {
		state := s.LevelState(idx)
		if state.IsChecked(index) {
			log.Printf("client: location already checked")
			return
		}
	}
	if s.conn != nil {
		s.conn.SendLocationChecks(id)
	}
}

func (s *Session) locationID(idx LevelIndex, index int) (int64, bool) {
	return s.def.LocationID(idx.Ep+1, idx.Map+1, index)
}

// IsLocationProgression reports whether a scouted location holds another
// slot's progression item.
func (s *Session) IsLocationProgression(idx LevelIndex, index int) bool {
	id, ok := s.locationID(idx, index)
	if !ok {
		return false
	}
	_, progressive := s.progressive[id]
	return progressive
}

// ShouldCheckLocation reports whether a thing index counts as a check for
// this slot's settings.
func (s *Session) ShouldCheckLocation(idx LevelIndex, index int) bool {
	return s.validateLocation(idx, index)
}

// ValidateLocationType reports whether a thing is a check and matches the
// expected doom type: 1 live check, 0 reachable-but-inactive, -1 mismatch.
func (s *Session) ValidateLocationType(idx LevelIndex, doomType, index int) int {
	info := s.LevelInfo(idx)
	if info == nil || index < 0 || index >= len(info.Things) {
		return -1
	}
	thing := info.Things[index]
	if thing.DoomType != doomType {
		return -1
	}
	if thing.Unreachable {
		return 0
	}
	if !thing.CheckSanity || s.checkSanity {
		return 1
	}
	return 0
}

// CompleteLevel marks a level finished and reports its completion
// location.
func (s *Session) CompleteLevel(idx LevelIndex) {
	s.LevelState(idx).Completed = true
	s.CheckLocation(idx, CompleteLocationIndex)
	s.CheckVictory()
}

// CheckVictory evaluates the goal and fires the victory callback once.
// With the boss goal in an episodic game only each enabled episode's boss
// map must fall; otherwise every map in every enabled episode must be
// completed.
func (s *Session) CheckVictory() {
	if s.victory {
		return
	}

	if s.goal == 1 && s.def.Episodic() {
		bossMap := s.def.GameInfo.BossMap
		for ep := range s.levels {
			if !s.episodes[ep] {
				continue
			}
			state, ok := s.levelStateAt(ep, bossMap)
			if !ok || !state.Completed {
				return
			}
		}
	} else {
		for ep := range s.levels {
			if !s.episodes[ep] {
				continue
			}
			for mapIdx := range s.levels[ep] {
				if !s.levels[ep][mapIdx].Completed {
					return
				}
			}
		}
	}

	s.victory = true
	if s.conn != nil {
		s.conn.CompleteGoal()
	}
	multiworld.Victory(context.Background(), s.pub, s.settings.SlotName)
	if s.settings.Callbacks.Victory != nil {
		s.settings.Callbacks.Victory()
	}
}
