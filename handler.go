package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"doomlink/client/defs"
	"doomlink/client/internal/apnet"
	"doomlink/client/logging/multiworld"
)

var _ apnet.Handler = (*Session)(nil)

// ItemReceived applies one granted item. Structural effects (keys, weapons,
// capacity, unlocks) land immediately so they survive even when the player
// is not in game; the in-game grant queues until an Update runs while
// playing. The server redelivers grants, so anything already applied by
// index is skipped.
func (s *Session) ItemReceived(netItem apnet.NetworkItem, index int, notify bool) {
	if index < s.receivedCount {
		return
	}
	s.receivedCount = index + 1

	item, ok := s.def.ItemFor(netItem.Item)
	if !ok {
		return
	}

	s.applyItemEffects(item)

	queued := false
	if notify {
		if s.inGame {
			s.processReceivedItem(netItem.Item)
		} else {
			s.itemQueue = append(s.itemQueue, netItem.Item)
			queued = true
		}
	}

	multiworld.ItemReceived(context.Background(), s.pub, s.settings.SlotName, multiworld.ItemReceivedPayload{
		ItemID:   netItem.Item,
		DoomType: item.DoomType,
		Queued:   queued,
	})
}

// applyItemEffects mutates session state for an item without touching the
// in-game player.
func (s *Session) applyItemEffects(item defs.Item) {
	info := s.def.GameInfo

	var level *LevelState
	if item.Ep != -1 {
		if state, ok := s.levelStateAt(item.Ep-1, item.Map-1); ok {
			level = state
		}
	}

	switch {
	case item.DoomType == info.BackpackType:
		for i := range s.player.CapacityUpgrades {
			s.player.CapacityUpgrades[i]++
		}
		s.recalcMaxAmmo()
	case int64(item.DoomType) >= info.CapacityUpgradeBase &&
		int64(item.DoomType) < info.CapacityUpgradeBase+int64(len(s.player.CapacityUpgrades)):
		slot := int(int64(item.DoomType) - info.CapacityUpgradeBase)
		s.player.CapacityUpgrades[slot]++
		s.recalcMaxAmmo()
	}

	if slot, ok := info.KeyTypes[item.DoomType]; ok && level != nil && slot >= 0 && slot < 3 {
		level.Keys[slot] = true
	}
	if slot, ok := info.WeaponPickups[item.DoomType]; ok && slot >= 0 && slot < len(s.player.WeaponOwned) {
		s.player.WeaponOwned[slot] = true
	}
	if item.DoomType == info.MapItemType && level != nil {
		level.HasMap = true
	}
	if item.DoomType == -1 && level != nil {
		level.Unlocked = true
	}
	if item.DoomType == -2 && level != nil {
		level.Completed = true
	}
}

func (s *Session) levelStateAt(ep, mapIdx int) (*LevelState, bool) {
	if ep < 0 || ep >= len(s.levels) {
		return nil, false
	}
	if mapIdx < 0 || mapIdx >= len(s.levels[ep]) {
		return nil, false
	}
	return &s.levels[ep][mapIdx], true
}

// processReceivedItem hands an item to the in-game player and spawns its
// notification icon. Only called while in game.
func (s *Session) processReceivedItem(itemID int64) {
	item, ok := s.def.ItemFor(itemID)
	if !ok {
		return
	}

	var notifText string
	if item.Ep != -1 {
		if info, ok := s.def.Level(item.Ep-1, item.Map-1); ok {
			notifText = exmxName(info.Name)
		}
	}

	if s.settings.Callbacks.GiveItem != nil {
		s.settings.Callbacks.GiveItem(item.DoomType, item.Ep, item.Map)
	}

	if sprite, ok := s.def.SpriteFor(item.DoomType); ok {
		s.spawnNotification(sprite, notifText)
	}
}

// exmxName extracts the "(ExMx)" suffix from a level name for the
// notification label.
func exmxName(name string) string {
	pos := strings.IndexByte(name, '(')
	if pos < 0 {
		return name
	}
	return name[pos:]
}

// LocationChecked records a check echoed by the server, local or remote.
// Duplicate echoes and completion pseudo-locations are ignored.
func (s *Session) LocationChecked(id int64) {
	ref, ok := s.def.FindLocation(id)
	if !ok {
		log.Printf("client: unknown location id %d", id)
		return
	}
	if ref.Index < 0 {
		return
	}
	state, ok := s.levelStateAt(ref.Ep-1, ref.Map-1)
	if !ok || state.IsChecked(ref.Index) {
		return
	}
	if len(state.Checks) >= CheckMax {
		return
	}
	state.Checks = append(state.Checks, ref.Index)

	multiworld.LocationChecked(context.Background(), s.pub, s.settings.SlotName, multiworld.LocationCheckedPayload{
		LocationID: id,
		Episode:    ref.Ep,
		Map:        ref.Map,
		Index:      ref.Index,
	})
}

// LocationInfo records which scouted locations hold progression items.
func (s *Session) LocationInfo(items []apnet.NetworkItem) {
	for _, item := range items {
		if item.Flags&apnet.FlagProgression != 0 {
			s.progressive[item.Location] = struct{}{}
		}
	}
}

// SlotData applies the room's per-slot configuration. Locally overridden
// values win; ammo capacities only apply when positive.
func (s *Session) SlotData(data map[string]json.RawMessage) {
	intAt := func(key string) (int, bool) {
		raw, ok := data[key]
		if !ok {
			return 0, false
		}
		var value int
		if err := json.Unmarshal(raw, &value); err != nil {
			return 0, false
		}
		return value, true
	}

	if value, ok := intAt("goal"); ok {
		s.goal = value
	}
	if value, ok := intAt("difficulty"); ok && s.settings.OverrideSkill == nil {
		s.difficulty = value
	}
	if value, ok := intAt("random_monsters"); ok && s.settings.OverrideMonsterRando == nil {
		s.randomMonsters = value
	}
	if value, ok := intAt("random_pickups"); ok && s.settings.OverrideItemRando == nil {
		s.randomItems = value
	}
	if value, ok := intAt("random_music"); ok && s.settings.OverrideMusicRando == nil {
		s.randomMusic = value
	}
	if value, ok := intAt("flip_levels"); ok && s.settings.OverrideFlipLevels == nil {
		s.flipLevels = value
	}
	if value, ok := intAt("check_sanity"); ok {
		s.checkSanity = value != 0
	}
	if value, ok := intAt("reset_level_on_death"); ok && s.settings.OverrideResetLevelOnDeath == nil {
		s.resetLevelOnDeath = value
	}
	if value, ok := intAt("two_ways_keydoors"); ok {
		s.twoWaysKeydoors = value
	}

	for ep := range s.episodes {
		if value, ok := intAt(fmt.Sprintf("episode%d", ep+1)); ok {
			s.episodes[ep] = value != 0
		}
	}
	for i := range s.maxAmmoStart {
		if value, ok := intAt(fmt.Sprintf("ammo%dstart", i+1)); ok && value > 0 {
			s.maxAmmoStart[i] = value
		}
		if value, ok := intAt(fmt.Sprintf("ammo%dadd", i+1)); ok && value > 0 {
			s.maxAmmoAdd[i] = value
		}
	}
}

// Message formats a chat line and delivers it, or caches it when the
// session is still connecting.
func (s *Session) Message(msg apnet.Message) {
	colored := formatMessage(msg)
	log.Printf("client: %s", msg.Text)
	if s.initialized {
		s.message(colored)
	} else {
		s.cachedMessages = append(s.cachedMessages, colored)
	}
}
