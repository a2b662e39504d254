package defs

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/iancoleman/orderedmap"
)

// TweakKind identifies what a map tweak patches. The high nibble groups
// kinds by target category so engines can dispatch on TweakKindMask.
type TweakKind int

const (
	TweakHubX TweakKind = 0x01 + iota
	TweakHubY
)

const (
	TweakThingX TweakKind = 0x11 + iota
	TweakThingY
	TweakThingType
	TweakThingAngle
)

const (
	TweakSectorSpecial TweakKind = 0x21 + iota
	TweakSectorTag
	TweakSectorFloor
	TweakSectorFloorPic
	TweakSectorCeiling
	TweakSectorCeilingPic
)

const (
	TweakLinedefSpecial TweakKind = 0x31 + iota
	TweakLinedefTag
	TweakLinedefFlags
)

const (
	TweakSidedefLower TweakKind = 0x41 + iota
	TweakSidedefMiddle
	TweakSidedefUpper
	TweakSidedefX
	TweakSidedefY
)

const TweakKindMask = 0xF0

// MapTweak is one patch to apply to a loaded map. Numeric patches carry
// Value, lump-name patches carry Lump.
type MapTweak struct {
	Kind   TweakKind
	Target int
	Value  int
	Lump   string
}

// tweakFields maps a tweak block name to its field kinds. Field order
// matters: fields of one target apply in this order.
var tweakFields = map[string][]struct {
	key  string
	kind TweakKind
}{
	"things": {
		{"x", TweakThingX},
		{"y", TweakThingY},
		{"type", TweakThingType},
		{"angle", TweakThingAngle},
	},
	"sectors": {
		{"special", TweakSectorSpecial},
		{"tag", TweakSectorTag},
		{"floor", TweakSectorFloor},
		{"floor_pic", TweakSectorFloorPic},
		{"ceiling", TweakSectorCeiling},
		{"ceiling_pic", TweakSectorCeilingPic},
	},
	"linedefs": {
		{"special", TweakLinedefSpecial},
		{"tag", TweakLinedefTag},
		{"flags", TweakLinedefFlags},
	},
	"sidedefs": {
		{"lower", TweakSidedefLower},
		{"middle", TweakSidedefMiddle},
		{"upper", TweakSidedefUpper},
		{"x", TweakSidedefX},
		{"y", TweakSidedefY},
	},
}

// parseMapTweaks reads the optional map_tweaks section. Tweaks apply in the
// order the definition author wrote them, so object keys are walked in
// document order rather than Go map order.
func (d *GameDef) parseMapTweaks(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	byMap := orderedmap.New()
	if err := json.Unmarshal(raw, byMap); err != nil {
		return fmt.Errorf("map_tweaks: %w", err)
	}

	for _, lump := range byMap.Keys() {
		gameEpisode, gameMap, ok := ParseLumpName(lump)
		if !ok {
			return fmt.Errorf("map_tweaks: invalid map name %q", lump)
		}
		ep, mapIdx, ok := d.ResolveIndex(gameEpisode, gameMap)
		if !ok {
			return fmt.Errorf("map_tweaks: invalid map name %q", lump)
		}

		blocksValue, _ := byMap.Get(lump)
		blocks, ok := blocksValue.(orderedmap.OrderedMap)
		if !ok {
			return fmt.Errorf("map_tweaks: %s: expected an object", lump)
		}

		list := d.tweaks[ep][mapIdx]
		for _, blockName := range blocks.Keys() {
			blockValue, _ := blocks.Get(blockName)
			block, ok := blockValue.(orderedmap.OrderedMap)
			if !ok {
				return fmt.Errorf("map_tweaks: %s: %s: expected an object", lump, blockName)
			}
			if blockName == "hub" {
				list = appendHubTweaks(list, block)
			} else if fields, known := tweakFields[blockName]; known {
				list = appendTargetTweaks(list, block, fields)
			} else {
				// Unknown sections are skipped for forward compatibility.
				continue
			}
		}

		if d.tweaks[ep] == nil {
			d.tweaks[ep] = make(map[int][]MapTweak)
		}
		d.tweaks[ep][mapIdx] = list
	}
	return nil
}

// appendHubTweaks handles the hub block, which patches a single implicit
// target so keys are field names directly.
func appendHubTweaks(list []MapTweak, block orderedmap.OrderedMap) []MapTweak {
	if value, ok := block.Get("x"); ok {
		list = appendTweak(list, TweakHubX, 0, value)
	}
	if value, ok := block.Get("y"); ok {
		list = appendTweak(list, TweakHubY, 0, value)
	}
	return list
}

func appendTargetTweaks(list []MapTweak, block orderedmap.OrderedMap, fields []struct {
	key  string
	kind TweakKind
}) []MapTweak {
	for _, targetKey := range block.Keys() {
		// A malformed entry loses that one patch, not the whole load.
		target, err := strconv.Atoi(targetKey)
		if err != nil {
			log.Printf("defs: map_tweaks: skipping bad target %q", targetKey)
			continue
		}
		entryValue, _ := block.Get(targetKey)
		entry, ok := entryValue.(orderedmap.OrderedMap)
		if !ok {
			log.Printf("defs: map_tweaks: skipping target %q: expected an object", targetKey)
			continue
		}
		for _, field := range fields {
			if value, present := entry.Get(field.key); present {
				list = appendTweak(list, field.kind, target, value)
			}
		}
	}
	return list
}

func appendTweak(list []MapTweak, kind TweakKind, target int, value any) []MapTweak {
	tweak := MapTweak{Kind: kind, Target: target}
	switch v := value.(type) {
	case string:
		tweak.Lump = lumpName(v)
	case float64:
		tweak.Value = int(v)
	case bool:
		if v {
			tweak.Value = 1
		}
	default:
		return list
	}
	return append(list, tweak)
}

// TweaksFor returns the patches for a 0-based episode/map pair in the order
// they were written.
func (d *GameDef) TweaksFor(ep, mapIdx int) []MapTweak {
	return d.tweaks[ep][mapIdx]
}
