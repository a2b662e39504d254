package defs

import (
	"encoding/json"
	"fmt"
)

// AmmoInfo names one ammo type and its unexpanded maximum.
type AmmoInfo struct {
	Name string
	Max  int
}

// WeaponInfo names one weapon. AmmoType is an index into the ammo table, or
// -1 for weapons that consume nothing.
type WeaponInfo struct {
	Name      string
	AmmoType  int
	StartAmmo int
}

// HintEntry rewrites a short chat alias into a full location title. Keyed
// hints carry a skull variant chosen from level key flags; KeyID is -1 for
// plain aliases, otherwise the key slot the hint refers to.
type HintEntry struct {
	Input  string
	Normal string
	Skull  string
	KeyID  int
}

// GameInfo carries the static gameplay tables a variant used to compile in:
// ammo and weapon descriptions, starting stats, and the doom types the
// session needs to classify received items.
type GameInfo struct {
	Ammo    []AmmoInfo
	Weapons []WeaponInfo

	StartHealth int
	StartArmor  int
	PausePic    string

	// KeyTypes maps a key doom type to its key slot (0..2).
	KeyTypes map[int]int
	// WeaponPickups maps a weapon pickup doom type to its weapon slot.
	WeaponPickups map[int]int

	MapItemType         int
	BackpackType        int
	CapacityUpgradeBase int64
	BossMap             int
	PowerupCount        int
	InventorySize       int

	Hints []HintEntry
}

type rawWeapon struct {
	Name      string          `json:"name"`
	AmmoType  json.RawMessage `json:"ammo_type"`
	StartAmmo int             `json:"starting_ammo"`
}

type rawGameInfo struct {
	Ammo []struct {
		Name string `json:"name"`
		Max  int    `json:"max"`
	} `json:"ammo"`
	Weapons []rawWeapon `json:"weapons"`

	StartHealth *int   `json:"starting_health"`
	StartArmor  *int   `json:"starting_armor"`
	PausePic    string `json:"pausepic"`

	KeyTypes      map[string]int `json:"key_types"`
	WeaponPickups map[string]int `json:"weapon_pickups"`

	MapItemType         int    `json:"map_item_type"`
	BackpackType        *int   `json:"backpack_type"`
	CapacityUpgradeBase *int64 `json:"capacity_upgrade_base"`
	BossMap             *int   `json:"boss_map"`
	PowerupCount        *int   `json:"powerup_count"`
	InventorySize       int    `json:"inventory_size"`

	Hints json.RawMessage `json:"hint_auto_complete"`
}

func (d *GameDef) parseGameInfo(raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("definitions missing required %q", "game_info")
	}
	var rawInfo rawGameInfo
	if err := json.Unmarshal(raw, &rawInfo); err != nil {
		return fmt.Errorf("game_info: %w", err)
	}

	info := GameInfo{
		StartHealth:         100,
		BackpackType:        8,
		CapacityUpgradeBase: 65001,
		BossMap:             7,
		PowerupCount:        6,
		KeyTypes:            make(map[int]int),
		WeaponPickups:       make(map[int]int),
	}

	ammoIndex := make(map[string]int, len(rawInfo.Ammo))
	for i, ammo := range rawInfo.Ammo {
		info.Ammo = append(info.Ammo, AmmoInfo{Name: ammo.Name, Max: ammo.Max})
		ammoIndex[ammo.Name] = i
	}

	for _, weapon := range rawInfo.Weapons {
		resolved, err := resolveAmmoType(weapon, ammoIndex)
		if err != nil {
			return fmt.Errorf("game_info: %w", err)
		}
		info.Weapons = append(info.Weapons, resolved)
	}

	if rawInfo.StartHealth != nil {
		info.StartHealth = *rawInfo.StartHealth
	}
	if rawInfo.StartArmor != nil {
		info.StartArmor = *rawInfo.StartArmor
	}
	info.PausePic = lumpName(rawInfo.PausePic)

	for key, slot := range rawInfo.KeyTypes {
		doomType, err := atoiKey("game_info.key_types", key)
		if err != nil {
			return err
		}
		info.KeyTypes[doomType] = slot
	}
	for key, slot := range rawInfo.WeaponPickups {
		doomType, err := atoiKey("game_info.weapon_pickups", key)
		if err != nil {
			return err
		}
		info.WeaponPickups[doomType] = slot
	}

	info.MapItemType = rawInfo.MapItemType
	if rawInfo.BackpackType != nil {
		info.BackpackType = *rawInfo.BackpackType
	}
	if rawInfo.CapacityUpgradeBase != nil {
		info.CapacityUpgradeBase = *rawInfo.CapacityUpgradeBase
	}
	if rawInfo.BossMap != nil {
		info.BossMap = *rawInfo.BossMap
	}
	if rawInfo.PowerupCount != nil {
		info.PowerupCount = *rawInfo.PowerupCount
	}
	info.InventorySize = rawInfo.InventorySize

	hints, err := parseHints(rawInfo.Hints)
	if err != nil {
		return fmt.Errorf("game_info: %w", err)
	}
	info.Hints = hints

	d.GameInfo = info
	return nil
}

// resolveAmmoType accepts the three forms the document allows: null for no
// ammo, a 1-based numeric index, or an ammo name.
func resolveAmmoType(weapon rawWeapon, ammoIndex map[string]int) (WeaponInfo, error) {
	info := WeaponInfo{Name: weapon.Name, AmmoType: -1}
	if len(weapon.AmmoType) == 0 || string(weapon.AmmoType) == "null" {
		return info, nil
	}

	var byIndex int
	if err := json.Unmarshal(weapon.AmmoType, &byIndex); err == nil {
		info.AmmoType = byIndex - 1
		info.StartAmmo = weapon.StartAmmo
		return info, nil
	}

	var byName string
	if err := json.Unmarshal(weapon.AmmoType, &byName); err != nil {
		return info, fmt.Errorf("weapon %q: bad ammo_type", weapon.Name)
	}
	idx, ok := ammoIndex[byName]
	if !ok {
		return info, fmt.Errorf("ammo type %q doesn't exist", byName)
	}
	info.AmmoType = idx
	info.StartAmmo = weapon.StartAmmo
	return info, nil
}

// parseHints reads the optional hint alias table. Values are either a plain
// replacement string or a [normal, skull] pair for keyed locations; the
// alias itself names which key slot the pair refers to.
func parseHints(raw json.RawMessage) ([]HintEntry, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var table map[string]json.RawMessage
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("hint_auto_complete: %w", err)
	}
	hints := make([]HintEntry, 0, len(table))
	for input, value := range table {
		entry := HintEntry{Input: input, KeyID: -1}
		var pair []string
		if err := json.Unmarshal(value, &pair); err == nil {
			if len(pair) != 2 {
				return nil, fmt.Errorf("hint_auto_complete: %q needs [normal, skull]", input)
			}
			entry.Normal, entry.Skull = pair[0], pair[1]
			switch input {
			case "RED":
				entry.KeyID = 2
			case "YELLOW":
				entry.KeyID = 1
			default:
				entry.KeyID = 0
			}
		} else {
			var plain string
			if err := json.Unmarshal(value, &plain); err != nil {
				return nil, fmt.Errorf("hint_auto_complete: bad entry %q", input)
			}
			entry.Normal = plain
		}
		hints = append(hints, entry)
	}
	return hints, nil
}

func atoiKey(section, key string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(key, "%d", &n); err != nil {
		return 0, fmt.Errorf("%s: bad doom type key %q", section, key)
	}
	return n, nil
}
