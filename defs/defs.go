// Package defs loads the per-game JSON definition document that drives the
// multiworld session: location/item tables, level metadata, map tweaks, and
// the level-select layout. A load either succeeds completely or fails with
// the offending section named; no partial tables are ever exposed.
package defs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MaxThings guards against malformed definitions; a level whose thing list
// exceeds it indicates a definitions/engine mismatch and aborts the load.
const MaxThings = 10240

// Thing describes a single placeable object in a level. Objects given as a
// bare integer in the definition file are plain decorations: unreachable and
// never sanity-gated.
type Thing struct {
	DoomType    int
	Index       int
	CheckSanity bool
	Unreachable bool
}

// LevelInfo is the static description of one level. Built once at load and
// read-only afterwards.
type LevelInfo struct {
	Name        string
	GameEpisode int
	GameMap     int
	Keys        [3]bool
	UseSkull    [3]bool
	Things      []Thing

	// CheckCount counts every reachable thing; SanityCheckCount counts the
	// subset that only becomes a check when sanity mode is enabled.
	CheckCount       int
	SanityCheckCount int
}

// Item maps a remote item id onto an engine doom type. Ep and Map are -1
// when the item is not scoped to a particular level.
type Item struct {
	DoomType int
	Ep       int
	Map      int
}

// LocationRef is the inverse of the location table: where a remote location
// id lives. Ep and Map use the definition document's 1-based numbering.
type LocationRef struct {
	Ep    int
	Map   int
	Index int
}

// GameDef holds every static table loaded from a definition document.
type GameDef struct {
	GameName string
	IWAD     string
	PWADs    []string

	locationTypes map[int]struct{}
	typeSprites   map[int]string
	itemTable     map[int64]Item
	locationTable map[int]map[int]map[int]int64
	locationIndex map[int64]LocationRef

	levels [][]LevelInfo

	// tweaks is keyed by 0-based episode/map; slices preserve document order.
	tweaks map[int]map[int][]MapTweak

	LevelSelect []LevelSelectScreen
	GameInfo    GameInfo
}

// Document is the raw section layout of a definition file. Sections are
// decoded one at a time so a parse failure names the section at fault.
type Document struct {
	GameName      json.RawMessage `json:"_game_name"`
	IWAD          json.RawMessage `json:"_iwad"`
	PWADs         []string        `json:"_pwads"`
	LocationTypes json.RawMessage `json:"ap_location_types"`
	TypeSprites   json.RawMessage `json:"type_sprites"`
	ItemTable     json.RawMessage `json:"item_table"`
	LocationTable json.RawMessage `json:"location_table"`
	LevelInfo     json.RawMessage `json:"level_info"`
	MapTweaks     json.RawMessage `json:"map_tweaks"`
	LevelSelect   json.RawMessage `json:"level_select"`
	GameInfo      json.RawMessage `json:"game_info"`
}

// LoadGame reads "<dir>/<game>.json" and parses it.
func LoadGame(dir, game string) (*GameDef, error) {
	path := filepath.Join(dir, game+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("defs: no definition file for %q: %w", game, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("defs: %s: %w", path, err)
	}
	return def, nil
}

// Parse decodes a definition document. Every required section must parse or
// the whole load fails; map_tweaks is the only optional section.
func Parse(data []byte) (*GameDef, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid definition document: %w", err)
	}

	def := &GameDef{
		locationTypes: make(map[int]struct{}),
		typeSprites:   make(map[int]string),
		itemTable:     make(map[int64]Item),
		locationTable: make(map[int]map[int]map[int]int64),
		locationIndex: make(map[int64]LocationRef),
		tweaks:        make(map[int]map[int][]MapTweak),
	}

	if len(doc.GameName) == 0 || json.Unmarshal(doc.GameName, &def.GameName) != nil {
		return nil, fmt.Errorf("definitions missing required %q", "_game_name")
	}
	if len(doc.IWAD) == 0 || json.Unmarshal(doc.IWAD, &def.IWAD) != nil {
		return nil, fmt.Errorf("definitions missing required %q", "_iwad")
	}
	def.PWADs = append(def.PWADs, doc.PWADs...)

	if err := def.parseLocationTypes(doc.LocationTypes); err != nil {
		return nil, err
	}
	if err := def.parseTypeSprites(doc.TypeSprites); err != nil {
		return nil, err
	}
	if err := def.parseItemTable(doc.ItemTable); err != nil {
		return nil, err
	}
	if err := def.parseLocationTable(doc.LocationTable); err != nil {
		return nil, err
	}
	if err := def.parseLevelInfo(doc.LevelInfo); err != nil {
		return nil, err
	}
	if err := def.parseMapTweaks(doc.MapTweaks); err != nil {
		return nil, err
	}
	if err := def.parseLevelSelect(doc.LevelSelect); err != nil {
		return nil, err
	}
	if err := def.parseGameInfo(doc.GameInfo); err != nil {
		return nil, err
	}
	return def, nil
}

func (d *GameDef) parseLocationTypes(raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("definitions missing required %q", "ap_location_types")
	}
	var types []int
	if err := json.Unmarshal(raw, &types); err != nil {
		return fmt.Errorf("ap_location_types: %w", err)
	}
	for _, doomType := range types {
		d.locationTypes[doomType] = struct{}{}
	}
	return nil
}

func (d *GameDef) parseTypeSprites(raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("definitions missing required %q", "type_sprites")
	}
	var sprites map[string]string
	if err := json.Unmarshal(raw, &sprites); err != nil {
		return fmt.Errorf("type_sprites: %w", err)
	}
	for key, lump := range sprites {
		doomType, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("type_sprites: bad doom type key %q", key)
		}
		d.typeSprites[doomType] = lumpName(lump)
	}
	return nil
}

func (d *GameDef) parseItemTable(raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("definitions missing required %q", "item_table")
	}
	var entries map[string][]int
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("item_table: %w", err)
	}
	for key, values := range entries {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return fmt.Errorf("item_table: bad item id key %q", key)
		}
		if len(values) == 0 {
			return fmt.Errorf("item_table: entry %q has no doom type", key)
		}
		item := Item{DoomType: values[0], Ep: -1, Map: -1}
		if len(values) > 1 {
			item.Ep = values[1]
		}
		if len(values) > 2 {
			item.Map = values[2]
		}
		d.itemTable[id] = item
	}
	return nil
}

func (d *GameDef) parseLocationTable(raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("definitions missing required %q", "location_table")
	}
	var table map[string]map[string]map[string]int64
	if err := json.Unmarshal(raw, &table); err != nil {
		return fmt.Errorf("location_table: %w", err)
	}
	for epKey, maps := range table {
		ep, err := strconv.Atoi(epKey)
		if err != nil {
			return fmt.Errorf("location_table: bad episode key %q", epKey)
		}
		for mapKey, indices := range maps {
			gameMap, err := strconv.Atoi(mapKey)
			if err != nil {
				return fmt.Errorf("location_table: bad map key %q", mapKey)
			}
			for indexKey, id := range indices {
				index, err := strconv.Atoi(indexKey)
				if err != nil {
					return fmt.Errorf("location_table: bad index key %q", indexKey)
				}
				epTable, ok := d.locationTable[ep]
				if !ok {
					epTable = make(map[int]map[int]int64)
					d.locationTable[ep] = epTable
				}
				mapTable, ok := epTable[gameMap]
				if !ok {
					mapTable = make(map[int]int64)
					epTable[gameMap] = mapTable
				}
				mapTable[index] = id
				d.locationIndex[id] = LocationRef{Ep: ep, Map: gameMap, Index: index}
			}
		}
	}
	return nil
}

type rawLevel struct {
	Name     string            `json:"_name"`
	GameMap  []int             `json:"game_map"`
	Key      []bool            `json:"key"`
	UseSkull []bool            `json:"use_skull"`
	Things   []json.RawMessage `json:"thing_list"`
}

func (d *GameDef) parseLevelInfo(raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("definitions missing required %q", "level_info")
	}
	var episodes [][]rawLevel
	if err := json.Unmarshal(raw, &episodes); err != nil {
		return fmt.Errorf("level_info: %w", err)
	}
	d.levels = make([][]LevelInfo, len(episodes))
	for ep, maps := range episodes {
		d.levels[ep] = make([]LevelInfo, len(maps))
		for mapIdx, rawInfo := range maps {
			info, err := parseLevel(rawInfo)
			if err != nil {
				return fmt.Errorf("level_info[%d][%d]: %w", ep, mapIdx, err)
			}
			d.levels[ep][mapIdx] = info
		}
	}
	return nil
}

func parseLevel(raw rawLevel) (LevelInfo, error) {
	info := LevelInfo{Name: raw.Name}
	if len(raw.GameMap) != 2 {
		return info, fmt.Errorf("%s: bad %q entry", raw.Name, "game_map")
	}
	info.GameEpisode = raw.GameMap[0]
	info.GameMap = raw.GameMap[1]
	for i := 0; i < 3 && i < len(raw.Key); i++ {
		info.Keys[i] = raw.Key[i]
	}
	for i := 0; i < 3 && i < len(raw.UseSkull); i++ {
		info.UseSkull[i] = raw.UseSkull[i]
	}

	if len(raw.Things) > MaxThings {
		return info, fmt.Errorf("%s: too many things, the max is %d", raw.Name, MaxThings)
	}
	info.Things = make([]Thing, 0, len(raw.Things))
	for idx, entry := range raw.Things {
		thing := Thing{Index: idx}
		var doomType int
		if err := json.Unmarshal(entry, &doomType); err == nil {
			// Plain decoration: stored as its doom type only.
			thing.DoomType = doomType
			thing.Unreachable = true
		} else {
			// Checks are stored as [doom_type, check_sanity].
			var pair []json.RawMessage
			if err := json.Unmarshal(entry, &pair); err != nil || len(pair) < 2 {
				return info, fmt.Errorf("%s: bad thing entry %d", raw.Name, idx)
			}
			if err := json.Unmarshal(pair[0], &thing.DoomType); err != nil {
				return info, fmt.Errorf("%s: bad thing entry %d", raw.Name, idx)
			}
			if err := json.Unmarshal(pair[1], &thing.CheckSanity); err != nil {
				return info, fmt.Errorf("%s: bad thing entry %d", raw.Name, idx)
			}
			info.CheckCount++
			if thing.CheckSanity {
				info.SanityCheckCount++
			}
		}
		info.Things = append(info.Things, thing)
	}
	return info, nil
}

// EpisodeCount reports how many episodes the definition describes.
func (d *GameDef) EpisodeCount() int { return len(d.levels) }

// Episodic reports whether the game splits its maps across multiple episodes.
func (d *GameDef) Episodic() bool { return len(d.levels) > 1 }

// MapCount returns the number of maps in a 1-based episode, or -1 when the
// episode does not exist.
func (d *GameDef) MapCount(ep int) int {
	ep--
	if ep < 0 || ep >= len(d.levels) {
		return -1
	}
	return len(d.levels[ep])
}

// MaxMapCount returns the widest episode's map count.
func (d *GameDef) MaxMapCount() int {
	max := 0
	for _, maps := range d.levels {
		if len(maps) > max {
			max = len(maps)
		}
	}
	return max
}

// Level returns the static info for a 0-based episode/map pair.
func (d *GameDef) Level(ep, mapIdx int) (*LevelInfo, bool) {
	if ep < 0 || ep >= len(d.levels) {
		return nil, false
	}
	if mapIdx < 0 || mapIdx >= len(d.levels[ep]) {
		return nil, false
	}
	return &d.levels[ep][mapIdx], true
}

// ResolveIndex maps engine-native episode/map numbers onto the 0-based
// episode/map pair used as the key into per-level state. PWAD variants remap
// freely, so numeric equivalence is never assumed.
func (d *GameDef) ResolveIndex(gameEpisode, gameMap int) (ep, mapIdx int, ok bool) {
	for ep, maps := range d.levels {
		for mapIdx, info := range maps {
			if info.GameEpisode == gameEpisode && info.GameMap == gameMap {
				return ep, mapIdx, true
			}
		}
	}
	return -1, -1, false
}

// IsLocationType reports whether a doom type participates in randomization.
func (d *GameDef) IsLocationType(doomType int) bool {
	_, ok := d.locationTypes[doomType]
	return ok
}

// SpriteFor returns the notification sprite lump for a doom type.
func (d *GameDef) SpriteFor(doomType int) (string, bool) {
	lump, ok := d.typeSprites[doomType]
	return lump, ok
}

// ItemCount reports how many remote item ids the definition maps.
func (d *GameDef) ItemCount() int { return len(d.itemTable) }

// ItemFor resolves a remote item id.
func (d *GameDef) ItemFor(id int64) (Item, bool) {
	item, ok := d.itemTable[id]
	return item, ok
}

// LocationID resolves a 1-based episode/map pair plus a local thing index to
// the remote location id.
func (d *GameDef) LocationID(ep, gameMap, index int) (int64, bool) {
	maps, ok := d.locationTable[ep]
	if !ok {
		return 0, false
	}
	indices, ok := maps[gameMap]
	if !ok {
		return 0, false
	}
	id, ok := indices[index]
	return id, ok
}

// FindLocation is the inverse lookup used when a remote "location checked"
// event arrives out of order.
func (d *GameDef) FindLocation(id int64) (LocationRef, bool) {
	ref, ok := d.locationIndex[id]
	return ref, ok
}

// EachLocation walks every location table entry. Order is unspecified.
func (d *GameDef) EachLocation(fn func(ref LocationRef, id int64)) {
	for ep := range d.locationTable {
		for gameMap := range d.locationTable[ep] {
			for index, id := range d.locationTable[ep][gameMap] {
				fn(LocationRef{Ep: ep, Map: gameMap, Index: index}, id)
			}
		}
	}
}

// ParseLumpName turns a map lump name such as "E2M4" or "MAP15" into
// engine-native episode/map numbers. MAPxx-style names use episode 1.
func ParseLumpName(name string) (gameEpisode, gameMap int, ok bool) {
	if len(name) < 4 {
		return 0, 0, false
	}
	num, err := strconv.Atoi(strings.TrimLeft(name[3:], "0"))
	if err != nil {
		return 0, 0, false
	}
	switch {
	case strings.HasPrefix(name, "MAP"):
		return 1, num, true
	case name[0] == 'E' && name[1] >= '1' && name[1] <= '9' && name[2] == 'M':
		return int(name[1] - '0'), num, true
	}
	return 0, 0, false
}

// lumpName truncates a string to the 8 characters an engine lump can hold.
func lumpName(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
