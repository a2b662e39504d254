package defs

import (
	"encoding/json"
	"fmt"
)

// Anchor choices for key and check-count placement on the level select
// screen.
const (
	RelativeToMap = iota
	RelativeToMapName
	RelativeToMapNameRight
	RelativeToKeys
	RelativeToKeysLast
)

// Map-name placement for a whole screen: negative draws names along the top,
// positive along the bottom, zero beside each map.
const (
	MapNamesTop        = -1
	MapNamesIndividual = 0
	MapNamesBottom     = 1
)

// LevelSelectMap places one map entry and its decorations on the screen.
type LevelSelectMap struct {
	X int
	Y int

	Cursor struct {
		Graphic string
		X       int
		Y       int
	}

	MapName struct {
		Text    string
		Graphic string
		X       int
		Y       int
	}

	Keys struct {
		RelativeTo   int
		X            int
		Y            int
		SpacingX     int
		SpacingY     int
		AlignX       int
		AlignY       int
		CheckmarkX   int
		CheckmarkY   int
		UseCheckmark bool
	}

	Checks struct {
		RelativeTo int
		X          int
		Y          int
	}
}

// LevelSelectScreen is one episode's page of the level select.
type LevelSelectScreen struct {
	BackgroundImage string
	MapNames        int
	Maps            []LevelSelectMap
}

// Raw shapes use pointer fields so absent values fall through to whatever
// defaults already populated the target, field by field.
type rawMapInfo struct {
	X *int `json:"x"`
	Y *int `json:"y"`

	Cursor *struct {
		Graphic *string `json:"graphic"`
		X       *int    `json:"x"`
		Y       *int    `json:"y"`
	} `json:"cursor"`

	MapName *struct {
		Text    *string `json:"text"`
		Graphic *string `json:"graphic"`
		X       *int    `json:"x"`
		Y       *int    `json:"y"`
	} `json:"map_name"`

	Keys *struct {
		RelativeTo   *string `json:"relative_to"`
		X            *int    `json:"x"`
		Y            *int    `json:"y"`
		SpacingX     *int    `json:"spacing_x"`
		SpacingY     *int    `json:"spacing_y"`
		AlignX       *int    `json:"align_x"`
		AlignY       *int    `json:"align_y"`
		CheckmarkX   *int    `json:"checkmark_x"`
		CheckmarkY   *int    `json:"checkmark_y"`
		UseCheckmark *bool   `json:"use_checkmark"`
	} `json:"keys"`

	Checks *struct {
		RelativeTo *string `json:"relative_to"`
		X          *int    `json:"x"`
		Y          *int    `json:"y"`
	} `json:"checks"`
}

type rawLevelSelect struct {
	Defaults *struct {
		BackgroundImage *string    `json:"background_image"`
		MapNamePosition *string    `json:"map_name_position"`
		Maps            rawMapInfo `json:"maps"`
	} `json:"defaults"`
	Episodes []struct {
		BackgroundImage *string      `json:"background_image"`
		MapNamePosition *string      `json:"map_name_position"`
		Maps            []rawMapInfo `json:"maps"`
	} `json:"episodes"`
}

func (d *GameDef) parseLevelSelect(raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("definitions missing required %q", "level_select")
	}
	var rawSelect rawLevelSelect
	if err := json.Unmarshal(raw, &rawSelect); err != nil {
		return fmt.Errorf("level_select: %w", err)
	}

	defaultBackground := "INTERPIC"
	defaultMapNames := MapNamesTop
	var defaultMap LevelSelectMap
	if rawSelect.Defaults != nil {
		mergeMapInfo(&defaultMap, rawSelect.Defaults.Maps)
		if rawSelect.Defaults.BackgroundImage != nil {
			defaultBackground = lumpName(*rawSelect.Defaults.BackgroundImage)
		}
		if rawSelect.Defaults.MapNamePosition != nil {
			defaultMapNames = mapNamePosition(*rawSelect.Defaults.MapNamePosition, defaultMapNames)
		}
	}

	d.LevelSelect = make([]LevelSelectScreen, len(rawSelect.Episodes))
	for idx, episode := range rawSelect.Episodes {
		screen := LevelSelectScreen{
			BackgroundImage: defaultBackground,
			MapNames:        defaultMapNames,
		}
		if episode.BackgroundImage != nil {
			screen.BackgroundImage = lumpName(*episode.BackgroundImage)
		}
		if episode.MapNamePosition != nil {
			screen.MapNames = mapNamePosition(*episode.MapNamePosition, screen.MapNames)
		}
		screen.Maps = make([]LevelSelectMap, len(episode.Maps))
		for mapIdx, rawMap := range episode.Maps {
			screen.Maps[mapIdx] = defaultMap
			mergeMapInfo(&screen.Maps[mapIdx], rawMap)
		}
		d.LevelSelect[idx] = screen
	}
	return nil
}

func mapNamePosition(value string, fallback int) int {
	switch value {
	case "top":
		return MapNamesTop
	case "bottom":
		return MapNamesBottom
	case "individual":
		return MapNamesIndividual
	}
	return fallback
}

func relativeTo(value string, fallback int) int {
	switch value {
	case "map":
		return RelativeToMap
	case "map-name":
		return RelativeToMapName
	case "map-name-right":
		return RelativeToMapNameRight
	case "keys":
		return RelativeToKeys
	case "keys-last":
		return RelativeToKeysLast
	}
	return fallback
}

// mergeMapInfo overlays the fields present in raw onto info, leaving
// everything else as-is. Setting map_name text clears a previously merged
// graphic and vice versa.
func mergeMapInfo(info *LevelSelectMap, raw rawMapInfo) {
	if raw.X != nil {
		info.X = *raw.X
	}
	if raw.Y != nil {
		info.Y = *raw.Y
	}

	if raw.Cursor != nil {
		if raw.Cursor.Graphic != nil {
			info.Cursor.Graphic = lumpName(*raw.Cursor.Graphic)
		}
		if raw.Cursor.X != nil {
			info.Cursor.X = *raw.Cursor.X
		}
		if raw.Cursor.Y != nil {
			info.Cursor.Y = *raw.Cursor.Y
		}
	}

	if raw.MapName != nil {
		if raw.MapName.Text != nil {
			info.MapName.Text = *raw.MapName.Text
			info.MapName.Graphic = ""
		} else if raw.MapName.Graphic != nil {
			info.MapName.Graphic = lumpName(*raw.MapName.Graphic)
			info.MapName.Text = ""
		}
		if raw.MapName.X != nil {
			info.MapName.X = *raw.MapName.X
		}
		if raw.MapName.Y != nil {
			info.MapName.Y = *raw.MapName.Y
		}
	}

	if raw.Keys != nil {
		if raw.Keys.RelativeTo != nil {
			info.Keys.RelativeTo = relativeTo(*raw.Keys.RelativeTo, info.Keys.RelativeTo)
		}
		if raw.Keys.X != nil {
			info.Keys.X = *raw.Keys.X
		}
		if raw.Keys.Y != nil {
			info.Keys.Y = *raw.Keys.Y
		}
		if raw.Keys.SpacingX != nil {
			info.Keys.SpacingX = *raw.Keys.SpacingX
		}
		if raw.Keys.SpacingY != nil {
			info.Keys.SpacingY = *raw.Keys.SpacingY
		}
		if raw.Keys.AlignX != nil {
			info.Keys.AlignX = *raw.Keys.AlignX
		}
		if raw.Keys.AlignY != nil {
			info.Keys.AlignY = *raw.Keys.AlignY
		}
		if raw.Keys.CheckmarkX != nil {
			info.Keys.CheckmarkX = *raw.Keys.CheckmarkX
		}
		if raw.Keys.CheckmarkY != nil {
			info.Keys.CheckmarkY = *raw.Keys.CheckmarkY
		}
		if raw.Keys.UseCheckmark != nil {
			info.Keys.UseCheckmark = *raw.Keys.UseCheckmark
		}
	}

	if raw.Checks != nil {
		if raw.Checks.RelativeTo != nil {
			info.Checks.RelativeTo = relativeTo(*raw.Checks.RelativeTo, info.Checks.RelativeTo)
		}
		if raw.Checks.X != nil {
			info.Checks.X = *raw.Checks.X
		}
		if raw.Checks.Y != nil {
			info.Checks.Y = *raw.Checks.Y
		}
	}
}
