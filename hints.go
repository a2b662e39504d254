package client

import (
	"strings"

	"doomlink/client/defs"
)

// SendMessage sends a chat line to the room, expanding hint shorthand
// first.
func (s *Session) SendMessage(text string) {
	if s.conn == nil {
		return
	}
	s.conn.Say(s.expandHint(text))
}

// expandHint rewrites "!HINT <map> [<alias>]" into the full location title
// the server expects. The host game upper-cases chat input, so the prefix
// match is against the caps form. Anything that does not parse passes
// through untouched.
func (s *Session) expandHint(text string) string {
	const prefix = "!HINT "
	if !strings.HasPrefix(text, prefix) {
		return text
	}

	rest := strings.TrimLeft(text[len(prefix):], " ")
	lump := rest
	if space := strings.IndexByte(rest, ' '); space >= 0 {
		lump = rest[:space]
		rest = strings.TrimLeft(rest[space:], " ")
	} else {
		rest = ""
	}

	gameEpisode, gameMap, ok := defs.ParseLumpName(lump)
	if !ok {
		return text
	}
	idx, ok := s.TryMakeLevelIndex(gameEpisode, gameMap)
	if !ok {
		return text
	}
	info := s.LevelInfo(idx)

	// Bare map name hints the level's unlock item.
	if rest == "" {
		return "!hint " + info.Name
	}

	for _, hint := range s.def.GameInfo.Hints {
		if rest != hint.Input {
			continue
		}
		replacement := hint.Normal
		if hint.KeyID >= 0 && hint.KeyID < 3 && info.UseSkull[hint.KeyID] {
			replacement = hint.Skull
		}
		return "!hint " + info.Name + " - " + replacement
	}
	return text
}
