package client

import (
	"time"

	"doomlink/client/internal/apnet"
)

// Callbacks are how session state reaches the host game. All of them are
// invoked from Connect or Update, never from another goroutine. Nil
// callbacks are skipped.
type Callbacks struct {
	// Message delivers a display-ready chat line with color tags.
	Message func(text string)
	// GiveItem hands a granted item to the in-game player.
	GiveItem func(doomType, ep, gameMap int)
	// Victory fires once when the goal completes.
	Victory func()
}

// Settings configure a session. Override pairs force a value regardless of
// what slot data says; the zero value leaves slot data in charge.
type Settings struct {
	Server   string
	SlotName string
	Password string

	// SaveDir is the parent for per-seed snapshot directories. Empty means
	// the working directory.
	SaveDir string

	Callbacks Callbacks

	OverrideSkill             *int
	OverrideMonsterRando      *int
	OverrideItemRando         *int
	OverrideMusicRando        *int
	OverrideFlipLevels        *int
	OverrideResetLevelOnDeath *int

	ForceDeathlinkOff bool

	// Dial substitutes the connection factory, mainly for tests. Nil uses
	// the real websocket client.
	Dial func(opts apnet.Options) (apnet.Connection, error)

	// Clock substitutes time for tests. Nil uses the wall clock.
	Clock Clock
}

// Clock abstracts waiting so connect timeouts are testable.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
