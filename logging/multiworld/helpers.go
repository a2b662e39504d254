// Package multiworld defines the session's structured log events.
package multiworld

import (
	"context"

	"doomlink/client/logging"
)

const (
	// EventDefsLoaded is emitted when a game definition document parses.
	EventDefsLoaded logging.EventType = "multiworld.defs_loaded"
	// EventConnected is emitted when the slot authenticates with a room.
	EventConnected logging.EventType = "multiworld.connected"
	// EventItemReceived is emitted when a granted item is applied.
	EventItemReceived logging.EventType = "multiworld.item_received"
	// EventLocationChecked is emitted when a location check lands locally.
	EventLocationChecked logging.EventType = "multiworld.location_checked"
	// EventStateSaved is emitted after a snapshot write.
	EventStateSaved logging.EventType = "multiworld.state_saved"
	// EventVictory is emitted once when the goal completes.
	EventVictory logging.EventType = "multiworld.victory"
)

// DefsLoadedPayload captures table sizes for a parsed definition document.
type DefsLoadedPayload struct {
	Game     string `json:"game"`
	Episodes int    `json:"episodes"`
	Items    int    `json:"items"`
}

// ConnectedPayload captures the room a slot joined.
type ConnectedPayload struct {
	Seed   string `json:"seed"`
	Server string `json:"server"`
}

// ItemReceivedPayload captures one applied grant.
type ItemReceivedPayload struct {
	ItemID   int64 `json:"itemId"`
	DoomType int   `json:"doomType"`
	Queued   bool  `json:"queued"`
}

// LocationCheckedPayload captures one local or remote check.
type LocationCheckedPayload struct {
	LocationID int64 `json:"locationId"`
	Episode    int   `json:"episode"`
	Map        int   `json:"map"`
	Index      int   `json:"index"`
}

// StateSavedPayload captures where a snapshot landed.
type StateSavedPayload struct {
	Path string `json:"path"`
}

func DefsLoaded(ctx context.Context, pub logging.Publisher, payload DefsLoadedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventDefsLoaded,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryDefs,
		Payload:  payload,
	})
}

func Connected(ctx context.Context, pub logging.Publisher, slot string, payload ConnectedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventConnected,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryConnection,
		Slot:     slot,
		Payload:  payload,
	})
}

func ItemReceived(ctx context.Context, pub logging.Publisher, slot string, payload ItemReceivedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventItemReceived,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryMultiworld,
		Slot:     slot,
		Payload:  payload,
	})
}

func LocationChecked(ctx context.Context, pub logging.Publisher, slot string, payload LocationCheckedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventLocationChecked,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryMultiworld,
		Slot:     slot,
		Payload:  payload,
	})
}

func StateSaved(ctx context.Context, pub logging.Publisher, slot string, payload StateSavedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventStateSaved,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMultiworld,
		Slot:     slot,
		Payload:  payload,
	})
}

func Victory(ctx context.Context, pub logging.Publisher, slot string) {
	publish(ctx, pub, logging.Event{
		Type:     EventVictory,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMultiworld,
		Slot:     slot,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, event)
}
