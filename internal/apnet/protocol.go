// Package apnet speaks the multiworld coordination protocol: a websocket
// carrying JSON arrays of command packets. The session consumes it through
// the Connection interface so tests can substitute fakes.
package apnet

import "encoding/json"

// Status of the connection handshake.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusAuthenticated
	StatusRefused
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusAuthenticated:
		return "authenticated"
	case StatusRefused:
		return "refused"
	}
	return "unknown"
}

// Item classification flags on the wire.
const (
	FlagProgression = 1 << iota
	FlagUseful
	FlagTrap
)

// NetworkItem is one granted item as the server describes it.
type NetworkItem struct {
	Item     int64 `json:"item"`
	Location int64 `json:"location"`
	Player   int   `json:"player"`
	Flags    int   `json:"flags"`
}

// RoomInfo is the server's greeting; SeedName scopes everything persisted
// for this multiworld.
type RoomInfo struct {
	SeedName       string `json:"seed_name"`
	HintCost       int    `json:"hint_cost"`
	PasswordNeeded bool   `json:"password"`
}

// MessageKind classifies a chat line for display formatting.
type MessageKind int

const (
	MessagePlain MessageKind = iota
	MessageItemSend
	MessageItemReceive
	MessageHint
)

// Message is one chat line with the fields display formatting needs pulled
// out. Item and Location hold the raw text of the corresponding message
// parts; player slots are resolved to aliases before delivery.
type Message struct {
	Kind       MessageKind
	Text       string
	Item       string
	SendPlayer string
	RecvPlayer string
	Location   string
	Checked    bool
}

// Handler receives the events drained by Connection.Pump. Methods run on
// the goroutine that called Pump.
type Handler interface {
	ItemReceived(item NetworkItem, index int, notify bool)
	LocationChecked(id int64)
	LocationInfo(items []NetworkItem)
	SlotData(data map[string]json.RawMessage)
	Message(msg Message)
}

// Connection is the narrow surface the session drives.
type Connection interface {
	Status() Status
	Room() RoomInfo

	SendLocationChecks(ids ...int64)
	SendLocationScouts(ids []int64, createAsHint int)
	Say(text string)
	CompleteGoal()
	Set(key string, perSlot bool, value int)

	SendDeathLink(cause string)
	ClearDeathLink()
	DeathLinkPending() bool

	Pump(h Handler)
	Close() error
}

// ===== wire shapes ==========================================================

type packet struct {
	Cmd string `json:"cmd"`

	// RoomInfo
	SeedName string          `json:"seed_name,omitempty"`
	HintCost int             `json:"hint_cost,omitempty"`
	Password json.RawMessage `json:"password,omitempty"`

	// Connected / ConnectionRefused
	Slot             int                        `json:"slot,omitempty"`
	Team             int                        `json:"team,omitempty"`
	Players          []playerInfo               `json:"players,omitempty"`
	CheckedLocations []int64                    `json:"checked_locations,omitempty"`
	SlotData         map[string]json.RawMessage `json:"slot_data,omitempty"`
	Errors           []string                   `json:"errors,omitempty"`

	// ReceivedItems / LocationInfo
	Index     int           `json:"index,omitempty"`
	Items     []NetworkItem `json:"items,omitempty"`
	Locations []NetworkItem `json:"locations,omitempty"`

	// PrintJSON / Bounced. Data is a part array for PrintJSON and an
	// object for Bounced, so it stays raw until the cmd is known.
	Type      string          `json:"type,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Receiving int             `json:"receiving,omitempty"`
	ItemSent  *NetworkItem    `json:"item,omitempty"`
	Found     *bool           `json:"found,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
}

type playerInfo struct {
	Team  int    `json:"team"`
	Slot  int    `json:"slot"`
	Alias string `json:"alias"`
	Name  string `json:"name"`
}

type messagePart struct {
	Type  string `json:"type,omitempty"`
	Text  string `json:"text,omitempty"`
	Color string `json:"color,omitempty"`
}

type connectPacket struct {
	Cmd           string         `json:"cmd"`
	Password      string         `json:"password"`
	Game          string         `json:"game"`
	Name          string         `json:"name"`
	UUID          string         `json:"uuid"`
	Version       networkVersion `json:"version"`
	ItemsHandling int            `json:"items_handling"`
	Tags          []string       `json:"tags"`
	SlotData      bool           `json:"slot_data"`
}

type networkVersion struct {
	Major int    `json:"major"`
	Minor int    `json:"minor"`
	Build int    `json:"build"`
	Class string `json:"class"`
}

var protocolVersion = networkVersion{Major: 0, Minor: 4, Build: 2, Class: "Version"}

// itemsHandlingFull asks the server to replay our own items and starting
// inventory, not just remote grants.
const itemsHandlingFull = 0b111

type locationChecksPacket struct {
	Cmd       string  `json:"cmd"`
	Locations []int64 `json:"locations"`
}

type locationScoutsPacket struct {
	Cmd          string  `json:"cmd"`
	Locations    []int64 `json:"locations"`
	CreateAsHint int     `json:"create_as_hint"`
}

type sayPacket struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text"`
}

type statusUpdatePacket struct {
	Cmd    string `json:"cmd"`
	Status int    `json:"status"`
}

// clientStatusGoal tells the room this slot finished its goal.
const clientStatusGoal = 30

type setPacket struct {
	Cmd        string         `json:"cmd"`
	Key        string         `json:"key"`
	Default    int            `json:"default"`
	WantReply  bool           `json:"want_reply"`
	Operations []setOperation `json:"operations"`
}

type setOperation struct {
	Operation string `json:"operation"`
	Value     int    `json:"value"`
}

type bouncePacket struct {
	Cmd  string         `json:"cmd"`
	Tags []string       `json:"tags"`
	Data map[string]any `json:"data"`
}
