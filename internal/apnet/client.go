package apnet

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second

	// eventBuffer bounds how many server events can queue between pumps.
	eventBuffer = 4096
)

// Options configure a dialed client.
type Options struct {
	Address  string
	Game     string
	SlotName string
	Password string
}

// Client is the live websocket connection. All exported methods are safe
// for concurrent use; handler events queue until Pump drains them.
type Client struct {
	opts Options
	uuid string

	mu      sync.Mutex
	conn    *websocket.Conn
	status  Status
	room    RoomInfo
	slot    int
	team    int
	aliases map[int]string

	deathMu      sync.Mutex
	deathPending bool

	events chan func(Handler)
	done   chan struct{}
}

var _ Connection = (*Client)(nil)

// Dial opens the websocket and starts the handshake. The returned client is
// not yet authenticated; poll Status until it settles.
func Dial(opts Options) (*Client, error) {
	conn, err := dialWebsocket(opts.Address)
	if err != nil {
		return nil, fmt.Errorf("apnet: dial %s: %w", opts.Address, err)
	}

	c := &Client{
		opts:    opts,
		uuid:    randomUUID(),
		conn:    conn,
		status:  StatusConnecting,
		aliases: make(map[int]string),
		events:  make(chan func(Handler), eventBuffer),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// dialWebsocket tries TLS first and falls back to plaintext, matching how
// rooms are typically hosted.
func dialWebsocket(address string) (*websocket.Conn, error) {
	if strings.Contains(address, "://") {
		conn, _, err := websocket.DefaultDialer.Dial(address, nil)
		return conn, err
	}
	conn, _, err := websocket.DefaultDialer.Dial("wss://"+address, nil)
	if err == nil {
		return conn, nil
	}
	conn, _, plainErr := websocket.DefaultDialer.Dial("ws://"+address, nil)
	if plainErr != nil {
		return nil, errors.Join(err, plainErr)
	}
	return conn, nil
}

func randomUUID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "00000000000000000000000000000000"
	}
	return hex.EncodeToString(buf[:])
}

// Status returns the current handshake state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Room returns the server greeting. Zero until the handshake reaches it.
func (c *Client) Room() RoomInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.status = StatusDisconnected
	return err
}

// Pump drains every queued server event into the handler. Non-blocking.
func (c *Client) Pump(h Handler) {
	for {
		select {
		case fn := <-c.events:
			fn(h)
		default:
			return
		}
	}
}

// ===== outbound =============================================================

func (c *Client) send(payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	data, err := json.Marshal([]any{payload})
	if err != nil {
		log.Printf("apnet: marshal outbound packet: %v", err)
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("apnet: write: %v", err)
	}
}

// SendLocationChecks reports checked locations. Fire-and-forget: the state
// change lands when the server echoes a checked event back.
func (c *Client) SendLocationChecks(ids ...int64) {
	if len(ids) == 0 {
		return
	}
	c.send(locationChecksPacket{Cmd: "LocationChecks", Locations: ids})
}

// SendLocationScouts asks what the given locations hold without checking
// them.
func (c *Client) SendLocationScouts(ids []int64, createAsHint int) {
	if len(ids) == 0 {
		return
	}
	c.send(locationScoutsPacket{Cmd: "LocationScouts", Locations: ids, CreateAsHint: createAsHint})
}

// Say sends a chat line.
func (c *Client) Say(text string) {
	c.send(sayPacket{Cmd: "Say", Text: text})
}

// CompleteGoal reports this slot's goal as finished.
func (c *Client) CompleteGoal() {
	c.send(statusUpdatePacket{Cmd: "StatusUpdate", Status: clientStatusGoal})
}

// Set stores a counter in the server's data storage. Per-slot keys are
// namespaced by game and slot number so slots never collide.
func (c *Client) Set(key string, perSlot bool, value int) {
	if perSlot {
		c.mu.Lock()
		key = fmt.Sprintf("%s_%d_%s", c.opts.Game, c.slot, key)
		c.mu.Unlock()
	}
	c.send(setPacket{
		Cmd:        "Set",
		Key:        key,
		WantReply:  false,
		Operations: []setOperation{{Operation: "replace", Value: value}},
	})
}

// SendDeathLink broadcasts this player's death to linked slots.
func (c *Client) SendDeathLink(cause string) {
	c.mu.Lock()
	source := c.aliases[c.slot]
	c.mu.Unlock()
	c.send(bouncePacket{
		Cmd:  "Bounce",
		Tags: []string{"DeathLink"},
		Data: map[string]any{
			"time":   float64(time.Now().UnixMilli()) / 1000.0,
			"cause":  cause,
			"source": source,
		},
	})
}

// ClearDeathLink forgets a pending remote death.
func (c *Client) ClearDeathLink() {
	c.deathMu.Lock()
	c.deathPending = false
	c.deathMu.Unlock()
}

// DeathLinkPending reports whether a linked slot died since the last clear.
func (c *Client) DeathLinkPending() bool {
	c.deathMu.Lock()
	defer c.deathMu.Unlock()
	return c.deathPending
}

// ===== inbound ==============================================================

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.status == StatusConnecting {
				c.status = StatusRefused
			} else if c.status != StatusRefused {
				c.status = StatusDisconnected
			}
			c.mu.Unlock()
			return
		}

		var packets []packet
		if err := json.Unmarshal(data, &packets); err != nil {
			log.Printf("apnet: malformed server payload: %v", err)
			continue
		}
		for _, pkt := range packets {
			c.handle(pkt)
		}
	}
}

func (c *Client) handle(pkt packet) {
	switch pkt.Cmd {
	case "RoomInfo":
		c.handleRoomInfo(pkt)
	case "Connected":
		c.handleConnected(pkt)
	case "ConnectionRefused":
		c.mu.Lock()
		c.status = StatusRefused
		c.mu.Unlock()
		log.Printf("apnet: connection refused: %s", strings.Join(pkt.Errors, ", "))
	case "ReceivedItems":
		c.handleReceivedItems(pkt)
	case "RoomUpdate":
		for _, id := range pkt.CheckedLocations {
			id := id
			c.queue(func(h Handler) { h.LocationChecked(id) })
		}
	case "LocationInfo":
		items := pkt.Locations
		c.queue(func(h Handler) { h.LocationInfo(items) })
	case "PrintJSON":
		c.handlePrintJSON(pkt)
	case "Bounced":
		c.handleBounced(pkt)
	}
}

func (c *Client) handleRoomInfo(pkt packet) {
	room := RoomInfo{SeedName: pkt.SeedName, HintCost: pkt.HintCost}
	if len(pkt.Password) > 0 {
		json.Unmarshal(pkt.Password, &room.PasswordNeeded)
	}
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()

	c.send(connectPacket{
		Cmd:           "Connect",
		Password:      c.opts.Password,
		Game:          c.opts.Game,
		Name:          c.opts.SlotName,
		UUID:          c.uuid,
		Version:       protocolVersion,
		ItemsHandling: itemsHandlingFull,
		Tags:          []string{},
		SlotData:      true,
	})
}

func (c *Client) handleConnected(pkt packet) {
	c.mu.Lock()
	c.slot = pkt.Slot
	c.team = pkt.Team
	for _, player := range pkt.Players {
		if player.Team != pkt.Team {
			continue
		}
		alias := player.Alias
		if alias == "" {
			alias = player.Name
		}
		c.aliases[player.Slot] = alias
	}
	c.mu.Unlock()

	// Slot data first so overrides apply before any state mutates. Both
	// queue before the status flips: a caller that sees Authenticated must
	// find them on its very first pump.
	if pkt.SlotData != nil {
		data := pkt.SlotData
		c.queue(func(h Handler) { h.SlotData(data) })
	}
	for _, id := range pkt.CheckedLocations {
		id := id
		c.queue(func(h Handler) { h.LocationChecked(id) })
	}

	c.mu.Lock()
	c.status = StatusAuthenticated
	c.mu.Unlock()
}

func (c *Client) handleReceivedItems(pkt packet) {
	// Index 0 is the full replay after connecting; those grants restore
	// state silently instead of announcing each item again.
	notify := pkt.Index != 0
	for offset, item := range pkt.Items {
		item, index := item, pkt.Index+offset
		c.queue(func(h Handler) { h.ItemReceived(item, index, notify) })
	}
}

func (c *Client) handlePrintJSON(pkt packet) {
	var parts []messagePart
	if len(pkt.Data) > 0 {
		if err := json.Unmarshal(pkt.Data, &parts); err != nil {
			log.Printf("apnet: malformed message parts: %v", err)
			return
		}
	}

	c.mu.Lock()
	ownSlot := c.slot
	aliases := c.aliases
	msg := Message{Kind: MessagePlain}
	var text strings.Builder
	for _, part := range parts {
		segment := part.Text
		switch part.Type {
		case "player_id":
			var slot int
			fmt.Sscanf(part.Text, "%d", &slot)
			if alias, ok := aliases[slot]; ok {
				segment = alias
			}
		case "item_id":
			// No datapackage: item ids pass through as raw text.
			msg.Item = segment
		case "location_id":
			msg.Location = segment
		}
		text.WriteString(segment)
	}
	msg.Text = text.String()

	switch pkt.Type {
	case "ItemSend", "ItemCheat":
		if pkt.ItemSent != nil {
			if pkt.Receiving == ownSlot {
				msg.Kind = MessageItemReceive
				msg.SendPlayer = aliases[pkt.ItemSent.Player]
			} else if pkt.ItemSent.Player == ownSlot {
				msg.Kind = MessageItemSend
				msg.RecvPlayer = aliases[pkt.Receiving]
			}
		}
	case "Hint":
		msg.Kind = MessageHint
		if pkt.ItemSent != nil {
			msg.SendPlayer = aliases[pkt.ItemSent.Player]
		}
		msg.RecvPlayer = aliases[pkt.Receiving]
		if pkt.Found != nil {
			msg.Checked = *pkt.Found
		}
	}
	c.mu.Unlock()

	c.queue(func(h Handler) { h.Message(msg) })
}

func (c *Client) handleBounced(pkt packet) {
	for _, tag := range pkt.Tags {
		if tag != "DeathLink" {
			continue
		}
		var data struct {
			Source string `json:"source"`
		}
		if len(pkt.Data) > 0 {
			json.Unmarshal(pkt.Data, &data)
		}
		c.mu.Lock()
		own := c.aliases[c.slot]
		c.mu.Unlock()
		if data.Source == own {
			continue
		}
		c.deathMu.Lock()
		c.deathPending = true
		c.deathMu.Unlock()
	}
}

func (c *Client) queue(fn func(Handler)) {
	select {
	case c.events <- fn:
	default:
		log.Printf("apnet: event queue full, dropping event")
	}
}
