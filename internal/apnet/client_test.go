package apnet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// testServer runs a scripted room: it greets with RoomInfo, waits for the
// Connect packet, then plays the queued payloads.
type testServer struct {
	t        *testing.T
	server   *httptest.Server
	payloads []string
	connects chan connectPacket
}

func newTestServer(t *testing.T, payloads ...string) *testServer {
	t.Helper()
	ts := &testServer{t: t, payloads: payloads, connects: make(chan connectPacket, 1)}
	upgrader := websocket.Upgrader{}
	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		greeting := `[{"cmd": "RoomInfo", "seed_name": "seed123", "password": false}]`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(greeting)); err != nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var batch []connectPacket
		if err := json.Unmarshal(data, &batch); err != nil || len(batch) == 0 {
			t.Errorf("bad connect payload %s", data)
			return
		}
		ts.connects <- batch[0]

		for _, payload := range ts.payloads {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				return
			}
		}
		// Hold the socket open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) dial(t *testing.T) *Client {
	t.Helper()
	address := "ws://" + strings.TrimPrefix(ts.server.URL, "http://")
	client, err := Dial(Options{
		Address:  address,
		Game:     "Small Game",
		SlotName: "Player1",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func waitStatus(t *testing.T, c *Client, want Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status = %v, want %v", c.Status(), want)
}

// recorder collects pumped events in arrival order.
type recorder struct {
	events   []string
	items    []NetworkItem
	notifies []bool
	scouts   []NetworkItem
	slotData map[string]json.RawMessage
	messages []Message
}

func (r *recorder) ItemReceived(item NetworkItem, index int, notify bool) {
	r.events = append(r.events, "item")
	r.items = append(r.items, item)
	r.notifies = append(r.notifies, notify)
}

func (r *recorder) LocationChecked(id int64) {
	r.events = append(r.events, "checked")
}

func (r *recorder) LocationInfo(items []NetworkItem) {
	r.events = append(r.events, "scout")
	r.scouts = append(r.scouts, items...)
}

func (r *recorder) SlotData(data map[string]json.RawMessage) {
	r.events = append(r.events, "slotdata")
	r.slotData = data
}

func (r *recorder) Message(msg Message) {
	r.events = append(r.events, "message")
	r.messages = append(r.messages, msg)
}

func pumpUntil(t *testing.T, c *Client, r *recorder, count int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.Pump(r)
		if len(r.events) >= count {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("pumped %d events, want %d: %v", len(r.events), count, r.events)
}

const connectedPayload = `[{
	"cmd": "Connected", "slot": 1, "team": 0,
	"players": [
		{"team": 0, "slot": 1, "alias": "Player1", "name": "Player1"},
		{"team": 0, "slot": 2, "alias": "Friend", "name": "Player2"}
	],
	"checked_locations": [451000, 451010],
	"slot_data": {"difficulty": 2, "random_monsters": 1}
}]`

func TestHandshake(t *testing.T) {
	ts := newTestServer(t, connectedPayload)
	client := ts.dial(t)
	waitStatus(t, client, StatusAuthenticated)

	connect := <-ts.connects
	if connect.Cmd != "Connect" || connect.Name != "Player1" || connect.Password != "hunter2" {
		t.Fatalf("connect packet = %+v", connect)
	}
	if connect.Game != "Small Game" || connect.ItemsHandling != 0b111 || !connect.SlotData {
		t.Fatalf("connect packet = %+v", connect)
	}

	if room := client.Room(); room.SeedName != "seed123" {
		t.Fatalf("room = %+v", room)
	}

	// Slot data must land before the checked-location replay.
	rec := &recorder{}
	pumpUntil(t, client, rec, 3)
	want := []string{"slotdata", "checked", "checked"}
	for i, event := range want {
		if rec.events[i] != event {
			t.Fatalf("event order = %v, want %v", rec.events, want)
		}
	}
	if string(rec.slotData["difficulty"]) != "2" {
		t.Fatalf("slot data = %v", rec.slotData)
	}
}

func TestConnectedEventsQueuedBeforeAuthenticated(t *testing.T) {
	c := &Client{
		status:  StatusConnecting,
		aliases: make(map[int]string),
		events:  make(chan func(Handler), eventBuffer),
		done:    make(chan struct{}),
	}
	pkt := packet{
		Cmd:              "Connected",
		Slot:             1,
		Players:          []playerInfo{{Team: 0, Slot: 1, Name: "Player1"}},
		CheckedLocations: []int64{451000, 451010},
		SlotData:         map[string]json.RawMessage{"difficulty": json.RawMessage("2")},
	}
	go c.handleConnected(pkt)

	waitStatus(t, c, StatusAuthenticated)

	// A single pump issued the instant the status flips must already see
	// the whole handshake; the session only pumps once before it reads
	// slot configuration.
	rec := &recorder{}
	c.Pump(rec)
	want := []string{"slotdata", "checked", "checked"}
	if len(rec.events) != len(want) {
		t.Fatalf("events after authentication = %v, want %v", rec.events, want)
	}
	for i, event := range want {
		if rec.events[i] != event {
			t.Fatalf("event order = %v, want %v", rec.events, want)
		}
	}
}

func TestConnectionRefused(t *testing.T) {
	ts := newTestServer(t, `[{"cmd": "ConnectionRefused", "errors": ["InvalidSlot"]}]`)
	client := ts.dial(t)
	waitStatus(t, client, StatusRefused)
}

func TestReceivedItemsNotifyFlag(t *testing.T) {
	ts := newTestServer(t,
		connectedPayload,
		`[{"cmd": "ReceivedItems", "index": 0, "items": [
			{"item": 371000, "location": 451000, "player": 2, "flags": 1},
			{"item": 371001, "location": 451001, "player": 2, "flags": 0}
		]}]`,
		`[{"cmd": "ReceivedItems", "index": 2, "items": [
			{"item": 371002, "location": 451020, "player": 1, "flags": 0}
		]}]`,
	)
	client := ts.dial(t)
	waitStatus(t, client, StatusAuthenticated)

	rec := &recorder{}
	pumpUntil(t, client, rec, 6)

	if len(rec.items) != 3 {
		t.Fatalf("item count = %d", len(rec.items))
	}
	// The index-0 replay restores silently; later packets announce.
	if rec.notifies[0] || rec.notifies[1] || !rec.notifies[2] {
		t.Fatalf("notify flags = %v", rec.notifies)
	}
	if rec.items[0].Item != 371000 || rec.items[0].Flags != FlagProgression {
		t.Fatalf("first item = %+v", rec.items[0])
	}
}

func TestLocationInfoAndRoomUpdate(t *testing.T) {
	ts := newTestServer(t,
		connectedPayload,
		`[{"cmd": "LocationInfo", "locations": [
			{"item": 371002, "location": 451001, "player": 2, "flags": 1}
		]}]`,
		`[{"cmd": "RoomUpdate", "checked_locations": [451020]}]`,
	)
	client := ts.dial(t)
	waitStatus(t, client, StatusAuthenticated)

	rec := &recorder{}
	pumpUntil(t, client, rec, 5)
	if len(rec.scouts) != 1 || rec.scouts[0].Location != 451001 {
		t.Fatalf("scout results = %+v", rec.scouts)
	}
	if rec.events[len(rec.events)-1] != "checked" {
		t.Fatalf("events = %v", rec.events)
	}
}

func TestPrintJSONRendering(t *testing.T) {
	ts := newTestServer(t,
		connectedPayload,
		`[{
			"cmd": "PrintJSON", "type": "ItemSend", "receiving": 2,
			"item": {"item": 371000, "location": 451000, "player": 1, "flags": 0},
			"data": [
				{"type": "player_id", "text": "2"},
				{"text": " received "},
				{"type": "item_id", "text": "371000"}
			]
		}]`,
		`[{
			"cmd": "PrintJSON", "type": "ItemSend", "receiving": 1,
			"item": {"item": 371001, "location": 451010, "player": 2, "flags": 0},
			"data": [{"type": "item_id", "text": "371001"}]
		}]`,
		`[{"cmd": "PrintJSON", "data": [{"text": "Player3 has joined"}]}]`,
	)
	client := ts.dial(t)
	waitStatus(t, client, StatusAuthenticated)

	rec := &recorder{}
	pumpUntil(t, client, rec, 6)
	if len(rec.messages) != 3 {
		t.Fatalf("message count = %d", len(rec.messages))
	}

	sent := rec.messages[0]
	if sent.Kind != MessageItemSend || sent.RecvPlayer != "Friend" || sent.Item != "371000" {
		t.Fatalf("send message = %+v", sent)
	}
	if sent.Text != "Friend received 371000" {
		t.Fatalf("send text = %q", sent.Text)
	}

	received := rec.messages[1]
	if received.Kind != MessageItemReceive || received.SendPlayer != "Friend" {
		t.Fatalf("receive message = %+v", received)
	}

	plain := rec.messages[2]
	if plain.Kind != MessagePlain || plain.Text != "Player3 has joined" {
		t.Fatalf("plain message = %+v", plain)
	}
}

func TestDeathLinkBounce(t *testing.T) {
	ts := newTestServer(t,
		connectedPayload,
		`[{"cmd": "Bounced", "tags": ["DeathLink"], "data": {"source": "Friend", "cause": "fell"}}]`,
	)
	client := ts.dial(t)
	waitStatus(t, client, StatusAuthenticated)

	deadline := time.Now().Add(5 * time.Second)
	for !client.DeathLinkPending() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !client.DeathLinkPending() {
		t.Fatalf("death link never flagged")
	}
	client.ClearDeathLink()
	if client.DeathLinkPending() {
		t.Fatalf("death link still pending after clear")
	}
}

func TestDeathLinkIgnoresOwnBounce(t *testing.T) {
	ts := newTestServer(t,
		connectedPayload,
		`[{"cmd": "Bounced", "tags": ["DeathLink"], "data": {"source": "Player1", "cause": "fell"}}]`,
		`[{"cmd": "PrintJSON", "data": [{"text": "done"}]}]`,
	)
	client := ts.dial(t)
	waitStatus(t, client, StatusAuthenticated)

	// Wait for the trailing message so the bounce has been handled.
	rec := &recorder{}
	pumpUntil(t, client, rec, 4)
	if client.DeathLinkPending() {
		t.Fatalf("own death bounced back as remote")
	}
}

func TestPumpIsNonBlocking(t *testing.T) {
	ts := newTestServer(t, connectedPayload)
	client := ts.dial(t)
	waitStatus(t, client, StatusAuthenticated)

	rec := &recorder{}
	pumpUntil(t, client, rec, 3)

	done := make(chan struct{})
	go func() {
		client.Pump(rec)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("pump blocked on an empty queue")
	}
}
