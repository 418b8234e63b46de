package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.locations == nil {
		t.Error("Hub locations map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil || hub.direct == nil {
		t.Error("Hub channels must be initialized")
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	client1 := &Client{hub: hub, location: "general", send: make(chan []byte, 256)}
	client2 := &Client{hub: hub, location: "general", send: make(chan []byte, 256)}

	hub.registerClient(client1)
	hub.registerClient(client2)
	if len(hub.locations["general"]) != 2 {
		t.Errorf("Expected 2 clients, got %d", len(hub.locations["general"]))
	}

	hub.unregisterClient(client1)
	if !hub.locations["general"][client2] || len(hub.locations["general"]) != 1 {
		t.Error("Expected only client2 to remain")
	}
	if _, ok := <-client1.send; ok {
		t.Error("Expected client1 send channel to be closed")
	}

	hub.unregisterClient(client2)
	if _, exists := hub.locations["general"]; exists {
		t.Error("Location should be cleaned up after its last client left")
	}

	// second unregister is a no-op
	hub.unregisterClient(client2)
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub()
	here := &Client{hub: hub, location: "general", send: make(chan []byte, 256)}
	elsewhere := &Client{hub: hub, location: "random", send: make(chan []byte, 256)}
	hub.registerClient(here)
	hub.registerClient(elsewhere)

	hub.broadcastMessage(&Message{
		Location: "general",
		Event:    EventFrame,
		Frame:    &service.Frame{Location: "general", Tick: 3, Board: "--O"},
	})

	select {
	case data := <-here.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Event != EventFrame || message.Frame.Tick != 3 || message.Frame.Board != "--O" {
			t.Errorf("Unexpected message %+v", message)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No message received within timeout")
	}

	if len(elsewhere.send) != 0 {
		t.Error("Clients at other locations must not receive the frame")
	}
}

func TestHubSlowClientDropped(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, location: "general", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{Location: "general", Event: EventFrame, Frame: &service.Frame{}})

	if _, exists := hub.locations["general"]; exists {
		t.Error("Expected a client with a full send buffer to be unregistered")
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.Publish(&service.Frame{Location: "general", Tick: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
}

func TestDecodeInput(t *testing.T) {
	packed, _ := msgpack.Marshal(map[string]interface{}{"player_id": 12, "action": "left"})

	tests := []struct {
		name     string
		data     []byte
		binary   bool
		expected service.Input
		wantErr  bool
	}{
		{"string id", []byte(`{"player_id":"18446744073709551615","action":"up"}`), false, service.Input{PlayerID: 18446744073709551615, Action: engine.ActionUp}, false},
		{"number id", []byte(`{"player_id":7,"action":"CANCEL"}`), false, service.Input{PlayerID: 7, Action: engine.ActionCancel}, false},
		{"msgpack", packed, true, service.Input{PlayerID: 12, Action: engine.ActionLeft}, false},
		{"bad action", []byte(`{"player_id":"7","action":"jump"}`), false, service.Input{}, true},
		{"bad id", []byte(`{"player_id":"seven","action":"up"}`), false, service.Input{}, true},
		{"not json", []byte(`up`), false, service.Input{}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := decodeInput(test.data, test.binary)
			if (err != nil) != test.wantErr {
				t.Fatalf("Expected error %v, got %v", test.wantErr, err)
			}
			if !test.wantErr && got != test.expected {
				t.Errorf("Expected %+v, got %+v", test.expected, got)
			}
		})
	}
}

// recorder is an InputHandler that records what it receives
type recorder struct {
	mu     sync.Mutex
	inputs []service.Input
}

func (r *recorder) handle(ctx context.Context, location string, in service.Input) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, in)
	return location == "general", nil
}

func startServer(t *testing.T) (*Hub, *recorder, string) {
	t.Helper()
	hub := NewHub()
	rec := &recorder{}
	hub.SetInputHandler(rec.handle)
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("location"))
	}))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return hub, rec, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var message Message
	if err := conn.ReadJSON(&message); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	return message
}

func TestHubIntegrationJSON(t *testing.T) {
	hub, rec, url := startServer(t)
	conn := dial(t, url+"?location=general")

	// the reply proves the client is registered
	conn.WriteMessage(websocket.TextMessage, []byte(`{"player_id":"7","action":"up"}`))
	reply := readJSON(t, conn)
	if reply.Event != EventQueued || !reply.Queued {
		t.Fatalf("Expected queued reply, got %+v", reply)
	}

	rec.mu.Lock()
	if len(rec.inputs) != 1 || rec.inputs[0].PlayerID != 7 || rec.inputs[0].Action != engine.ActionUp {
		t.Errorf("Unexpected inputs %+v", rec.inputs)
	}
	rec.mu.Unlock()

	conn.WriteMessage(websocket.TextMessage, []byte(`{"player_id":"7","action":"sideways"}`))
	if reply := readJSON(t, conn); reply.Event != EventError || reply.Error == "" {
		t.Errorf("Expected error reply, got %+v", reply)
	}

	hub.Publish(&service.Frame{Location: "general", Tick: 5, Board: "-O-"})
	if frame := readJSON(t, conn); frame.Event != EventFrame || frame.Frame.Tick != 5 {
		t.Errorf("Expected frame, got %+v", frame)
	}

	hub.Conclude(&service.Summary{ID: "r1", Location: "general", Outcome: []uint64{7}})
	if summary := readJSON(t, conn); summary.Event != EventSummary || summary.Summary.Outcome[0] != 7 {
		t.Errorf("Expected summary, got %+v", summary)
	}
}

func TestHubIntegrationMsgpack(t *testing.T) {
	hub, _, url := startServer(t)
	conn := dial(t, url+"?location=general&format=msgpack")

	packed, _ := msgpack.Marshal(map[string]interface{}{"player_id": "9", "action": "down"})
	conn.WriteMessage(websocket.BinaryMessage, packed)

	read := func() Message {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read: %v", err)
		}
		if messageType != websocket.BinaryMessage {
			t.Fatalf("Expected a binary frame, got type %d", messageType)
		}
		var message Message
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		if err := dec.Decode(&message); err != nil {
			t.Fatalf("Failed to decode msgpack: %v", err)
		}
		return message
	}

	if reply := read(); reply.Event != EventQueued {
		t.Fatalf("Expected queued reply, got %+v", reply)
	}

	hub.Publish(&service.Frame{
		Location: "general",
		Tick:     2,
		Rankings: []service.RankEntry{{Place: 1, ID: 9, Score: 3, Alive: true}},
	})
	frame := read()
	if frame.Frame == nil || frame.Frame.Tick != 2 || frame.Frame.Rankings[0].ID != 9 {
		t.Errorf("Unexpected frame %+v", frame.Frame)
	}
}

func TestHubClose(t *testing.T) {
	hub, _, url := startServer(t)
	conn := dial(t, url+"?location=general")

	conn.WriteMessage(websocket.TextMessage, []byte(`{"player_id":"1","action":"up"}`))
	readJSON(t, conn)

	hub.Close()
	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to be closed")
	}
}
