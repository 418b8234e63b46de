package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Frames waiting for the hub loop before new ones are dropped.
	broadcastBuffer = 256
)

// Events sent to clients
const (
	EventFrame   = "frame"
	EventSummary = "summary"
	EventQueued  = "queued"
	EventError   = "error"
)

// FormatMsgpack selects binary msgpack frames for a client
const FormatMsgpack = "msgpack"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is what the hub sends to clients
type Message struct {
	Location string           `json:"location"`
	Event    string           `json:"event"`
	Frame    *service.Frame   `json:"frame,omitempty"`
	Summary  *service.Summary `json:"summary,omitempty"`
	Queued   bool             `json:"queued,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// InputMessage is what clients send. player_id may be a string or a number.
type InputMessage struct {
	PlayerID interface{} `json:"player_id"`
	Action   string      `json:"action"`
}

// InputHandler receives decoded client input
type InputHandler func(ctx context.Context, location string, in service.Input) (bool, error)

// Client represents a WebSocket client
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	location string
	binary   bool
}

type directMessage struct {
	client  *Client
	message *Message
}

// Hub maintains the set of active clients per location and broadcasts
// round frames to them. All client bookkeeping happens inside Run.
type Hub struct {
	// Registered clients by location
	locations map[string]map[*Client]bool

	broadcast  chan *Message
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	closeOnce  sync.Once

	inputMu sync.RWMutex
	input   InputHandler
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		locations:  make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		direct:     make(chan directMessage, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// SetInputHandler routes client input, typically to GameService.SendInput
func (h *Hub) SetInputHandler(handler InputHandler) {
	h.inputMu.Lock()
	defer h.inputMu.Unlock()
	h.input = handler
}

func (h *Hub) inputHandler() InputHandler {
	h.inputMu.RLock()
	defer h.inputMu.RUnlock()
	return h.input
}

// Run starts the hub's event loop. It returns after Close.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case dm := <-h.direct:
			if h.locations[dm.client.location][dm.client] {
				h.deliver(dm.client, dm.message)
			}

		case <-h.quit:
			for _, clients := range h.locations {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return
		}
	}
}

// Close stops Run and disconnects every client
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.quit)
	})
}

// ServeWS upgrades the request and attaches the client to a location.
// ?format=msgpack switches the client to binary frames.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, location string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		location: location,
		binary:   r.URL.Query().Get("format") == FormatMsgpack,
	}

	select {
	case h.register <- client:
	case <-h.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Publish implements service.Sink. It never blocks the round.
func (h *Hub) Publish(frame *service.Frame) {
	h.enqueue(&Message{Location: frame.Location, Event: EventFrame, Frame: frame})
}

// Conclude implements service.Sink
func (h *Hub) Conclude(summary *service.Summary) {
	h.enqueue(&Message{Location: summary.Location, Event: EventSummary, Summary: summary})
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		log.Warn().Str("location", message.Location).Str("event", message.Event).Msg("Hub backlog full, dropping message")
	}
}

// registerClient adds a client to a location
func (h *Hub) registerClient(client *Client) {
	if h.locations[client.location] == nil {
		h.locations[client.location] = make(map[*Client]bool)
	}
	h.locations[client.location][client] = true

	log.Debug().
		Str("location", client.location).
		Int("clients", len(h.locations[client.location])).
		Msg("Client registered")
}

// unregisterClient removes a client from a location
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.locations[client.location]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.locations, client.location)
			}

			log.Debug().
				Str("location", client.location).
				Int("clients", len(clients)).
				Msg("Client unregistered")
		}
	}
}

// broadcastMessage sends a message to every client at its location,
// encoding it at most once per format
func (h *Hub) broadcastMessage(message *Message) {
	clients, ok := h.locations[message.Location]
	if !ok {
		return
	}

	var encoded [2][]byte
	for client := range clients {
		format := 0
		if client.binary {
			format = 1
		}
		if encoded[format] == nil {
			data, err := encode(message, client.binary)
			if err != nil {
				log.Error().Err(err).Str("event", message.Event).Msg("Failed to encode message")
				return
			}
			encoded[format] = data
		}

		select {
		case client.send <- encoded[format]:
		default:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) deliver(client *Client, message *Message) {
	data, err := encode(message, client.binary)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode reply")
		return
	}
	select {
	case client.send <- data:
	default:
		h.unregisterClient(client)
	}
}

// reply queues a message for a single client through the hub loop
func (h *Hub) reply(client *Client, message *Message) {
	select {
	case h.direct <- directMessage{client: client, message: message}:
	case <-h.quit:
	}
}

// encode renders a message as JSON text or msgpack using the JSON field names
func encode(message *Message, binary bool) ([]byte, error) {
	if !binary {
		return json.Marshal(message)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(message); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeInput parses a client message into an input event
func decodeInput(data []byte, binary bool) (service.Input, error) {
	var msg InputMessage
	var err error
	if binary {
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		err = dec.Decode(&msg)
	} else {
		err = json.Unmarshal(data, &msg)
	}
	if err != nil {
		return service.Input{}, err
	}

	id, err := cast.ToUint64E(msg.PlayerID)
	if err != nil {
		return service.Input{}, err
	}
	var action engine.Action
	if err := action.UnmarshalText([]byte(msg.Action)); err != nil {
		return service.Input{}, err
	}
	return service.Input{PlayerID: id, Action: action}, nil
}

// readPump pumps input from the WebSocket connection to the input handler
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("location", c.location).Msg("WebSocket error")
			}
			break
		}

		in, err := decodeInput(data, c.binary)
		if err != nil {
			c.hub.reply(c, &Message{Location: c.location, Event: EventError, Error: err.Error()})
			continue
		}

		handler := c.hub.inputHandler()
		if handler == nil {
			continue
		}
		queued, err := handler(context.Background(), c.location, in)
		if err != nil {
			c.hub.reply(c, &Message{Location: c.location, Event: EventError, Error: err.Error()})
			continue
		}
		c.hub.reply(c, &Message{Location: c.location, Event: EventQueued, Queued: queued})
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	messageType := websocket.TextMessage
	if c.binary {
		messageType = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(messageType, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
