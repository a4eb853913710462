package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Upgrader is shared by the websocket endpoints
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var errBufferFull = errors.New("websocket send buffer full")

// Message types exchanged with clients
const (
	TypeSpeak  = "speak"
	TypeVoices = "voices"
	TypeVoice  = "voice"
)

type speakMessage struct {
	Type   string  `json:"type"`
	Text   string  `json:"text"`
	Voice  string  `json:"voice,omitempty"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

type envelope struct {
	Type   string  `json:"type"`
	Voices []Voice `json:"voices,omitempty"`
}

// Handler receives client messages the hub does not consume itself
type Handler func(c *Client, msg []byte)

// Hub keeps the connected clients and speaks replies to them
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	settings Settings
	logger   *zap.Logger
}

func NewHub(settings Settings, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:  make(map[string]*Client),
		settings: settings,
		logger:   logger,
	}
}

// Client is one websocket connection
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	voice  string
	closed bool
}

type clientKey struct{}

// WithClient directs Speak calls made with ctx to a single client
func WithClient(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientKey{}, clientID)
}

func clientFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clientKey{}).(string)
	return id, ok && id != ""
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Speak sends text to the client named in ctx, or to every client.
// Clients that cannot keep up are dropped.
func (h *Hub) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	var targets []*Client
	if id, ok := clientFrom(ctx); ok {
		if c, found := h.clients[id]; found {
			targets = append(targets, c)
		}
	} else {
		for _, c := range h.clients {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		msg := speakMessage{
			Type:   TypeSpeak,
			Text:   text,
			Voice:  c.Voice(),
			Rate:   h.settings.Rate,
			Pitch:  h.settings.Pitch,
			Volume: h.settings.Volume,
		}
		if err := c.Send(msg); err != nil {
			h.logger.Debug("dropping speech client", zap.String("client", c.ID), zap.Error(err))
			h.remove(c)
		}
	}
	return nil
}

// Serve registers conn and runs its pumps until the connection closes.
// It blocks, so callers run it on the handler goroutine.
func (h *Hub) Serve(conn *websocket.Conn, handler Handler) {
	c := &Client{
		ID:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("speech client connected", zap.String("client", c.ID))

	go c.writePump()
	c.readPump(handler)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
	}
	h.mu.Unlock()
	c.close()
}

// Voice returns the voice selected for the client
func (c *Client) Voice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voice
}

// Send queues v as a JSON text message
func (c *Client) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errBufferFull
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump(handler Handler) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket closed", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err == nil && env.Type == TypeVoices {
			voice := SelectVoice(env.Voices)
			c.mu.Lock()
			c.voice = voice
			c.mu.Unlock()
			_ = c.Send(map[string]string{"type": TypeVoice, "voice": voice})
			continue
		}
		if handler != nil {
			handler(c, message)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.remove(c)
				return
			}
		}
	}
}
