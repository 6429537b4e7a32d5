package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"elixir/internal/middleware"
	"elixir/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origins are already restricted by CORS on the API
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the JSON frame pushed to clients.
type Event struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type message struct {
	payload []byte
	roles   map[string]bool // empty means every connected client
	usuario uuid.UUID       // when set, only that user's connections
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	Rol       string
	UsuarioID uuid.UUID
}

// Hub maintains the set of active clients and fans out events filtered by role
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the dispatch loop. It never returns.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Debug().Str("rol", client.Rol).Msg("websocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Debug().Str("rol", client.Rol).Msg("websocket client disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if len(msg.roles) > 0 && !msg.roles[client.Rol] {
					continue
				}
				if msg.usuario != uuid.Nil && msg.usuario != client.UsuarioID {
					continue
				}
				select {
				case client.Send <- msg.payload:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues an event for the clients whose role is in roles, or for
// everyone when roles is empty. It never blocks the caller.
func (h *Hub) Publish(event string, data interface{}, roles ...string) {
	msg, ok := newMessage(event, data)
	if !ok {
		return
	}
	if len(roles) > 0 {
		msg.roles = make(map[string]bool, len(roles))
		for _, r := range roles {
			msg.roles[r] = true
		}
	}
	h.enqueue(event, msg)
}

// PublishToUser queues an event for every connection opened by one user.
func (h *Hub) PublishToUser(usuarioID uuid.UUID, event string, data interface{}) {
	if usuarioID == uuid.Nil {
		return
	}
	msg, ok := newMessage(event, data)
	if !ok {
		return
	}
	msg.usuario = usuarioID
	h.enqueue(event, msg)
}

func newMessage(event string, data interface{}) (message, bool) {
	payload, err := json.Marshal(Event{Event: event, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("websocket: marshal event")
		return message{}, false
	}
	return message{payload: payload}, true
}

func (h *Hub) enqueue(event string, msg message) {
	select {
	case h.broadcast <- msg:
	default:
		log.Warn().Str("event", event).Msg("websocket: broadcast buffer full, event dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump keeps the connection alive and detects disconnects.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("websocket: unexpected close")
			}
			break
		}
	}
}

// ServeWs authenticates the token query parameter and upgrades staff users.
func ServeWs(hub *Hub, c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := middleware.ParseToken(tokenString)
	if err != nil {
		log.Debug().Err(err).Msg("websocket connection rejected: invalid token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if !model.EsStaff(claims.Rol) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), Rol: claims.Rol, UsuarioID: claims.UserID}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
