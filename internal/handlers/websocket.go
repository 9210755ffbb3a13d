package handlers

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/videocall/internal/middleware"
	"github.com/mossy-p/videocall/internal/models"
	"github.com/mossy-p/videocall/internal/users"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256

	msgAlreadyConnected  = "username already connected"
	msgTargetUnavailable = "target user not connected"
	msgLoginRequired     = "first message must be login"
	msgUnsupported       = "unsupported message type"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Hub tracks the online users and relays messages between them.
type Hub struct {
	jwtSecret string
	presence  users.Presence

	mu      sync.RWMutex
	clients map[string]*Client
	order   []string
}

// Client represents a WebSocket client connection
type Client struct {
	ID   string
	Name string
	Conn *websocket.Conn
	Send chan []byte
}

// NewHub creates a relay hub. presence may be nil.
func NewHub(jwtSecret string, presence users.Presence) *Hub {
	return &Hub{
		jwtSecret: jwtSecret,
		presence:  presence,
		clients:   make(map[string]*Client),
	}
}

// Online returns the connected usernames in the order they logged in.
func (h *Hub) Online() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// HandleSignaling handles GET /ws/signal/:name?token=
func HandleSignaling(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		claims, err := middleware.ParseToken(hub.jwtSecret, c.Query("token"))
		if err != nil || claims.Username != name {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		// Upgrade HTTP connection to WebSocket
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Failed to upgrade connection: %v", err)
			return
		}

		client := &Client{
			ID:   uuid.New().String(),
			Name: name,
			Conn: conn,
			Send: make(chan []byte, sendBufferSize),
		}

		go client.writePump()
		client.readPump(hub)
	}
}

// join registers c under its name. It fails if the name is already online.
func (h *Hub) join(c *Client) bool {
	h.mu.Lock()
	if _, exists := h.clients[c.Name]; exists {
		h.mu.Unlock()
		return false
	}
	h.clients[c.Name] = c
	h.order = append(h.order, c.Name)
	h.mu.Unlock()

	if h.presence != nil {
		if err := h.presence.MarkOnline(context.Background(), c.Name); err != nil {
			log.Printf("Failed to mark %s online: %v", c.Name, err)
		}
	}
	return true
}

// leave removes c and closes its send queue. Closing under the write lock
// guarantees no broadcast is mid-send on the channel.
func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	if h.clients[c.Name] == c {
		delete(h.clients, c.Name)
		for i, n := range h.order {
			if n == c.Name {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	}
	close(c.Send)
	h.mu.Unlock()

	if h.presence != nil {
		if err := h.presence.MarkOffline(context.Background(), c.Name); err != nil {
			log.Printf("Failed to mark %s offline: %v", c.Name, err)
		}
	}
}

func (h *Hub) broadcastUserList() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := models.Encode(models.UserList{Users: append([]string{}, h.order...)})
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	for _, client := range h.clients {
		client.enqueue(data)
	}
}

// sendTo delivers msg to the named user. It reports false if that user is offline.
func (h *Hub) sendTo(name string, msg models.Message) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.clients[name]
	if !exists {
		return false
	}

	data, err := models.Encode(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return true
	}
	client.enqueue(data)
	return true
}

func (c *Client) readPump(hub *Hub) {
	joined := false
	defer func() {
		if joined {
			hub.leave(c)
			hub.broadcastUserList()
			log.Printf("User %s disconnected (conn %s)", c.Name, c.ID)
		} else {
			close(c.Send)
		}
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The first frame must announce the same name the token was issued for.
	msg, err := c.readMessage()
	if err != nil {
		return
	}
	login, ok := msg.(models.Login)
	if !ok || login.Name != c.Name {
		c.sendMessage(models.Error{Message: msgLoginRequired})
		return
	}
	if !hub.join(c) {
		c.sendMessage(models.Error{Message: msgAlreadyConnected})
		return
	}
	joined = true

	log.Printf("User %s connected (conn %s)", c.Name, c.ID)
	c.sendMessage(models.Login{Success: true})
	hub.broadcastUserList()

	for {
		msg, err := c.readMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		if msg == nil {
			continue
		}

		_, target, routable := models.Route(msg)
		if !routable {
			if _, unknown := msg.(models.Unknown); unknown {
				c.sendMessage(models.Error{Message: msgUnsupported})
			}
			log.Printf("Ignoring %s from %s", msg.Type(), c.Name)
			continue
		}

		if target == "" || !hub.sendTo(target, models.WithSender(msg, c.Name)) {
			c.sendMessage(models.Error{Message: msgTargetUnavailable})
			continue
		}
		log.Printf("Relayed %s from %s to %s", msg.Type(), c.Name, target)
	}
}

// readMessage returns the next decoded frame. A nil message with a nil
// error means the frame could not be decoded and was skipped.
func (c *Client) readMessage() (models.Message, error) {
	_, data, err := c.Conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	msg, err := models.Decode(data)
	if err != nil {
		log.Printf("Failed to parse message from conn %s: %v", c.ID, err)
		return nil, nil
	}
	return msg, nil
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendMessage queues msg for this client. Only the read pump calls it, so
// the send channel is still open.
func (c *Client) sendMessage(msg models.Message) {
	data, err := models.Encode(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}
	c.enqueue(data)
}

func (c *Client) enqueue(data []byte) {
	select {
	case c.Send <- data:
	default:
		log.Printf("Failed to send message to %s, buffer full", c.Name)
	}
}
