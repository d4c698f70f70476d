package brackets

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event types pushed to connected clients of a tournament room.
const (
	EventTournamentStarted  = "TOURNAMENT_STARTED"
	EventMatchResult        = "MATCH_RESULT"
	EventRoundAdvanced      = "ROUND_ADVANCED"
	EventTournamentFinished = "TOURNAMENT_FINISHED"
)

// Event is the wire format of a live push.
type Event struct {
	Type         string      `json:"type"`
	TournamentID uuid.UUID   `json:"tournament_id"`
	Payload      interface{} `json:"payload,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room uuid.UUID

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded websocket connection subscribed to one
// tournament's room.
func NewClient(hub *Hub, conn *websocket.Conn, tournamentID uuid.UUID) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
		room: tournamentID,
	}
}

// Hub fans live tournament events out to websocket clients, one room per
// tournament. Delivery is best-effort: a slow client is skipped, never
// waited on.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[*Client]bool
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.logger.Debug("websocket client registered",
				slog.String("tournament_id", client.room.String()),
				slog.Int("room_size", len(h.rooms[client.room])))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, okClient := clients[client]; okClient {
					client.mu.Lock()
					if !client.closed {
						close(client.send)
						client.closed = true
					}
					client.mu.Unlock()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register subscribes the client and starts its read/write pumps.
func (h *Hub) Register(client *Client) {
	h.register <- client
	go client.writePump()
	go client.readPump()
}

// BroadcastToRoom pushes an event to every client watching the tournament.
func (h *Hub) BroadcastToRoom(tournamentID uuid.UUID, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[tournamentID]
	if !ok {
		return
	}

	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal websocket event",
			slog.String("tournament_id", tournamentID.String()), slog.Any("error", err))
		return
	}

	for client := range clients {
		client.mu.Lock()
		if client.closed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.send <- message:
		default:
			// Client is not keeping up; drop the event for it.
		}
		client.mu.Unlock()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Clients only listen; inbound payloads are drained and discarded.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error",
					slog.String("tournament_id", c.room.String()), slog.Any("error", err))
			}
			return
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
