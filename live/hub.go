package live

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Event is what tournament pages receive over the socket. Polling GET /status
// remains the source of truth; events only prompt an immediate refetch.
type Event struct {
	Type         string      `json:"type"`
	TournamentID int         `json:"tournament_id"`
	Payload      interface{} `json:"payload,omitempty"`
}

type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	tournamentID int

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, tournamentID int) *Client {
	return &Client{
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, 16),
		tournamentID: tournamentID,
	}
}

// Hub fans tournament events out to the sockets watching each tournament.
// It satisfies the notifier interface the services publish through.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	rooms  map[int]map[*Client]bool
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[int]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.tournamentID]; !ok {
				h.rooms[client.tournamentID] = make(map[*Client]bool)
			}
			h.rooms[client.tournamentID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.tournamentID]; ok {
				if _, present := room[client]; present {
					client.markClosed()
					delete(room, client)
					if len(room) == 0 {
						delete(h.rooms, client.tournamentID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish delivers an event to every socket watching the tournament. Slow
// clients are skipped rather than blocking the caller.
func (h *Hub) Publish(tournamentID int, event string, payload interface{}) {
	message, err := json.Marshal(Event{
		Type:         event,
		TournamentID: tournamentID,
		Payload:      payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal event", slog.String("event", event), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[tournamentID] {
		client.mu.Lock()
		if client.closed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.send <- message:
		default:
		}
		client.mu.Unlock()
	}
}

func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

// ReadPump drains inbound frames. Clients never send anything meaningful;
// reading is only needed to process pongs and detect disconnects.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
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

// Register attaches a socket to a tournament room and starts its pumps.
func (h *Hub) Register(conn *websocket.Conn, tournamentID int) {
	client := NewClient(h, conn, tournamentID)
	h.register <- client
	go client.WritePump()
	go client.ReadPump()
}
