// Package live streams standings updates to websocket subscribers. Clients
// join a room keyed by the event's public id and receive a message whenever a
// round ends or the event's lifecycle changes.
package live

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Meshu-webDEV/singularity-api/models"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Message types pushed to subscribers.
const (
	MessageStandings = "STANDINGS_UPDATED"
	MessageLifecycle = "STATUS_CHANGED"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// StandingsPayload carries a fresh standings snapshot for one event.
type StandingsPayload struct {
	CurrentRound int                   `json:"currentRound"`
	Standings    models.StandingsTable `json:"standings"`
}

// LifecyclePayload announces a status transition.
type LifecyclePayload struct {
	Status models.EventStatus `json:"status"`
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string

	mu     sync.Mutex
	closed bool
}

// Hub owns the room registry. All registry mutation happens on Run's
// goroutine via the Register/Unregister channels; broadcasts take the read
// lock only.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	mu     sync.RWMutex
	rooms  map[string]map[*Client]bool
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.logger.Debug("live client joined",
				slog.String("room", client.room),
				slog.Int("clients", len(h.rooms[client.room])))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, registered := clients[client]; registered {
					client.markClosed()
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

// BroadcastStandings pushes a standings snapshot to every subscriber of the
// event's room. Rooms with no subscribers are skipped silently.
func (h *Hub) BroadcastStandings(eventID string, currentRound int, standings models.StandingsTable) {
	h.broadcast(eventID, Message{
		Type:    MessageStandings,
		Payload: StandingsPayload{CurrentRound: currentRound, Standings: standings},
	})
}

// BroadcastStatus announces a lifecycle transition to the event's room.
func (h *Hub) BroadcastStatus(eventID string, status models.EventStatus) {
	h.broadcast(eventID, Message{
		Type:    MessageLifecycle,
		Payload: LifecyclePayload{Status: status},
	})
}

func (h *Hub) broadcast(room string, message Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[room]
	if !ok {
		return
	}

	raw, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal live message", slog.Any("error", err))
		return
	}

	for client := range clients {
		client.mu.Lock()
		if client.closed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.send <- raw:
		default:
			// Slow consumer, drop the frame rather than block the hub.
		}
		client.mu.Unlock()
	}
}

// NewClient wires an upgraded connection into the room for eventID and starts
// its pumps.
func (h *Hub) NewClient(conn *websocket.Conn, eventID string) *Client {
	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		room: eventID,
	}
	h.Register <- client

	go client.writePump()
	go client.readPump()
	return client
}

func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

// readPump drains inbound frames. Subscribers are listen-only: anything they
// send is discarded, the pump exists to notice disconnects and answer pings.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
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
