// Package wsnotify broadcasts round-progression events to connected
// websocket clients: register/unregister channels, a buffered per-client
// send queue, and a single Run loop owning the client map.
package wsnotify

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket connection.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Event is a message broadcast to every connected client.
type Event struct {
	Type         string `json:"type"`
	TournamentID string `json:"tournamentId"`
	Round        int    `json:"round,omitempty"`
	PairingID    string `json:"pairingId,omitempty"`
}

// Event types.
const (
	EventPairingsGenerated = "pairings.generated"
	EventResultRecorded    = "result.recorded"
	EventRoundAdvanced     = "round.advanced"
)

// Hub maintains the set of active clients and broadcasts events to them.
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

// NewHub creates an unstarted Hub; call Run in its own goroutine.
func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan Event),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("websocket write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump detects closed connections; this hub never accepts client input.
func (c *Client) ReadPump(hub *Hub) {
	defer func() {
		hub.unregister <- c
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket unexpected close: %v", err)
			}
			return
		}
	}
}

// Run owns the client map and must be started exactly once.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
		case event := <-h.Broadcast:
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("marshal websocket event: %v", err)
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- payload:
				default:
					log.Printf("websocket client send buffer full; dropping")
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// PairingsGenerated implements roundctl.Notifier.
func (h *Hub) PairingsGenerated(tournamentID string, round int) {
	h.broadcastBestEffort(Event{Type: EventPairingsGenerated, TournamentID: tournamentID, Round: round})
}

// ResultRecorded implements roundctl.Notifier.
func (h *Hub) ResultRecorded(tournamentID string, pairingID string) {
	h.broadcastBestEffort(Event{Type: EventResultRecorded, TournamentID: tournamentID, PairingID: pairingID})
}

// RoundAdvanced implements roundctl.Notifier.
func (h *Hub) RoundAdvanced(tournamentID string, round int) {
	h.broadcastBestEffort(Event{Type: EventRoundAdvanced, TournamentID: tournamentID, Round: round})
}

// broadcastBestEffort never blocks the caller's critical section;
// notifications are best-effort and may be dropped under pressure.
func (h *Hub) broadcastBestEffort(event Event) {
	select {
	case h.Broadcast <- event:
	default:
		go func() { h.Broadcast <- event }()
	}
}
