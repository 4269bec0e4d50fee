// internal/websocket/hub.go
// WebSocket hub for the spectator/operator live feed: pushes league events
// over a read-only channel (SPEC_FULL.md §3.1). The only event sent is the
// standings_update pushed by StandingsBroadcaster.

package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub maintains active spectator connections and fans league events out to
// whichever ones are subscribed to that league.
type Hub struct {
	leagues map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message

	logger *zap.Logger

	mu sync.RWMutex
}

// Message is one event pushed to spectators.
type Message struct {
	Type     string      `json:"type"`
	LeagueID string      `json:"league_id,omitempty"`
	Data     interface{} `json:"data"`
}

// NewHub creates a spectator hub. Call Run in its own goroutine.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		leagues:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		logger:     logger,
	}
}

// Run starts the hub's event loop, handling register, unregister and
// broadcast. Subscribe and Unsubscribe change subscriptions from the
// client's own goroutine under mu.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, leagueID := range client.leagues {
		if h.leagues[leagueID] == nil {
			h.leagues[leagueID] = make(map[*Client]bool)
		}
		h.leagues[leagueID][client] = true
	}
	h.logger.Debug("spectator connected", zap.Strings("leagues", client.leagues))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeClient(client)
	client.close()
}

func (h *Hub) removeClient(client *Client) {
	for _, leagueID := range client.leagues {
		if clients, exists := h.leagues[leagueID]; exists {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.leagues, leagueID)
			}
		}
	}
}

func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal spectator message", zap.Error(err))
		return
	}

	clients, exists := h.leagues[message.LeagueID]
	if !exists {
		return
	}
	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.removeClient(client)
			client.close()
		}
	}
}

// Broadcast pushes an event of messageType for leagueID to every subscribed
// spectator. This is the hook called by BroadcastStandings.
func (h *Hub) Broadcast(leagueID, messageType string, data interface{}) {
	h.broadcast <- &Message{Type: messageType, LeagueID: leagueID, Data: data}
}

// Subscribe adds leagueID to a client's subscription set.
func (h *Hub) Subscribe(client *Client, leagueID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.leagues = append(client.leagues, leagueID)
	if h.leagues[leagueID] == nil {
		h.leagues[leagueID] = make(map[*Client]bool)
	}
	h.leagues[leagueID][client] = true
}

// Unsubscribe removes leagueID from a client's subscription set.
func (h *Hub) Unsubscribe(client *Client, leagueID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, id := range client.leagues {
		if id == leagueID {
			client.leagues = append(client.leagues[:i], client.leagues[i+1:]...)
			break
		}
	}
	if clients, exists := h.leagues[leagueID]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.leagues, leagueID)
		}
	}
}
