package sse

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType defines the SSE event name.
type EventType string

const (
	EventPhotoVerified EventType = "photo.verified"
	EventPhotoReviewed EventType = "photo.reviewed"
)

// PhotoEvent is the payload broadcast to reviewer SSE clients.
type PhotoEvent struct {
	Event              EventType `json:"event"`
	PhotoID            string    `json:"photoId"`
	LoanID             string    `json:"loanId"`
	DrawID             *string   `json:"drawId,omitempty"`
	Status             string    `json:"status"`
	Label              string    `json:"label"`
	Color              string    `json:"color"`
	GPSMatchConfidence string    `json:"gpsMatchConfidence"`
	VerifiedBy         *string   `json:"verifiedBy,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// Message is one encoded event queued for a client.
type Message struct {
	Event EventType
	Data  []byte
}

// Client represents a connected SSE client. A non-empty LoanID limits it to that loan's events.
type Client struct {
	ID     string
	LoanID string
	Events chan Message
}

// Hub manages SSE client connections and broadcasts.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client and returns it for streaming.
func (h *Hub) Register(clientID, loanID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{
		ID:     clientID,
		LoanID: loanID,
		Events: make(chan Message, 64),
	}
	h.clients[clientID] = c
	log.Info().Str("client_id", clientID).Str("loan_id", loanID).Int("total_clients", len(h.clients)).Msg("SSE client connected")
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client disconnected")
	}
}

// Broadcast sends an event to every interested client.
// Non-blocking: drops message if client buffer is full.
func (h *Hub) Broadcast(event *PhotoEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}
	msg := Message{Event: event.Event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if c.LoanID != "" && c.LoanID != event.LoanID {
			continue
		}
		select {
		case c.Events <- msg:
		default:
			log.Warn().Str("client_id", c.ID).Msg("SSE client buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
