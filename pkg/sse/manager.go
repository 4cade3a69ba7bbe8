package sse

import (
	"encoding/json"
	"io"
	"log"
	"sync"

	"github.com/gin-gonic/gin"
)

// Event is a server-sent event pushed to a connected client.
type Event struct {
	Name    string
	Payload interface{}
}

type client struct {
	userID string
	ch     chan Event
}

// Manager fans events out to the SSE connections of each user. A user can
// hold several connections (multiple tabs); every one receives the event.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]map[*client]struct{}),
	}
}

func (m *Manager) register(userID string) *client {
	c := &client{
		userID: userID,
		ch:     make(chan Event, 16),
	}
	m.mu.Lock()
	if m.clients[userID] == nil {
		m.clients[userID] = make(map[*client]struct{})
	}
	m.clients[userID][c] = struct{}{}
	m.mu.Unlock()
	return c
}

func (m *Manager) unregister(c *client) {
	m.mu.Lock()
	if set, ok := m.clients[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(m.clients, c.userID)
		}
	}
	m.mu.Unlock()
	close(c.ch)
}

// SendToUser delivers an event to every open connection of the user. Slow
// connections are skipped rather than blocking the sender.
func (m *Manager) SendToUser(userID, event string, payload interface{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for c := range m.clients[userID] {
		select {
		case c.ch <- Event{Name: event, Payload: payload}:
		default:
			log.Printf("[SSE] Dropping event %s for user %s: client buffer full", event, userID)
		}
	}
}

// ConnectedUsers returns the number of users with at least one open stream.
func (m *Manager) ConnectedUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// ServeHTTP streams events to the client until it disconnects.
func (m *Manager) ServeHTTP(c *gin.Context, userID string) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	cl := m.register(userID)
	defer m.unregister(cl)

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-cl.ch:
			if !ok {
				return false
			}
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				log.Printf("[SSE] Failed to marshal payload for event %s: %v", ev.Name, err)
				return true
			}
			c.SSEvent(ev.Name, string(data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
