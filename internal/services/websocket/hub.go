package websocket

import (
	"context"
	"sync"
	"time"
	"webdetect/internal/logger"

	"github.com/gorilla/websocket"
)

// closeGracePeriod bounds the close frame sent on shutdown.
const closeGracePeriod = time.Second

// HubService tracks open detection websockets so they can be closed when the
// server shuts down. http.Server.Shutdown does not wait for hijacked
// connections.
type HubService struct {
	clients map[*websocket.Conn]bool
	closing bool
	mutex   sync.Mutex
	active  sync.WaitGroup
	logger  *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

// Register adds a client. It returns false once shutdown has started; the
// caller must then close the connection itself.
func (h *HubService) Register(client *websocket.Conn) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closing {
		return false
	}
	h.clients[client] = true
	h.active.Add(1)
	h.logger.Info("Client connected. Total: %d", len(h.clients))
	return true
}

// Unregister removes a client registered with Register.
func (h *HubService) Unregister(client *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	h.active.Done()
	h.logger.Info("Client disconnected. Total: %d", len(h.clients))
}

// CloseAll refuses new clients and closes every open connection, which ends
// their read loops.
func (h *HubService) CloseAll() {
	h.mutex.Lock()
	h.closing = true
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, client := range clients {
		client.WriteControl(websocket.CloseMessage, message, time.Now().Add(closeGracePeriod))
		client.Close()
	}
}

// Wait blocks until every registered client has unregistered or ctx is done.
func (h *HubService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Count returns the number of open connections.
func (h *HubService) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}
