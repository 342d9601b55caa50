package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client represents a WebSocket client connection
type Client struct {
	ID    string
	RunID string
	Conn  *websocket.Conn
	Send  chan []byte
	Hub   *Hub
}

// Hub manages WebSocket connections for optimization progress streaming.
// Clients subscribe to a run ID and receive progress events until the run
// completes or the connection drops.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Broadcast messages to all clients
	broadcast chan []byte

	// Run-specific message channels
	runChannels map[string][]*Client

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger
	logger *logrus.Logger
}

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	RunID     string      `json:"run_id,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// RunProgress is a progress update for one optimization run.
type RunProgress struct {
	RunID             string  `json:"run_id"`
	Status            string  `json:"status"`
	Progress          float64 `json:"progress"`
	CombinationsDone  int     `json:"combinations_done"`
	CombinationsTotal int     `json:"combinations_total"`
	Message           string  `json:"message,omitempty"`
	Error             string  `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// NewHub creates a new WebSocket hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan []byte),
		runChannels: make(map[string][]*Client),
		logger:      logger,
	}
}

// Run starts the hub and handles client registration/unregistration
func (h *Hub) Run() {
	h.logger.Info("Starting WebSocket hub")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true

			if client.RunID != "" {
				h.runChannels[client.RunID] = append(h.runChannels[client.RunID], client)
			}
			h.mu.Unlock()

			h.logger.WithFields(logrus.Fields{
				"client_id": client.ID,
				"run_id":    client.RunID,
			}).Info("Client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)

				if client.RunID != "" {
					if clients, exists := h.runChannels[client.RunID]; exists {
						for i, c := range clients {
							if c == client {
								h.runChannels[client.RunID] = append(clients[:i], clients[i+1:]...)
								break
							}
						}
						if len(h.runChannels[client.RunID]) == 0 {
							delete(h.runChannels, client.RunID)
						}
					}
				}
			}
			h.mu.Unlock()

			h.logger.WithFields(logrus.Fields{
				"client_id": client.ID,
				"run_id":    client.RunID,
			}).Info("Client unregistered")

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleRunProgress handles WebSocket connections subscribing to a run.
func (h *Hub) HandleRunProgress(c *gin.Context) {
	runID := c.Param("run_id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Run ID required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		ID:    generateClientID(),
		RunID: runID,
		Conn:  conn,
		Send:  make(chan []byte, 256),
		Hub:   h,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// SendToRun sends a message to all connections subscribed to a run.
func (h *Hub) SendToRun(runID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal message")
		return
	}

	h.mu.RLock()
	clients, exists := h.runChannels[runID]
	h.mu.RUnlock()

	if !exists {
		h.logger.WithField("run_id", runID).Debug("No active connections for run")
		return
	}

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.WithField("run_id", runID).Warn("Failed to send message to client")
		}
	}
}

// SendRunProgress sends a progress event to a run's subscribers.
func (h *Hub) SendRunProgress(progress RunProgress) {
	message := Message{
		Type:      "run_progress",
		RunID:     progress.RunID,
		Data:      progress,
		Timestamp: time.Now().Unix(),
	}

	h.SendToRun(progress.RunID, message)
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal broadcast message")
		return
	}

	h.broadcast <- data
}

// readPump handles reading messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	// Set read deadline and pong handler for keepalive
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("WebSocket error")
			}
			break
		}
	}
}

// writePump handles writing messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current message
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func generateClientID() string {
	return fmt.Sprintf("client_%d", time.Now().UnixNano())
}
