package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"aistudio/core/jobs"
	"aistudio/logger"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = 30 * time.Second
	wsSendBuffer  = 64
	hubBufferSize = 256
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// jobClient is one websocket subscriber. projectID 0 receives every event.
type jobClient struct {
	hub       *JobHub
	conn      *websocket.Conn
	send      chan []byte
	projectID int64
}

// JobHub fans job events out to websocket subscribers. It implements
// jobs.Notifier.
type JobHub struct {
	clients    map[*jobClient]bool
	register   chan *jobClient
	unregister chan *jobClient
	broadcast  chan jobs.Event
	mu         sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once
}

var _ jobs.Notifier = (*JobHub)(nil)

// NewJobHub creates a hub. Run must be started before clients connect.
func NewJobHub() *JobHub {
	return &JobHub{
		clients:    make(map[*jobClient]bool),
		register:   make(chan *jobClient),
		unregister: make(chan *jobClient),
		broadcast:  make(chan jobs.Event, hubBufferSize),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop.
func (h *JobHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.dispatch(event)
		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *JobHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Notify queues event for broadcast. Events are dropped when the hub is
// saturated so job processing never blocks on slow subscribers.
func (h *JobHub) Notify(ctx context.Context, event jobs.Event) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	default:
		logger.Warn("Job event dropped, hub is saturated",
			logger.String("jobKind", string(event.Kind)),
			logger.Int64("jobId", event.JobID))
	}
}

// ClientCount returns the number of connected subscribers.
func (h *JobHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *JobHub) dispatch(event jobs.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Warn("Failed to marshal job event", logger.ErrorField(err))
		return
	}

	h.mu.RLock()
	targets := make([]*jobClient, 0, len(h.clients))
	for client := range h.clients {
		if client.projectID == 0 || client.projectID == event.ProjectID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.send <- data:
		default:
			h.removeClient(client)
		}
	}
}

func (h *JobHub) removeClient(client *jobClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *JobHub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*jobClient]bool)
}

// ServeHTTP upgrades to a websocket that streams job events, optionally
// filtered by ?projectId=.
func (h *JobHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var projectID int64
	if raw := r.URL.Query().Get("projectId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeMessage(w, http.StatusBadRequest, "invalid projectId")
			return
		}
		projectID = id
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", logger.ErrorField(err))
		return
	}
	client := &jobClient{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, wsSendBuffer),
		projectID: projectID,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

// readPump discards client messages and detects disconnects.
func (c *jobClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Websocket read error", logger.ErrorField(err))
			}
			return
		}
	}
}

func (c *jobClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
