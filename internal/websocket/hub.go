package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"

	"github.com/sitegate/notify-api/internal/model"
	"github.com/sitegate/notify-api/internal/store"
)

// Client represents one WebSocket subscriber for a job's progress.
type Client struct {
	JobID string
	Conn  *websocket.Conn
	Send  chan []byte
}

// Hub maintains active WebSocket connections grouped by job id and pushes
// job snapshots to them. Pushes and polling reads are the same idempotent
// snapshot; a client may use either.
type Hub struct {
	jobs *store.JobStore
	log  zerolog.Logger

	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *jobMessage

	mu sync.RWMutex
}

type jobMessage struct {
	JobID   string
	Message []byte
}

func NewHub(jobs *store.JobStore, log zerolog.Logger) *Hub {
	return &Hub{
		jobs:       jobs,
		log:        log,
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *jobMessage, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.JobID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.JobID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.JobID]; ok {
				for client := range clients {
					select {
					case client.Send <- msg.Message:
					default:
						close(client.Send)
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// PublishProgress reads a fresh snapshot of the job and pushes it to all
// subscribers. Called by the worker pool after every recorded outcome.
func (h *Hub) PublishProgress(jobID string) {
	job, err := h.jobs.Get(jobID)
	if err != nil {
		return
	}

	msgType := model.WSMessageTypeProgress
	if job.Status.Terminal() {
		msgType = model.WSMessageTypeComplete
	}
	msg := model.WSProgressMessage{
		Type:     msgType,
		JobID:    jobID,
		Progress: model.NewJobProgress(job, time.Now()),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Str("job", jobID).Msg("could not marshal progress message")
		return
	}

	// Drop instead of blocking the worker when subscribers are slow.
	select {
	case h.broadcast <- &jobMessage{JobID: jobID, Message: data}:
	default:
	}
}

// HandleConnection serves one subscriber socket until it closes.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	client := &Client{
		JobID: jobID,
		Conn:  c,
		Send:  make(chan []byte, 256),
	}

	h.register <- client
	defer func() { h.unregister <- client }()

	// Writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug().Err(err).Str("job", jobID).Msg("websocket closed")
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			client.Send <- pong
		}
	}
}
