package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StatusAdvancer moves categories through their lifecycle as windows pass
type StatusAdvancer interface {
	AdvanceStatuses(ctx context.Context, now time.Time) ([]models.Category, error)
}

type delivery struct {
	topic   string
	message models.WSMessage
}

// Hub maintains the set of active clients and their topic subscriptions
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	topics     map[string]map[*Client]bool
	broadcast  chan delivery
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	advancer   StatusAdvancer
	interval   time.Duration
	now        func() time.Time
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage
}

// New creates a new Hub. advancer may be nil, in which case the status
// ticker does nothing.
func New(log logger.Logger, advancer StatusAdvancer) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		topics:     make(map[string]map[*Client]bool),
		broadcast:  make(chan delivery, sendBufferSize),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		advancer:   advancer,
		interval:   time.Second,
		now:        time.Now,
	}
}

// Start begins the hub's main loop in a goroutine. The loop exits when
// ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	go h.run(ctx)
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("Realtime hub stopped")
			return

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for topic, subs := range h.topics {
					delete(subs, client)
					if len(subs) == 0 {
						delete(h.topics, topic)
					}
				}
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "total_clients", total)

		case d := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.topics[d.topic] {
				select {
				case client.send <- d.message:
				default:
					// Slow client, drop it
					go h.remove(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// remove hands a client to the main loop for cleanup, giving up once the
// loop has exited
func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// add registers a client before its pumps start so that its first
// subscribe request always finds it
func (h *Hub) add(c *Client) {
	h.mutex.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mutex.Unlock()
	h.log.Debug("Client connected", "total_clients", total)
}

// Publish delivers a change event to every subscriber of topic. It never
// blocks the caller; events are dropped when the hub is saturated.
func (h *Hub) Publish(topic string, event models.ChangeEvent) {
	msgType := models.WSChange
	if event.Table == models.CategoriesTopic {
		msgType = models.WSCategoryStatus
	}
	d := delivery{
		topic:   topic,
		message: models.WSMessage{Type: msgType, Topic: topic, Payload: event},
	}
	select {
	case h.broadcast <- d:
	default:
		h.log.Warn("Realtime broadcast queue full, dropping event", "topic", topic, "type", event.Type)
	}
}

// Subscribers returns the number of clients subscribed to topic
func (h *Hub) Subscribers(topic string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.topics[topic])
}

// ValidTopic reports whether clients may subscribe to topic
func ValidTopic(topic string) bool {
	if topic == models.CategoriesTopic {
		return true
	}
	id, ok := strings.CutPrefix(topic, "leaderboard:")
	return ok && id != ""
}

func (h *Hub) subscribe(c *Client, topic string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.clients[c] {
		return
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Client]bool)
		h.topics[topic] = subs
	}
	subs[c] = true
	h.reply(c, models.WSMessage{Type: models.WSSubscribed, Topic: topic})
}

func (h *Hub) unsubscribe(c *Client, topic string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// reply queues a direct message to one client. Callers hold h.mutex so the
// send channel cannot be closed underneath.
func (h *Hub) reply(c *Client, msg models.WSMessage) {
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) replyError(c *Client, topic, message string) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	h.reply(c, models.WSMessage{Type: models.WSError, Topic: topic, Payload: map[string]string{"message": message}})
}

func (h *Hub) handle(c *Client, msg models.WSMessage) {
	switch msg.Type {
	case models.WSSubscribe:
		if !ValidTopic(msg.Topic) {
			h.replyError(c, msg.Topic, "unknown topic")
			return
		}
		h.subscribe(c, msg.Topic)
		h.log.Debug("Client subscribed", "topic", msg.Topic)
	case models.WSUnsubscribe:
		h.unsubscribe(c, msg.Topic)
	default:
		h.replyError(c, msg.Topic, "unsupported message type")
	}
}

// readPump pumps subscription requests from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.replyError(c, "", "invalid message")
			continue
		}
		c.hub.handle(c, msg)
	}
}

// writePump pumps messages from the hub to the websocket connection
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
			if err := c.conn.WriteJSON(message); err != nil {
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

// ServeWs handles websocket requests from clients
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, sendBufferSize),
	}
	h.add(client)

	go client.writePump()
	go client.readPump()
}

// StartStatusTicker advances category statuses once per interval until ctx
// is cancelled. Transitions reach subscribers through the category
// service's publisher.
func (h *Hub) StartStatusTicker(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("Category status ticker stopped")
			return
		case <-ticker.C:
			h.advance(ctx)
		}
	}
}

func (h *Hub) advance(ctx context.Context) {
	if h.advancer == nil {
		return
	}
	changed, err := h.advancer.AdvanceStatuses(ctx, h.now())
	if err != nil {
		if ctx.Err() == nil {
			h.log.Error("Failed to advance category statuses", "error", err)
		}
		return
	}
	for _, cat := range changed {
		h.log.Info("Category status changed", "category_id", cat.ID, "status", cat.Status)
	}
}
