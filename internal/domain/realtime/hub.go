package realtime

import (
	"context"
	"encoding/json"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ecobin/ecobin-api/internal/middleware"
)

const (
	channelPrefix      = "events:"
	submissionsChannel = channelPrefix + "submissions"
	walletChannel      = channelPrefix + "wallet"
)

var (
	wsConnectionsGauge   = expvar.NewInt("websocket_connections")
	wsEventsSentTotal    = expvar.NewInt("websocket_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("websocket_events_dropped_total")
)

// staffRoles receive every submission event.
var staffRoles = map[string]bool{
	middleware.RoleModerator: true,
	middleware.RoleCouncil:   true,
	middleware.RoleAdmin:     true,
}

// envelope is what travels over Redis and to clients.
type envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Connection represents a WebSocket connection
type Connection struct {
	UserID uuid.UUID
	Role   string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub fans submission events and wallet deltas out to connected clients.
// With Redis, events published on any instance reach clients on all of them.
type Hub struct {
	connections map[uuid.UUID]map[*Connection]bool
	mu          sync.RWMutex

	redis  *redis.Client
	pubsub *redis.PubSub

	register   chan *Connection
	unregister chan *Connection

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub. redisClient may be nil for single-instance setups.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		connections: make(map[uuid.UUID]map[*Connection]bool),
		redis:       redisClient,
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
	}

	if redisClient != nil {
		h.pubsub = redisClient.PSubscribe(ctx, channelPrefix+"*")
		waitCtx, done := context.WithTimeout(ctx, 5*time.Second)
		if _, err := h.pubsub.Receive(waitCtx); err != nil {
			log.Warn().Err(err).Msg("realtime subscription not confirmed, falling back to local delivery")
			_ = h.pubsub.Close()
			h.pubsub = nil
			h.redis = nil
		}
		done()
	}

	return h
}

// Run starts the hub (call in goroutine)
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.connections[conn.UserID] == nil {
				h.connections[conn.UserID] = make(map[*Connection]bool)
			}
			h.connections[conn.UserID][conn] = true
			h.mu.Unlock()
			wsConnectionsGauge.Add(1)
			log.Debug().Str("user_id", conn.UserID.String()).Str("role", conn.Role).Msg("client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.connections[conn.UserID]; ok {
				if _, exists := conns[conn]; exists {
					delete(conns, conn)
					close(conn.Send)
					wsConnectionsGauge.Add(-1)
				}
				if len(conns) == 0 {
					delete(h.connections, conn.UserID)
				}
			}
			h.mu.Unlock()
			log.Debug().Str("user_id", conn.UserID.String()).Msg("client disconnected")
		}
	}
}

func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !strings.HasPrefix(msg.Channel, channelPrefix) {
				continue
			}
			h.dispatchLocal([]byte(msg.Payload))
		}
	}
}

// PublishSubmissionEvent implements Publisher
func (h *Hub) PublishSubmissionEvent(ctx context.Context, ev SubmissionEvent) error {
	return h.publish(ctx, submissionsChannel, MessageSubmissionEvent, ev)
}

// PublishWalletDelta implements Publisher
func (h *Hub) PublishWalletDelta(ctx context.Context, d WalletDelta) error {
	return h.publish(ctx, walletChannel, MessageWalletDelta, d)
}

func (h *Hub) publish(ctx context.Context, channel string, msgType MessageType, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(envelope{Type: msgType, Data: data})
	if err != nil {
		return err
	}

	if h.redis == nil {
		h.dispatchLocal(raw)
		return nil
	}
	if err := h.redis.Publish(ctx, channel, raw).Err(); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("Redis publish failed")
		h.dispatchLocal(raw)
		return err
	}
	return nil
}

// dispatchLocal routes an envelope to connections on this instance.
func (h *Hub) dispatchLocal(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	switch env.Type {
	case MessageSubmissionEvent:
		var ev SubmissionEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return
		}
		h.sendWhere(raw, func(c *Connection) bool {
			return c.UserID == ev.OwnerID || staffRoles[c.Role]
		})
	case MessageWalletDelta:
		var d WalletDelta
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return
		}
		h.sendToUser(d.UserID, raw)
	}
}

func (h *Hub) sendToUser(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.connections[userID] {
		h.trySend(conn, data)
	}
}

func (h *Hub) sendWhere(data []byte, match func(*Connection) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conns := range h.connections {
		for conn := range conns {
			if match(conn) {
				h.trySend(conn, data)
			}
		}
	}
}

func (h *Hub) trySend(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
		wsEventsSentTotal.Add(1)
	default:
		wsEventsDroppedTotal.Add(1)
		log.Warn().Str("user_id", conn.UserID.String()).Msg("WebSocket send buffer full")
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.ctx.Done():
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.ctx.Done():
	}
}

// ConnectionCount returns number of local connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.connections {
		total += len(conns)
	}
	return total
}

// Shutdown gracefully shuts down the hub
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
