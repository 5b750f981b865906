package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"studymate-bot/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenParser validates the admin token passed as ?token=.
type TokenParser interface {
	ParseAdminToken(token string) (string, error)
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans admin alerts out to every connected admin socket. Alerts arrive
// either from the redis channel or directly through Notify.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*client]struct{}
	redisClient *redis.Client
	channel     string
	tokens      TokenParser
	cancel      context.CancelFunc
	log         *zap.Logger
}

// NewHub builds a hub. redisClient may be nil, in which case only Notify
// feeds the sockets.
func NewHub(redisClient *redis.Client, channel string, tokens TokenParser, log *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[*client]struct{}),
		redisClient: redisClient,
		channel:     channel,
		tokens:      tokens,
		log:         log.Named("ws_hub"),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	subject, err := h.tokens.ParseAdminToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn}
	h.register(c, subject)

	go func() {
		defer h.unregister(c, subject)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(c *client, subject string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}

	// the redis subscription lives while at least one socket is open
	if len(h.clients) == 1 && h.redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		go h.subscribe(ctx)
	}

	h.log.Info("admin feed connected", zap.String("subject", subject), zap.Int("total", len(h.clients)))
}

func (h *Hub) unregister(c *client, subject string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()
	delete(h.clients, c)

	if len(h.clients) == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}

	h.log.Info("admin feed disconnected", zap.String("subject", subject))
}

func (h *Hub) subscribe(ctx context.Context) {
	pubsub := h.redisClient.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if err := c.write(data); err != nil {
			h.log.Debug("websocket write failed", zap.Error(err))
		}
	}
}

// Notify pushes an alert straight to the connected sockets.
func (h *Hub) Notify(_ context.Context, alert models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	h.broadcast(data)
	return nil
}

// Connections reports the number of open admin sockets.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
