// Package hub fans session output and status out to WebSocket clients and
// routes client input back into the session manager.
package hub

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

const defaultBatchInterval = 100 * time.Millisecond

type Hub struct {
	clients      map[string]*Client
	register     chan *clientRegistration
	unregister   chan *Client
	broadcast    chan hubBroadcast
	onInput      func(name string, line string)
	onKey        func(name string, key string)
	onResize     func(name string, cols, rows int)
	token        string
	mu           sync.RWMutex
	sessions     []SessionInfo
	sessionsMu   sync.RWMutex
	rateLimiter  *RateLimiter
	batchEnabled bool
	ctxWrap      *ctxWrapper
	running      atomic.Bool
}

type ctxWrapper struct {
	ctx context.Context
}

type clientRegistration struct {
	client          *Client
	initialSessions []byte
}

func New(token string, onInput func(name string, line string)) *Hub {
	h := &Hub{
		clients:      make(map[string]*Client),
		register:     make(chan *clientRegistration, 16),
		unregister:   make(chan *Client, 16),
		broadcast:    make(chan hubBroadcast, 256),
		onInput:      onInput,
		token:        token,
		batchEnabled: true,
		ctxWrap:      &ctxWrapper{ctx: context.Background()},
	}
	h.rateLimiter = NewRateLimiter(defaultBatchInterval, func(name string, msg OutputMessage) {
		h.sendOutput(msg)
	})
	return h
}

func (h *Hub) SetOnKey(fn func(name string, key string)) {
	h.onKey = fn
}

func (h *Hub) SetOnResize(fn func(name string, cols, rows int)) {
	h.onResize = fn
}

func (h *Hub) getContext() context.Context {
	if h.ctxWrap != nil {
		return h.ctxWrap.ctx
	}
	return context.Background()
}

func (h *Hub) Run(ctx context.Context) {
	h.ctxWrap = &ctxWrapper{ctx: ctx}
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.rateLimiter.FlushAll()
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case reg := <-h.register:
			h.mu.Lock()
			h.clients[reg.client.id] = reg.client
			h.mu.Unlock()
			if reg.initialSessions != nil {
				select {
				case reg.client.send <- reg.initialSessions:
				default:
				}
			}
			go reg.client.writePump(h.getContext())
			go reg.client.readPump(h.getContext())
			log.Printf("client connected: %s (total: %d)", reg.client.id, h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("client disconnected: %s (total: %d)", client.id, h.ClientCount())

		case b := <-h.broadcast:
			h.broadcastToClients(b)
		}
	}
}

// broadcastToClients delivers one payload to every client whose
// subscription covers the session name. An empty name means everyone.
func (h *Hub) broadcastToClients(b hubBroadcast) {
	h.mu.RLock()
	for _, c := range h.clients {
		if !c.wantsSession(b.name) {
			continue
		}
		select {
		case c.send <- b.data:
		default:
			log.Printf("client %s send buffer full, dropping message", c.id)
		}
	}
	h.mu.RUnlock()
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" || token != h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("websocket accept error: %v", err)
		return
	}

	client := newClient(conn, h)

	h.sessionsMu.RLock()
	sessions := h.sessions
	h.sessionsMu.RUnlock()

	msg := SessionsMessage{Type: "sessions", List: sessions}
	initialSessions, _ := json.Marshal(msg)

	select {
	case h.register <- &clientRegistration{client: client, initialSessions: initialSessions}:
	default:
		log.Printf("hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
		return
	}
}

// BroadcastOutput queues scrollback entries for fan-out, batched per session
// unless batching is off.
func (h *Hub) BroadcastOutput(msg OutputMessage) {
	if h.batchEnabled && h.rateLimiter != nil {
		h.rateLimiter.Add(msg)
	} else {
		h.sendOutput(msg)
	}
}

func (h *Hub) sendOutput(msg OutputMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling output message: %v", err)
		return
	}
	select {
	case h.broadcast <- hubBroadcast{data: data, name: msg.Name}:
	default:
		log.Printf("broadcast channel full, dropping message")
	}
}

// BroadcastSessions replaces the retained session list and pushes it to all
// clients.
func (h *Hub) BroadcastSessions(sessions []SessionInfo) {
	h.sessionsMu.Lock()
	h.sessions = sessions
	h.sessionsMu.Unlock()

	msg := SessionsMessage{Type: "sessions", List: sessions}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling sessions message: %v", err)
		return
	}
	select {
	case h.broadcast <- hubBroadcast{data: data}:
	default:
		log.Printf("broadcast channel full, dropping sessions message")
	}
}

func (h *Hub) BroadcastSessionStatus(id, name, status string, atPrompt bool) {
	msg := StatusMessage{Type: "session_status", SessionID: id, Name: name, Status: status, AtPrompt: atPrompt}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling status message: %v", err)
		return
	}
	select {
	case h.broadcast <- hubBroadcast{data: data, name: name}:
	default:
		log.Printf("broadcast channel full, dropping status message")
	}
}

func (h *Hub) BroadcastHistorySaved(id, name, path string, count int) {
	msg := HistorySavedMessage{Type: "history_saved", SessionID: id, Name: name, Path: path, Count: count}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling history message: %v", err)
		return
	}
	select {
	case h.broadcast <- hubBroadcast{data: data, name: name}:
	default:
		log.Printf("broadcast channel full, dropping history message")
	}
}

func (h *Hub) SendError(client *Client, message string) {
	msg := ErrorMessage{Type: "error", Message: message}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling error message: %v", err)
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleInput(name string, line string) {
	if h.onInput != nil {
		h.onInput(name, line)
	}
}

func (h *Hub) handleKey(name string, key string) {
	if h.onKey != nil {
		h.onKey(name, key)
	}
}

func (h *Hub) handleResize(name string, cols, rows int) {
	if h.onResize != nil {
		h.onResize(name, cols, rows)
	}
}

func (h *Hub) SetBatchEnabled(enabled bool) {
	h.batchEnabled = enabled
}

func (h *Hub) FlushPendingOutput() {
	if h.rateLimiter != nil {
		h.rateLimiter.FlushAll()
	}
}

func (h *Hub) isRunning() bool {
	return h.running.Load()
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.isRunning() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		log.Printf("unregister channel full for client %s, forcing close", c.id)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
