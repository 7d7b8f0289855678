package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dawei7/biblereader/internal/models"
	"github.com/dawei7/biblereader/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// liveRequest is a frame sent by a live client. Only the fields present are
// applied: text is debounced, the others search at once.
type liveRequest struct {
	Text          *string       `json:"text,omitempty"`
	Mode          *models.Mode  `json:"mode,omitempty"`
	CaseSensitive *bool         `json:"case_sensitive,omitempty"`
	Scope         *models.Scope `json:"scope,omitempty"`
}

type client struct {
	conn *websocket.Conn
	// send holds at most one pending state; a newer state replaces an
	// unsent older one.
	send chan []byte
}

// hub fans published session states out to live clients.
type hub struct {
	logger  *zap.Logger
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub(logger *zap.Logger) *hub {
	return &hub{logger: logger, clients: make(map[*client]struct{})}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("live client connected", zap.Int("clients", n))
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("live client disconnected", zap.Int("clients", n))
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) publish(state session.State) {
	data, err := json.Marshal(state)
	if err != nil {
		h.logger.Error("failed to marshal live state", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case <-c.send:
		default:
		}
		c.send <- data
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("live upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 1)}
	// The current state goes out first so a new client does not wait for
	// the next search.
	if snap := s.session.Snapshot(); snap.Result != nil {
		if data, err := json.Marshal(snap); err == nil {
			c.send <- data
		}
	}
	s.hub.add(c)

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("live unexpected close", zap.Error(err))
			}
			return
		}
		var req liveRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.logger.Debug("live: invalid frame", zap.Error(err))
			continue
		}
		s.applyLive(req)
	}
}

func (s *Server) applyLive(req liveRequest) {
	if req.Mode != nil {
		if mode, err := models.ParseMode(string(*req.Mode)); err == nil {
			s.session.SetMode(mode)
		}
	}
	if req.CaseSensitive != nil {
		s.session.SetCaseSensitive(*req.CaseSensitive)
	}
	if req.Scope != nil {
		scope := *req.Scope
		if err := scope.Validate(); err == nil {
			s.session.SetScope(scope)
		}
	}
	if req.Text != nil {
		s.session.SetQueryInput(*req.Text)
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
