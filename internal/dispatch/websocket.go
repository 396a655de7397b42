package dispatch

import (
	"context"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"marksix-lab/internal/observability"
	"marksix-lab/internal/replay"
)

// WSConfig configures WebSocket connection behavior.
type WSConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a connection may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// MaxMessageSize bounds one inbound request.
	MaxMessageSize int64
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: maxLineSize,
	}
}

// WSOptions contains configuration for creating a WSHandler.
type WSOptions struct {
	Config  *WSConfig // nil means DefaultWSConfig
	Logger  *log.Logger
	Metrics *observability.Metrics
	Sources SourceResolver

	// Shared, when set, is used by every connection. Otherwise each
	// connection gets its own session built from SessionOptions.
	Shared         *replay.Session
	SessionOptions replay.SessionOptions

	// CheckOrigin overrides the upgrader origin check. Nil allows all origins.
	CheckOrigin func(r *http.Request) bool
}

// WSHandler upgrades HTTP requests and serves the command protocol over
// the resulting connection. Requests on one connection are handled in order.
type WSHandler struct {
	cfg      WSConfig
	opts     WSOptions
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a WebSocket handler.
func NewWSHandler(opts WSOptions) *WSHandler {
	cfg := DefaultWSConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WSHandler{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// ServeHTTP implements http.Handler.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade: %v", err)
		return
	}

	session := h.opts.Shared
	if session == nil {
		so := h.opts.SessionOptions
		if so.Logger == nil {
			so.Logger = h.logger
		}
		if so.Metrics == nil {
			so.Metrics = h.opts.Metrics
		}
		session = replay.NewSession(so)
	}
	d := New(Options{
		Session:   session,
		Sources:   h.opts.Sources,
		Logger:    h.logger,
		Metrics:   h.opts.Metrics,
		Transport: "ws",
	})

	h.opts.Metrics.SessionOpened()
	defer h.opts.Metrics.SessionClosed()
	h.logger.Printf("websocket session %s opened from %s", session.ID(), r.RemoteAddr)

	c := &wsConn{conn: conn, cfg: h.cfg, done: make(chan struct{})}
	c.serve(r.Context(), d)
	h.logger.Printf("websocket session %s closed", session.ID())
}

// wsConn is one served connection. Writes are serialized by mu.
type wsConn struct {
	conn *websocket.Conn
	cfg  WSConfig
	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

func (c *wsConn) serve(ctx context.Context, d *Dispatcher) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})

	c.wg.Add(1)
	go c.pingLoop()

	defer func() {
		close(c.done)
		c.wg.Wait()
		c.mu.Lock()
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.mu.Unlock()
		c.conn.Close()
	}()

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))

		resp := d.HandleLine(ctx, message)
		if err := c.writeJSON(resp); err != nil {
			return
		}
	}
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// pingLoop sends periodic pings to keep the connection alive.
func (c *wsConn) pingLoop() {
	defer c.wg.Done()

	if c.cfg.PingInterval <= 0 {
		<-c.done
		return
	}
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
