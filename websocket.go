package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type wsMessageType string

const msgSnapshot wsMessageType = "snapshot"

type wsMessage struct {
	Type    wsMessageType `json:"type"`
	Payload interface{}   `json:"payload"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newWSClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{
		conn: conn,
		send: make(chan []byte, 16),
	}
	go c.writePump()
	return c
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// WebSocketSink broadcasts every tick to connected clients at /ws.
// New clients get the latest batch immediately; clients that fall behind are dropped.
type WebSocketSink struct {
	mu       sync.RWMutex
	clients  map[*wsClient]bool
	latest   []byte
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

func NewWebSocketSink(logger *zap.SugaredLogger) *WebSocketSink {
	return &WebSocketSink{
		clients: make(map[*wsClient]bool),
		logger:  logger.Named("websocket"),
	}
}

func (s *WebSocketSink) Publish(ctx context.Context, batch []Snapshot) error {
	data, err := json.Marshal(wsMessage{Type: msgSnapshot, Payload: batchRecord{Sessions: batch}})
	if err != nil {
		return fmt.Errorf("marshal snapshot batch: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = data
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.logger.Warn("Client too slow, disconnecting")
			delete(s.clients, c)
			close(c.send)
		}
	}
	return nil
}

func (s *WebSocketSink) addClient(conn *websocket.Conn) *wsClient {
	c := newWSClient(conn)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = true
	if s.latest != nil {
		c.send <- s.latest
	}
	return c
}

func (s *WebSocketSink) removeClient(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// ClientCount reports the number of connected clients
func (s *WebSocketSink) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *WebSocketSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debugw("Upgrade failed", "error", err)
		return
	}

	s.logger.Debugw("Client connected", "remote", r.RemoteAddr)
	c := s.addClient(conn)
	defer func() {
		s.removeClient(c)
		s.logger.Debugw("Client disconnected", "remote", r.RemoteAddr)
	}()

	// Clients never send anything meaningful; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Serve listens on addr until ctx is cancelled
func (s *WebSocketSink) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Infow("Serving snapshots", "addr", "ws://"+addr+"/ws")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket server: %w", err)
	}
	return nil
}
