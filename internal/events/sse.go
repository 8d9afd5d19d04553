package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ReportMapper/internal/logger"
	"ReportMapper/internal/mapping"
)

const (
	EventConnected  = "connected"
	EventChange     = "change"
	EventValidation = "validation"
	EventPing       = "ping"
	EventClosed     = "closed"
)

type SSEClient struct {
	sessionID string
	writer    http.ResponseWriter
	flusher   http.Flusher
	mu        sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	lastPing  time.Time
}

// close waits for any in-flight write, so nothing reaches the writer after
// it returns.
func (c *SSEClient) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		close(c.done)
		c.mu.Unlock()
	})
}

// SSEServer streams editor events to browsers, one connection per session.
// A newer connection for the same session replaces the older one.
type SSEServer struct {
	mu           sync.RWMutex
	clients      map[string]*SSEClient
	pingInterval time.Duration
	stopCh       chan struct{}
	stopOnce     sync.Once
	log          logrus.FieldLogger
}

func NewSSEServer(cfg map[string]interface{}) *SSEServer {
	interval := 30 * time.Second
	if v, ok := cfg["ping_interval"].(string); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}
	return &SSEServer{
		clients:      make(map[string]*SSEClient),
		pingInterval: interval,
		stopCh:       make(chan struct{}),
		log:          logger.L().WithField("component", "sse"),
	}
}

func (s *SSEServer) Name() string { return "events" }

func (s *SSEServer) Start() error {
	go s.pingClients()
	return nil
}

func (s *SSEServer) Stop() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.mu.Lock()
	for _, client := range s.clients {
		client.close()
	}
	s.clients = make(map[string]*SSEClient)
	s.mu.Unlock()
	return nil
}

// Serve streams events for sessionID until the client goes away, a newer
// connection replaces it, or the server stops.
func (s *SSEServer) Serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	client := &SSEClient{
		sessionID: sessionID,
		writer:    w,
		flusher:   flusher,
		done:      make(chan struct{}),
		lastPing:  time.Now(),
	}

	s.mu.Lock()
	if existing, exists := s.clients[sessionID]; exists {
		existing.close()
	}
	s.clients[sessionID] = client
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"session": sessionID, "remote": r.RemoteAddr}).Info("sse connected")
	s.send(client, EventConnected, map[string]interface{}{
		"session": sessionID,
		"time":    time.Now().Format(time.RFC3339),
	})

	defer func() {
		s.drop(sessionID, client)
		s.log.WithField("session", sessionID).Info("sse disconnected")
	}()

	select {
	case <-client.done:
	case <-r.Context().Done():
	case <-s.stopCh:
	}
}

func (s *SSEServer) drop(sessionID string, client *SSEClient) {
	s.mu.Lock()
	if s.clients[sessionID] == client {
		delete(s.clients, sessionID)
	}
	s.mu.Unlock()
	client.close()
}

func (s *SSEServer) send(client *SSEClient, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	select {
	case <-client.done:
		return fmt.Errorf("client for session %s is closed", client.sessionID)
	default:
	}
	if _, err := fmt.Fprintf(client.writer, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	client.flusher.Flush()
	return nil
}

// Publish sends one event to the session's client, if connected.
func (s *SSEServer) Publish(sessionID, event string, data interface{}) {
	s.mu.RLock()
	client, exists := s.clients[sessionID]
	s.mu.RUnlock()
	if !exists {
		return
	}
	if err := s.send(client, event, data); err != nil {
		s.log.WithError(err).WithField("session", sessionID).Warn("sse send failed")
		s.drop(sessionID, client)
	}
}

// Close ends the session's stream after telling the client why.
func (s *SSEServer) Close(sessionID, reason string) {
	s.Publish(sessionID, EventClosed, map[string]string{"reason": reason})
	s.mu.Lock()
	client, exists := s.clients[sessionID]
	if exists {
		delete(s.clients, sessionID)
	}
	s.mu.Unlock()
	if exists {
		client.close()
	}
}

// ChangeFunc forwards editor mapping changes to the session's stream.
func (s *SSEServer) ChangeFunc(sessionID string) mapping.ChangeFunc {
	return func(m mapping.Mapping) {
		s.Publish(sessionID, EventChange, map[string]interface{}{"periodMapping": m})
	}
}

// ValidateFunc forwards validation outcomes to the session's stream.
func (s *SSEServer) ValidateFunc(sessionID string) mapping.ValidateFunc {
	return func(valid bool, errs []string) {
		s.Publish(sessionID, EventValidation, mapping.ValidationResult{Valid: valid, Errors: errs})
	}
}

// Connected reports whether a stream is open for sessionID.
func (s *SSEServer) Connected(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.clients[sessionID]
	return ok
}

func (s *SSEServer) pingClients() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.RLock()
			clients := make(map[string]*SSEClient, len(s.clients))
			for id, c := range s.clients {
				clients[id] = c
			}
			s.mu.RUnlock()

			for id, client := range clients {
				err := s.send(client, EventPing, map[string]string{"time": time.Now().Format(time.RFC3339)})
				if err != nil {
					s.drop(id, client)
					continue
				}
				client.mu.Lock()
				client.lastPing = time.Now()
				client.mu.Unlock()
			}
		case <-s.stopCh:
			return
		}
	}
}
