// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package websocket

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/hexpulse/internal/logging"
	"github.com/tomtom215/hexpulse/internal/metrics"
)

// ShutdownReason is logged when Run returns.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types pushed to viewers.
const (
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeSnapshot     = "snapshot"
	MessageTypeOverlayClear = "overlay_clear"
	MessageTypeOverlayChunk = "overlay_chunk"
	MessageTypeOverlayDone  = "overlay_done"
	MessageTypeViewport     = "viewport"
	MessageTypeStatsUpdate  = "stats_update"
	MessageTypeSelection    = "selection"
)

// queueSize holds a full overlay run: an 8000 cell batch is about 40
// chunks plus the clear, done and viewport frames.
const queueSize = 1024

// Message is one frame on the wire.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// MarshalMessage encodes msg as a JSON text frame.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Broadcaster is what the overlay, refresh and drill-down packages publish to.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// Hub fans messages out to every attached session. Sessions join and
// leave through the Run loop; the session map is also read under mu by
// ClientCount.
type Hub struct {
	join  chan *Session
	leave chan *Session
	queue chan Message

	stopped  chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	sessions map[uint64]*Session

	nextID  atomic.Uint64
	welcome func() []Message
}

func NewHub() *Hub {
	return &Hub{
		join:     make(chan *Session),
		leave:    make(chan *Session),
		queue:    make(chan Message, queueSize),
		stopped:  make(chan struct{}),
		sessions: make(map[uint64]*Session),
	}
}

// SetWelcome installs the snapshot builder queued to every new session
// ahead of any broadcast. Call it before Run.
func (h *Hub) SetWelcome(fn func() []Message) {
	h.welcome = fn
}

// Attach hands conn to the hub and starts its pumps. It blocks until Run
// accepts the session. Once the hub has stopped, conn is closed and Attach
// returns nil.
func (h *Hub) Attach(conn *websocket.Conn) *Session {
	s := newSession(h.nextID.Add(1), h, conn)
	select {
	case h.join <- s:
	case <-h.stopped:
		metrics.WSErrors.WithLabelValues("hub_stopped").Inc()
		_ = conn.Close()
		return nil
	}
	go s.writeLoop()
	go s.readLoop()
	return s
}

// Run serves joins, leaves and broadcasts until ctx ends, then closes
// every session and returns ctx.Err(). Pending joins and leaves are
// settled before the next broadcast goes out.
func (h *Hub) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return h.shutdown(ctx)
		}

		select {
		case s := <-h.join:
			h.add(s)
			continue
		case s := <-h.leave:
			h.remove(s, "")
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return h.shutdown(ctx)
		case s := <-h.join:
			h.add(s)
		case s := <-h.leave:
			h.remove(s, "")
		case msg := <-h.queue:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) add(s *Session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	n := len(h.sessions)
	h.mu.Unlock()
	metrics.WSConnections.Inc()

	if h.welcome != nil {
		for _, msg := range h.welcome() {
			if !s.offer(msg) {
				metrics.WSErrors.WithLabelValues("welcome_dropped").Inc()
			}
		}
	}
	logging.Info().Uint64("client_id", s.id).Int("total_clients", n).Msg("websocket client connected")
}

// remove detaches s and closes its outbox. A non-empty cause is counted
// as an error. Safe to call for a session that already left.
func (h *Hub) remove(s *Session, cause string) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	if ok {
		h.detach(s)
	}
	n := len(h.sessions)
	h.mu.Unlock()
	if !ok {
		return
	}

	if cause != "" {
		metrics.WSErrors.WithLabelValues(cause).Inc()
		logging.Warn().Uint64("client_id", s.id).Str("cause", cause).Msg("websocket client dropped")
		return
	}
	logging.Info().Uint64("client_id", s.id).Int("total_clients", n).Msg("websocket client disconnected")
}

// detach requires h.mu held for writing.
func (h *Hub) detach(s *Session) {
	delete(h.sessions, s.id)
	close(s.out)
	close(s.gone)
	metrics.WSConnections.Dec()
}

// reply queues msg for s alone, unless s has already been detached.
func (h *Hub) reply(s *Session, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.sessions[s.id] == s {
		s.offer(msg)
	}
}

// fanOut delivers msg in session id order. A session whose outbox is full
// has fallen behind the overlay stream and is dropped; it resynchronizes
// from the welcome snapshot on reconnect.
func (h *Hub) fanOut(msg Message) {
	var lagging []*Session
	h.mu.RLock()
	for _, s := range h.ordered() {
		if !s.offer(msg) {
			lagging = append(lagging, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range lagging {
		h.remove(s, "slow_client")
	}
}

// ordered requires h.mu held.
func (h *Hub) ordered() []*Session {
	ids := make([]uint64, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*Session, len(ids))
	for i, id := range ids {
		out[i] = h.sessions[id]
	}
	return out
}

func (h *Hub) shutdown(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stopped) })

	h.mu.Lock()
	closed := len(h.sessions)
	for _, s := range h.ordered() {
		h.detach(s)
	}
	h.mu.Unlock()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(shutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
	return ctx.Err()
}

func shutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// BroadcastJSON queues a message for every session. When the queue is
// full the message is dropped and counted.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.queue <- Message{Type: messageType, Data: data}:
	default:
		metrics.WSErrors.WithLabelValues("broadcast_full").Inc()
		logging.Warn().Str("message_type", messageType).Msg("broadcast queue full, message dropped")
	}
}

// ClientCount reports the attached sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
