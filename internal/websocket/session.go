// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/hexpulse/internal/logging"
	"github.com/tomtom215/hexpulse/internal/metrics"
)

const (
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	keepalive    = idleTimeout * 9 / 10
	readLimit    = 64 * 1024
	outboxSize   = 256
)

// Session is one viewer connection. Only the hub closes out and gone,
// both under its lock when the session is detached.
type Session struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	out  chan Message
	gone chan struct{}
}

func newSession(id uint64, hub *Hub, conn *websocket.Conn) *Session {
	return &Session{
		id:   id,
		hub:  hub,
		conn: conn,
		out:  make(chan Message, outboxSize),
		gone: make(chan struct{}),
	}
}

// ID returns the session's hub-assigned id.
func (s *Session) ID() uint64 {
	return s.id
}

// offer queues msg without blocking and reports whether it fit.
func (s *Session) offer(msg Message) bool {
	select {
	case s.out <- msg:
		metrics.WSMessagesSent.WithLabelValues(msg.Type).Inc()
		return true
	default:
		return false
	}
}

// readLoop only answers pings; viewer commands go through the HTTP API.
func (s *Session) readLoop() {
	defer func() {
		select {
		case s.hub.leave <- s:
		case <-s.gone:
		}
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(readLimit)
	extend := func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	}
	if err := extend(""); err != nil {
		logging.Error().Err(err).Uint64("client_id", s.id).Msg("set read deadline")
		return
	}
	s.conn.SetPongHandler(extend)

	for {
		var in Message
		err := s.conn.ReadJSON(&in)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("unexpected_close").Inc()
				logging.Warn().Err(err).Uint64("client_id", s.id).Msg("websocket closed unexpectedly")
			}
			return
		}
		if in.Type == MessageTypePing {
			s.hub.reply(s, Message{Type: MessageTypePong})
		}
	}
}

func (s *Session) writeLoop() {
	ping := time.NewTicker(keepalive)
	defer func() {
		ping.Stop()
		_ = s.conn.Close()
	}()

	for {
		var (
			frameType = websocket.PingMessage
			payload   []byte
		)
		select {
		case msg, open := <-s.out:
			if !open {
				_ = s.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeTimeout))
				return
			}
			data, err := MarshalMessage(msg)
			if err != nil {
				metrics.WSErrors.WithLabelValues("marshal").Inc()
				logging.Error().Err(err).Str("message_type", msg.Type).Msg("encode websocket message")
				continue
			}
			frameType, payload = websocket.TextMessage, data
		case <-ping.C:
		}

		if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := s.conn.WriteMessage(frameType, payload); err != nil {
			if frameType == websocket.TextMessage {
				metrics.WSErrors.WithLabelValues("write").Inc()
			}
			logging.Debug().Err(err).Uint64("client_id", s.id).Msg("websocket write failed")
			return
		}
	}
}
