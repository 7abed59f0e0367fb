package hub

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Session is one connected viewer: the websocket transport it
// exclusively owns plus the liveness timestamps the heartbeat sweep
// reads. A Session lives in the registry from connect to close.
type Session struct {
	ID         string
	RemoteAddr string
	CreatedAt  int64

	conn *websocket.Conn
	send chan []byte

	mu                 sync.Mutex
	closed             bool
	lastPingSentAt     int64
	lastPongReceivedAt int64
	lastSendAt         int64
}

const sendBufferSize = 64

func newSession(conn *websocket.Conn, remoteAddr string) *Session {
	now := time.Now().UnixMilli()
	s := &Session{
		ID:                 newSessionID(),
		RemoteAddr:         stripPort(remoteAddr),
		CreatedAt:          now,
		conn:               conn,
		send:               make(chan []byte, sendBufferSize),
		lastPingSentAt:     now,
		lastPongReceivedAt: now,
	}
	go s.writePump()
	return s
}

// newSessionID derives a collision-resistant token from random bytes
// plus the current time through a one-way hash.
func newSessionID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is effectively unreachable; fall back to
		// time alone rather than aborting the connect.
		copy(buf[:], fmt.Sprintf("%d", time.Now().UnixNano()))
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%x.%d", buf, time.Now().UnixNano())))
	return hex.EncodeToString(sum[:])
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (s *Session) writePump() {
	defer s.conn.Close()
	for msg := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// queueWrite hands a serialized message to the write pump. It reports
// whether the message was accepted: a closed session or a full send
// buffer drops the message instead of blocking the caller.
func (s *Session) queueWrite(msg []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- msg:
		s.lastSendAt = time.Now().UnixMilli()
		return true
	default:
		return false
	}
}

// close shuts the session down. Safe to call more than once; the
// transport is closed by the write pump when the channel drains.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	s.mu.Unlock()
	// Unblock a write pump stuck on a dead peer.
	s.conn.Close()
}

func (s *Session) markPing(now int64) {
	s.mu.Lock()
	s.lastPingSentAt = now
	s.mu.Unlock()
}

func (s *Session) markPong(now int64) {
	s.mu.Lock()
	s.lastPongReceivedAt = now
	s.mu.Unlock()
}

// lastPong returns the time the session last answered a heartbeat ping.
func (s *Session) lastPong() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPongReceivedAt
}

// LastSendAt returns the timestamp of the last successful delivery.
func (s *Session) LastSendAt() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSendAt
}

func (s *Session) pingTransport(id string, deadline time.Time) error {
	return s.conn.WriteControl(websocket.PingMessage, []byte(id), deadline)
}
