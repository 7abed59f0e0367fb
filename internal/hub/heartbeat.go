package hub

import (
	"context"
	"log"
	"time"
)

// Heartbeat sweeps the registry on a fixed period, pinging every live
// session and evicting the ones whose last pong is older than the
// timeout. This is the sole mechanism for detecting half-open peers.
type Heartbeat struct {
	hub      *Hub
	interval time.Duration
	timeout  time.Duration
}

func NewHeartbeat(hub *Hub, interval, timeout time.Duration) *Heartbeat {
	return &Heartbeat{hub: hub, interval: interval, timeout: timeout}
}

func (hb *Heartbeat) Run(ctx context.Context) error {
	ticker := time.NewTicker(hb.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			hb.sweep()
		}
	}
}

func (hb *Heartbeat) sweep() {
	now := nowMilli()
	pinged := 0
	evicted := 0

	hb.hub.Registry().ForEach(func(s *Session) {
		if now-s.lastPong() > hb.timeout.Milliseconds() {
			hb.hub.Registry().Unregister(s.ID)
			hb.hub.broadcastQuantity()
			evicted++
			log.Printf("[hub] close timeout - %s", s.ID)
			return
		}

		// Ping carries the session id as an opaque echo token; the pong
		// handler maps it back to the session.
		deadline := time.Now().Add(hb.interval)
		if err := s.pingTransport(s.ID, deadline); err == nil {
			s.markPing(now)
			pinged++
		}
	})

	if pinged > 0 || evicted > 0 {
		log.Printf("[hub] heartbeat: pinged %d, evicted %d", pinged, evicted)
	}
}
