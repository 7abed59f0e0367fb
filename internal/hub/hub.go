package hub

import (
	"encoding/json"
	"log"

	"github.com/gorilla/websocket"

	"github.com/highload-stats/server/internal/metric"
)

// Hub fans metric events and command replies out to live sessions. A
// slow or dead recipient never blocks delivery to the others: each
// outgoing copy is enveloped with the recipient's own id, serialized
// per recipient, and dropped when the recipient is not writable.
type Hub struct {
	registry *Registry
	debug    bool
}

func NewHub(registry *Registry, debug bool) *Hub {
	return &Hub{registry: registry, debug: debug}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// SendTo delivers data to one session, if it exists and its transport
// currently accepts writes. Anything else is silently dropped — not
// queued, not retried.
func (h *Hub) SendTo(id string, data any) {
	s, ok := h.registry.Get(id)
	if !ok {
		return
	}
	msg, err := json.Marshal(Envelope{ID: id, Data: data})
	if err != nil {
		log.Printf("[hub] marshal error: %v", err)
		return
	}
	s.queueWrite(msg)
}

// Broadcast delivers data to every live session, tagging each copy
// with the recipient's own id. Per-recipient failures are isolated.
func (h *Hub) Broadcast(data any) {
	h.registry.ForEach(func(s *Session) {
		msg, err := json.Marshal(Envelope{ID: s.ID, Data: data})
		if err != nil {
			log.Printf("[hub] marshal error: %v", err)
			return
		}
		s.queueWrite(msg)
	})
}

// BroadcastEvent pushes one collector emission to all viewers.
func (h *Hub) BroadcastEvent(ev *metric.Event) {
	h.Broadcast(ev.Payload)
}

// Connect registers the transport as a new session, greets it with its
// assigned id, announces the new presence counts, and runs the read
// loop until the peer goes away.
func (h *Hub) Connect(conn *websocket.Conn, remoteAddr string) {
	s := h.registry.Register(conn, remoteAddr)
	log.Printf("[hub] open - %s (%s)", s.ID, s.RemoteAddr)

	conn.SetPongHandler(func(appData string) error {
		h.handlePong(appData)
		return nil
	})

	// Greeting: the only message without a data payload.
	if msg, err := json.Marshal(Envelope{ID: s.ID}); err == nil {
		s.queueWrite(msg)
	}
	h.broadcastQuantity()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.dispatch(raw)
	}

	h.registry.Unregister(s.ID)
	h.broadcastQuantity()
	log.Printf("[hub] close - %s", s.ID)
}

// handlePong records liveness for the session whose id the peer echoed
// back in the pong payload.
func (h *Hub) handlePong(id string) {
	if s, ok := h.registry.Get(id); ok {
		s.markPong(nowMilli())
	}
}

// dispatch handles one viewer-originated message. Unparseable payloads
// and unknown session ids are dropped with a local log line; unknown
// commands are ignored.
func (h *Hub) dispatch(raw []byte) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		log.Printf("[hub] message parse error: %v", err)
		return
	}
	if _, ok := h.registry.Get(in.ID); !ok {
		return
	}

	if h.debug {
		log.Printf("[hub] msg %s - %s", in.ID, raw)
	}

	switch in.Command {
	case cmdPing:
		h.SendTo(in.ID, pongReply{Event: "pong", Time: in.Time})

	case cmdEveryone:
		h.Broadcast(relayReply{Event: cmdEveryone, Data: in.Data})

	case cmdTo:
		h.SendTo(in.ID, relayReply{Event: cmdTo, Data: in.Data})

	case cmdStats:
		h.SendTo(in.ID, statsReply{Event: cmdStats, Mem: processMemory()})
	}
}

// broadcastQuantity recomputes the presence counters and announces
// them to every session.
func (h *Hub) broadcastQuantity() {
	connections, online := h.registry.Counts()
	h.Broadcast(metric.QuantityPayload{
		Event:              string(metric.Quantity),
		QuantityConnection: connections,
		QuantityOnline:     online,
	})
}
