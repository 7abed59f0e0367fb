package hub

import "encoding/json"

// Envelope is every server-to-client message: the recipient's own
// session id plus an event payload. The first message after connect
// carries only the id.
type Envelope struct {
	ID   string `json:"id"`
	Data any    `json:"data,omitempty"`
}

// Inbound is a viewer-originated control message.
type Inbound struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Time    json.RawMessage `json:"time,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Recognized inbound commands. Anything else is silently ignored.
const (
	cmdPing     = "ping"
	cmdEveryone = "everyone"
	cmdTo       = "to"
	cmdStats    = "stats"
)

type pongReply struct {
	Event string          `json:"event"`
	Time  json.RawMessage `json:"time"`
}

type relayReply struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type statsReply struct {
	Event string            `json:"event"`
	Mem   map[string]uint64 `json:"mem"`
}
