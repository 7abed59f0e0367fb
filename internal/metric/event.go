package metric

import "time"

// Name identifies one of the fixed metric event types.
type Name string

const (
	Bandwidth Name = "bandwidth"
	IODisk    Name = "io-disk"
	Memory    Name = "memory"
	CPU       Name = "cpu"
	Space     Name = "space"
	MySQL     Name = "mysql"
	Redis     Name = "redis"
	PgBouncer Name = "pg-bouncer"
	Quantity  Name = "quantity"
)

// Event is one immutable sample. Created by a collector, consumed by the
// hub and the history log, never mutated after creation.
type Event struct {
	Name      Name
	Payload   any
	Timestamp int64 // ms since epoch
}

// New stamps a payload with the current time.
func New(name Name, payload any) *Event {
	return &Event{
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// ChartPoint is a single named value in a charts array.
type ChartPoint struct {
	Name string `json:"name"`
	Val  any    `json:"val"`
}

// RatioPoint is a chart entry expressed as a percentage of a total plus
// an absolute size in GB (memory and space events).
type RatioPoint struct {
	Name string  `json:"name"`
	Y    float64 `json:"y"`
	Size string  `json:"size"`
}

// KV is one delta counter in a queries list.
type KV struct {
	K string  `json:"k"`
	V float64 `json:"v"`
}

type BandwidthPayload struct {
	Event  string       `json:"event"`
	Charts []ChartPoint `json:"charts"`
}

type IODiskPayload struct {
	Event  string       `json:"event"`
	IO     float64      `json:"io"`
	Charts []ChartPoint `json:"charts"`
}

type MemoryPayload struct {
	Event     string       `json:"event"`
	TotalRAM  uint64       `json:"totalRam"`
	TotalSwap uint64       `json:"totalSwap"`
	Charts    []RatioPoint `json:"charts"`
}

type CPUPayload struct {
	Event  string `json:"event"`
	Avg    string `json:"avg"`
	Charts []int  `json:"charts"`
}

type SpacePayload struct {
	Event  string       `json:"event"`
	Total  uint64       `json:"total"`
	Charts []RatioPoint `json:"charts"`
}

type MySQLCharts struct {
	Info    map[string]string  `json:"info"`
	Traffic map[string]float64 `json:"traffic"`
	InnoDB  map[string]float64 `json:"innodb"`
	Queries []KV               `json:"queries"`
}

type MySQLPayload struct {
	Event  string      `json:"event"`
	Charts MySQLCharts `json:"charts"`
}

type RedisCharts struct {
	Queries []KV    `json:"queries"`
	Memory  float64 `json:"memory"`
}

type RedisPayload struct {
	Event  string      `json:"event"`
	Charts RedisCharts `json:"charts"`
}

type PgBouncerCharts struct {
	Sent     float64 `json:"sent"`
	Received float64 `json:"received"`
	Queries  []KV    `json:"queries"`
}

type PgBouncerPayload struct {
	Event  string          `json:"event"`
	Charts PgBouncerCharts `json:"charts"`
}

type QuantityPayload struct {
	Event              string `json:"event"`
	QuantityConnection int    `json:"quantityConnection"`
	QuantityOnline     int    `json:"quantityOnline"`
}
