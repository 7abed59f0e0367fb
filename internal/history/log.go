package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/highload-stats/server/internal/metric"
)

// Record is one line of the durable log.
type Record struct {
	E string `json:"e"`
	T int64  `json:"t"`
	D any    `json:"d"`
}

// Log is the append-only, time-sampled history of metric events. The
// modulo gate keeps roughly one row per event type per 10 seconds;
// the periodic trim rewrites the file down to a 24h row budget.
// Appends and the trim share the file through a suppression flag:
// appends during a trim are dropped, not delayed.
type Log struct {
	path string

	mu         sync.Mutex // guards file writes and the sampling state
	events     map[string]struct{}
	lastWindow map[string]int64 // event name -> last 10s window appended

	trimming atomic.Bool
}

func NewLog(path string) *Log {
	return &Log{
		path:       path,
		events:     make(map[string]struct{}),
		lastWindow: make(map[string]int64),
	}
}

func (l *Log) Path() string { return l.path }

// sampleWindow is the width, in seconds, of the accepted slice of each
// 10-second wall-clock window.
const sampleWindow = 1

// Append writes one event to the log if the sampling gate is open. An
// I/O failure is logged and the row is lost; there is no buffering.
func (l *Log) Append(ev *metric.Event) {
	if l.trimming.Load() {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	name := string(ev.Name)
	l.events[name] = struct{}{}

	if (ev.Timestamp/1000)%10 > sampleWindow {
		return
	}
	// One row per event type per window, however bursty the emissions.
	window := ev.Timestamp / 10000
	if l.lastWindow[name] == window {
		return
	}
	l.lastWindow[name] = window

	row, err := json.Marshal(Record{E: string(ev.Name), T: ev.Timestamp, D: ev.Payload})
	if err != nil {
		log.Printf("[history] marshal error: %v", err)
		return
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[history] failed save history: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(row, '\n')); err != nil {
		log.Printf("[history] failed save history: %v", err)
	}
}

// RunTrim trims the log on a fixed period until the context ends.
func (l *Log) RunTrim(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.Trim(); err != nil {
				log.Printf("[history] failed cleaning history: %v", err)
			}
		}
	}
}

// Trim rewrites the log keeping only the newest rows within the 24h
// budget (one row per event type per 10s window). Any failure leaves
// the existing log untouched; appends are re-enabled either way.
func (l *Log) Trim() error {
	l.trimming.Store(true)
	defer l.trimming.Store(false)

	l.mu.Lock()
	limit := 86400 * len(l.events) / 10
	l.mu.Unlock()
	if limit == 0 {
		return nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading log: %w", err)
	}

	kept := tailLines(data, limit)
	if kept == nil {
		return nil // already within budget
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, kept, 0o644); err != nil {
		return fmt.Errorf("writing trimmed log: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing log: %w", err)
	}

	log.Printf("[history] trimmed, limit rows: %d", limit)
	return nil
}

// tailLines returns the newest limit lines of data, or nil when the
// data is already within the limit.
func tailLines(data []byte, limit int) []byte {
	trimmed := bytes.TrimSuffix(data, []byte("\n"))
	if len(trimmed) == 0 {
		return nil
	}

	count := bytes.Count(trimmed, []byte("\n")) + 1
	if count <= limit {
		return nil
	}

	// Walk back limit newlines from the end.
	idx := len(trimmed)
	for i := 0; i < limit; i++ {
		prev := bytes.LastIndexByte(trimmed[:idx], '\n')
		if prev < 0 {
			idx = 0
			break
		}
		idx = prev
	}
	if idx > 0 {
		idx++ // skip the newline itself
	}

	out := make([]byte, 0, len(trimmed)-idx+1)
	out = append(out, trimmed[idx:]...)
	out = append(out, '\n')
	return out
}
