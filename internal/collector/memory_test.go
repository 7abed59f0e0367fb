package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

var meminfoFixture = fixture(
	"MemTotal:        8000000 kB",
	"MemFree:         2000000 kB",
	"MemAvailable:    4000000 kB",
	"Buffers:          500000 kB",
	"Cached:          1500000 kB",
	"SwapCached:            0 kB",
	"Shmem:            100000 kB",
	"Slab:             400000 kB",
	"SwapTotal:       2000000 kB",
	"SwapFree:        1800000 kB",
)

func TestParseMemInfo(t *testing.T) {
	payload, err := parseMemInfo(meminfoFixture)
	if err != nil {
		t.Fatalf("parseMemInfo: %v", err)
	}

	if payload.TotalRAM != 8000000 || payload.TotalSwap != 2000000 {
		t.Errorf("totals = %d/%d, want 8000000/2000000", payload.TotalRAM, payload.TotalSwap)
	}
	if len(payload.Charts) != 8 {
		t.Fatalf("expected 8 categories, got %d", len(payload.Charts))
	}

	byName := make(map[string]float64, len(payload.Charts))
	for _, p := range payload.Charts {
		byName[p.Name] = p.Y
	}

	// used = 8000000 - 2000000 - 500000 - 1500000 - 400000 = 3600000 kB,
	// total = 10000000 kB -> 36%.
	if got := byName["used"]; got != 36 {
		t.Errorf("used = %v%%, want 36%%", got)
	}
	if got := byName["free"]; got != 20 {
		t.Errorf("free = %v%%, want 20%%", got)
	}
	if got := byName["swap used"]; got != 2 {
		t.Errorf("swap used = %v%%, want 2%%", got)
	}
}

func TestParseMemInfo_MissingTotals(t *testing.T) {
	_, err := parseMemInfo(fixture("Bogus: 1 kB"))
	if err == nil {
		t.Fatal("expected parse error without MemTotal")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
}

func TestMemoryCollector_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meminfo")
	if err := os.WriteFile(path, meminfoFixture, 0o644); err != nil {
		t.Fatal(err)
	}

	c := &MemoryCollector{Path: path}
	ev, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if ev.Name != "memory" {
		t.Errorf("event name = %s, want memory", ev.Name)
	}
	if ev.Timestamp == 0 {
		t.Error("event should carry a wall-clock timestamp")
	}
}
