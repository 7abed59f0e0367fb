package collector

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/highload-stats/server/internal/metric"
)

// coreSample is one core's absolute counters from /proc/stat.
type coreSample struct {
	idle  float64
	total float64
}

// CPUCollector samples per-core counters from /proc/stat and derives a
// 0-100 load figure per core from the deltas against the previous tick.
type CPUCollector struct {
	Path string // defaults to /proc/stat

	prev map[string]coreSample
}

func (c *CPUCollector) Name() metric.Name { return metric.CPU }

func (c *CPUCollector) Collect(ctx context.Context) (*metric.Event, error) {
	path := c.Path
	if path == "" {
		path = "/proc/stat"
	}
	out, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if c.prev == nil {
		c.prev = make(map[string]coreSample)
	}
	payload, err := parseProcStat(out, c.prev)
	if err != nil {
		return nil, err
	}
	return metric.New(metric.CPU, payload), nil
}

// parseProcStat extracts per-core loads from /proc/stat text, updating
// prev with the absolute counters for the next delta.
func parseProcStat(out []byte, prev map[string]coreSample) (*metric.CPUPayload, error) {
	var loads []int

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 || !strings.HasPrefix(fields[0], "cpu") || fields[0] == "cpu" {
			continue
		}
		core := fields[0]

		idle, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			continue
		}
		var total float64
		for _, f := range fields[1:] {
			if v, err := strconv.ParseFloat(f, 64); err == nil && v > 0 {
				total += v
			}
		}

		loads = append(loads, coreLoad(idle, total, prev[core]))
		prev[core] = coreSample{idle: idle, total: total}
	}

	if len(loads) == 0 {
		return nil, parseErrf("cpu", "no per-core lines in /proc/stat output")
	}

	sum := 0
	for _, l := range loads {
		sum += l
	}
	avg := float64(sum) / float64(len(loads))

	return &metric.CPUPayload{
		Event:  string(metric.CPU),
		Avg:    fmt.Sprintf("%.2f", avg),
		Charts: loads,
	}, nil
}

// coreLoad computes floor((1000*(busy)/totalDelta + 5)/10) where busy
// is totalDelta-idleDelta. A zero totalDelta (first tick after a
// counter reset, or no elapsed jiffies) yields 0.
func coreLoad(idle, total float64, last coreSample) int {
	idleDelta := idle - last.idle
	totalDelta := total - last.total
	if totalDelta <= 0 {
		return 0
	}
	return int((1000*(totalDelta-idleDelta)/totalDelta + 5) / 10)
}
