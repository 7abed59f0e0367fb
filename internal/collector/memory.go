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

// MemoryCollector samples /proc/meminfo and emits the eight memory
// categories as ratios of RAM+swap.
type MemoryCollector struct {
	Path string // defaults to /proc/meminfo
}

func (c *MemoryCollector) Name() metric.Name { return metric.Memory }

func (c *MemoryCollector) Collect(ctx context.Context) (*metric.Event, error) {
	path := c.Path
	if path == "" {
		path = "/proc/meminfo"
	}
	out, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	payload, err := parseMemInfo(out)
	if err != nil {
		return nil, err
	}
	return metric.New(metric.Memory, payload), nil
}

// parseMemInfo turns /proc/meminfo text (values in kB) into a memory
// payload. Ratios are computed against RAM+swap combined.
func parseMemInfo(out []byte) (*metric.MemoryPayload, error) {
	wanted := map[string]bool{
		"MemTotal": true, "MemFree": true, "Buffers": true, "Cached": true,
		"Slab": true, "Shmem": true, "SwapTotal": true, "SwapFree": true,
	}
	mem := make(map[string]float64, len(wanted))

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		name, rest, ok := strings.Cut(sc.Text(), ":")
		if !ok || !wanted[name] {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		mem[name] = v
	}

	total := mem["MemTotal"] + mem["SwapTotal"]
	if total <= 0 {
		return nil, parseErrf("meminfo", "no MemTotal/SwapTotal in output")
	}

	used := mem["MemTotal"] - mem["MemFree"] - mem["Buffers"] - mem["Cached"] - mem["Slab"]
	swapUsed := mem["SwapTotal"] - mem["SwapFree"]

	point := func(name string, kb float64) metric.RatioPoint {
		return metric.RatioPoint{
			Name: name,
			Y:    kb * 100 / total,
			Size: fmt.Sprintf("%.2f", kb/1024/1024),
		}
	}

	return &metric.MemoryPayload{
		Event:     string(metric.Memory),
		TotalRAM:  uint64(mem["MemTotal"]),
		TotalSwap: uint64(mem["SwapTotal"]),
		Charts: []metric.RatioPoint{
			point("used", used),
			point("free", mem["MemFree"]),
			point("shared", mem["Shmem"]),
			point("buffers", mem["Buffers"]),
			point("cached", mem["Cached"]),
			point("slab", mem["Slab"]),
			point("swap used", swapUsed),
			point("swap free", mem["SwapFree"]),
		},
	}, nil
}
