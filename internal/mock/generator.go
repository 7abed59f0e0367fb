package mock

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/highload-stats/server/internal/collector"
	"github.com/highload-stats/server/internal/metric"
)

// Generator emits synthetic metric events on the real cadence, for
// developing the viewer on hosts without ifstat/iotop/mysql installed.
type Generator struct {
	sink collector.Sink
	rng  *rand.Rand
	tick int
}

func NewGenerator(sink collector.Sink) *Generator {
	return &Generator{
		sink: sink,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Generator) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			g.tick++
			g.emitAll()
		}
	}
}

func (g *Generator) emitAll() {
	g.sink(metric.New(metric.Bandwidth, g.bandwidth()))
	g.sink(metric.New(metric.IODisk, g.ioDisk()))
	g.sink(metric.New(metric.Memory, g.memory()))
	g.sink(metric.New(metric.CPU, g.cpu()))
	g.sink(metric.New(metric.Space, g.space()))
}

// wave produces a slow sine between lo and hi with per-tick jitter.
func (g *Generator) wave(lo, hi, period float64) float64 {
	mid := (lo + hi) / 2
	amp := (hi - lo) / 2
	v := mid + amp*math.Sin(2*math.Pi*float64(g.tick)/period) + g.rng.Float64()*amp*0.1
	return math.Max(lo, math.Min(hi, v))
}

func (g *Generator) bandwidth() *metric.BandwidthPayload {
	return &metric.BandwidthPayload{
		Event: string(metric.Bandwidth),
		Charts: []metric.ChartPoint{
			{Name: "in", Val: g.wave(200, 9000, 60)},
			{Name: "out", Val: g.wave(100, 4000, 45)},
		},
	}
}

func (g *Generator) ioDisk() *metric.IODiskPayload {
	return &metric.IODiskPayload{
		Event: string(metric.IODisk),
		IO:    g.wave(0, 35, 30),
		Charts: []metric.ChartPoint{
			{Name: "read", Val: math.Round(g.wave(0, 2_000_000, 50))},
			{Name: "write", Val: math.Round(g.wave(0, 5_000_000, 40))},
		},
	}
}

func (g *Generator) memory() *metric.MemoryPayload {
	const totalRAM = 16 * 1024 * 1024 // kB
	const totalSwap = 4 * 1024 * 1024
	total := float64(totalRAM + totalSwap)

	used := g.wave(0.3, 0.6, 120) * totalRAM
	cached := g.wave(0.1, 0.25, 90) * totalRAM
	buffers := g.wave(0.01, 0.04, 70) * totalRAM
	slab := g.wave(0.01, 0.03, 80) * totalRAM
	shared := g.wave(0.005, 0.02, 60) * totalRAM
	free := totalRAM - used - cached - buffers - slab
	swapUsed := g.wave(0, 0.1, 200) * totalSwap

	point := func(name string, kb float64) metric.RatioPoint {
		return metric.RatioPoint{
			Name: name,
			Y:    kb * 100 / total,
			Size: fmt.Sprintf("%.2f", kb/1024/1024),
		}
	}

	return &metric.MemoryPayload{
		Event:     string(metric.Memory),
		TotalRAM:  totalRAM,
		TotalSwap: totalSwap,
		Charts: []metric.RatioPoint{
			point("used", used),
			point("free", free),
			point("shared", shared),
			point("buffers", buffers),
			point("cached", cached),
			point("slab", slab),
			point("swap used", swapUsed),
			point("swap free", totalSwap-swapUsed),
		},
	}
}

func (g *Generator) cpu() *metric.CPUPayload {
	const cores = 4
	loads := make([]int, cores)
	sum := 0
	for i := range loads {
		loads[i] = int(g.wave(2, 95, float64(30+10*i)))
		sum += loads[i]
	}
	return &metric.CPUPayload{
		Event:  string(metric.CPU),
		Avg:    fmt.Sprintf("%.2f", float64(sum)/cores),
		Charts: loads,
	}
}

func (g *Generator) space() *metric.SpacePayload {
	const total = 512 * 1024 // MB
	used := g.wave(0.4, 0.45, 600) * total
	return &metric.SpacePayload{
		Event: string(metric.Space),
		Total: total,
		Charts: []metric.RatioPoint{
			{Name: "free: /", Y: (total - used) * 100 / total, Size: fmt.Sprintf("%.2f", (total-used)/1024)},
			{Name: "used: /", Y: used * 100 / total, Size: fmt.Sprintf("%.2f", used/1024)},
		},
	}
}
