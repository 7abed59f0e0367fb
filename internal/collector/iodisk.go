package collector

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/highload-stats/server/internal/metric"
)

var (
	reActualIO = regexp.MustCompile(`Actual DISK READ.*?([0-9]+\.[0-9]+).*Actual DISK WRITE.*?([0-9]+\.[0-9]+)`)
	reTotalIO  = regexp.MustCompile(`Total DISK READ`)
	rePercent  = regexp.MustCompile(`%\s*([0-9.]+)\s*%`)
)

// IODiskCollector streams block I/O samples from iotop (-k kB units,
// one batch per second). Each batch is two header lines followed by
// per-process rows carrying the IO% column.
type IODiskCollector struct{}

func (c *IODiskCollector) Name() metric.Name { return metric.IODisk }

func (c *IODiskCollector) Stream(ctx context.Context, emit func(*metric.Event)) error {
	cmd := exec.CommandContext(ctx, "iotop", "-k", "-q", "-o", "-d", "1")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("iotop pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("iotop start: %w", err)
	}

	sc := bufio.NewScanner(stdout)
	var batch *iodiskBatch
	for sc.Scan() {
		line := sc.Text()
		if reTotalIO.MatchString(line) {
			if batch != nil && batch.ready {
				emit(metric.New(metric.IODisk, batch.payload()))
			}
			batch = &iodiskBatch{}
			continue
		}
		if batch == nil {
			continue
		}
		batch.feed(line)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("iotop exited: %w", err)
	}
	return fmt.Errorf("iotop stream ended")
}

// iodiskBatch accumulates one iotop sample between Total DISK READ
// headers.
type iodiskBatch struct {
	read  float64 // kB/s
	write float64
	ioPct float64
	ready bool
}

func (b *iodiskBatch) feed(line string) {
	if m := reActualIO.FindStringSubmatch(line); m != nil {
		b.read, _ = strconv.ParseFloat(m[1], 64)
		b.write, _ = strconv.ParseFloat(m[2], 64)
		b.ready = true
		return
	}
	// Per-process row: the IO% figure sits between the SWAPIN and IO
	// percent signs.
	if m := rePercent.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			b.ioPct += v
		}
	}
}

func (b *iodiskBatch) payload() *metric.IODiskPayload {
	return &metric.IODiskPayload{
		Event: string(metric.IODisk),
		IO:    b.ioPct,
		Charts: []metric.ChartPoint{
			{Name: "read", Val: math.Round(b.read * 1024)},
			{Name: "write", Val: math.Round(b.write * 1024)},
		},
	}
}
