package collector

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/highload-stats/server/internal/metric"
)

// BandwidthCollector streams interface throughput from ifstat. ifstat
// already reports a rate per sample, so no delta tracking is needed.
type BandwidthCollector struct {
	Runner    Runner // used to resolve the default interface
	Interface string // empty = resolve from the default route
}

func (c *BandwidthCollector) Name() metric.Name { return metric.Bandwidth }

func (c *BandwidthCollector) Stream(ctx context.Context, emit func(*metric.Event)) error {
	iface := c.Interface
	if iface == "" {
		resolved, err := defaultInterface(ctx, c.Runner)
		if err != nil {
			return err
		}
		iface = resolved
	}

	cmd := exec.CommandContext(ctx, "ifstat", "-i", iface, "-b")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ifstat pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ifstat start: %w", err)
	}

	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		payload, err := parseIfstatLine(sc.Text())
		if err != nil {
			continue // header and separator lines
		}
		emit(metric.New(metric.Bandwidth, payload))
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ifstat exited: %w", err)
	}
	return fmt.Errorf("ifstat stream ended")
}

// defaultInterface picks the device of the default route from
// `ip route ls` output.
func defaultInterface(ctx context.Context, runner Runner) (string, error) {
	out, err := runner.Run(ctx, "ip", "route", "ls")
	if err != nil {
		return "", fmt.Errorf("ip route: %w", err)
	}
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || fields[0] != "default" {
			continue
		}
		for i := 0; i < len(fields)-1; i++ {
			if fields[i] == "dev" {
				return fields[i+1], nil
			}
		}
	}
	return "", fmt.Errorf("no default route in ip route output")
}

// parseIfstatLine reads one ifstat sample row: in and out kbit/s.
func parseIfstatLine(line string) (*metric.BandwidthPayload, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, parseErrf("ifstat", "short line")
	}
	in, err1 := strconv.ParseFloat(fields[0], 64)
	out, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil {
		return nil, parseErrf("ifstat", "non-numeric sample %q", line)
	}
	return &metric.BandwidthPayload{
		Event: string(metric.Bandwidth),
		Charts: []metric.ChartPoint{
			{Name: "in", Val: in},
			{Name: "out", Val: out},
		},
	}, nil
}
