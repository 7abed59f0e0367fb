package collector

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/highload-stats/server/internal/metric"
)

// RedisCollector samples `redis-cli info` and emits connection/command
// deltas plus the absolute used-memory figure.
type RedisCollector struct {
	Runner Runner

	state *CounterState
}

func (c *RedisCollector) Name() metric.Name { return metric.Redis }

func (c *RedisCollector) Collect(ctx context.Context) (*metric.Event, error) {
	out, err := c.Runner.Run(ctx, "redis-cli", "info")
	if err != nil {
		return nil, fmt.Errorf("redis-cli: %w", err)
	}
	if c.state == nil {
		c.state = NewCounterState()
	}
	payload, err := parseRedisInfo(out, c.state)
	if err != nil {
		return nil, err
	}
	return metric.New(metric.Redis, payload), nil
}

func parseRedisInfo(out []byte, state *CounterState) (*metric.RedisPayload, error) {
	charts := metric.RedisCharts{Queries: []metric.KV{}}
	matched := 0

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		name, rawVal, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if !ok {
			continue
		}
		val, err := strconv.ParseFloat(rawVal, 64)
		if err != nil {
			continue
		}

		switch strings.ToLower(name) {
		case "total_connections_received":
			charts.Queries = append(charts.Queries, metric.KV{K: "connections", V: state.Delta(name, val)})
			matched++
		case "total_commands_processed":
			charts.Queries = append(charts.Queries, metric.KV{K: "commands", V: state.Delta(name, val)})
			matched++
		case "used_memory":
			charts.Memory = val
			matched++
		}
	}

	if matched == 0 {
		return nil, parseErrf("redis", "no recognized fields in output")
	}

	return &metric.RedisPayload{Event: string(metric.Redis), Charts: charts}, nil
}
