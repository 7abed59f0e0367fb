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

// PgBouncerCollector samples the pooler's SHOW STATS virtual table and
// emits per-database traffic and query-count deltas.
type PgBouncerCollector struct {
	Runner Runner
	Port   int

	state *CounterState
}

func (c *PgBouncerCollector) Name() metric.Name { return metric.PgBouncer }

func (c *PgBouncerCollector) Collect(ctx context.Context) (*metric.Event, error) {
	out, err := c.Runner.Run(ctx, "psql",
		"-p", strconv.Itoa(c.Port), "-wU", "pgbouncer", "pgbouncer", "-qAc", "SHOW STATS;")
	if err != nil {
		return nil, fmt.Errorf("psql: %w", err)
	}
	if c.state == nil {
		c.state = NewCounterState()
	}
	payload, err := parsePgBouncerStats(out, c.state)
	if err != nil {
		return nil, err
	}
	return metric.New(metric.PgBouncer, payload), nil
}

// parsePgBouncerStats reads psql -A output: a pipe-separated header
// row, one row per database, and a "(N rows)" footer. Counters are
// deltad per database; the pooler's own pseudo-database is skipped.
func parsePgBouncerStats(out []byte, state *CounterState) (*metric.PgBouncerPayload, error) {
	var header []string
	charts := metric.PgBouncerCharts{Queries: []metric.KV{}}

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "(") {
			continue
		}
		cols := strings.Split(line, "|")
		if header == nil {
			header = cols
			continue
		}
		if len(cols) != len(header) {
			continue
		}

		dbName := cols[0]
		if dbName == "pgbouncer" {
			continue
		}

		for i, rawVal := range cols {
			val, err := strconv.ParseFloat(rawVal, 64)
			if err != nil {
				continue
			}
			switch header[i] {
			case "total_sent":
				charts.Sent += state.Delta("sent."+dbName, val)
			case "total_received":
				charts.Received += state.Delta("received."+dbName, val)
			case "total_query_count":
				charts.Queries = append(charts.Queries, metric.KV{
					K: dbName,
					V: state.Delta("queries."+dbName, val),
				})
			}
		}
	}

	if header == nil {
		return nil, parseErrf("pgbouncer", "empty SHOW STATS output")
	}

	return &metric.PgBouncerPayload{Event: string(metric.PgBouncer), Charts: charts}, nil
}
