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

// statusQuery selects the MySQL status counters the viewer charts.
const statusQuery = "SHOW GLOBAL STATUS WHERE Variable_name IN (" +
	"'Bytes_received', 'Bytes_sent', 'Innodb_data_read', 'Innodb_data_written'," +
	"'Uptime', 'Connections', 'Max_used_connections', 'Queries', 'Slow_queries'," +
	"'Com_select', 'Com_update', 'Com_insert', 'Com_delete'," +
	"'Com_alter_table', 'Com_drop_table', 'Created_tmp_tables', 'Created_tmp_disk_tables');"

// MySQLCollector samples `mysql -e "SHOW GLOBAL STATUS ..."` and emits
// traffic/innodb/query deltas plus absolute info values.
type MySQLCollector struct {
	Runner Runner

	state *CounterState
}

func (c *MySQLCollector) Name() metric.Name { return metric.MySQL }

func (c *MySQLCollector) Collect(ctx context.Context) (*metric.Event, error) {
	out, err := c.Runner.Run(ctx, "mysql", "-e", statusQuery)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	if c.state == nil {
		c.state = NewCounterState()
	}
	payload, err := parseMySQLStatus(out, c.state)
	if err != nil {
		return nil, err
	}
	return metric.New(metric.MySQL, payload), nil
}

// parseMySQLStatus reads the tab-separated Variable_name/Value rows.
// Monotonic counters become per-tick deltas via state; uptime and max
// connections stay absolute.
func parseMySQLStatus(out []byte, state *CounterState) (*metric.MySQLPayload, error) {
	charts := metric.MySQLCharts{
		Info:    make(map[string]string),
		Traffic: make(map[string]float64),
		InnoDB:  make(map[string]float64),
		Queries: []metric.KV{},
	}
	rows := 0

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		name, rawVal, ok := strings.Cut(sc.Text(), "\t")
		if !ok {
			continue
		}
		val, err := strconv.ParseFloat(rawVal, 64)
		if err != nil {
			continue // header row and non-numeric values
		}
		rows++

		key := strings.ReplaceAll(strings.TrimPrefix(strings.ToLower(name), "com_"), "_", " ")
		switch key {
		case "uptime", "max used connections":
			charts.Info[key] = rawVal
		case "bytes received", "bytes sent":
			charts.Traffic[key] = state.Delta(key, val)
		case "innodb data read", "innodb data written":
			charts.InnoDB[key] = state.Delta(key, val)
		default:
			charts.Queries = append(charts.Queries, metric.KV{K: key, V: state.Delta(key, val)})
		}
	}

	if rows == 0 {
		return nil, parseErrf("mysql", "no status rows in output")
	}

	return &metric.MySQLPayload{Event: string(metric.MySQL), Charts: charts}, nil
}
