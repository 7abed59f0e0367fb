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

// SpaceCollector samples filesystem usage via `df` and emits free/used
// percentages per mount against the combined total.
type SpaceCollector struct {
	Runner Runner
	FSType string
}

func (c *SpaceCollector) Name() metric.Name { return metric.Space }

func (c *SpaceCollector) Collect(ctx context.Context) (*metric.Event, error) {
	out, err := c.Runner.Run(ctx, "df", "-m", "--total", "--type", c.FSType)
	if err != nil {
		return nil, fmt.Errorf("df: %w", err)
	}
	payload, err := parseDF(out)
	if err != nil {
		return nil, err
	}
	return metric.New(metric.Space, payload), nil
}

type dfRow struct {
	mount string
	used  float64
	avail float64
}

// parseDF reads `df -m --total` output. Columns: filesystem, 1M-blocks,
// used, available, use%, mount. The "total" row fixes the denominator.
func parseDF(out []byte) (*metric.SpacePayload, error) {
	var total float64
	var rows []dfRow

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 {
			continue
		}
		used, err1 := strconv.ParseFloat(fields[2], 64)
		avail, err2 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil {
			continue
		}

		switch {
		case fields[0] == "total":
			total = used + avail
		case strings.HasPrefix(fields[0], "/dev/") && len(fields) >= 6:
			rows = append(rows, dfRow{mount: fields[5], used: used, avail: avail})
		}
	}

	if total <= 0 || len(rows) == 0 {
		return nil, parseErrf("df", "no total/device rows in output")
	}

	charts := make([]metric.RatioPoint, 0, len(rows)*2)
	for _, r := range rows {
		charts = append(charts,
			metric.RatioPoint{
				Name: "free: " + r.mount,
				Y:    r.avail * 100 / total,
				Size: fmt.Sprintf("%.2f", r.avail/1024),
			},
			metric.RatioPoint{
				Name: "used: " + r.mount,
				Y:    r.used * 100 / total,
				Size: fmt.Sprintf("%.2f", r.used/1024),
			},
		)
	}

	return &metric.SpacePayload{
		Event:  string(metric.Space),
		Total:  uint64(total),
		Charts: charts,
	}, nil
}
