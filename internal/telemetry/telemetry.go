package telemetry

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/highload-stats/server/internal/collector"
)

// Separator joins the sub-probe blobs in the snapshot response.
const Separator = "--/separator/--"

var reLogin = regexp.MustCompile(`(?i)sshd\[.*\]: Accepted|login\[`)

// Snapshot serves the /telemetry text blob: a disk inventory plus the
// recent accepted-login lines from the auth log. The disk inventory is
// expensive enough to cache with a TTL; logins are read per request.
type Snapshot struct {
	Runner  collector.Runner
	AuthLog string
	TTL     time.Duration

	mu      sync.Mutex
	disks   string
	disksAt time.Time
}

// Render produces the full snapshot blob.
func (s *Snapshot) Render(ctx context.Context) string {
	return strings.Join([]string{s.diskInventory(), s.recentLogins(ctx)}, Separator)
}

func (s *Snapshot) diskInventory() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disks != "" && time.Since(s.disksAt) < s.TTL {
		return s.disks
	}

	var b strings.Builder
	if info, err := host.Info(); err == nil {
		fmt.Fprintf(&b, "%s %s %s, up %s\n\n",
			info.Hostname, info.Platform, info.PlatformVersion,
			(time.Duration(info.Uptime) * time.Second).String())
	}

	parts, err := disk.Partitions(false)
	if err != nil {
		fmt.Fprintf(&b, "disk inventory unavailable: %v", err)
		s.disks = b.String()
		s.disksAt = time.Now()
		return s.disks
	}

	for _, p := range parts {
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%s %s %s: %.1fG total, %.1fG used (%.1f%%), %.1fG free\n",
			p.Device, p.Mountpoint, p.Fstype,
			gb(usage.Total), gb(usage.Used), usage.UsedPercent, gb(usage.Free))
	}

	s.disks = strings.TrimRight(b.String(), "\n")
	s.disksAt = time.Now()
	return s.disks
}

func (s *Snapshot) recentLogins(ctx context.Context) string {
	out, err := s.Runner.Run(ctx, "tail", "-n", "300", s.AuthLog)
	if err != nil {
		return ""
	}
	var matched []string
	for _, line := range strings.Split(string(out), "\n") {
		if reLogin.MatchString(line) {
			matched = append(matched, line)
		}
	}
	return strings.Join(matched, "\n")
}

func gb(v uint64) float64 {
	return float64(v) / (1 << 30)
}
