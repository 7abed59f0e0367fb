package collector

import (
	"context"
	"testing"
)

var dfFixture = fixture(
	"Filesystem     1M-blocks  Used Available Use% Mounted on",
	"/dev/sda1          40000 10000     28000  27% /",
	"/dev/sdb1          60000 30000     28000  52% /data",
	"tmpfs               4000   100      3900   3% /run",
	"total             100000 40000     56000  42% -",
)

func TestParseDF(t *testing.T) {
	payload, err := parseDF(dfFixture)
	if err != nil {
		t.Fatalf("parseDF: %v", err)
	}

	// total row: used+avail = 96000 MB.
	if payload.Total != 96000 {
		t.Errorf("total = %d, want 96000", payload.Total)
	}
	// Two /dev mounts, free+used point each. tmpfs is ignored.
	if len(payload.Charts) != 4 {
		t.Fatalf("expected 4 chart points, got %d", len(payload.Charts))
	}

	if payload.Charts[0].Name != "free: /" {
		t.Errorf("first point = %s, want free: /", payload.Charts[0].Name)
	}
	// 28000 MB avail of 96000 MB total.
	wantY := 28000.0 * 100 / 96000
	if payload.Charts[0].Y != wantY {
		t.Errorf("free ratio = %v, want %v", payload.Charts[0].Y, wantY)
	}
	// Size is in GB with two decimals.
	if payload.Charts[1].Size != "9.77" {
		t.Errorf("used size = %s, want 9.77", payload.Charts[1].Size)
	}
}

func TestParseDF_NoTotalRow(t *testing.T) {
	out := fixture(
		"Filesystem     1M-blocks  Used Available Use% Mounted on",
		"/dev/sda1          40000 10000     28000  27% /",
	)
	if _, err := parseDF(out); err == nil {
		t.Fatal("expected parse error without a total row")
	}
}

func TestSpaceCollector_RunnerFailure(t *testing.T) {
	c := &SpaceCollector{Runner: &fakeRunner{}, FSType: "ext4"}
	if _, err := c.Collect(context.Background()); err == nil {
		t.Fatal("expected error when df is unavailable")
	}
}
