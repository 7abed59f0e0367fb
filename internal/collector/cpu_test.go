package collector

import "testing"

func TestCoreLoad_Formula(t *testing.T) {
	// idleDelta=50, totalDelta=100:
	// floor((1000*(100-50)/100 + 5)/10) = floor(505/10) = 50
	got := coreLoad(150, 1100, coreSample{idle: 100, total: 1000})
	if got != 50 {
		t.Errorf("coreLoad = %d, want 50", got)
	}
}

func TestCoreLoad_ZeroTotalDelta(t *testing.T) {
	if got := coreLoad(100, 1000, coreSample{idle: 100, total: 1000}); got != 0 {
		t.Errorf("zero total delta should clamp to 0, got %d", got)
	}
	// Counter reset: total went backwards.
	if got := coreLoad(50, 500, coreSample{idle: 100, total: 1000}); got != 0 {
		t.Errorf("counter reset should clamp to 0, got %d", got)
	}
}

func TestParseProcStat(t *testing.T) {
	prev := map[string]coreSample{
		"cpu0": {idle: 100, total: 1000},
		"cpu1": {idle: 500, total: 1000},
	}
	out := []byte(
		"cpu  1400 0 500 650 0 0 0 0 0 0\n" +
			"cpu0 700 0 250 150 0 0 0 0 0 0\n" +
			"cpu1 700 0 250 500 0 0 0 0 0 0\n" +
			"intr 12345 0 0\n" +
			"ctxt 4242\n")

	payload, err := parseProcStat(out, prev)
	if err != nil {
		t.Fatalf("parseProcStat: %v", err)
	}

	if len(payload.Charts) != 2 {
		t.Fatalf("expected 2 cores, got %d", len(payload.Charts))
	}
	// cpu0: idleDelta=50, totalDelta=100 -> 50.
	if payload.Charts[0] != 50 {
		t.Errorf("cpu0 load = %d, want 50", payload.Charts[0])
	}
	// cpu1: idleDelta=0, totalDelta=450 -> floor((1000+5)/10) = 100.
	if payload.Charts[1] != 100 {
		t.Errorf("cpu1 load = %d, want 100", payload.Charts[1])
	}
	if payload.Avg != "75.00" {
		t.Errorf("avg = %s, want 75.00", payload.Avg)
	}

	// Baselines advanced for the next tick.
	if prev["cpu0"].idle != 150 || prev["cpu0"].total != 1100 {
		t.Errorf("cpu0 baseline not updated: %+v", prev["cpu0"])
	}
}

func TestParseProcStat_NoCoreLines(t *testing.T) {
	prev := map[string]coreSample{}
	if _, err := parseProcStat([]byte("intr 1 2 3\nctxt 99\n"), prev); err == nil {
		t.Fatal("expected parse error for output without core lines")
	}
}
