package collector

import "testing"

func TestCounterState_Delta(t *testing.T) {
	c := NewCounterState()

	if got := c.Delta("bytes", 1000); got != 0 {
		t.Errorf("first observation should be 0, got %v", got)
	}
	if got := c.Delta("bytes", 1500); got != 500 {
		t.Errorf("delta = %v, want 500", got)
	}
	if got := c.Delta("bytes", 1500); got != 0 {
		t.Errorf("unchanged counter should yield 0, got %v", got)
	}
}

func TestCounterState_ResetResyncsBaseline(t *testing.T) {
	c := NewCounterState()
	c.Delta("q", 5000)

	// Counter reset: clamp to 0, not a negative spike.
	if got := c.Delta("q", 100); got != 0 {
		t.Errorf("reset delta = %v, want 0", got)
	}
	// The reset value became the new baseline.
	if got := c.Delta("q", 250); got != 150 {
		t.Errorf("post-reset delta = %v, want 150", got)
	}
}

func TestCounterState_KeysIndependent(t *testing.T) {
	c := NewCounterState()
	c.Delta("a", 10)
	c.Delta("b", 100)

	if got := c.Delta("a", 15); got != 5 {
		t.Errorf("key a delta = %v, want 5", got)
	}
	if got := c.Delta("b", 130); got != 30 {
		t.Errorf("key b delta = %v, want 30", got)
	}
}
