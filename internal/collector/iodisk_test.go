package collector

import "testing"

func TestIODiskBatch(t *testing.T) {
	b := &iodiskBatch{}
	b.feed("Actual DISK READ:     102.40 K/s | Actual DISK WRITE:      51.20 K/s")
	b.feed("  123 be/4 mysql       50.00 K/s   10.00 K/s  0.00 %  3.50 % mysqld")
	b.feed("  456 be/4 redis       20.00 K/s    5.00 K/s  0.00 %  1.25 % redis-server")

	if !b.ready {
		t.Fatal("batch should be ready after the Actual DISK line")
	}

	payload := b.payload()
	if payload.IO != 4.75 {
		t.Errorf("summed IO%% = %v, want 4.75", payload.IO)
	}
	// kB/s scaled to bytes and rounded.
	if payload.Charts[0].Val != float64(104858) {
		t.Errorf("read = %v, want 104858", payload.Charts[0].Val)
	}
	if payload.Charts[1].Val != float64(52429) {
		t.Errorf("write = %v, want 52429", payload.Charts[1].Val)
	}
}

func TestIODiskBatch_NotReadyWithoutHeader(t *testing.T) {
	b := &iodiskBatch{}
	b.feed("  123 be/4 mysql       50.00 K/s   10.00 K/s  0.00 %  3.50 % mysqld")
	if b.ready {
		t.Error("per-process rows alone must not mark the batch ready")
	}
}
