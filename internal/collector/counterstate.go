package collector

// CounterState remembers the last-seen absolute value of monotonic
// counters so collectors can emit per-tick deltas. Each collector owns
// its own instance and is the only goroutine touching it, so there is
// no locking here.
type CounterState struct {
	prev map[string]float64
}

func NewCounterState() *CounterState {
	return &CounterState{prev: make(map[string]float64)}
}

// Delta returns current minus the last-seen value for key and stores
// current as the new baseline. An unknown key or a negative result
// (counter reset) yields 0 — the reset resynchronizes the baseline
// rather than producing a bogus spike.
func (c *CounterState) Delta(key string, current float64) float64 {
	prev, ok := c.prev[key]
	c.prev[key] = current
	if !ok {
		return 0
	}
	d := current - prev
	if d < 0 {
		return 0
	}
	return d
}
