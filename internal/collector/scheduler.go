package collector

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/highload-stats/server/internal/metric"
)

// Sink receives every successful emission. The daemon wires it to the
// hub broadcast and the history append.
type Sink func(*metric.Event)

// Scheduler drives each collector on its own timer goroutine. A
// failure in one collector is logged and local: the others keep their
// cadence, and the failing one simply retries on its next tick (or,
// for streams, respawns after a backoff).
type Scheduler struct {
	collectors []Collector
	streams    []StreamCollector
	interval   time.Duration
	backoff    time.Duration
	sink       Sink
}

func NewScheduler(interval, backoff time.Duration, sink Sink) *Scheduler {
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	return &Scheduler{
		interval: interval,
		backoff:  backoff,
		sink:     sink,
	}
}

func (s *Scheduler) Add(c Collector) {
	s.collectors = append(s.collectors, c)
}

func (s *Scheduler) AddStream(c StreamCollector) {
	s.streams = append(s.streams, c)
}

func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, c := range s.collectors {
		c := c
		g.Go(func() error {
			s.runTickLoop(gctx, c)
			return nil
		})
	}
	for _, c := range s.streams {
		c := c
		g.Go(func() error {
			s.runStreamLoop(gctx, c)
			return nil
		})
	}

	return g.Wait()
}

func (s *Scheduler) runTickLoop(ctx context.Context, c Collector) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collectOnce(ctx, c)
		}
	}
}

func (s *Scheduler) collectOnce(ctx context.Context, c Collector) {
	ev, err := c.Collect(ctx)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			log.Printf("[%s] parse error, skipping tick: %v", c.Name(), pe)
		} else {
			log.Printf("[%s] collect error: %v", c.Name(), err)
		}
		return
	}
	s.sink(ev)
}

// runStreamLoop keeps a stream collector's sampler process alive,
// respawning it after the backoff whenever it dies.
func (s *Scheduler) runStreamLoop(ctx context.Context, c StreamCollector) {
	for {
		err := c.Stream(ctx, s.sink)
		if ctx.Err() != nil {
			return
		}
		log.Printf("[%s] stream stopped: %v (respawning in %s)", c.Name(), err, s.backoff)

		timer := time.NewTimer(s.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
