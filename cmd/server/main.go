package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/highload-stats/server/internal/collector"
	"github.com/highload-stats/server/internal/config"
	"github.com/highload-stats/server/internal/history"
	"github.com/highload-stats/server/internal/hub"
	"github.com/highload-stats/server/internal/metric"
	"github.com/highload-stats/server/internal/mock"
	"github.com/highload-stats/server/internal/telemetry"
	"github.com/highload-stats/server/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	debug := flag.Bool("debug", false, "Verbose logging and memory self-reports")
	mockMode := flag.Bool("mock", false, "Emit synthetic metrics instead of probing the host")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = config.Default()
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Debug = true
	}

	registry := hub.NewRegistry()
	h := hub.NewHub(registry, cfg.Debug)
	heartbeat := hub.NewHeartbeat(h, cfg.Heartbeat.Interval, cfg.Heartbeat.PongTimeout)
	histLog := history.NewLog(cfg.History.File)

	// Every successful emission goes to all viewers and, when the
	// sampling gate is open, to the history log.
	sink := func(ev *metric.Event) {
		h.BroadcastEvent(ev)
		histLog.Append(ev)
	}

	runner := collector.ExecRunner{Timeout: cfg.Collector.ProbeTimeout}
	snapshot := &telemetry.Snapshot{
		Runner:  runner,
		AuthLog: cfg.Telemetry.AuthLog,
		TTL:     cfg.Telemetry.DisksTTL,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *mockMode {
		log.Println("Starting in mock mode")
		gen := mock.NewGenerator(sink)
		go gen.Run(ctx)
	} else {
		sched := collector.NewScheduler(cfg.Collector.Interval, cfg.Collector.StreamBackoff, sink)
		sched.Add(&collector.MemoryCollector{})
		sched.Add(&collector.CPUCollector{})
		sched.Add(&collector.SpaceCollector{Runner: runner, FSType: cfg.Collector.SpaceFSType})
		sched.Add(&collector.MySQLCollector{Runner: runner})
		sched.Add(&collector.RedisCollector{Runner: runner})
		sched.Add(&collector.PgBouncerCollector{Runner: runner, Port: cfg.Collector.PgBouncerPort})
		sched.AddStream(&collector.BandwidthCollector{Runner: runner, Interface: cfg.Collector.Interface})
		sched.AddStream(&collector.IODiskCollector{})
		go sched.Run(ctx)
	}

	go heartbeat.Run(ctx)
	go histLog.RunTrim(ctx, cfg.History.TrimInterval)

	if cfg.Debug {
		go hub.LogMemoryUsage(10*time.Second, ctx.Done())
	}

	server := web.NewServer(cfg.Server.WebDir, cfg.Server.AccessKeyFile, h, histLog, snapshot)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		os.Exit(0)
	}()

	log.Printf("highload-stats starting, pid: %d", os.Getpid())
	if err := web.ListenAndServe(cfg.Server.Host, cfg.Server.Port, server); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
