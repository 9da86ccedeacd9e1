package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/konosubakonoakua/jumpy/core"
	"github.com/konosubakonoakua/jumpy/internal/logging"
	"github.com/konosubakonoakua/jumpy/internal/netplay"
	"github.com/konosubakonoakua/jumpy/internal/observability"
	"github.com/konosubakonoakua/jumpy/internal/session"
)

func main() {
	mode := flag.String("mode", "local", "session mode: local, host, or join")
	addr := flag.String("addr", ":7777", "listen address when hosting")
	joinURL := flag.String("join", "", "match URL when joining (ws://host:port/match)")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	frame := flag.Duration("frame", 16*time.Millisecond, "real frame interval the driver is ticked at")
	duration := flag.Duration("duration", 0, "stop after this long (0 = run until interrupted)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	collector, err := observability.NewSessionCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}

	cfg := defaultConfig()
	camera := &logCamera{log: log}
	mgr := session.NewManager(cfg.Meta, camera, log, session.WithMetrics(collector))
	driver := session.NewDriver(mgr, log,
		session.WithDriverMetrics(collector),
		session.WithAudio(&logAudio{log: log}),
		session.WithCollectors(session.InputCollector{Slot: 0, Source: newDemoSource()}),
	)

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := startSession(stopCtx, mgr, cfg, *mode, *addr, *joinURL, log); err != nil {
		log.Error(ctx, "failed to start session", logging.String("mode", *mode), logging.Err(err))
		os.Exit(1)
	}

	runCtx := stopCtx
	if *duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(stopCtx, *duration)
		defer cancel()
	}

	log.Info(ctx, "driving session", logging.String("mode", *mode), logging.Duration("frame", *frame))
	ticker := time.NewTicker(*frame)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		case now := <-ticker.C:
			driver.Frame(ctx, now)
			if mgr.Session() == nil {
				// Disconnected mid-match; nothing left to drive.
				break loop
			}
		}
	}

	mgr.Stop()
	log.Info(ctx, "session stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
}

func startSession(ctx context.Context, mgr *session.Manager, cfg core.Config, mode, addr, joinURL string, log logging.Logger) error {
	switch mode {
	case "local":
		mgr.StartLocal(cfg)
		return nil
	case "host":
		host, err := netplay.Listen(addr, log)
		if err != nil {
			return err
		}
		defer host.Close()
		log.Info(ctx, "waiting for a peer", logging.String("addr", host.Addr()))
		peer, err := host.Accept(ctx)
		if err != nil {
			return err
		}
		mgr.StartNetwork(cfg, peer)
		return nil
	case "join":
		if joinURL == "" {
			return fmt.Errorf("-join is required in join mode")
		}
		peer, err := netplay.Dial(ctx, joinURL, log)
		if err != nil {
			return err
		}
		mgr.StartNetwork(cfg, peer)
		return nil
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func defaultConfig() core.Config {
	return core.Config{
		Meta: core.Meta{Players: []core.CharacterMeta{
			{ID: "fishy", Name: "Fishy", MoveSpeed: 120, JumpSpeed: 12},
			{ID: "sharky", Name: "Sharky", MoveSpeed: 100, JumpSpeed: 14},
			{ID: "pescy", Name: "Pescy", MoveSpeed: 110, JumpSpeed: 13},
			{ID: "orcy", Name: "Orcy", MoveSpeed: 90, JumpSpeed: 16},
		}},
		Map: "smalltown",
	}
}

func serveMetrics(addr string, collector *observability.SessionCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

// logCamera stands in for the real render camera in the headless binary.
type logCamera struct {
	log logging.Logger
}

func (c *logCamera) SetActive(active bool) {
	c.log.Info(context.Background(), "menu camera toggled", logging.Any("active", active))
}

// logAudio logs sounds instead of playing them.
type logAudio struct {
	log logging.Logger
}

func (a *logAudio) PlaySound(source string, volume float64) {
	a.log.Debug(context.Background(), "play sound",
		logging.String("sound", source), logging.Float64("volume", volume))
}

// demoSource is a scripted input source so a headless match does something:
// it walks right and hops once a second.
type demoSource struct {
	start time.Time
}

func newDemoSource() *demoSource {
	return &demoSource{start: time.Now()}
}

func (s *demoSource) Pressed(a session.Action) bool {
	if a != session.ActionJump {
		return false
	}
	elapsed := time.Since(s.start)
	return elapsed%time.Second < 100*time.Millisecond
}

func (s *demoSource) Axis(a session.Action) core.Vec2 {
	if a == session.ActionMove {
		return core.Vec2{X: 1}
	}
	return core.Vec2{}
}
