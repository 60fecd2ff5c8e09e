// Demo wires a 60 Hz clock to four simulated subsystems with jittered
// workloads, prints aggregate metrics once per second, and optionally
// serves live metrics snapshots over websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/halcyon-engine/timing"
	"github.com/halcyon-engine/timing/telemetry"
)

func main() {
	configPath := flag.String("config", "", "optional yaml config file")
	listen := flag.String("listen", "", "optional telemetry websocket address, e.g. :8090")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	opts := []timing.Option{
		timing.WithLogger(logger),
		timing.WithTargetFrameRate(60),
		timing.WithStrategy(timing.SubsystemInput, timing.Immediate{}),
		timing.WithStrategy(timing.SubsystemAudio, timing.Adaptive{Decay: 0.2}),
		timing.WithStrategy(timing.SubsystemPhysics, timing.Predictive{Window: 16}),
		timing.WithStrategy(timing.SubsystemRendering, timing.Reactive{}),
	}
	if *configPath != "" {
		cfg, err := timing.LoadConfig(*configPath)
		if err != nil {
			logger.Error("demo: config load failed", "error", err)
			os.Exit(1)
		}
		fromFile, err := cfg.Options()
		if err != nil {
			logger.Error("demo: config invalid", "error", err)
			os.Exit(1)
		}
		opts = append(opts, fromFile...)
	}

	clock := timing.New(opts...)
	clock.Calibrate()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Each simulated subsystem reads its compensated view once per tick
	// and feeds the tracker by timing its own jittered workload.
	for _, sim := range []struct {
		subsystem timing.Subsystem
		work      time.Duration
		jitter    time.Duration
	}{
		{timing.SubsystemRendering, 6 * time.Millisecond, 4 * time.Millisecond},
		{timing.SubsystemAudio, 3 * time.Millisecond, 2 * time.Millisecond},
		{timing.SubsystemInput, 200 * time.Microsecond, 100 * time.Microsecond},
		{timing.SubsystemPhysics, 2 * time.Millisecond, 6 * time.Millisecond},
	} {
		view := clock.Subsystem(sim.subsystem)
		work, jitter := sim.work, sim.jitter
		view.OnTick(func(now, delta float64) {
			view.Measure(func() {
				time.Sleep(work + time.Duration(rand.Int63n(int64(jitter))))
			})
		})
	}

	clock.AddGlobalTimingCallback(func(now, delta float64) {
		if clock.Frame()%60 != 0 {
			return
		}
		m := clock.Metrics()
		fmt.Printf("t=%7.2fs frame=%6d avg=%6.2fms max=%6.2fms drift=%6.3fms\n",
			now, m.TotalFrames,
			m.AverageFrameTime*1e3, m.MaxFrameTime*1e3, m.TimingDrift*1e3)
		for _, s := range []timing.Subsystem{
			timing.SubsystemRendering, timing.SubsystemAudio,
			timing.SubsystemInput, timing.SubsystemPhysics,
		} {
			st := clock.Tracker().Stats(s)
			fmt.Printf("  %-10s comp=%6.2fms last=%6.2fms mean=%6.2fms (%d samples)\n",
				s, (now-clock.CompensatedTime(s))*1e3, st.Last*1e3, st.Mean*1e3, st.Count)
		}
	})

	if *listen != "" {
		hub := telemetry.NewHub(clock, time.Second, logger)
		go hub.Run(ctx)
		go func() {
			logger.Info("demo: telemetry listening", "addr", *listen)
			if err := http.ListenAndServe(*listen, hub); err != nil {
				logger.Error("demo: telemetry server failed", "error", err)
			}
		}()
	}

	clock.Start(ctx)
	defer clock.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("demo: shutting down", "frames", clock.Frame(), "master_s", clock.Now())
}
