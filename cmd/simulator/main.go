package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/signalsfoundry/kite-simulator/core"
	"github.com/signalsfoundry/kite-simulator/internal/logging"
	"github.com/signalsfoundry/kite-simulator/internal/observability"
	"github.com/signalsfoundry/kite-simulator/timectrl"
)

func main() {
	duration := flag.Duration("duration", 30*time.Second, "total simulation duration")
	tick := flag.Duration("tick", time.Second/240, "fixed physics timestep")
	accelerated := flag.Bool("accelerated", true, "run in accelerated mode (vs real-time)")
	configPath := flag.String("config", "", "optional JSON config file overlaying the defaults")
	windSpeed := flag.Float64("wind-speed", 8, "wind speed in m/s")
	windHeading := flag.Float64("wind-heading", 0, "wind heading in degrees (0 blows along -Z)")
	turbulence := flag.Float64("turbulence", 0, "turbulence factor in [0,1]")
	steerAmplitude := flag.Float64("steer", 0, "sinusoidal steering amplitude in m (0 = hands off)")
	steerPeriod := flag.Float64("steer-period", 6, "steering period in seconds")
	snapshotEvery := flag.Duration("snapshot-every", time.Second, "how often to print a JSON snapshot (0 = never)")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on (empty = disabled)")

	flag.Parse()

	ctx := context.Background()
	log := logging.NewFromEnv()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.Any("error", err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	cfg := core.DefaultSimConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			log.Error(ctx, "open config", logging.String("path", *configPath), logging.Any("error", err))
			os.Exit(1)
		}
		cfg, err = core.LoadSimConfig(f)
		f.Close()
		if err != nil {
			log.Error(ctx, "load config", logging.String("path", *configPath), logging.Any("error", err))
			os.Exit(1)
		}
		log.Info(ctx, "loaded config", logging.String("path", *configPath))
	}

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "register metrics", logging.Any("error", err))
		os.Exit(1)
	}
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warn(ctx, "metrics server stopped", logging.Any("error", err))
			}
		}()
		log.Info(ctx, "serving metrics", logging.String("addr", *metricsAddr))
	}

	engine, err := core.NewSimulationEngine(cfg, log, collector)
	if err != nil {
		log.Error(ctx, "build engine", logging.Any("error", err))
		os.Exit(1)
	}

	baseWind := core.WindFromSpeedAndHeading(*windSpeed, *windHeading, *turbulence)
	engine.SetWind(baseWind)

	mode := timectrl.RealTime
	if *accelerated {
		mode = timectrl.Accelerated
	}
	runner := timectrl.NewRunner(*tick, mode)

	// Gust modulation and periodic snapshot output ride on the tick
	// listener so the core stays a pure step function.
	enc := json.NewEncoder(os.Stdout)
	var nextPrint float64
	runner.AddListener(func(snap core.Snapshot) {
		if *turbulence > 0 {
			engine.SetWind(baseWind.Gusted(snap.Elapsed))
		}
		if *snapshotEvery > 0 && snap.Elapsed >= nextPrint {
			nextPrint += snapshotEvery.Seconds()
			if err := enc.Encode(snap); err != nil {
				log.Warn(ctx, "encode snapshot", logging.Any("error", err))
			}
		}
	})

	control := func(elapsed float64) float64 {
		if *steerAmplitude == 0 {
			return 0
		}
		return *steerAmplitude * math.Sin(2*math.Pi*elapsed / *steerPeriod)
	}

	log.Info(ctx, "starting simulation",
		logging.String("duration", duration.String()),
		logging.String("tick", tick.String()),
		logging.Float64("wind_speed", *windSpeed),
		logging.Float64("wind_heading", *windHeading))

	steps := runner.Run(ctx, engine, *duration, control)

	final := runner.Last()
	fmt.Printf("Simulated %s in %d steps: altitude %.2f m, speed %.2f m/s, tensions %.1f/%.1f N\n",
		duration, steps,
		final.State.Position.Y,
		final.State.Velocity.Norm(),
		final.Lines.LeftTension, final.Lines.RightTension)
}
