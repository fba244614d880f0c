// Command monitor runs the bedside vital-sign simulation and texts blood
// pressure alerts to each patient's responsible party.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"vitals-alert/internal/cli"
	"vitals-alert/internal/config"
	"vitals-alert/internal/httpapi"
	"vitals-alert/internal/monitor"
	"vitals-alert/internal/vitals"
)

type options struct {
	configPath string
	port       string
	duration   time.Duration
	interval   time.Duration
	seed       int64
}

func main() {
	opts := parseFlags()

	cfg, logger, err := cli.Bootstrap(opts.configPath, "monitor")
	if err != nil {
		cli.Fatal(2, "monitor: %v", err)
	}
	defer logger.Sync()

	if err := opts.apply(&cfg, cli.FlagsSet(flag.CommandLine)); err != nil {
		cli.Fatal(2, "monitor: %v", err)
	}
	if cfg.Modem.PortName == "" {
		cli.NewSerialPortDetector().LogCandidates(logger)
	}

	if err := run(cfg, opts.seed, logger); err != nil {
		logger.Error("monitor failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	fs := flag.CommandLine
	fs.StringVar(&opts.configPath, "config", cli.DefaultConfigPath, "path to the YAML config")
	fs.StringVar(&opts.port, "port", "", "modem serial device (overrides Modem.PortName)")
	fs.DurationVar(&opts.duration, "duration", config.DefaultMonitorDuration, "total monitoring time")
	fs.DurationVar(&opts.interval, "interval", config.DefaultMonitorInterval, "pause between rounds")
	fs.Int64Var(&opts.seed, "seed", 0, "seed for reproducible readings (0 uses the clock)")
	flag.Parse()
	return opts
}

// apply overrides config values with the flags named in set, then
// validates the result.
func (opts options) apply(cfg *config.Config, set map[string]bool) error {
	if set["port"] {
		cfg.Modem.PortName = opts.port
	}
	if set["duration"] {
		cfg.Monitor.Duration = opts.duration
	}
	if set["interval"] {
		cfg.Monitor.Interval = opts.interval
	}
	return cfg.Validate()
}

func run(cfg config.Config, seed int64, logger *zap.Logger) error {
	signals := cli.NewSignalHandler(context.Background())
	defer signals.Stop()
	ctx := signals.Context()

	app, err := InitAppContext(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	loop, err := monitor.New(app.Roster, newSampler(seed), app.loopOptions()...)
	if err != nil {
		return err
	}

	apiCtx, stopAPI := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if cfg.HTTP.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := httpapi.Serve(apiCtx, cfg.HTTP.Addr, app.router(), logger); err != nil {
				logger.Error("status api failed", zap.Error(err))
			}
		}()
	}

	err = loop.Run(ctx)
	stopAPI()
	wg.Wait()

	if errors.Is(err, monitor.ErrInterrupted) {
		logger.Info("monitoring stopped by signal")
		return nil
	}
	return err
}

func newSampler(seed int64) *vitals.RandomSampler {
	if seed != 0 {
		return vitals.NewRandomSampler(vitals.WithSeed(seed))
	}
	return vitals.NewRandomSampler()
}
