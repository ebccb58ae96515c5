package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/gray-logic-dispatch/internal/device"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dispatch/internal/program"
)

// demoPrograms run in this order.
var demoPrograms = []string{"wake_up", "sleep"}

// runDemo registers the configured devices, runs wake_up then sleep and
// prints the device effects and the total elapsed time. External
// components in the config are ignored.
func runDemo(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "configuration file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	// stdout carries the report
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	log := logging.New(cfg.Logging, version)

	start := time.Now()
	journal := device.NewJournal()

	svc, ids, err := setupDevices(cfg, log, journal)
	if err != nil {
		return err
	}
	lib, err := loadPrograms(cfg.Programs, ids, log)
	if err != nil {
		return err
	}
	engine := program.NewEngine(lib, svc, program.MapResolver(ids), nil, nil, log)

	for _, name := range demoPrograms {
		exec, runErr := engine.Run(ctx, name, "demo")
		if exec == nil {
			return fmt.Errorf("running %s: %w", name, runErr)
		}
		fmt.Fprintf(out, "%s: %s (%d/%d steps)\n", name, exec.Status, exec.StepsCompleted, exec.StepsTotal)
		if runErr != nil {
			fmt.Fprintf(out, "  error: %v\n", runErr)
		}
	}

	for _, e := range journal.Effects() {
		if e.Phase == device.PhaseStart {
			continue
		}
		fmt.Fprintf(out, "  %6.2fs  %-10s %-11s %s\n", e.At.Sub(start).Seconds(), e.Device, e.Kind, e.Phase)
	}
	fmt.Fprintf(out, "Elapsed: %.2fs\n", time.Since(start).Seconds())
	return nil
}
