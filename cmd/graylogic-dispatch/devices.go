package main

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-dispatch/internal/device"
	"github.com/nerrad567/gray-logic-dispatch/internal/dispatch"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dispatch/internal/program"
)

// identityGenerator builds the registry's identity source from config.
func identityGenerator(cfg config.RegistryConfig) device.IdentityGenerator {
	if cfg.Identity == "sequence" {
		return device.NewSequenceGenerator(cfg.Prefix, cfg.MaxDevices)
	}
	return device.UUIDGenerator{}
}

// setupDevices creates the dispatcher and registers every configured device
// concurrently. It returns the alias-to-identity map programs resolve through.
func setupDevices(cfg *config.Config, log *logging.Logger, journal *device.Journal) (*dispatch.Service, map[string]string, error) {
	registry := device.NewRegistry(identityGenerator(cfg.Registry))
	registry.SetLogger(log)

	svc := dispatch.NewService(registry, nil)
	svc.SetLogger(log)

	var (
		mu  sync.Mutex
		ids = make(map[string]string, len(cfg.Devices))
	)
	var g errgroup.Group
	for _, dc := range cfg.Devices {
		g.Go(func() error {
			dev, err := device.New(device.Type(dc.Type),
				device.WithName(dc.Name),
				device.WithLatency(dc.Latency()),
				device.WithJournal(journal),
			)
			if err != nil {
				return fmt.Errorf("device %q: %w", dc.Name, err)
			}
			id, err := svc.RegisterDevice(dev)
			if err != nil {
				return fmt.Errorf("registering %q: %w", dc.Name, err)
			}
			mu.Lock()
			ids[dc.Name] = id
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	log.Info("device registry initialised", "devices", registry.Count())
	return svc, ids, nil
}

// loadPrograms returns the built-in library with the configured file merged
// over it. Aliases without a registered device are logged; running such a
// program fails with program.ErrUnknownAlias.
func loadPrograms(cfg config.ProgramsConfig, ids map[string]string, log *logging.Logger) (*program.Library, error) {
	lib := program.DefaultLibrary()
	if cfg.File != "" {
		extra, err := program.LoadLibrary(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("loading programs: %w", err)
		}
		lib.Merge(extra)
		log.Info("program library loaded", "path", cfg.File, "programs", len(extra.Programs))
	}

	for _, alias := range lib.Aliases() {
		if _, ok := ids[alias]; !ok {
			log.Warn("program refers to an unconfigured device", "alias", alias)
		}
	}
	return lib, nil
}
