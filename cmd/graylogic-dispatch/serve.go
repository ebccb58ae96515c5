package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	_ "github.com/nerrad567/gray-logic-dispatch/migrations"

	"github.com/nerrad567/gray-logic-dispatch/internal/api"
	"github.com/nerrad567/gray-logic-dispatch/internal/audit"
	"github.com/nerrad567/gray-logic-dispatch/internal/bridge"
	"github.com/nerrad567/gray-logic-dispatch/internal/dispatch"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/broker"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-dispatch/internal/program"
)

// runServe runs the service until ctx is cancelled.
//
// Start order is database, embedded broker, MQTT client and bridge,
// InfluxDB, then the API. Deferred closes run in reverse.
func runServe(ctx context.Context, args []string) error { //nolint:gocognit,gocyclo // linear startup sequence
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "configuration file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	log := logging.Default()
	log.Info("starting Gray Logic Dispatch",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	checks := make(map[string]api.HealthChecker)

	svc, ids, err := setupDevices(cfg, log, nil)
	if err != nil {
		return err
	}
	lib, err := loadPrograms(cfg.Programs, ids, log)
	if err != nil {
		return err
	}

	// Execution log and audit trail
	var (
		repo     program.Repository
		auditLog audit.Repository
	)
	if cfg.Database.Enabled {
		db, dbErr := openDatabase(ctx, cfg.Database, log)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		repo = program.NewSQLiteRepository(db.DB)
		auditLog = audit.NewSQLiteRepository(db.DB)
		checks["database"] = db
	} else {
		log.Info("database disabled, program executions are not recorded")
	}

	// MQTT
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Embedded.Enabled {
			brk := broker.New(cfg.MQTT, log.Logger)
			brk.SetLogger(log)
			if startErr := brk.Start(); startErr != nil {
				return fmt.Errorf("starting embedded broker: %w", startErr)
			}
			defer func() {
				log.Info("stopping embedded broker")
				if closeErr := brk.Close(); closeErr != nil {
					log.Error("error stopping broker", "error", closeErr)
				}
			}()
		}

		mqttClient, connErr := mqtt.Connect(cfg.MQTT)
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		checks["mqtt"] = mqttClient

		publisher := dispatch.NewMQTTPublisher(mqttClient, log)
		svc.AddObserver(publisher)
		defer publisher.Close()

		cmdBridge := bridge.New(mqttClient, svc, 0)
		cmdBridge.SetLogger(log)
		if startErr := cmdBridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting command bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping command bridge")
			if stopErr := cmdBridge.Stop(); stopErr != nil {
				log.Error("error stopping command bridge", "error", stopErr)
			}
		}()
	} else {
		log.Info("MQTT disabled")
	}

	// Telemetry
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		checks["influxdb"] = influxClient
		svc.AddObserver(influxdb.NewDispatchRecorder(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	svc.AddObserver(hub)

	engine := program.NewEngine(lib, svc, program.MapResolver(ids), repo, hub, log)
	log.Info("program engine ready", "programs", lib.Names())

	if cfg.API.Enabled {
		srv, apiErr := api.New(api.Deps{
			Config:     cfg.API,
			WS:         cfg.WebSocket,
			Security:   cfg.Security,
			Logger:     log,
			Dispatcher: svc,
			Engine:     engine,
			Executions: repo,
			Audit:      auditLog,
			Hub:        hub,
			Checks:     checks,
			Version:    version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "path", cfg.Path)

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete")
	return db, nil
}

// healthCheck verifies every enabled infrastructure connection.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
