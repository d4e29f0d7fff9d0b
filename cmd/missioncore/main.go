// Mission Core - step engine for competition robots.
//
// This is the main entry point. It loads configuration, opens the run
// history database, connects the optional telemetry sinks, binds the robot's
// capabilities and runs one match: setup, start signal, the timed main
// missions and the shutdown mission.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nerrad567/mission-core/internal/api"
	"github.com/nerrad567/mission-core/internal/hardware"
	"github.com/nerrad567/mission-core/internal/infrastructure/config"
	"github.com/nerrad567/mission-core/internal/infrastructure/database"
	"github.com/nerrad567/mission-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/mission-core/internal/infrastructure/logging"
	"github.com/nerrad567/mission-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mission-core/internal/mission"
	"github.com/nerrad567/mission-core/internal/step"
	"github.com/nerrad567/mission-core/internal/telemetry"
	"github.com/nerrad567/mission-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

var errHardwareUnavailable = errors.New("no hardware driver linked; run with --dry-run")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	dryRun      bool
	serve       bool
	showVersion bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	flagSet := pflag.NewFlagSet("missioncore", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", getConfigPath(), "path to the YAML configuration file")
	flagSet.BoolVar(&opts.dryRun, "dry-run", true, "run against the simulated device")
	flagSet.BoolVar(&opts.serve, "serve", false, "keep the API up after the match until interrupted")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	help := flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
		}
		return opts, err
	}
	if *help {
		printHelp(flagSet)
		return opts, pflag.ErrHelp
	}
	return opts, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Usage: missioncore [flags]

Runs one match: setup, start signal, main missions until the auto shutdown
timer fires, then the shutdown mission.

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "missioncore %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}
	if !opts.dryRun {
		return errHardwareUnavailable
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, cfg.Robot.ID, version)
	log.Info("starting Mission Core",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", opts.configPath,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	applied, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path(), "migrations_applied", applied)

	// Telemetry sinks stay as nil interfaces when disabled so the publisher
	// skips them.
	var (
		messages   telemetry.MessagePublisher
		metrics    telemetry.MetricsWriter
		mqttClient *mqtt.Client
	)

	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Robot.ID)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.Component("mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		messages = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(cfg.InfluxDB, cfg.Robot.ID)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		metrics = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	publisher := telemetry.NewPublisher(messages, metrics, cfg.Robot.ID, log.Component("telemetry"))
	publisher.Start(ctx)
	defer func() {
		publisher.Close()
		if dropped := publisher.Dropped(); dropped > 0 {
			log.Warn("telemetry events dropped", "count", dropped)
		}
	}()

	registry, err := newSimRegistry(cfg, log.Component("hardware"))
	if err != nil {
		return fmt.Errorf("binding simulated hardware: %w", err)
	}
	log.Info("simulated hardware bound", "tick", cfg.GetSimulationTick(), "ports", registry.Names())

	gate, err := startGate(cfg, registry, mqttClient, log)
	if err != nil {
		return err
	}

	repo := mission.NewSQLiteRepository(db.DB)
	observers := step.Observers{publisher}
	runPublishers := mission.RunPublishers{publisher}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log.Component("api"),
			Runs:     repo,
			Registry: registry,
			RobotID:  cfg.Robot.ID,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		observers = append(observers, apiServer.Hub())
		runPublishers = append(runPublishers, apiServer.Hub())
	} else {
		log.Info("API disabled")
	}

	set := newMissionSet(cfg)
	controller, err := mission.NewController(mission.Options{
		RobotID:         cfg.Robot.ID,
		Registry:        registry,
		Setup:           &set.setup,
		Missions:        set.main,
		Shutdown:        &set.shutdown,
		StartGate:       gate,
		AutoShutdown:    cfg.GetAutoShutdown(),
		ShutdownTimeout: cfg.GetShutdownTimeout(),
		Repository:      repo,
		HistoryLimit:    cfg.Mission.HistoryLimit,
		Publisher:       runPublishers,
		Observer:        observers,
		Logger:          log.Component("mission"),
	})
	if err != nil {
		return fmt.Errorf("creating mission controller: %w", err)
	}

	execErr := controller.Execute(ctx)
	reportStats(ctx, controller, set, log)
	if execErr != nil {
		return fmt.Errorf("executing match: %w", execErr)
	}

	if opts.serve && apiServer != nil {
		log.Info("match over, serving run history until interrupted", "address", apiServer.Addr())
		<-ctx.Done()
	}

	log.Info("Mission Core stopped")
	return nil
}

// startGate selects what the controller waits on between setup and the
// main missions.
func startGate(cfg *config.Config, reg *hardware.Registry, mqttClient *mqtt.Client, log *logging.Logger) (mission.StartGate, error) {
	switch cfg.Mission.StartSignal {
	case config.StartSignalLight:
		sensor, err := reg.Sensor(cfg.Mission.StartSensor)
		if err != nil {
			return nil, fmt.Errorf("start sensor: %w", err)
		}
		log.Info("waiting for start light", "sensor", cfg.Mission.StartSensor)
		return mission.LightGate{Sensor: sensor}, nil
	case config.StartSignalRemote:
		if mqttClient == nil {
			return nil, errors.New("remote start requires MQTT")
		}
		remote := telemetry.NewRemoteStart(mqttClient, cfg.Robot.ID, log.Component("remote_start"))
		log.Info("waiting for remote start", "topic", remote.Topic())
		return remote, nil
	default:
		return nil, nil
	}
}

// reportStats logs lead-time statistics for every main mission.
func reportStats(ctx context.Context, controller *mission.Controller, set missionSet, log *logging.Logger) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	for _, m := range set.main {
		stats, err := controller.Stats(sctx, m.Name)
		if err != nil {
			log.Warn("computing mission stats", "mission", m.Name, "error", err)
			continue
		}
		if stats.Count == 0 {
			continue
		}
		log.Info("mission lead time",
			"mission", m.Name,
			"runs", stats.Count,
			"mean", stats.Mean,
			"stddev", stats.StdDev,
			"min", stats.Min,
			"max", stats.Max,
		)
	}
}

// getConfigPath returns the configuration file path.
// Uses MISSIONCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MISSIONCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
