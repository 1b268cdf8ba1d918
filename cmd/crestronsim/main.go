// Crestron Simulator - UDP stand-in for a Crestron lighting and shading
// processor.
//
// The simulator answers the plain-text zone, button and shade protocol on a
// UDP port so integrations can be developed without the real hardware.
// A read-only status API, an MQTT mirror, an InfluxDB feed and a SQLite
// command journal can be switched on in the configuration file.
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

	"github.com/nerrad567/crestron-sim/internal/api"
	"github.com/nerrad567/crestron-sim/internal/device"
	"github.com/nerrad567/crestron-sim/internal/engine"
	"github.com/nerrad567/crestron-sim/internal/infrastructure/config"
	"github.com/nerrad567/crestron-sim/internal/infrastructure/database"
	"github.com/nerrad567/crestron-sim/internal/infrastructure/influxdb"
	"github.com/nerrad567/crestron-sim/internal/infrastructure/logging"
	"github.com/nerrad567/crestron-sim/internal/infrastructure/mqtt"
	"github.com/nerrad567/crestron-sim/internal/journal"
	"github.com/nerrad567/crestron-sim/internal/mqttbridge"
	"github.com/nerrad567/crestron-sim/internal/server"
	"github.com/nerrad567/crestron-sim/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// startupHealthTimeout bounds the one-off health check after startup.
const startupHealthTimeout = 5 * time.Second

// options holds the parsed command line.
type options struct {
	configPath   string
	overrides    config.Overrides
	resetJournal bool
	showVersion  bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Printf("crestronsim %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line. Host and port only override the
// configuration when given explicitly.
func parseFlags(args []string, out io.Writer) (options, error) {
	fs := pflag.NewFlagSet("crestronsim", pflag.ContinueOnError)
	fs.SetOutput(out)

	var opts options
	fs.StringVarP(&opts.configPath, "config", "c", os.Getenv("CRESTRONSIM_CONFIG"), "path to YAML configuration file")
	host := fs.String("host", server.DefaultHost, "UDP listen address")
	port := fs.IntP("port", "p", server.DefaultPort, "UDP listen port")
	fs.BoolVarP(&opts.overrides.Verbose, "verbose", "v", false, "enable debug logging")
	fs.BoolVar(&opts.resetJournal, "reset-journal", false, "drop and recreate the command journal before starting")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if fs.Changed("host") {
		opts.overrides.Host = host
	}
	if fs.Changed("port") {
		opts.overrides.Port = port
	}
	return opts, nil
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Parsed command line
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts options) error { //nolint:gocognit,gocyclo // startup wiring: each optional subsystem adds a branch
	log := logging.Default()

	cfg, err := config.Load(opts.configPath, opts.overrides)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting Crestron simulator",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", opts.configPath,
		"site_id", cfg.Site.ID,
		"site_name", cfg.Site.Name,
	)

	seed, err := loadSeed(cfg.Seed.Path)
	if err != nil {
		return fmt.Errorf("loading seed: %w", err)
	}
	registry := device.NewRegistry(seed)
	counts := registry.Counts()
	log.Info("device registry loaded",
		"zones", counts.Zones,
		"buttons", counts.Buttons,
		"shades", counts.Shades,
	)

	engineOpts := []engine.Option{engine.WithDiagnostics(log)}

	// Command journal (optional)
	var db *database.DB
	var journalRepo journal.Repository
	if cfg.Journal.Enabled {
		db, err = database.Open(database.ConfigFrom(cfg.Journal.Database))
		if err != nil {
			return fmt.Errorf("opening journal database: %w", err)
		}
		defer func() {
			log.Info("closing journal database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing journal database", "error", closeErr)
			}
		}()

		var applied int
		if opts.resetJournal {
			var rolledBack int
			rolledBack, applied, err = db.Reset(ctx, migrations.FS)
			if err != nil {
				return fmt.Errorf("resetting journal: %w", err)
			}
			log.Warn("command journal reset", "rolled_back", rolledBack)
		} else {
			applied, err = db.Migrate(ctx, migrations.FS)
			if err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
		}
		log.Info("journal database ready", "path", db.Path(), "migrations_applied", applied)

		repo, repoErr := journal.NewSQLiteRepository(db.DB)
		if repoErr != nil {
			return fmt.Errorf("creating journal: %w", repoErr)
		}
		journalRepo = repo
		engineOpts = append(engineOpts, engine.WithRecorder(repo))
	} else {
		log.Info("command journal disabled")
		if opts.resetJournal {
			log.Warn("--reset-journal ignored, the journal is disabled")
		}
	}

	eng := engine.New(registry, engineOpts...)

	// MQTT mirror (optional)
	var mqttClient *mqtt.Client
	var bridgeStats api.BridgeStats
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, log)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge, bridgeErr := mqttbridge.New(mqttbridge.Options{
			Engine: eng,
			Client: mqttClient,
			Topics: mqttClient.Topics(),
			QoS:    byte(cfg.MQTT.QoS), //nolint:gosec // validated to 0..2
			Logger: log,
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating MQTT bridge: %w", bridgeErr)
		}
		if startErr := bridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		defer bridge.Stop()
		bridgeStats = bridge
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB feed (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		unsubscribe := eng.Subscribe(influxClient.WriteChange)
		defer unsubscribe()
	} else {
		log.Info("InfluxDB disabled")
	}

	// Status API (optional)
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Site:    cfg.Site,
			Logger:  log,
			Engine:  eng,
			Journal: journalRepo,
			Bridge:  bridgeStats,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("status API disabled")
	}

	// UDP protocol listener
	srv, err := server.New(server.Config{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		ReadBuffer: cfg.Server.ReadBuffer,
		Logger:     log,
	}, eng)
	if err != nil {
		return fmt.Errorf("creating UDP server: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe(ctx) }()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("starting UDP listener: %w", err)
		}
		return nil
	case <-srv.Ready():
	}

	log.Info("Crestron simulator listening",
		"address", srv.Addr().String(),
		"zones", counts.Zones,
		"buttons", counts.Buttons,
		"shades", counts.Shades,
	)

	healthCtx, cancelHealth := context.WithTimeout(ctx, startupHealthTimeout)
	if hcErr := healthCheck(healthCtx, db, mqttClient, influxClient, apiServer); hcErr != nil {
		log.Warn("startup health check failed", "error", hcErr)
	}
	cancelHealth()

	log.Info("initialisation complete, waiting for shutdown signal")

	if err := <-serveErr; err != nil {
		return fmt.Errorf("UDP listener: %w", err)
	}

	log.Info("shutdown signal received, cleaning up",
		"received", eng.Stats().Received,
		"responded", eng.Stats().Responded,
	)

	// Deferred Close() calls run in reverse order:
	// API, InfluxDB, MQTT bridge then client, journal database.
	log.Info("Crestron simulator stopped")
	return nil
}

// loadSeed reads the seed file, or the embedded dataset when path is empty.
func loadSeed(path string) (device.Seed, error) {
	if path == "" {
		return device.DefaultSeed()
	}
	return device.LoadSeed(path)
}

// healthCheck verifies the enabled side channels are healthy.
// nil arguments are subsystems that are switched off.
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("journal database: %w", err)
		}
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	if apiServer != nil {
		if err := apiServer.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}
	return nil
}
