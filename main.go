package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/streamctl/cmd"
	"github.com/smazurov/streamctl/internal/api"
	"github.com/smazurov/streamctl/internal/config"
	"github.com/smazurov/streamctl/internal/discovery"
	"github.com/smazurov/streamctl/internal/engine"
	"github.com/smazurov/streamctl/internal/events"
	"github.com/smazurov/streamctl/internal/logging"
	"github.com/smazurov/streamctl/internal/metrics/exporters"
	"github.com/smazurov/streamctl/internal/probe"
	"github.com/smazurov/streamctl/internal/streams"
	"github.com/smazurov/streamctl/internal/streams/store"
	"github.com/smazurov/streamctl/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Registry settings
	RegistryBackend  string `help:"Registry backend (toml, yaml, postgres, memory)" default:"toml" toml:"registry.backend" env:"REGISTRY_BACKEND"`
	RegistryFile     string `help:"Registry file for the toml and yaml backends" default:"" toml:"registry.file" env:"REGISTRY_FILE"`
	RegistryWatch    bool   `help:"Resync the engine when the registry file is edited" default:"true" toml:"registry.watch" env:"REGISTRY_WATCH"`
	DatabaseURL      string `help:"PostgreSQL connection string for the postgres backend" default:"" toml:"registry.database_url" env:"DATABASE_URL"`
	DatabaseMaxConns int    `help:"Maximum PostgreSQL pool connections" default:"4" toml:"registry.max_conns" env:"DATABASE_MAX_CONNS"`
	ImportWorkers    int    `help:"Concurrent registry writes during import" default:"1" toml:"registry.import_workers" env:"REGISTRY_IMPORT_WORKERS"`

	// Engine settings
	EngineURL  string `help:"go2rtc API base URL" default:"http://localhost:1984" toml:"engine.url" env:"ENGINE_URL"`
	EngineSync bool   `help:"Push registry changes to go2rtc" default:"true" toml:"engine.sync" env:"ENGINE_SYNC"`

	// Probe settings
	ProbeBinary  string        `help:"ffprobe binary" default:"ffprobe" toml:"probe.binary" env:"PROBE_BINARY"`
	ProbeTimeout time.Duration `help:"Probe timeout" default:"15s" toml:"probe.timeout" env:"PROBE_TIMEOUT"`

	// Discovery settings
	DiscoverySubnet  string        `help:"CIDR to scan (default: local /24)" default:"" toml:"discovery.subnet" env:"DISCOVERY_SUBNET"`
	DiscoveryPort    int           `help:"RTSP port to scan" default:"554" toml:"discovery.port" env:"DISCOVERY_PORT"`
	DiscoveryTimeout time.Duration `help:"Per-host dial timeout" default:"200ms" toml:"discovery.timeout" env:"DISCOVERY_TIMEOUT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingStreams  string `help:"Streams logging level" default:"" toml:"logging.streams" env:"LOGGING_STREAMS"`
	LoggingImporter string `help:"Importer logging level" default:"" toml:"logging.importer" env:"LOGGING_IMPORTER"`
	LoggingEngine   string `help:"Engine sync logging level" default:"" toml:"logging.engine" env:"LOGGING_ENGINE"`
	LoggingAPI      string `help:"API logging level" default:"" toml:"logging.api" env:"LOGGING_API"`
}

func (o *Options) storeOptions() store.Options {
	return store.Options{
		Backend:     o.RegistryBackend,
		Path:        o.RegistryFile,
		DatabaseURL: o.DatabaseURL,
		Postgres:    store.PostgresOptions{MaxConns: int32(o.DatabaseMaxConns)},
	}
}

func (o *Options) loggingConfig() logging.Config {
	cfg := config.LoadLoggingConfig(o.Config)
	cfg.Level = o.LoggingLevel
	cfg.Format = o.LoggingFormat
	for module, level := range map[string]string{
		"streams":  o.LoggingStreams,
		"importer": o.LoggingImporter,
		"engine":   o.LoggingEngine,
		"api":      o.LoggingAPI,
	} {
		if level != "" {
			cfg.Modules[module] = level
		}
	}
	return cfg
}

func main() {
	var opts *Options
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, o *Options) {
		opts = o
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			logging.GetLogger("main").Warn("Failed to load config", "error", loadErr)
		}
		logging.Initialize(opts.loggingConfig())

		hooks.OnStart(func() {
			if err := runServer(opts); err != nil {
				logging.GetLogger("main").Error("Server failed", "error", err)
				os.Exit(1)
			}
		})
	})

	root := cli.Root()
	root.Use = "streamctl"
	root.Short = "Stream registry and connection string manager for go2rtc"
	root.Version = version.Long()

	settings := func() cmd.Settings {
		return cmd.Settings{
			Store:         opts.storeOptions(),
			ImportWorkers: opts.ImportWorkers,
			Logging:       opts.loggingConfig(),
		}
	}
	root.AddCommand(cmd.CreateImportCmd(settings))
	root.AddCommand(cmd.CreateInspectCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(c *cobra.Command, _ []string) {
			c.Println(version.Long())
		},
	})

	cli.Run()
}

func runServer(opts *Options) error {
	logger := logging.GetLogger("main")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeOpts := opts.storeOptions()
	registry, closeRegistry, err := store.Open(ctx, storeOpts)
	if err != nil {
		return err
	}
	defer closeRegistry()

	eventBus := events.New()

	streamService := streams.NewStreamService(streams.ServiceOptions{
		Registry: registry,
		EventBus: eventBus,
		Prober:   probe.New(opts.ProbeBinary),
		Scanner: discovery.New(discovery.Options{
			Subnet: opts.DiscoverySubnet,
			Port:   opts.DiscoveryPort,
		}),
		ImportWorkers:    opts.ImportWorkers,
		ProbeTimeout:     opts.ProbeTimeout,
		DiscoveryTimeout: opts.DiscoveryTimeout,
	})

	if opts.EngineSync {
		engineOpts := engine.Options{
			Source:   registry.List,
			EventBus: eventBus,
		}
		if g2r, ok := registry.(*store.Go2RTC); ok {
			engineOpts.Preserve = g2r.Unmanaged
		}
		client := engine.NewClient(opts.EngineURL, engineOpts)
		syncer := engine.NewSyncer(client, eventBus)
		syncer.Start()
		client.StartHealthMonitor()
		defer func() {
			client.Stop()
			syncer.Stop()
		}()
	}

	if path := store.FilePath(storeOpts); path != "" && opts.RegistryWatch {
		watcher := config.NewConfigWatcher(path, func(p string) ([]streams.Entry, error) {
			return store.LoadEntries(p, storeOpts.Backend)
		}, logging.GetLogger("watcher"))
		watcher.OnReload(func(entries []streams.Entry) {
			logger.Info("Registry file changed", "path", path, "streams", len(entries))
			eventBus.Publish(events.RegistryChangedEvent{
				Source:    path,
				Timestamp: time.Now().Format(time.RFC3339),
			})
		})
		if watchErr := watcher.Start(); watchErr != nil {
			logger.Warn("Failed to watch registry file", "path", path, "error", watchErr)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	server := api.NewServer(&api.Options{
		AuthUsername:      opts.AuthUsername,
		AuthPassword:      opts.AuthPassword,
		StreamService:     streamService,
		PrometheusHandler: exporters.HTTPHandler(),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(opts.Port) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
