// Command extension-server runs one boot of the extension services and then
// serves the boot report until it is stopped.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/R3E-Network/extension_server/internal/config"
	"github.com/R3E-Network/extension_server/internal/engine/events"
	"github.com/R3E-Network/extension_server/internal/engine/metrics"
	"github.com/R3E-Network/extension_server/internal/logging"
	"github.com/R3E-Network/extension_server/internal/statusapi"
	"github.com/R3E-Network/extension_server/platform/engine"

	// Extension services register themselves with the plugin table.
	_ "github.com/R3E-Network/extension_server/services/devicepolicy"
	_ "github.com/R3E-Network/extension_server/services/telemetry"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	envFile     string
	logLevel    string
	metricsAddr string
	once        bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	flagSet := pflag.NewFlagSet("extension-server", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to the YAML configuration (default: $EXT_SERVER_CONFIG or config/extension_server.yaml)")
	flagSet.StringVar(&opts.envFile, "env", ".env", "dotenv file loaded before the configuration")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "override the configured log level")
	flagSet.StringVar(&opts.metricsAddr, "metrics-addr", "", "override the status API listen address")
	flagSet.BoolVar(&opts.once, "once", false, "exit after the boot run instead of serving the status API")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, nil
}

func loadConfig(opts options) (*config.Config, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env (%s): %w", opts.envFile, err)
		}
	}

	path := opts.configPath
	if path == "" {
		path = config.PathFromEnv()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.metricsAddr != "" {
		cfg.MetricsAddr = opts.metricsAddr
	}
	return cfg, nil
}

func run(args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	log, err := logging.New("extension-server", logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: out,
	})
	if err != nil {
		return err
	}
	journal := events.NewJournal(events.DefaultSize)
	log.Logger.AddHook(journal)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewCollector("")
	deps, closeDeps, err := buildDependencies(cfg, log, m)
	if err != nil {
		return err
	}
	defer closeDeps()

	eng, err := engine.New(engine.Config{
		Services:     cfg.Services,
		CompanionApp: cfg.CompanionApp,
		BackupUserID: cfg.BackupUser,
	}, deps.engine)
	if err != nil {
		return err
	}

	defer func() {
		if stopErr := deps.host.StopAll(context.Background()); stopErr != nil {
			log.WithError(stopErr).Warn("stopping services")
		}
	}()

	if _, err := eng.Run(ctx); err != nil {
		return err
	}
	if opts.once {
		return nil
	}

	api := statusapi.New(eng, m, log.Named("statusapi"), statusapi.WithEvents(journal))
	if err := api.ListenAndServe(ctx, cfg.MetricsAddr); err != nil {
		return fmt.Errorf("status API: %w", err)
	}
	log.Info("shutting down")
	return nil
}
