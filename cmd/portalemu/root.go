package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/maruel/portalemu/internal/client"
	"github.com/maruel/portalemu/internal/config"
	"github.com/maruel/portalemu/internal/metrics"
	"github.com/maruel/portalemu/internal/portal"
	"github.com/maruel/portalemu/internal/store"
	"github.com/spf13/cobra"
)

// validFormats are the accepted values of --format.
var validFormats = []string{"text", "json"}

// rootOptions holds the global flags and the configuration they resolve to.
type rootOptions struct {
	configPath  string
	envPath     string
	fixtures    string
	logLevel    string
	metricsAddr string
	format      string

	ll  *slog.LevelVar
	cfg *config.Config
}

// env is the emulator wired for one command.
type env struct {
	store   *store.Store
	client  *client.Client
	metrics *metrics.Collector
}

func newRootCommand(ll *slog.LevelVar) *cobra.Command {
	opts := &rootOptions{ll: ll}
	cmd := &cobra.Command{
		Use:           "portalemu",
		Short:         "In-process emulator of the portal backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
	}
	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "portalemu.yaml", "configuration file; missing means defaults")
	f.StringVar(&opts.envPath, "env", ".env", ".env file with PORTALEMU_* overrides")
	f.StringVar(&opts.fixtures, "fixtures", "", "fixture file or .jsonl directory; empty uses the embedded seed")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (watch only)")
	f.StringVar(&opts.format, "format", "text", "output format (json|text)")

	cmd.AddCommand(
		newCollectionsCommand(opts),
		newQueryCommand(opts),
		newRPCCommand(opts),
		newAuthCommand(opts),
		newSchemaCommand(opts),
		newWatchCommand(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version and exit",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				printVersion(cmd.OutOrStdout())
			},
		},
	)
	return cmd
}

// resolve layers the configuration file, the .env file and the flags.
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	if !slices.Contains(validFormats, o.format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.format, validFormats)
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	dotenv, err := config.LoadDotEnv(o.envPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(dotenv); err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("fixtures") {
		cfg.Fixtures = o.fixtures
	}
	if f.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if o.ll != nil {
		o.ll.Set(cfg.Level())
	}
	o.cfg = cfg
	return nil
}

// loadFixtures returns the configured fixtures or the embedded seed.
func (o *rootOptions) loadFixtures() (*store.Fixtures, error) {
	if o.cfg.Fixtures == "" {
		return portal.Seed()
	}
	return store.LoadFixtures(o.cfg.Fixtures)
}

// newEnv seeds a store and wires the client, procedures and metrics.
func (o *rootOptions) newEnv() (*env, error) {
	f, err := o.loadFixtures()
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	s := store.New()
	s.Seed(f)
	s.AddObserver(m)
	m.TrackStore(s)
	c := client.New(s, o.cfg, client.WithTracer(m))
	portal.RegisterProcedures(c)
	return &env{store: s, client: c, metrics: m}, nil
}

func writeJSON(w io.Writer, v any) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
