package main

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"composition-cache/internal/cache"
	"composition-cache/internal/composition"
	"composition-cache/internal/config"
	"composition-cache/internal/metrics"
	"composition-cache/internal/reference"
)

// app holds what every command shares once flags are parsed.
type app struct {
	out io.Writer

	cfgFile     string
	verbose     int
	metricsFile string

	cfg          *config.File
	zap          *zap.Logger
	log          logr.Logger
	registry     *prometheus.Registry
	resolution   *metrics.Resolution
	cacheMetrics *metrics.Cache
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, log: logr.Discard()}

	root := &cobra.Command{
		Use:     "compcache",
		Short:   "Inspect, verify and stabilize composition caches",
		Long:    `compcache works with the binary caches a composition engine writes after discovering its parts.`,
		Version: version,
		// Errors are reported by cobra; usage is only useful for flag mistakes.
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.teardown()
		},
	}

	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: built-in defaults)")
	flags.CountVarP(&a.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file when the command completes")

	root.AddCommand(
		newInspectCmd(a),
		newVerifyCmd(a),
		newStabilizeCmd(a),
		newConfigCmd(a),
	)

	return root
}

func (a *app) setup() error {
	cfg := config.Default()
	if a.cfgFile != "" {
		loaded, err := config.LoadFile(a.cfgFile)
		if err != nil {
			return err
		}

		cfg = loaded
	}

	a.cfg = cfg

	zc := zap.NewDevelopmentConfig()
	zc.DisableStacktrace = true
	// logr V(n) maps to zap level -n.
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-a.verbose))

	zl, err := zc.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	a.zap = zl
	a.log = zapr.NewLogger(zl)

	a.registry = prometheus.NewRegistry()
	a.resolution = metrics.NewResolution()
	a.cacheMetrics = metrics.NewCache()

	if err := a.resolution.Register(a.registry); err != nil {
		return err
	}

	return a.cacheMetrics.Register(a.registry)
}

func (a *app) teardown() error {
	if a.zap != nil {
		// Syncing stderr fails on some platforms; nothing is buffered there.
		_ = a.zap.Sync()
	}

	if a.metricsFile == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}

	return nil
}

func (a *app) resolver() *reference.Resolver {
	return reference.NewResolver(a.cfg.PackagesLoader(),
		reference.WithLogger(a.log.WithName("resolver")),
		reference.WithMetrics(a.resolution),
	)
}

func (a *app) cacheOptions() []cache.Option {
	return []cache.Option{cache.WithLogger(a.log.WithName("cache")), cache.WithMetrics(a.cacheMetrics)}
}

// load reads the cache named by args, or the configured one.
func (a *app) load(args []string) (*composition.Catalog, string, error) {
	path := a.cfg.Cache
	if len(args) > 0 {
		path = args[0]
	}

	catalog, err := cache.LoadFile(path, a.resolver(), a.cacheOptions()...)
	if err != nil {
		return nil, path, err
	}

	return catalog, path, nil
}
