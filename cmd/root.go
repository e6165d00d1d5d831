package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/trendteller/internal/config"
	"github.com/KaramelBytes/trendteller/internal/dataset"
	"github.com/KaramelBytes/trendteller/internal/insight"
	"github.com/KaramelBytes/trendteller/internal/logging"
	"github.com/KaramelBytes/trendteller/internal/parser"
	"github.com/KaramelBytes/trendteller/internal/plot"
	"github.com/KaramelBytes/trendteller/internal/store"
	_ "github.com/KaramelBytes/trendteller/internal/store/sqlstore"
)

var (
	// Global flags
	cfgFile      string
	debug        bool
	flagStore    string
	flagStoreDSN string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "trendteller",
	Short: "TrendTeller: register datasets and derive summary + histogram insights",
	Long: `TrendTeller stores tabular datasets and derives insights from them: a textual
statistical summary plus one histogram per numeric column. Use the dataset and
insight commands locally, or run the HTTP API with "trendteller serve".`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.trendteller/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "entity store backing: memory, file, sqlite, postgres (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagStoreDSN, "store-dsn", "", "store location: file path, sqlite path or postgres URL (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("store") && flagStore != "" && flagStore != cfg.StoreKind {
		cfg.StoreKind = flagStore
		cfg.StoreDSN = ""
	}
	if f.Changed("store-dsn") && flagStoreDSN != "" {
		cfg.StoreDSN = flagStoreDSN
	}
	if err := cfg.Resolve(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	}
	if debug {
		cfg.LogLevel = "debug"
		cfg.LogFormat = "console"
	}
}

func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

// app bundles the services a command needs.
type app struct {
	cfg      *cfgpkg.Global
	log      *zap.Logger
	store    store.Store
	sink     plot.Sink
	datasets *dataset.Service
	insights *insight.Service
}

func openApp(ctx context.Context) (*app, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, store.Config{Kind: c.StoreKind, DSN: c.StoreDSN})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", c.StoreKind, err)
	}
	sink, err := plot.OpenSink(ctx, sinkConfig(c))
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	opt, err := parserOptions(c.CSVDelimiter, c.CSVEncoding)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	ds := dataset.NewService(st, opt, log)
	gen := plot.NewGenerator(nil, sink, log)
	return &app{
		cfg:      c,
		log:      log,
		store:    st,
		sink:     sink,
		datasets: ds,
		insights: insight.NewService(st, ds, gen, log),
	}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
	if c, ok := a.sink.(io.Closer); ok {
		_ = c.Close()
	}
	_ = a.log.Sync()
}

func sinkConfig(c *cfgpkg.Global) plot.SinkConfig {
	return plot.SinkConfig{
		Kind:     c.PlotsSink,
		Dir:      c.PlotsDir,
		Bucket:   c.PlotsBucket,
		Prefix:   c.PlotsPrefix,
		Region:   c.S3Region,
		Endpoint: c.S3Endpoint,
		KeyID:    c.S3KeyID,
		Secret:   c.S3Secret,
	}
}

func parserOptions(delimiter, encoding string) (parser.Options, error) {
	opt := parser.Options{Encoding: strings.ToLower(strings.TrimSpace(encoding))}
	switch delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported delimiter: %s", delimiter)
	}
	return opt, nil
}
