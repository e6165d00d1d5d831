package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Entity store
	StoreKind string `mapstructure:"store_kind" yaml:"store_kind"`
	StoreDSN  string `mapstructure:"store_dsn" yaml:"store_dsn"`

	// Plot artifacts
	PlotsSink   string `mapstructure:"plots_sink" yaml:"plots_sink"`
	PlotsDir    string `mapstructure:"plots_dir" yaml:"plots_dir"`
	PlotsBucket string `mapstructure:"plots_bucket" yaml:"plots_bucket"`
	PlotsPrefix string `mapstructure:"plots_prefix" yaml:"plots_prefix"`
	S3Region    string `mapstructure:"s3_region" yaml:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint" yaml:"s3_endpoint"`
	S3KeyID     string `mapstructure:"s3_key_id" yaml:"s3_key_id"`
	S3Secret    string `mapstructure:"s3_secret" yaml:"s3_secret"`

	// HTTP API
	ListenAddr  string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	MaxUploadMB int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	// CSV ingestion
	CSVDelimiter string `mapstructure:"csv_delimiter" yaml:"csv_delimiter"`
	CSVEncoding  string `mapstructure:"csv_encoding" yaml:"csv_encoding"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Dir returns ~/.trendteller.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".trendteller"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.trendteller/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. CLI flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TRENDTELLER")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store_kind", "file")
	v.SetDefault("store_dsn", "")
	v.SetDefault("plots_sink", "dir")
	v.SetDefault("plots_dir", "insight_plots")
	v.SetDefault("plots_bucket", "")
	v.SetDefault("plots_prefix", "")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_key_id", "")
	v.SetDefault("s3_secret", "")
	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("csv_delimiter", "")
	v.SetDefault("csv_encoding", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Resolve(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Resolve fills defaults that depend on other keys. The file store defaults to
// ~/.trendteller/store.json.
func (c *Global) Resolve() error {
	if c.StoreKind == "file" && c.StoreDSN == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		c.StoreDSN = filepath.Join(dir, "store.json")
	}
	return nil
}
