package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/trendteller/internal/config"
	"github.com/KaramelBytes/trendteller/internal/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set TrendTeller configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "store_kind: %s\n", cfg.StoreKind)
		fmt.Fprintf(out, "store_dsn: %s\n", maskDSN(cfg.StoreDSN))
		fmt.Fprintf(out, "plots_sink: %s\n", cfg.PlotsSink)
		fmt.Fprintf(out, "plots_dir: %s\n", cfg.PlotsDir)
		if cfg.PlotsBucket != "" {
			fmt.Fprintf(out, "plots_bucket: %s\n", cfg.PlotsBucket)
			fmt.Fprintf(out, "plots_prefix: %s\n", cfg.PlotsPrefix)
		}
		if cfg.PlotsSink == "s3" {
			fmt.Fprintf(out, "s3_region: %s\n", cfg.S3Region)
			fmt.Fprintf(out, "s3_endpoint: %s\n", cfg.S3Endpoint)
			fmt.Fprintf(out, "s3_key_id: %s\n", mask(cfg.S3KeyID))
			fmt.Fprintf(out, "s3_secret: %s\n", mask(cfg.S3Secret))
		}
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "cors_origins: %s\n", strings.Join(cfg.CORSOrigins, ","))
		fmt.Fprintf(out, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		if cfg.CSVDelimiter != "" {
			fmt.Fprintf(out, "csv_delimiter: %q\n", cfg.CSVDelimiter)
		}
		if cfg.CSVEncoding != "" {
			fmt.Fprintf(out, "csv_encoding: %s\n", cfg.CSVEncoding)
		}
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "store_kind":
			known := false
			for _, k := range store.Registered() {
				if k == val {
					known = true
				}
			}
			if !known {
				return fmt.Errorf("invalid store_kind: %s (use one of %s)", val, strings.Join(store.Registered(), ", "))
			}
			cfg.StoreKind = val
		case "store_dsn":
			cfg.StoreDSN = val
		case "plots_sink":
			switch strings.ToLower(val) {
			case "dir", "s3", "gcs":
				cfg.PlotsSink = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid plots_sink: %s (use dir, s3 or gcs)", val)
			}
		case "plots_dir":
			cfg.PlotsDir = val
		case "plots_bucket":
			cfg.PlotsBucket = val
		case "plots_prefix":
			cfg.PlotsPrefix = val
		case "s3_region":
			cfg.S3Region = val
		case "s3_endpoint":
			cfg.S3Endpoint = val
		case "s3_key_id":
			cfg.S3KeyID = val
		case "s3_secret":
			cfg.S3Secret = val
		case "listen_addr":
			cfg.ListenAddr = val
		case "cors_origins":
			var origins []string
			for _, o := range strings.Split(val, ",") {
				if o = strings.TrimSpace(o); o != "" {
					origins = append(origins, o)
				}
			}
			cfg.CORSOrigins = origins
		case "max_upload_mb":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for max_upload_mb: %v", val)
			}
			cfg.MaxUploadMB = i
		case "csv_delimiter":
			if _, err := parserOptions(val, ""); err != nil {
				return err
			}
			cfg.CSVDelimiter = val
		case "csv_encoding":
			switch strings.ToLower(val) {
			case "", "utf-8", "utf8", "latin1", "latin-1", "iso-8859-1", "windows-1252", "cp1252":
				cfg.CSVEncoding = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid csv_encoding: %s", val)
			}
		case "log_level":
			cfg.LogLevel = val
		case "log_format":
			cfg.LogFormat = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

// maskDSN hides the password of a URL-style connection string.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":****" + dsn[at:]
	}
	return dsn
}
