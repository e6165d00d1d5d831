package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trendteller/internal/utils"
)

var (
	dsName      string
	dsBy        string
	dsDelimiter string
	dsQuiet     bool
)

var datasetCmd = &cobra.Command{
	Use:     "dataset",
	Aliases: []string{"datasets", "ds"},
	Short:   "Register, inspect and remove datasets",
}

var datasetAddCmd = &cobra.Command{
	Use:   "add <files...>",
	Short: "Ingest CSV/TSV/JSON files as datasets (globs allowed)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := utils.ExpandPaths(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		if dsName != "" && len(files) > 1 {
			return fmt.Errorf("--name applies to a single file, got %d", len(files))
		}

		if dsDelimiter != "" {
			c, err := requireConfig()
			if err != nil {
				return err
			}
			c.CSVDelimiter = dsDelimiter
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		total := len(files)
		failed := 0
		for i, path := range files {
			if !dsQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Skipping %s: %v\n", path, err)
				failed++
				continue
			}
			name := dsName
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}
			d, err := a.datasets.IngestFile(cmd.Context(), name, uploader(), filepath.Base(path), raw)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Skipping %s: %v\n", path, err)
				failed++
				continue
			}
			fmt.Fprintf(out, "✓ Dataset %d added: %s (%d rows, %d columns)\n", d.ID, d.Name, len(d.Data), len(d.Columns))
		}
		if failed == total {
			return fmt.Errorf("no datasets added")
		}
		return nil
	},
}

func uploader() string {
	if dsBy != "" {
		return dsBy
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		all, err := a.datasets.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(all) == 0 {
			fmt.Fprintln(out, "(no datasets)")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tUPLOADED BY\tROWS\tUPLOADED AT")
		for _, d := range all {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", d.ID, d.Name, d.UploadedBy, len(d.Data), d.UploadedAt.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}

var datasetShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a dataset record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		d, err := a.datasets.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var datasetRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a dataset (its insights are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		ok, err := a.datasets.Delete(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("dataset %d not found", id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Dataset %d removed\n", id)
		return nil
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id: %s", s)
	}
	return id, nil
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetAddCmd, datasetListCmd, datasetShowCmd, datasetRmCmd)
	datasetAddCmd.Flags().StringVar(&dsName, "name", "", "dataset name (default: file name without extension)")
	datasetAddCmd.Flags().StringVar(&dsBy, "by", "", "uploader attribution (default: $USER)")
	datasetAddCmd.Flags().StringVar(&dsDelimiter, "delimiter", "", "CSV delimiter: ',', ';' or 'tab' (default: sniffed)")
	datasetAddCmd.Flags().BoolVarP(&dsQuiet, "quiet", "q", false, "suppress progress lines")
}
