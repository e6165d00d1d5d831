package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trendteller/internal/analysis"
	"github.com/KaramelBytes/trendteller/internal/parser"
)

var (
	sumDelimiter string
	sumEncoding  string
	sumDecimal   string
	sumThousands string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Print the summary for a CSV/TSV/JSON file without storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := parserOptions(sumDelimiter, sumEncoding)
		if err != nil {
			return err
		}
		// Locale separators
		switch sumDecimal {
		case ",", "comma":
			opt.DecimalSeparator = ','
		case ".", "dot", "":
		default:
			return fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", sumDecimal)
		}
		switch sumThousands {
		case ",":
			opt.ThousandsSeparator = ','
		case ".":
			opt.ThousandsSeparator = '.'
		case "space", " ":
			opt.ThousandsSeparator = ' '
		case "":
		default:
			return fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", sumThousands)
		}
		t, err := parser.ParseFile(args[0], opt)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), analysis.Summarize(t))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVar(&sumDelimiter, "delimiter", "", "CSV delimiter: ',', ';' or 'tab' (default: sniffed)")
	summarizeCmd.Flags().StringVar(&sumEncoding, "encoding", "", "input encoding: latin1 or windows-1252 (default: UTF-8/UTF-16)")
	summarizeCmd.Flags().StringVar(&sumDecimal, "decimal", "", "decimal separator: '.' or 'comma'")
	summarizeCmd.Flags().StringVar(&sumThousands, "thousands", "", "thousands separator: ',', '.' or 'space'")
}
