package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var insSummary string

var insightCmd = &cobra.Command{
	Use:     "insight",
	Aliases: []string{"insights"},
	Short:   "Generate, list and remove insights",
}

var insightAddCmd = &cobra.Command{
	Use:   "add <dataset-id>",
	Short: "Generate an insight (summary + histograms) for a dataset",
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
		ins, err := a.insights.Add(cmd.Context(), id, insSummary)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Insight %d added for dataset %d\n\n", ins.ID, ins.DatasetID)
		fmt.Fprintln(out, ins.Summary)
		if len(ins.Plots) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Plots:")
			for _, p := range ins.Plots {
				fmt.Fprintf(out, "  %s\n", p)
			}
		}
		return nil
	},
}

var insightListCmd = &cobra.Command{
	Use:   "list <dataset-id>",
	Short: "List insights recorded for a dataset",
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
		list, err := a.insights.List(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "(no insights)")
			return nil
		}
		for _, ins := range list {
			fmt.Fprintf(out, "--- insight %d (%d plots)\n%s\n", ins.ID, len(ins.Plots), ins.Summary)
			for _, p := range ins.Plots {
				fmt.Fprintf(out, "  %s\n", p)
			}
		}
		return nil
	},
}

var insightRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an insight record (plot files are left in place)",
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
		ok, err := a.insights.Delete(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("insight %d not found", id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Insight %d removed\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insightCmd)
	insightCmd.AddCommand(insightAddCmd, insightListCmd, insightRmCmd)
	insightAddCmd.Flags().StringVar(&insSummary, "summary", "", "use this summary instead of generating one")
}
