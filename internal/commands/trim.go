package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/expensebook/sheetsync/internal/logging"
	"github.com/expensebook/sheetsync/internal/normalize"
	"github.com/expensebook/sheetsync/internal/report"
	"github.com/expensebook/sheetsync/internal/workbook"
)

func newTrimCommand(global *globalOptions) *cobra.Command {
	var out, runLog string

	cmd := &cobra.Command{
		Use:   "trim [workbook]",
		Short: "Clean a workbook in place: drop empty rows and columns, fill labels, prune spacer rows",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) > 0 {
				input = args[0]
			}

			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			tables, err := workbook.ReadFile(workbook.DefaultRegistry(), input)
			if noInput(cmd.OutOrStdout(), err) {
				return nil
			}
			if err != nil {
				return err
			}

			opts, err := normalize.NewOptions(cfg)
			if err != nil {
				return err
			}
			// Trim keeps every sheet regardless of the category config.
			opts.IncludeUnconfigured = true

			logger := logging.WithFields(cmd.Context(), "command", "trim", "input", input)
			pipeline := normalize.NewPipeline(opts, nil, nil, logger)
			cleaned, outcomes, err := pipeline.Trim(cmd.Context(), tables)
			if err != nil {
				return err
			}
			if err := appendRunLog(runLog, "trim", input, outcomes); err != nil {
				return err
			}

			if out == "" {
				out = withExt(input, "_整理完成", ".xlsx")
			}
			if err := workbook.WriteFile(out, cleaned, workbook.DefaultStyle()); err != nil {
				return err
			}
			logger.Info("workbook written", "output", out, "sheets", len(cleaned))

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d sheet(s) to %s\n", len(cleaned), out)
			return report.Summarize(outcomes).Write(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output workbook path (default: <input>_整理完成.xlsx)")
	cmd.Flags().StringVar(&runLog, "run-log", "", "append per-sheet outcomes to this CSV file")

	return cmd
}
