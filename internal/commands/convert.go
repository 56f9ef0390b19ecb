package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/expensebook/sheetsync/internal/dataset"
	"github.com/expensebook/sheetsync/internal/id"
	"github.com/expensebook/sheetsync/internal/logging"
	"github.com/expensebook/sheetsync/internal/normalize"
	"github.com/expensebook/sheetsync/internal/report"
	"github.com/expensebook/sheetsync/internal/workbook"
)

const (
	modeFull       = "full"
	modeConfigured = "configured"
)

func newConvertCommand(global *globalOptions) *cobra.Command {
	var out, mode, runLog string
	var workers int

	cmd := &cobra.Command{
		Use:   "convert [workbook]",
		Short: "Convert an .xlsx or .csv expense sheet to tracking-app JSON",
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
			if cmd.Flags().Changed("mode") {
				switch mode {
				case modeFull:
					cfg.IncludeUnconfiguredSheets = true
				case modeConfigured:
					cfg.IncludeUnconfiguredSheets = false
				default:
					return fmt.Errorf("unknown mode %q (want %s or %s)", mode, modeFull, modeConfigured)
				}
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
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
			ctx := cmd.Context()
			logger := logging.WithFields(ctx, "command", "convert", "input", input)
			ids := id.NewGenerator(id.Strategy(cfg.IDStrategy), nil, nil)
			pipeline := normalize.NewPipeline(opts, cfg.Catalog(), ids, logger)

			res, err := pipeline.Run(ctx, tables)
			if err != nil {
				return err
			}
			if err := appendRunLog(runLog, "convert", input, res.Outcomes); err != nil {
				return err
			}
			for _, v := range dataset.Validate(res.Dataset) {
				logger.Warn("dataset invariant violated", "rule", v.Rule, "record", v.RecordID, "detail", v.Description)
			}

			summary := res.Summary()
			if summary.Status == report.RunFailed {
				_ = summary.Write(cmd.OutOrStdout())
				return fmt.Errorf("no sheet of %s could be converted", input)
			}

			if out == "" {
				out = withExt(input, "", ".json")
			}
			if err := dataset.Save(out, res.Dataset); err != nil {
				return err
			}
			logger.Info("dataset written", "output", out, "records", len(res.Dataset.Data))

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d record(s) to %s\n", len(res.Dataset.Data), out)
			return summary.Write(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output JSON path (default: input with .json extension)")
	cmd.Flags().StringVar(&mode, "mode", modeFull, "full converts every sheet, configured only sheets in the config")
	cmd.Flags().IntVar(&workers, "workers", 4, "sheets processed concurrently")
	cmd.Flags().StringVar(&runLog, "run-log", "", "append per-sheet outcomes to this CSV file")

	return cmd
}
