package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/expensebook/sheetsync/internal/dataset"
	"github.com/expensebook/sheetsync/internal/logging"
	"github.com/expensebook/sheetsync/internal/model"
	"github.com/expensebook/sheetsync/internal/normalize"
	"github.com/expensebook/sheetsync/internal/workbook"
)

func newExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export [dataset.json]",
		Short: "Write a tracking-app JSON dataset back to an .xlsx workbook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) > 0 {
				input = args[0]
			}

			ds, err := dataset.Load(input)
			if noInput(cmd.OutOrStdout(), err) {
				return nil
			}
			if err != nil {
				return err
			}

			logger := logging.WithFields(cmd.Context(), "command", "export", "input", input)
			for _, v := range dataset.Validate(ds) {
				logger.Warn("dataset invariant violated", "rule", v.Rule, "record", v.RecordID, "detail", v.Description)
			}

			tables := make([]model.Table, len(ds.Data))
			for i, rec := range ds.Data {
				tables[i] = normalize.Disassemble(rec)
			}

			if out == "" {
				out = withExt(input, "", ".xlsx")
			}
			if err := workbook.WriteFile(out, tables, workbook.DefaultStyle()); err != nil {
				return err
			}
			logger.Info("workbook written", "output", out, "sheets", len(tables))

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d sheet(s) to %s\n", len(tables), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output workbook path (default: input with .xlsx extension)")

	return cmd
}
