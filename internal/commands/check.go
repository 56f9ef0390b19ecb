package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/expensebook/sheetsync/internal/dataset"
)

func newCheckCommand() *cobra.Command {
	var rewrite bool

	cmd := &cobra.Command{
		Use:   "check [dataset.json]",
		Short: "Validate a dataset, accepting the legacy bare-array form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) > 0 {
				input = args[0]
			}
			w := cmd.OutOrStdout()

			ds, legacy, err := dataset.LoadLenient(input)
			if noInput(w, err) {
				return nil
			}
			if err != nil {
				return err
			}

			format := "wrapped"
			if legacy {
				format = "legacy array"
			}
			fmt.Fprintf(w, "Format: %s\n", format)
			fmt.Fprintf(w, "Records: %d\n", len(ds.Data))
			for _, rec := range ds.Data {
				fmt.Fprintf(w, "  %s (%s): %d field(s), %d item(s)\n", rec.Name, rec.ID, len(rec.Fields), len(rec.Items))
			}

			violations := dataset.Validate(ds)
			for _, v := range violations {
				fmt.Fprintf(w, "  ! %s\n", v.Error())
			}
			if len(violations) > 0 {
				return fmt.Errorf("%s: %d validation error(s)", input, len(violations))
			}

			if rewrite && legacy {
				ds.Timestamp = time.Now().UnixMilli()
				if err := dataset.Save(input, ds); err != nil {
					return err
				}
				fmt.Fprintf(w, "Rewrote %s in the wrapped format\n", input)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rewrite, "rewrite", false, "rewrite a legacy file in the wrapped format")

	return cmd
}
