package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/bitablerc/cmd/bitablerc/opts"
	"github.com/walteh/bitablerc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// NewApplyCmd creates a new apply command
func NewApplyCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		flags replaceFlags
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Replace matching text and write the records back",
		Long: `Apply reads and diffs each table again, then writes the changed fields in
batches. Tables are processed one after another. Without --yes it only shows
the preview. A failed batch does not stop the rest; failed records are listed
and the command exits non-zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !yes {
				opts.Console.Header("preview")
				for _, tableID := range flags.tables {
					req := flags.request(opts, tableID)
					diffs, err := opts.Engine.Preview(ctx, req)
					if err != nil {
						return errors.Errorf("previewing %s: %w", tableID, err)
					}
					opts.Console.StartTable(ctx, tableID, req.Pattern, req.Replacement, req.Regex)
					opts.Console.LogPreview(ctx, tableID, diffs, log.DefaultLimit)
					opts.Console.Infof("%s: %d records would change", tableID, len(diffs))
				}
				opts.Console.Warning("nothing written, re-run with --yes to apply")
				return nil
			}

			opts.Console.Header("apply")
			failed := 0
			for _, tableID := range flags.tables {
				req := flags.request(opts, tableID)
				opts.Console.StartTable(ctx, tableID, req.Pattern, req.Replacement, req.Regex)

				result, err := opts.Engine.Apply(ctx, req)
				if err != nil {
					return errors.Errorf("applying to %s: %w", tableID, err)
				}

				opts.Console.LogResult(ctx, tableID, result)
				if err := opts.UserLogger.LogFailures(tableID, result.Failures); err != nil {
					return errors.Errorf("rendering failures: %w", err)
				}
				if !result.OK() {
					opts.Console.Errorf("%s: %d of %d records not updated", tableID, result.Failed(), result.Attempted)
				}
				failed += result.Failed()
			}

			if failed > 0 {
				return errors.Errorf("%d records were not updated", failed)
			}
			return nil
		},
	}

	flags.add(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "write the changes without stopping at the preview")

	return cmd
}
