package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/bitablerc/cmd/bitablerc/opts"
	"github.com/walteh/bitablerc/pkg/log"
	"github.com/walteh/bitablerc/pkg/table"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentPreviews bounds how many tables are read at once
const maxConcurrentPreviews = 4

// NewPreviewCmd creates a new preview command
func NewPreviewCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		flags replaceFlags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what a replacement would change without writing anything",
		Long: `Preview reads every record of each table and prints the fields that would
change. Nothing is written. Several tables are read concurrently.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			results := make([][]table.RecordDiff, len(flags.tables))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(maxConcurrentPreviews)
			for i, tableID := range flags.tables {
				g.Go(func() error {
					diffs, err := opts.Engine.Preview(gctx, flags.request(opts, tableID))
					if err != nil {
						return errors.Errorf("previewing %s: %w", tableID, err)
					}
					results[i] = diffs
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			opts.Console.Header("preview")
			for i, tableID := range flags.tables {
				req := flags.request(opts, tableID)
				opts.Console.StartTable(ctx, tableID, req.Pattern, req.Replacement, req.Regex)
				opts.Console.LogPreview(ctx, tableID, results[i], limit)
				opts.Console.Infof("%s: %d records would change", tableID, len(results[i]))
				opts.Console.LogNewline()
			}
			return nil
		},
	}

	flags.add(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "l", log.DefaultLimit, "records to show per table, 0 shows all")

	return cmd
}
