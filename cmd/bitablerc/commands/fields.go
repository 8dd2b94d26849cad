package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/bitablerc/cmd/bitablerc/opts"
	"gitlab.com/tozd/go/errors"
)

// NewFieldsCmd creates a new fields command
func NewFieldsCmd(opts *opts.RootOpts) *cobra.Command {
	var tables []string

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List the text fields a search would cover",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			for _, tableID := range tables {
				fields, err := opts.Engine.Fields(ctx, tableID)
				if err != nil {
					return errors.Errorf("listing fields of %s: %w", tableID, err)
				}
				if err := opts.UserLogger.LogFields(tableID, fields); err != nil {
					return errors.Errorf("rendering fields: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&tables, "table", "t", nil, "table id, may be repeated")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}
