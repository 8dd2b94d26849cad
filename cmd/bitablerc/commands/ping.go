package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/bitablerc/cmd/bitablerc/opts"
	"github.com/walteh/bitablerc/pkg/table"
	"gitlab.com/tozd/go/errors"
)

// NewPingCmd creates a new ping command
func NewPingCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured credentials can reach the base",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pinger, ok := opts.Client.(table.Pinger)
			if !ok {
				return errors.Errorf("provider %s does not support ping", opts.Config.Provider)
			}

			err := pinger.Ping(ctx)
			opts.UserLogger.LogPing(opts.Config.String(), err)
			if err != nil {
				return errors.Errorf("pinging: %w", err)
			}
			return nil
		},
	}

	return cmd
}
