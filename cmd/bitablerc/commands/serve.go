package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/bitablerc/cmd/bitablerc/opts"
	"github.com/walteh/bitablerc/pkg/server"
)

// NewServeCmd creates a new serve command
func NewServeCmd(opts *opts.RootOpts) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve preview and apply over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts.Console.Infof("listening on %s", addr)
			return server.New(ctx, opts.Engine).Start(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}
