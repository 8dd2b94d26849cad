package main

import (
	"context"
	"io"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/bitablerc/cmd/bitablerc/commands"
	"github.com/walteh/bitablerc/cmd/bitablerc/opts"
	"github.com/walteh/bitablerc/pkg/config"
	"github.com/walteh/bitablerc/pkg/log"
	"github.com/walteh/bitablerc/pkg/replace"
	"github.com/walteh/bitablerc/pkg/table"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile string
	envFile    string
	provider   string
	fixture    string
	debug      bool
)

func newRootCmd() *cobra.Command {
	rootOpts := &opts.RootOpts{}

	cmd := &cobra.Command{
		Use:   "bitablerc",
		Short: "Search and replace text across every record of a Bitable table",
		Long: `bitablerc finds a string (or regular expression) in the text fields of a
table and replaces it. Run preview first to see every change, then apply to
write the changes back in batches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := setupLogging(cmd.Context(), cmd.ErrOrStderr())
			cmd.SetContext(ctx)

			return initRootOpts(ctx, rootOpts, cmd.OutOrStdout())
		},
	}

	addRootFlags(cmd)

	cmd.AddCommand(
		commands.NewPingCmd(rootOpts),
		commands.NewFieldsCmd(rootOpts),
		commands.NewPreviewCmd(rootOpts),
		commands.NewApplyCmd(rootOpts),
		commands.NewServeCmd(rootOpts),
	)

	return cmd
}

// initRootOpts loads configuration and builds the client and engine
func initRootOpts(ctx context.Context, ro *opts.RootOpts, out io.Writer) error {
	if err := config.LoadEnvFile(ctx, envFile); err != nil {
		return errors.Errorf("loading env file: %w", err)
	}

	var overrides []config.Override
	if provider != "" {
		overrides = append(overrides, func(c *config.Config) { c.Provider = provider })
	}
	if fixture != "" {
		overrides = append(overrides, func(c *config.Config) { c.Memory.Fixture = fixture })
	}

	cfg, err := config.LoadOrDefault(ctx, configFile, overrides...)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Stringer("config", cfg).Msg("loaded config")

	client, err := table.Open(ctx, cfg)
	if err != nil {
		return errors.Errorf("opening table client: %w", err)
	}

	user := log.NewUserLogger(ctx, out)

	engOpts := replace.OptionsFromConfig(cfg, client)
	engOpts.Observer = func(ev replace.Event) { user.LogState(ev.TableID, ev.State) }
	engine, err := replace.New(engOpts)
	if err != nil {
		return errors.Errorf("creating engine: %w", err)
	}

	consoleLevel := zerolog.Disabled
	if debug {
		consoleLevel = zerolog.DebugLevel
	}

	ro.Config = cfg
	ro.Client = client
	ro.Engine = engine
	ro.Console = log.New(out, consoleLevel)
	ro.UserLogger = user
	return nil
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", ".bitablerc.yaml", "config file path (.yaml, .hcl or .json)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with BITABLE_* credentials")
	cmd.PersistentFlags().StringVar(&provider, "provider", "", "override the configured provider (feishu, memory)")
	cmd.PersistentFlags().StringVar(&fixture, "fixture", "", "YAML fixture for the memory provider")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// setupLogging configures zerolog based on flags
func setupLogging(ctx context.Context, w io.Writer) context.Context {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
		pterm.EnableDebugMessages()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
	return logger.WithContext(ctx)
}

