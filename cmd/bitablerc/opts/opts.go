package opts

import (
	"github.com/walteh/bitablerc/pkg/config"
	"github.com/walteh/bitablerc/pkg/log"
	"github.com/walteh/bitablerc/pkg/replace"
	"github.com/walteh/bitablerc/pkg/table"
)

// RootOpts contains shared options used by all commands. The root command
// fills it in before any subcommand runs.
type RootOpts struct {
	Config     *config.Config
	Client     table.Client
	Engine     *replace.Engine
	Console    *log.Logger
	UserLogger *log.UserLogger
}
