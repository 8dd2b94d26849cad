package config

import (
	"context"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		zerolog.Ctx(ctx).Debug().Str("path", path).Msg("no env file")
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Errorf("loading env file %s: %w", path, err)
	}
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("loaded env file")
	return nil
}

// LoadOrDefault loads path when it exists, otherwise returns the validated
// default configuration.
func LoadOrDefault(ctx context.Context, path string, overrides ...Override) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		zerolog.Ctx(ctx).Debug().Str("path", path).Msg("config file not found, using defaults")
		cfg := Default()
		for _, o := range overrides {
			o(cfg)
		}
		if err := cfg.Validate(); err != nil {
			return nil, errors.Errorf("validating default config: %w", err)
		}
		return cfg, nil
	}
	return Load(ctx, path, overrides...)
}
