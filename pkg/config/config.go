// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultProvider  = "feishu"
	DefaultBaseURL   = "https://base-api.feishu.cn/open-apis"
	DefaultTimeout   = "30s"
	DefaultPageSize  = 100
	DefaultBatchSize = 100

	// MaxPageSize is the largest page_size the records listing accepts
	MaxPageSize = 500
	// MaxBatchSize is the largest number of records batch_update accepts
	MaxBatchSize = 1000

	EnvAppToken          = "BITABLE_APP_TOKEN"
	EnvPersonalBaseToken = "BITABLE_PERSONAL_BASE_TOKEN"
	EnvBaseURL           = "BITABLE_BASE_URL"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🔑 FeishuArgs holds the credentials and endpoint for the Bitable open API
type FeishuArgs struct {
	BaseURL           string `json:"base_url" yaml:"base_url"`
	AppToken          string `json:"app_token" yaml:"app_token"`
	PersonalBaseToken string `json:"personal_base_token" yaml:"personal_base_token"`
	Timeout           string `json:"timeout" yaml:"timeout"`
}

// 🧪 MemoryArgs configures the in-memory provider
type MemoryArgs struct {
	Fixture string `json:"fixture" yaml:"fixture"` // YAML file with fields and records
}

// 🔍 FieldFilter narrows which text fields are searched, by name glob
type FieldFilter struct {
	Include []string `json:"include" yaml:"include"`
	Exclude []string `json:"exclude" yaml:"exclude"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Provider  string      `json:"provider" yaml:"provider"`
	Feishu    FeishuArgs  `json:"feishu" yaml:"feishu"`
	Memory    MemoryArgs  `json:"memory" yaml:"memory"`
	PageSize  int         `json:"page_size" yaml:"page_size"`
	BatchSize int         `json:"batch_size" yaml:"batch_size"`
	Regex     bool        `json:"regex" yaml:"regex"`
	Fields    FieldFilter `json:"fields" yaml:"fields"`
}

// Default returns a config with every default applied and credentials taken
// from the environment.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Override adjusts a loaded configuration before it is validated, e.g. from command line flags.
type Override func(*Config)

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string, overrides ...Override) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	// Get parser
	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	// Parse config
	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	cfg.ApplyDefaults()
	for _, o := range overrides {
		o(cfg)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandRef resolves a value that is exactly one ${VAR} reference. Anything
// else is returned as written, so literal tokens may contain '$'.
func expandRef(v string) string {
	name, ok := strings.CutPrefix(v, "${")
	if !ok {
		return v
	}
	name, ok = strings.CutSuffix(name, "}")
	if !ok || name == "" || strings.ContainsAny(name, "${} ") {
		return v
	}
	return os.Getenv(name)
}

// ApplyDefaults fills zero values and expands ${VAR} references in credentials.
// Credentials left empty fall back to the BITABLE_* environment variables.
func (cfg *Config) ApplyDefaults() {
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	cfg.Feishu.BaseURL = expandRef(cfg.Feishu.BaseURL)
	cfg.Feishu.AppToken = expandRef(cfg.Feishu.AppToken)
	cfg.Feishu.PersonalBaseToken = expandRef(cfg.Feishu.PersonalBaseToken)

	if cfg.Feishu.BaseURL == "" {
		cfg.Feishu.BaseURL = os.Getenv(EnvBaseURL)
	}
	if cfg.Feishu.BaseURL == "" {
		cfg.Feishu.BaseURL = DefaultBaseURL
	}
	if cfg.Feishu.AppToken == "" {
		cfg.Feishu.AppToken = os.Getenv(EnvAppToken)
	}
	if cfg.Feishu.PersonalBaseToken == "" {
		cfg.Feishu.PersonalBaseToken = os.Getenv(EnvPersonalBaseToken)
	}
	if cfg.Feishu.Timeout == "" {
		cfg.Feishu.Timeout = DefaultTimeout
	}
	cfg.Feishu.BaseURL = strings.TrimRight(cfg.Feishu.BaseURL, "/")
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if cfg.PageSize < 1 || cfg.PageSize > MaxPageSize {
		return errors.Errorf("page_size must be between 1 and %d, got %d", MaxPageSize, cfg.PageSize)
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > MaxBatchSize {
		return errors.Errorf("batch_size must be between 1 and %d, got %d", MaxBatchSize, cfg.BatchSize)
	}

	switch cfg.Provider {
	case "feishu":
		if cfg.Feishu.AppToken == "" {
			return errors.Errorf("feishu.app_token is required (or set %s)", EnvAppToken)
		}
		if cfg.Feishu.PersonalBaseToken == "" {
			return errors.Errorf("feishu.personal_base_token is required (or set %s)", EnvPersonalBaseToken)
		}
		if _, err := cfg.Feishu.TimeoutDuration(); err != nil {
			return err
		}
	case "memory":
		// an empty fixture means an empty table
	default:
		return errors.Errorf("unknown provider %q", cfg.Provider)
	}

	return nil
}

// TimeoutDuration parses the configured HTTP timeout.
func (f FeishuArgs) TimeoutDuration() (time.Duration, error) {
	if f.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 0, errors.Errorf("feishu.timeout: %w", err)
	}
	if d < 0 {
		return 0, errors.Errorf("feishu.timeout must not be negative")
	}
	return d, nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	switch cfg.Provider {
	case "memory":
		return fmt.Sprintf("memory:%s (page %d, batch %d)", cfg.Memory.Fixture, cfg.PageSize, cfg.BatchSize)
	default:
		return fmt.Sprintf("%s@%s (page %d, batch %d)", cfg.Provider, cfg.Feishu.BaseURL, cfg.PageSize, cfg.BatchSize)
	}
}
