package table

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/walteh/bitablerc/pkg/config"
	"gitlab.com/tozd/go/errors"
)

// 🏭 Factory builds a client from the loaded configuration
type Factory func(ctx context.Context, cfg *config.Config) (Client, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a client provider available by name. Providers call it from init.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Providers lists the registered provider names in sorted order
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Open creates the client named by cfg.Provider.
func Open(ctx context.Context, cfg *config.Config) (Client, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Provider]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("provider %s not found, options: %s", cfg.Provider, strings.Join(Providers(), ", "))
	}

	client, err := factory(ctx, cfg)
	if err != nil {
		return nil, errors.Errorf("creating %s client: %w", cfg.Provider, err)
	}
	return client, nil
}
