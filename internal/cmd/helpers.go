package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/adamancini/clientsync/internal/config"
	"github.com/adamancini/clientsync/internal/ctxlog"
)

// loadConfig finds and loads the config file named by the global flags.
// Without any config file the built-in defaults are used, which still need
// URLs from somewhere, so validation usually fails with a pointer to the search path.
func loadConfig(ctx context.Context) (*config.Config, error) {
	log := ctxlog.FromContext(ctx)

	path, err := config.FindConfig(configPath)
	if errors.Is(err, config.ErrNotFound) {
		log.Debug("no config file found, using defaults")
		cfg, err := config.Default()
		if err != nil {
			return nil, usageError(err)
		}
		if err := config.Validate(cfg); err != nil {
			return nil, usageError(fmt.Errorf("no config file found (set --config or CLIENTSYNC_CONFIG): %w", err))
		}
		return cfg, nil
	}
	if err != nil {
		return nil, usageError(err)
	}

	log.Debug("using config file", "path", path)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, usageError(fmt.Errorf("%s: %w", path, err))
	}
	return cfg, nil
}
