package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/polygate/polygate/pkg/providers"
)

// Load reads, defaults, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// GetCredential resolves a credential, reading its secrets from the
// environment. Implements providers.CredentialStore.
func (c *Config) GetCredential(id int) (*providers.Credential, error) {
	for _, cred := range c.Credentials {
		if cred.ID != id {
			continue
		}
		apiKey := os.Getenv(cred.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("credential %d: environment variable %s is not set", id, cred.APIKeyEnv)
		}
		resolved := &providers.Credential{
			ID:     cred.ID,
			APIKey: apiKey,
			Region: cred.Region,
		}
		if cred.SecretKeyEnv != "" {
			resolved.SecretKey = os.Getenv(cred.SecretKeyEnv)
			if resolved.SecretKey == "" {
				return nil, fmt.Errorf("credential %d: environment variable %s is not set", id, cred.SecretKeyEnv)
			}
		}
		return resolved, nil
	}
	return nil, fmt.Errorf("credential %d not found", id)
}

// Watch reloads the file whenever it changes and hands each valid new
// configuration to onChange. Invalid writes are logged and skipped, the
// previous configuration stays in effect. Watch blocks until ctx is
// canceled.
//
// The parent directory is watched rather than the file itself because
// editors and config management tools replace files atomically, which
// drops inotify watches on the old inode.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				logger.Error("config reload failed, keeping previous configuration",
					"path", path,
					"error", err,
				)
				continue
			}
			logger.Info("config reloaded", "path", path)
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("config watcher error", "error", err)
		}
	}
}
