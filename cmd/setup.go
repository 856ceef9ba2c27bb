package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/rdeepak-711/spotify-playlist-app/internal/vault"
	"github.com/urfave/cli/v3"
)

type setupReport struct {
	ConfigPath    string `json:"config_path"`
	ConfigCreated bool   `json:"config_created"`
	KeyGenerated  bool   `json:"vault_key_generated"`
	Driver        string `json:"driver"`
	Database      string `json:"database"`
}

// Setup creates the config file when missing, generates a vault key when none
// is configured and prepares the store (sqlite migrations or mongo indexes).
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	report := setupReport{ConfigPath: r.configPath}

	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
		report.ConfigCreated = true
	}

	if r.cfg().Vault.SecretKey == "" {
		key, err := vault.GenerateKey()
		if err != nil {
			return err
		}

		// only the file's own values are written back, never environment overrides
		fileConfig, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return err
		}
		fileConfig.Vault.SecretKey = key
		if err := shared.SaveConfig(r.configPath, fileConfig); err != nil {
			return err
		}

		r.cfg().Vault.SecretKey = key
		report.KeyGenerated = true
		r.logger.Info("vault key generated", "path", r.configPath)
	}

	db := r.cfg().Database
	report.Driver = db.Driver
	report.Database = db.Path
	if db.Driver == "mongo" || db.Driver == "mongodb" {
		report.Database = db.Name
	}

	r.logger.Info("preparing store", "driver", db.Driver, "database", report.Database)
	store, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	r.logger.Infof("setup complete for database: %v", report.Database)

	return r.emit(shared.OK("setup complete", report), func() error {
		if report.ConfigCreated {
			r.writePlain("✓ Config written to %s\n", report.ConfigPath)
		}
		if report.KeyGenerated {
			r.writePlain("✓ Vault key generated\n")
		}
		r.writePlain("✓ Store ready (%s: %s)\n", report.Driver, report.Database)
		r.writePlainln("Next steps:")
		r.writePlain("1. Set credentials.spotify client_id / client_secret (or CLIENT_ID / CLIENT_SECRET)\n")
		r.writePlain("2. Run 'spotify-playlist-app auth login'\n")
		return nil
	})
}
