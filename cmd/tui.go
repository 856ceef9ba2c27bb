package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/rdeepak-711/spotify-playlist-app/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive library browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := filepath.Join(os.TempDir(), "spotify-playlist-app-tui.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer logFile.Close()

	fileLogger := shared.NewLogger(logFile)
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	store, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	engine, err := r.syncEngine(ctx)
	if err != nil {
		return err
	}
	ledger, err := r.ledger(ctx, true)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, userID, store, engine, ledger)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return model.Err()
}
