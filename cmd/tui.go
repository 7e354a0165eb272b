package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/partyq/internal/shared"
	"github.com/desertthunder/partyq/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive session picker.
//
// Logs are redirected to a file while the TUI owns the terminal.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	logFile, err := os.OpenFile(cmd.String("log-file"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	level := r.logger.GetLevel()
	r.logger = shared.NewLogger(logFile)
	r.logger.SetLevel(level)

	engine, err := r.partyEngine(ctx)
	if err != nil {
		return err
	}

	model, err := ui.Run(ctx, engine)
	if err != nil {
		return err
	}
	if result := model.Result(); result != nil {
		r.writePlain("✓ Session %q started with %d tracks\n", result.Session.Name, len(result.Tracks))
	}
	return nil
}
