package main

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/desertthunder/partyq/internal/shared"
	"github.com/desertthunder/partyq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SessionStart seeds a new session from a playlist, printing progress as pages arrive.
func (r *Runner) SessionStart(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.partyEngine(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	result, err := engine.StartSession(ctx, cmd.String("name"), cmd.String("playlist"), progress)
	close(progress)
	wg.Wait()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlainHeader(fmt.Sprintf("Session %d: %s", result.Session.ID, result.Session.Name))
	r.writePlain("Playlist: %s (%s)\n", result.Session.Playlist.Name, result.Session.Playlist.ID)
	r.writePlain("Tracks:   %d mirrored, %d replaced\n", len(result.Tracks), result.Purged)
	return nil
}

// SessionEnd deletes a session by id.
func (r *Runner) SessionEnd(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("id")
	if raw == "" {
		return fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: session id %q must be an integer", shared.ErrInvalidArgument, raw)
	}

	engine, err := r.partyEngine(ctx)
	if err != nil {
		return err
	}
	if err := engine.EndSession(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Session %d ended\n", id)
}

// SessionShow prints the active session.
func (r *Runner) SessionShow(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.partyEngine(ctx)
	if err != nil {
		return err
	}
	session, err := engine.ActiveSession(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(session, true)
	}
	if session == nil {
		return r.writePlain("No active session\n")
	}

	r.writePlainHeader(fmt.Sprintf("Session %d: %s", session.ID, session.Name))
	r.writePlain("Playlist: %s (%s)\n", session.Playlist.Name, session.Playlist.ID)
	r.writePlain("Started:  %s\n", session.StartedAt.Local().Format("2006-01-02 15:04"))
	return nil
}
