package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/partyq/internal/formatter"
	"github.com/desertthunder/partyq/internal/shared"
	"github.com/urfave/cli/v3"
)

// TracksList renders the mirrored tracks in the requested format.
func (r *Runner) TracksList(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.partyEngine(ctx)
	if err != nil {
		return err
	}

	tracks, err := engine.Tracks(ctx)
	if err != nil {
		return err
	}

	title := ""
	if session, err := engine.ActiveSession(ctx); err == nil && session != nil {
		title = session.Name
	}

	format := cmd.String("format")
	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(path, format, title, tracks); err != nil {
			return err
		}
		return r.writePlain("✓ %d tracks written to %s\n", len(tracks), path)
	}

	data, err := formatter.Export(format, title, tracks)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// TracksQueue queues a mirrored track on the active device and prints the resulting queue.
func (r *Runner) TracksQueue(ctx context.Context, cmd *cli.Command) error {
	trackID := cmd.StringArg("id")
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	engine, err := r.partyEngine(ctx)
	if err != nil {
		return err
	}
	queue, err := engine.QueueTrack(ctx, trackID)
	if err != nil {
		return err
	}

	r.writePlain("✓ Queued %s\n\n", trackID)
	if queue.Current != nil {
		r.writePlain("Now playing: %s - %s\n", strings.Join(queue.Current.Track.ArtistNames(), ", "), queue.Current.Track.Name)
	}
	for i, t := range queue.Tracks {
		r.writePlain("%d. %s - %s\n", i+1, strings.Join(t.ArtistNames(), ", "), t.Name)
	}
	return nil
}
