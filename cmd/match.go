package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/zhiozhou/cloudmatch/internal/models"
	"github.com/zhiozhou/cloudmatch/internal/netease"
	"github.com/zhiozhou/cloudmatch/internal/shared"
)

// Match fetches the catalog page holding the song, submits the correction
// and prints the outcome.
func (r *Runner) Match(ctx context.Context, cmd *cli.Command) error {
	songID := cmd.StringArg("song-id")
	targetID := cmd.StringArg("target-id")
	if songID == "" || targetID == "" {
		return fmt.Errorf("%w: usage: cloudmatch match <song-id> <target-id>", shared.ErrMissingArgument)
	}

	if err := r.requireLogin(); err != nil {
		return err
	}

	if err := r.catalog.FetchPage(ctx, cmd.Int("page"), 0); err != nil {
		return err
	}

	result, err := r.matcher.MatchSong(ctx, songID, targetID)
	if err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrMatchRejected, result.Message)
	}

	if result.Updated != nil {
		r.writePlain("✓ %s\n", result.Message)
		r.writePlain("  Now: %s — %s\n", result.Updated.Artist, result.Updated.Name)
	} else {
		r.writePlain("✓ %s\n", result.Message)
	}

	if cmd.Bool("open") {
		url := netease.SongURL(targetID)
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("failed to open browser", "url", url, "error", err)
		}
	}

	return nil
}

// Logs prints the activity log accumulated during this invocation.
func (r *Runner) Logs(ctx context.Context, cmd *cli.Command) error {
	logs := r.matcher.Logs()

	if cmd.Bool("json") {
		return r.writeJSON(logs, true)
	}

	if len(logs) == 0 {
		return r.writePlain("No match attempts in this session.\n")
	}

	for _, entry := range logs {
		marker := "✓"
		if entry.Status == models.LogError {
			marker = "✗"
		}
		r.writePlain("%s %s  [%s → %s] %s\n",
			marker, entry.Timestamp.Format("15:04:05"), entry.SongID, entry.MatchID, entry.Message)
	}
	return nil
}
