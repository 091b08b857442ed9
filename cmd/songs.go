package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/zhiozhou/cloudmatch/internal/formatter"
	"github.com/zhiozhou/cloudmatch/internal/shared"
)

// SongsList fetches and prints one page of the cloud locker.
func (r *Runner) SongsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireLogin(); err != nil {
		return err
	}

	page := cmd.Int("page")
	limit := cmd.Int("limit")

	if err := r.catalog.FetchPage(ctx, page, limit); err != nil {
		return err
	}

	songs := r.catalog.Songs()
	if cmd.Bool("json") {
		return r.writeJSON(songs, cmd.Bool("pretty"))
	}

	identity := r.auth.Identity()
	used, max := r.catalog.Quota()
	r.writePlainHeader(fmt.Sprintf("%s's Cloud Songs — %s / %s", identity.Username, shared.FormatBytes(used), shared.FormatBytes(max)))

	if len(songs) == 0 {
		return r.writePlain("No songs on page %d.\n", page)
	}

	for i, song := range songs {
		index := (page-1)*limit + i + 1
		album := ""
		if song.Album != "" {
			album = fmt.Sprintf(" — %s", song.Album)
		}
		r.writePlain("%4d. [%s] %s — %s%s (%s, %s)\n",
			index, song.ID, song.Artist, song.Name, album,
			shared.FormatBytes(song.FileSize), shared.FormatDuration(song.Duration))
	}

	r.writePlain("\nPage %d of %d songs total", page, r.catalog.TotalCount())
	if r.catalog.HasMore() {
		r.writePlain(" (more pages available)")
	}
	return r.writePlain("\n")
}

// SongsExport writes the current locker page to a CSV, Markdown or text file.
func (r *Runner) SongsExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireLogin(); err != nil {
		return err
	}

	if err := r.catalog.FetchPage(ctx, 1, cmd.Int("limit")); err != nil {
		return err
	}

	identity := r.auth.Identity()
	used, max := r.catalog.Quota()
	export := &formatter.Export{
		Username:   identity.Username,
		TotalCount: r.catalog.TotalCount(),
		UsedBytes:  used,
		MaxBytes:   max,
		Songs:      r.catalog.Songs(),
	}

	format := strings.ToLower(cmd.String("format"))
	output := cmd.String("output")

	switch format {
	case "csv":
		result, err := formatter.WriteCSVExport(export, strings.TrimSuffix(output, ".csv"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d songs to %s\n", len(export.Songs), result.SongsFile)
		return r.writePlain("  Metadata written to %s\n", result.MetadataFile)

	case "markdown", "md":
		path, err := formatter.WriteMarkdownExport(export, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d songs to %s\n", len(export.Songs), path)

	case "text", "txt":
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d songs to %s\n", len(export.Songs), path)

	default:
		return fmt.Errorf("%w: unknown format %q (want csv, markdown or text)", shared.ErrInvalidInput, format)
	}
}
