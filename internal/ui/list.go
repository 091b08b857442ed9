package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/zhiozhou/cloudmatch/internal/models"
	"github.com/zhiozhou/cloudmatch/internal/shared"
)

var _ list.Item = songItem{}

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song models.Song
}

func (i songItem) FilterValue() string { return i.song.Name }
func (i songItem) Title() string       { return fmt.Sprintf("%s — %s", i.song.Name, i.song.Artist) }
func (i songItem) Description() string {
	desc := fmt.Sprintf("%s • %s • %s",
		shared.FormatBytes(i.song.FileSize),
		shared.FormatDuration(i.song.Duration),
		i.song.FileName)
	if i.song.Album != "" {
		desc = fmt.Sprintf("%s • %s", i.song.Album, desc)
	}
	return desc
}

// renderLogEntry formats one activity log line for [LogView].
func renderLogEntry(entry models.LogEntry) string {
	marker := styles.ok.Render("✓")
	if entry.Status == models.LogError {
		marker = styles.err.Render("✗")
	}
	return fmt.Sprintf("%s %s  %s", marker, entry.Timestamp.Format("15:04:05"), entry.Message)
}
