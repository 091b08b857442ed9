// package formatter provides functions to export the cloud catalog to
// various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/zhiozhou/cloudmatch/internal/models"
	"github.com/zhiozhou/cloudmatch/internal/shared"
)

// Export is a snapshot of the catalog prepared for serialization.
type Export struct {
	Username   string        `json:"username"`
	TotalCount int           `json:"totalCount"`
	UsedBytes  int64         `json:"usedBytes"`
	MaxBytes   int64         `json:"maxBytes"`
	Songs      []models.Song `json:"-"`
}

// ExportToCSV converts a catalog export to CSV with columns: ID, Name,
// Artist, Album, File, Size, Bitrate, Duration, Added
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artist", "Album", "File", "Size", "Bitrate", "Duration", "Added"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range export.Songs {
		record := []string{
			song.ID,
			song.Name,
			song.Artist,
			song.Album,
			song.FileName,
			strconv.FormatInt(song.FileSize, 10),
			strconv.Itoa(song.Bitrate),
			shared.FormatDuration(song.Duration),
			song.AddTime.Format("2006-01-02"),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a catalog export to Markdown with a quota
// summary and a numbered song list
func ExportToMarkdown(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s's Cloud Library\n\n", export.Username))
	buf.WriteString(fmt.Sprintf("**Songs**: %d\n", export.TotalCount))
	buf.WriteString(fmt.Sprintf("**Storage**: %s / %s\n\n",
		shared.FormatBytes(export.UsedBytes), shared.FormatBytes(export.MaxBytes)))

	buf.WriteString("## Songs\n\n")
	for i, song := range export.Songs {
		duration := shared.FormatDuration(song.Duration)
		albumPart := ""
		if song.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", song.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, song.Artist, song.Name, albumPart, duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a catalog export to plain text
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Library: %s\n", export.Username))
	buf.WriteString(fmt.Sprintf("Songs: %d\n", export.TotalCount))
	buf.WriteString(fmt.Sprintf("Storage: %s / %s\n\n",
		shared.FormatBytes(export.UsedBytes), shared.FormatBytes(export.MaxBytes)))

	for i, song := range export.Songs {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, song.Artist, song.Name))
	}

	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON summary of the export (without songs)
func ToMetadataJSON(export *Export) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}
	return data, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	SongsFile    string
	MetadataFile string
}

// WriteCSVExport exports the catalog to CSV with an accompanying metadata
// JSON file.
//
// Defaults to the username as the base filename & creates {base}_songs.csv
// and {base}_metadata.json
func WriteCSVExport(export *Export, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Username
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	songsFile := baseFilepath + "_songs.csv"
	if err := os.WriteFile(songsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, err
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		SongsFile:    songsFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports the catalog to Markdown.
//
// Defaults to {username}_library.md as the filename.
func WriteMarkdownExport(export *Export, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_library.md", export.Username)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport exports the catalog to plain text.
//
// Defaults to {username}_songs.txt as the filename.
func WriteTextExport(export *Export, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_songs.txt", export.Username)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
