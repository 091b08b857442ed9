// Package match submits song corrections and keeps the activity log of
// every attempt.
package match

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zhiozhou/cloudmatch/internal/models"
	"github.com/zhiozhou/cloudmatch/internal/netease"
	"github.com/zhiozhou/cloudmatch/internal/shared"
)

// Catalog is the slice of the catalog engine the matcher needs: lookup for
// precondition checks and in-place replacement on success.
type Catalog interface {
	Song(id string) (models.Song, bool)
	Replace(id string, updated models.Song) bool
}

// Authenticator supplies the session preconditions for a match call.
type Authenticator interface {
	IsLoggedIn() bool
	UserID() string
}

// Result is the outcome of one match attempt. Success with a nil Updated
// means the server accepted the match without returning new metadata, in
// which case the catalog entry is left untouched.
type Result struct {
	SongID   string
	TargetID string
	Success  bool
	Message  string
	Updated  *models.Song
}

// Engine submits matches and records one log entry per attempt, in
// completion order.
type Engine struct {
	client  *netease.Client
	auth    Authenticator
	catalog Catalog
	logger  *log.Logger

	mu   sync.Mutex
	logs []models.LogEntry
}

// NewEngine creates a match engine.
func NewEngine(client *netease.Client, auth Authenticator, catalog Catalog, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		client:  client,
		auth:    auth,
		catalog: catalog,
		logger:  logger,
	}
}

// MatchSong relinks the cloud song with the given id to the target track.
// Preconditions are checked before any network traffic: the user must be
// logged in and the song must be on the loaded page. Every call, however it
// ends, appends exactly one activity log entry.
func (e *Engine) MatchSong(ctx context.Context, songID, targetID string) (*Result, error) {
	if songID == "" || targetID == "" {
		e.record(models.LogError, songID, "", targetID, "song id and target id are required")
		return nil, fmt.Errorf("%w: song id and target id are required", shared.ErrInvalidInput)
	}

	if !e.auth.IsLoggedIn() {
		e.record(models.LogError, songID, "", targetID, "not logged in")
		return nil, shared.ErrNotAuthenticated
	}

	song, ok := e.catalog.Song(songID)
	if !ok {
		e.record(models.LogError, songID, "", targetID, "song not found in the loaded catalog page")
		return nil, fmt.Errorf("%w: %s", shared.ErrSongNotFound, songID)
	}

	outcome, err := e.client.SubmitMatch(ctx, e.auth.UserID(), songID, targetID)
	if err != nil {
		e.record(models.LogError, songID, song.Name, targetID, "match request failed: "+err.Error())
		return nil, err
	}

	result := &Result{SongID: songID, TargetID: targetID}

	if outcome.Code != netease.CodeOK {
		message := outcome.Message
		if message == "" {
			message = "unknown error"
		}
		result.Message = message
		e.record(models.LogError, songID, song.Name, targetID, message)
		e.logger.Warn("match rejected", "songId", songID, "targetId", targetID, "message", message)
		return result, nil
	}

	result.Success = true

	if outcome.Updated != nil {
		// The server echoed the corrected metadata; the old entry is
		// replaced in place, adopting the target's id.
		updated := *outcome.Updated
		updated.MatchID = targetID
		e.catalog.Replace(songID, updated)
		result.Updated = &updated
		result.Message = fmt.Sprintf("matched %q to %s", song.Name, targetID)
		e.record(models.LogSuccess, songID, updated.Name, targetID, result.Message)
	} else {
		// Accepted without a payload: the song keeps its current id and
		// metadata until the next catalog fetch.
		result.Message = fmt.Sprintf("match for %q accepted", song.Name)
		e.record(models.LogSuccess, songID, song.Name, targetID, result.Message)
	}

	e.logger.Info("match succeeded", "songId", songID, "targetId", targetID)
	return result, nil
}

// Logs returns a copy of the activity log in completion order, oldest
// first.
func (e *Engine) Logs() []models.LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	logs := make([]models.LogEntry, len(e.logs))
	copy(logs, e.logs)
	return logs
}

func (e *Engine) record(status models.LogStatus, songID, songName, targetID, message string) {
	entry := models.LogEntry{
		ID:        shared.GenerateID(),
		SongID:    songID,
		SongName:  songName,
		MatchID:   targetID,
		Message:   message,
		Status:    status,
		Timestamp: time.Now(),
	}

	e.mu.Lock()
	e.logs = append(e.logs, entry)
	e.mu.Unlock()
}
