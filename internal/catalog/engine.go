// Package catalog maintains the in-memory snapshot of the user's cloud
// locker: the current page of songs, the library totals and the storage
// quota.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/zhiozhou/cloudmatch/internal/models"
	"github.com/zhiozhou/cloudmatch/internal/netease"
	"github.com/zhiozhou/cloudmatch/internal/shared"
)

// DefaultPageLimit is the page size used when none is given.
const DefaultPageLimit = 200

// Authenticator is the slice of the auth engine the catalog needs: session
// checks before fetching, and teardown when the server reports the session
// expired.
type Authenticator interface {
	IsLoggedIn() bool
	UserID() string
	Logout(ctx context.Context) error
}

// Engine holds the cloud catalog. A single fetch may be in flight at a
// time; concurrent callers are rejected, not queued.
type Engine struct {
	client *netease.Client
	auth   Authenticator
	logger *log.Logger

	mu       sync.Mutex
	fetching bool
	songs    []models.Song
	page     int
	hasMore  bool

	// Library totals are captured on the first page of a session only,
	// so pagination math stays stable while the user pages around.
	totalCount int
	size       int64
	maxSize    int64
}

// NewEngine creates an empty catalog bound to an auth engine.
func NewEngine(client *netease.Client, auth Authenticator, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		client:     client,
		auth:       auth,
		logger:     logger,
		totalCount: -1,
	}
}

// Sync loads the first page with the default page size.
func (e *Engine) Sync(ctx context.Context) error {
	return e.FetchPage(ctx, 1, DefaultPageLimit)
}

// FetchPage replaces the snapshot with the given 1-based page. It returns
// [shared.ErrFetchInFlight] when another fetch is already running and
// [shared.ErrNotAuthenticated] without touching the network when logged out.
// A session-expired response tears the login down via the auth engine.
func (e *Engine) FetchPage(ctx context.Context, page, limit int) error {
	if page < 1 {
		return fmt.Errorf("%w: page must be >= 1", shared.ErrInvalidInput)
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}

	if !e.auth.IsLoggedIn() {
		return shared.ErrNotAuthenticated
	}

	e.mu.Lock()
	if e.fetching {
		e.mu.Unlock()
		return shared.ErrFetchInFlight
	}
	e.fetching = true
	e.mu.Unlock()

	result, err := e.client.FetchCloud(ctx, limit, (page-1)*limit)

	e.mu.Lock()
	e.fetching = false
	if err != nil {
		e.mu.Unlock()
		return err
	}

	switch result.Code {
	case netease.CodeSessionExpired:
		e.mu.Unlock()
		e.logger.Warn("session expired, logging out")
		if err := e.auth.Logout(ctx); err != nil {
			e.logger.Error("failed to log out", "error", err)
		}
		return shared.ErrSessionExpired

	case netease.CodeOK:
		e.songs = result.Songs
		e.page = page
		e.hasMore = result.HasMore
		if e.totalCount == -1 {
			e.totalCount = result.Count
			e.size = result.Size
			e.maxSize = result.MaxSize
		}
		e.mu.Unlock()
		e.logger.Debug("catalog page loaded", "page", page, "songs", len(result.Songs))
		return nil

	default:
		e.mu.Unlock()
		return fmt.Errorf("%w: cloud fetch returned code %d", shared.ErrAPIRequest, result.Code)
	}
}

// Songs returns a copy of the current page.
func (e *Engine) Songs() []models.Song {
	e.mu.Lock()
	defer e.mu.Unlock()
	songs := make([]models.Song, len(e.songs))
	copy(songs, e.songs)
	return songs
}

// Song returns the song with the given cloud id from the current page.
func (e *Engine) Song(id string) (models.Song, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, song := range e.songs {
		if song.ID == id {
			return song, true
		}
	}
	return models.Song{}, false
}

// Replace swaps the song with the given id for its updated version, keeping
// its position in the page. It reports whether the id was present.
func (e *Engine) Replace(id string, updated models.Song) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, song := range e.songs {
		if song.ID == id {
			e.songs[i] = updated
			return true
		}
	}
	return false
}

// Clear drops the snapshot and the captured totals, so the next fetch
// repopulates them from scratch.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.songs = nil
	e.page = 0
	e.hasMore = false
	e.totalCount = -1
	e.size = 0
	e.maxSize = 0
}

// TotalCount returns the library size captured on the first fetch, or -1
// before any page has loaded.
func (e *Engine) TotalCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalCount
}

// Quota returns the used and maximum storage in bytes.
func (e *Engine) Quota() (used, max int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.size, e.maxSize
}

// Page returns the 1-based page currently loaded, or 0 when empty.
func (e *Engine) Page() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

// HasMore reports whether the server announced further pages.
func (e *Engine) HasMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasMore
}
