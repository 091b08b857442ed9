// Package auth drives the login lifecycle: QR challenge issuance, poll loop,
// cookie login, session restore and logout.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zhiozhou/cloudmatch/internal/models"
	"github.com/zhiozhou/cloudmatch/internal/netease"
	"github.com/zhiozhou/cloudmatch/internal/session"
	"github.com/zhiozhou/cloudmatch/internal/shared"
)

// State is the phase of the login flow.
type State int

const (
	// StateLoading means no challenge has been issued yet.
	StateLoading State = iota
	// StateAwaitingScan means a QR challenge is live and being polled.
	StateAwaitingScan
	// StateExpired means the challenge timed out before confirmation.
	StateExpired
	// StateSucceeded means the user is authenticated.
	StateSucceeded
	// StateFailed means the flow hit a transport or account error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAwaitingScan:
		return "awaiting scan"
	case StateExpired:
		return "expired"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Catalog is the downstream cache the engine clears on logout and fills
// after a successful login.
type Catalog interface {
	Clear()
	Sync(ctx context.Context) error
}

// Engine owns the login state machine. All mutation happens under one lock;
// transport calls run with the lock released and re-validate the active
// challenge before applying their result, so a superseded poll is a no-op.
type Engine struct {
	client *netease.Client
	store  *session.Store
	logger *log.Logger

	pollInterval time.Duration

	mu           sync.Mutex
	state        State
	reason       string
	challengeKey string
	challenging  bool
	identity     *models.Identity
	pollCancel   context.CancelFunc
	catalog      Catalog
}

// NewEngine creates an auth engine in the loading state. The poll interval
// controls how often a live challenge is checked; zero means the default
// three seconds.
func NewEngine(client *netease.Client, store *session.Store, logger *log.Logger, pollInterval time.Duration) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	return &Engine{
		client:       client,
		store:        store,
		logger:       logger,
		pollInterval: pollInterval,
		state:        StateLoading,
	}
}

// SetCatalog wires the catalog cache. It is set after construction because
// the catalog itself depends on this engine for session checks.
func (e *Engine) SetCatalog(c Catalog) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.catalog = c
}

// State returns the current phase and, for failures, the reason.
func (e *Engine) State() (State, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.reason
}

// Identity returns a copy of the authenticated identity, or nil.
func (e *Engine) Identity() *models.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.identity == nil {
		return nil
	}
	ident := *e.identity
	return &ident
}

// IsLoggedIn reports whether an identity is established.
func (e *Engine) IsLoggedIn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity != nil
}

// UserID returns the authenticated user id, or the empty string.
func (e *Engine) UserID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.identity == nil {
		return ""
	}
	return e.identity.UserID
}

// LoginURL returns the URL encoded in the current QR challenge, or the
// empty string when no challenge is live.
func (e *Engine) LoginURL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.challengeKey == "" {
		return ""
	}
	return netease.LoginURL(e.challengeKey)
}

// Restore loads a persisted session. A valid record re-establishes the
// authenticated state without any network traffic.
func (e *Engine) Restore() error {
	identity, err := e.store.Load()
	if err != nil {
		return err
	}
	if identity == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.identity = identity
	e.state = StateSucceeded
	e.client.SetToken(identity.Token)
	e.logger.Debug("session restored", "user", identity.Username)
	return nil
}

// StartLogin issues a fresh QR challenge and begins polling it. The call is
// a no-op when already logged in or while another challenge is in flight.
func (e *Engine) StartLogin(ctx context.Context) error {
	e.mu.Lock()
	if e.identity != nil || e.challenging || e.challengeKey != "" {
		e.mu.Unlock()
		return nil
	}
	e.challenging = true
	e.state = StateLoading
	e.reason = ""
	e.mu.Unlock()

	key, err := e.client.FetchLoginKey(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.challenging = false
	if err != nil {
		e.state = StateFailed
		e.reason = err.Error()
		return fmt.Errorf("%w: %v", shared.ErrLoginFailed, err)
	}

	e.challengeKey = key
	e.state = StateAwaitingScan

	pollCtx, cancel := context.WithCancel(context.Background())
	e.pollCancel = cancel
	go e.pollLoop(pollCtx, key)

	e.logger.Debug("login challenge issued", "key", key)
	return nil
}

// pollLoop checks one challenge until it settles or its context is canceled.
// Polls are sequential; a tick fires only after the previous check returned.
func (e *Engine) pollLoop(ctx context.Context, key string) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := e.client.PollLogin(ctx, key)
			if !e.applyPoll(ctx, key, result, err) {
				return
			}
		}
	}
}

// applyPoll folds one poll result into the state machine. It returns false
// when polling for this challenge should stop. Results for a challenge that
// is no longer active are discarded.
func (e *Engine) applyPoll(ctx context.Context, key string, result *netease.PollResult, err error) bool {
	e.mu.Lock()

	if key != e.challengeKey {
		e.mu.Unlock()
		return false
	}

	if err != nil {
		if ctx.Err() != nil {
			e.mu.Unlock()
			return false
		}
		e.failLocked("login poll failed: " + err.Error())
		e.mu.Unlock()
		return false
	}

	switch result.Code {
	case netease.CodeQRWaiting:
		e.mu.Unlock()
		return true

	case netease.CodeQRExpired:
		e.logger.Info("login challenge expired", "key", key)
		e.state = StateExpired
		e.clearChallengeLocked()
		e.mu.Unlock()
		return false

	case netease.CodeQRConfirmed:
		if result.Token == "" {
			e.failLocked("login confirmed but no session cookie was issued")
			e.mu.Unlock()
			return false
		}
		e.clearChallengeLocked()
		e.mu.Unlock()
		// The challenge context died with the poll loop; finishing the
		// login must not be tied to it.
		if err := e.completeLogin(context.Background(), result.Token); err != nil {
			e.logger.Error("failed to complete login", "error", err)
		}
		return false

	default:
		// Intermediate codes (802 once the code is scanned, ahead of the
		// confirmation) keep the challenge alive.
		e.logger.Debug("login pending", "key", key, "code", result.Code)
		e.mu.Unlock()
		return true
	}
}

// LoginWithCookie authenticates directly with a MUSIC_U session token,
// bypassing the QR flow. A failed account lookup discards the token.
// The call is a no-op when already logged in.
func (e *Engine) LoginWithCookie(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty session token", shared.ErrInvalidInput)
	}

	e.mu.Lock()
	if e.identity != nil {
		e.mu.Unlock()
		return nil
	}
	e.cancelPollLocked()
	e.clearChallengeLocked()
	e.mu.Unlock()

	return e.completeLogin(ctx, token)
}

// completeLogin installs the token, resolves the account profile, persists
// the identity and flips the state to succeeded. A profile failure rolls the
// token back and marks the flow failed.
func (e *Engine) completeLogin(ctx context.Context, token string) error {
	e.client.SetToken(token)

	profile, err := e.client.FetchAccount(ctx)
	if err != nil {
		e.client.SetToken("")
		e.mu.Lock()
		e.failLocked("account lookup failed: " + err.Error())
		e.mu.Unlock()
		return fmt.Errorf("%w: %v", shared.ErrLoginFailed, err)
	}

	identity := models.Identity{
		UserID:    profile.UserID,
		Username:  profile.Nickname,
		AvatarURL: profile.AvatarURL,
		Token:     token,
		LoginTime: time.Now(),
	}
	if err := e.store.Save(identity); err != nil {
		e.logger.Error("failed to persist session", "error", err)
	}

	e.mu.Lock()
	e.identity = &identity
	catalog := e.catalog
	e.mu.Unlock()

	e.logger.Info("logged in", "user", identity.Username, "userId", identity.UserID)

	// The first page loads before the state flips, so anyone waiting on
	// the login sees a populated catalog.
	if catalog != nil {
		if err := catalog.Sync(ctx); err != nil {
			e.logger.Warn("initial catalog sync failed", "error", err)
		}
	}

	e.mu.Lock()
	e.state = StateSucceeded
	e.reason = ""
	e.mu.Unlock()

	return nil
}

// Logout tears the session down: the poll loop stops, the durable record
// and the catalog are cleared, and a fresh login challenge is started.
func (e *Engine) Logout(ctx context.Context) error {
	e.mu.Lock()
	e.cancelPollLocked()
	e.clearChallengeLocked()
	e.identity = nil
	e.state = StateLoading
	e.reason = ""
	catalog := e.catalog
	e.mu.Unlock()

	e.client.SetToken("")
	if err := e.store.Clear(); err != nil {
		return err
	}
	if catalog != nil {
		catalog.Clear()
	}

	e.logger.Info("logged out")
	return e.StartLogin(ctx)
}

// WaitUntilSettled blocks until the flow leaves the transient phases, i.e.
// until a QR challenge is confirmed, expires or fails. It returns the final
// state, or the context error if canceled first.
func (e *Engine) WaitUntilSettled(ctx context.Context) (State, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		state, _ := e.State()
		switch state {
		case StateSucceeded, StateExpired, StateFailed:
			return state, nil
		}

		select {
		case <-ctx.Done():
			state, _ := e.State()
			return state, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Engine) failLocked(reason string) {
	e.state = StateFailed
	e.reason = reason
	e.clearChallengeLocked()
	e.logger.Error("login failed", "reason", reason)
}

func (e *Engine) clearChallengeLocked() {
	e.challengeKey = ""
	e.cancelPollLocked()
}

func (e *Engine) cancelPollLocked() {
	if e.pollCancel != nil {
		e.pollCancel()
		e.pollCancel = nil
	}
}
