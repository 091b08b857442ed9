package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/zhiozhou/cloudmatch/internal/auth"
	"github.com/zhiozhou/cloudmatch/internal/catalog"
	"github.com/zhiozhou/cloudmatch/internal/match"
	"github.com/zhiozhou/cloudmatch/internal/netease"
	"github.com/zhiozhou/cloudmatch/internal/session"
	"github.com/zhiozhou/cloudmatch/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	client  *netease.Client
	store   *session.Store
	auth    *auth.Engine
	catalog *catalog.Engine
	matcher *match.Engine
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Client *netease.Client
	DB     *sql.DB
	Logger *log.Logger
	Output io.Writer

	// PollInterval overrides the config's QR poll interval when non-zero.
	PollInterval time.Duration
}

// NewRunner creates a new Runner and wires the engines together.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Client == nil {
		httpClient := &http.Client{Timeout: opts.Config.API.Timeout()}
		opts.Client = netease.NewClient(opts.Config.API.BaseURL, httpClient, opts.Config.API.RatePerSecond)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = opts.Config.Login.PollInterval()
	}

	store := session.NewStore(opts.DB, opts.Logger)
	authEngine := auth.NewEngine(opts.Client, store, opts.Logger, opts.PollInterval)
	catalogEngine := catalog.NewEngine(opts.Client, authEngine, opts.Logger)
	authEngine.SetCatalog(catalogEngine)
	matchEngine := match.NewEngine(opts.Client, authEngine, catalogEngine, opts.Logger)

	return &Runner{
		config:  opts.Config,
		client:  opts.Client,
		store:   store,
		auth:    authEngine,
		catalog: catalogEngine,
		matcher: matchEngine,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

// SetLogger swaps the runner's logger, e.g. when the TUI redirects logs to a file.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// restore loads a persisted session before a command runs. Commands that
// require a login call requireLogin instead.
func (r *Runner) restore() {
	if err := r.auth.Restore(); err != nil {
		r.logger.Warn("failed to restore session", "error", err)
	}
}

// requireLogin restores the session and fails when no valid login exists.
func (r *Runner) requireLogin() error {
	r.restore()
	if !r.auth.IsLoggedIn() {
		return fmt.Errorf("%w: run 'cloudmatch login' first", shared.ErrNotAuthenticated)
	}
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, loginCommand, logoutCommand, whoamiCommand, songsCommand, matchCommand, logsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
