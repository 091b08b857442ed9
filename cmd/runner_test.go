package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/zhiozhou/cloudmatch/internal/models"
	"github.com/zhiozhou/cloudmatch/internal/netease"
	"github.com/zhiozhou/cloudmatch/internal/shared"
	tu "github.com/zhiozhou/cloudmatch/internal/testing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// newTestRunner builds a runner against a scripted API server with a
// logged-in session already persisted.
func newTestRunner(t *testing.T, handler http.Handler) (*Runner, *bytes.Buffer) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	db := newTestDB(t)
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Client: netease.NewClient(server.URL, nil, 1000),
		DB:     db,
		Output: output,
	})

	if err := runner.store.Save(models.Identity{
		UserID:    "42",
		Username:  "Alice",
		Token:     "tok",
		LoginTime: time.Now(),
	}); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}

	return runner, output
}

const cloudPageBody = `{
	"code": 200,
	"count": 2,
	"size": 3614845110,
	"maxSize": 644245094400,
	"hasMore": false,
	"data": [
		{"simpleSong":{"id":111,"name":"Wrong Name","ar":[{"name":"Some Artist"}],"al":{"name":"Some Album"},"dt":254000},"fileName":"a.flac","fileSize":31457280,"bitrate":985},
		{"simpleSong":{"id":333,"name":"Other Song","ar":[{"name":"Other Artist"}]},"fileName":"b.mp3","fileSize":8388608,"bitrate":320}
	]
}`

func apiHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/cloud/get":
			w.Write([]byte(cloudPageBody))
		case "/api/nuser/account/get":
			w.Write([]byte(`{"code":200,"profile":{"nickname":"Alice","userId":42,"avatarUrl":""}}`))
		case "/api/cloud/user/song/match":
			w.Write([]byte(`{"code":200,"matchData":{"simpleSong":{"id":222,"name":"Right Name","ar":[{"name":"Right Artist"}]}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: newTestDB(t)})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.client == nil {
				t.Error("expected a client to be built from config")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: newTestDB(t)})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("engines are wired", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: newTestDB(t)})

			if runner.auth == nil || runner.catalog == nil || runner.matcher == nil {
				t.Error("expected all engines to be constructed")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{DB: newTestDB(t), Output: output})

			data := map[string]string{"key": "value"}
			if err := runner.writeJSON(data, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{DB: newTestDB(t), Output: output})

			data := map[string]string{"key": "value"}
			if err := runner.writeJSON(data, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: newTestDB(t), Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: newTestDB(t), Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{DB: newTestDB(t), Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: newTestDB(t), Output: &tu.FWriter{}})

			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{DB: newTestDB(t)})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}

func TestRequireLogin(t *testing.T) {
	t.Run("fails without a session", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{DB: newTestDB(t), Output: &bytes.Buffer{}})

		if err := runner.requireLogin(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("restores a persisted session", func(t *testing.T) {
		runner, _ := newTestRunner(t, apiHandler(t))

		if err := runner.requireLogin(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if runner.auth.UserID() != "42" {
			t.Errorf("expected user 42, got %s", runner.auth.UserID())
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("whoami", func(t *testing.T) {
		runner, output := newTestRunner(t, apiHandler(t))

		app := newTestApp(runner)
		if err := app.Run(context.Background(), []string{"cloudmatch", "whoami"}); err != nil {
			t.Fatalf("whoami failed: %v", err)
		}

		if !strings.Contains(output.String(), "User: Alice") {
			t.Errorf("expected identity output, got %q", output.String())
		}
	})

	t.Run("songs list", func(t *testing.T) {
		runner, output := newTestRunner(t, apiHandler(t))

		app := newTestApp(runner)
		if err := app.Run(context.Background(), []string{"cloudmatch", "songs", "list"}); err != nil {
			t.Fatalf("songs list failed: %v", err)
		}

		got := output.String()
		if !strings.Contains(got, "Wrong Name") || !strings.Contains(got, "Other Song") {
			t.Errorf("expected both songs listed, got %q", got)
		}
		if !strings.Contains(got, "3.4 GB / 600.0 GB") {
			t.Errorf("expected quota header, got %q", got)
		}
	})

	t.Run("songs export", func(t *testing.T) {
		runner, output := newTestRunner(t, apiHandler(t))

		tempDir := t.TempDir()
		originalDir := tu.MustGetwd(t)
		tu.MustChdir(t, tempDir)
		defer tu.MustChdir(t, originalDir)

		app := newTestApp(runner)
		if err := app.Run(context.Background(), []string{"cloudmatch", "songs", "export", "--format", "text"}); err != nil {
			t.Fatalf("songs export failed: %v", err)
		}

		tu.AssertFileExists(t, "Alice_songs.txt")
		if !strings.Contains(output.String(), "Exported 2 songs") {
			t.Errorf("expected export confirmation, got %q", output.String())
		}
	})

	t.Run("match", func(t *testing.T) {
		runner, output := newTestRunner(t, apiHandler(t))

		app := newTestApp(runner)
		if err := app.Run(context.Background(), []string{"cloudmatch", "match", "111", "222"}); err != nil {
			t.Fatalf("match failed: %v", err)
		}

		if !strings.Contains(output.String(), "Right Artist — Right Name") {
			t.Errorf("expected updated song output, got %q", output.String())
		}

		songs := runner.catalog.Songs()
		if songs[0].ID != "222" {
			t.Errorf("expected catalog entry replaced, got %+v", songs[0])
		}
	})

	t.Run("match rejection", func(t *testing.T) {
		runner, _ := newTestRunner(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/v1/cloud/get":
				w.Write([]byte(cloudPageBody))
			case "/api/cloud/user/song/match":
				w.Write([]byte(`{"code":400,"message":"song not matchable"}`))
			}
		}))

		app := newTestApp(runner)
		err := app.Run(context.Background(), []string{"cloudmatch", "match", "111", "222"})
		if !errors.Is(err, shared.ErrMatchRejected) {
			t.Fatalf("expected ErrMatchRejected, got %v", err)
		}
	})

	t.Run("login cookie from curl file", func(t *testing.T) {
		server := httptest.NewServer(apiHandler(t))
		defer server.Close()

		db := newTestDB(t)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Client: netease.NewClient(server.URL, nil, 1000),
			DB:     db,
			Output: output,
		})

		curlPath := filepath.Join(t.TempDir(), "request.sh")
		curl := `curl 'https://music.163.com/' -H 'Cookie: MUSIC_U=tok123; NMTID=x'`
		if err := os.WriteFile(curlPath, []byte(curl), 0644); err != nil {
			t.Fatalf("failed to write curl file: %v", err)
		}

		app := newTestApp(runner)
		if err := app.Run(context.Background(), []string{"cloudmatch", "login", "cookie", "--curl-file", curlPath}); err != nil {
			t.Fatalf("login cookie failed: %v", err)
		}

		if !strings.Contains(output.String(), "Logged in as Alice") {
			t.Errorf("expected login confirmation, got %q", output.String())
		}
		if runner.client.Token() != "tok123" {
			t.Errorf("expected cookie installed, got %q", runner.client.Token())
		}

		persisted, err := runner.store.Load()
		if err != nil || persisted == nil {
			t.Fatalf("expected persisted session, got %+v, %v", persisted, err)
		}
	})

	t.Run("logout clears the session", func(t *testing.T) {
		runner, output := newTestRunner(t, apiHandler(t))

		app := newTestApp(runner)
		if err := app.Run(context.Background(), []string{"cloudmatch", "logout"}); err != nil {
			t.Fatalf("logout failed: %v", err)
		}

		if !strings.Contains(output.String(), "Logged out") {
			t.Errorf("expected logout confirmation, got %q", output.String())
		}
		if persisted, _ := runner.store.Load(); persisted != nil {
			t.Errorf("expected session cleared, got %+v", persisted)
		}
	})

	t.Run("logs", func(t *testing.T) {
		runner, output := newTestRunner(t, apiHandler(t))

		app := newTestApp(runner)
		if err := app.Run(context.Background(), []string{"cloudmatch", "match", "111", "222"}); err != nil {
			t.Fatalf("match failed: %v", err)
		}

		output.Reset()
		if err := app.Run(context.Background(), []string{"cloudmatch", "logs"}); err != nil {
			t.Fatalf("logs failed: %v", err)
		}

		if !strings.Contains(output.String(), "111 → 222") {
			t.Errorf("expected log line, got %q", output.String())
		}
	})
}

func TestFullLoginFlow(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login/qrcode/unikey":
			w.Write([]byte(`{"code":200,"unikey":"abc123"}`))
		case "/api/login/qrcode/client/login":
			polls++
			if polls < 3 {
				w.Write([]byte(`{"code":801}`))
				return
			}
			w.Header().Add("Set-Cookie", "MUSIC_U=xyz; Path=/; HttpOnly")
			w.Write([]byte(`{"code":803}`))
		case "/api/nuser/account/get":
			w.Write([]byte(`{"code":200,"profile":{"nickname":"Alice","userId":42}}`))
		case "/api/v1/cloud/get":
			w.Write([]byte(cloudPageBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	db := newTestDB(t)
	output := &bytes.Buffer{}

	runner := NewRunner(RunnerOpts{
		Client:       netease.NewClient(server.URL, nil, 1000),
		DB:           db,
		Output:       output,
		PollInterval: 10 * time.Millisecond,
	})

	app := newTestApp(runner)
	if err := app.Run(context.Background(), []string{"cloudmatch", "login"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	got := output.String()
	if !strings.Contains(got, "Logged in as Alice") {
		t.Errorf("expected login confirmation, got %q", got)
	}
	if !strings.Contains(got, "codekey=abc123") {
		t.Errorf("expected QR URL with challenge key, got %q", got)
	}

	// Login pulled the first catalog page.
	if len(runner.catalog.Songs()) != 2 {
		t.Errorf("expected catalog synced after login, got %d songs", len(runner.catalog.Songs()))
	}
}

func newTestApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "cloudmatch",
		Commands: r.register(),
	}
}
