package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/zhiozhou/cloudmatch/internal/auth"
	"github.com/zhiozhou/cloudmatch/internal/shared"
)

// LoginQR runs the QR login flow: it prints the challenge QR code and blocks
// until the scan is confirmed, the code expires or the flow fails.
func (r *Runner) LoginQR(ctx context.Context, cmd *cli.Command) error {
	r.restore()
	if identity := r.auth.Identity(); identity != nil {
		return r.writePlain("Already logged in as %s (%s)\n", identity.Username, identity.UserID)
	}

	if err := r.auth.StartLogin(ctx); err != nil {
		return err
	}

	qr, err := shared.QRString(r.auth.LoginURL())
	if err != nil {
		return fmt.Errorf("failed to render QR code: %w", err)
	}

	r.writePlain("%s\n", qr)
	r.writePlain("Scan with the NetEase Cloud Music app: %s\n", r.auth.LoginURL())
	r.writePlain("Waiting for confirmation...\n")

	state, err := r.auth.WaitUntilSettled(ctx)
	if err != nil {
		return err
	}

	switch state {
	case auth.StateSucceeded:
		identity := r.auth.Identity()
		r.writePlain("✓ Logged in as %s (%s)\n", identity.Username, identity.UserID)
		return nil
	case auth.StateExpired:
		return fmt.Errorf("%w: the QR code expired before it was scanned", shared.ErrLoginExpired)
	default:
		_, reason := r.auth.State()
		return fmt.Errorf("%w: %s", shared.ErrLoginFailed, reason)
	}
}

// LoginCookie authenticates with a MUSIC_U session cookie, given directly or
// extracted from a browser cURL command.
func (r *Runner) LoginCookie(ctx context.Context, cmd *cli.Command) error {
	token := cmd.StringArg("token")
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if token == "" && curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: pass a token or --curl/--curl-file", shared.ErrMissingArgument)
	}

	if token == "" {
		var headers *shared.CurlHeaders
		var err error
		if curlFile != "" {
			headers, err = shared.ParseCurlFile(curlFile)
		} else {
			headers, err = shared.ParseCurlCommand([]byte(curlCmd))
		}
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}

		token = headers.MusicU()
		if token == "" {
			return fmt.Errorf("%w: no MUSIC_U cookie in the cURL command", shared.ErrInvalidInput)
		}
		r.logger.Info("extracted session cookie from cURL command")
	}

	r.restore()
	if identity := r.auth.Identity(); identity != nil {
		return r.writePlain("Already logged in as %s (%s)\n", identity.Username, identity.UserID)
	}

	if err := r.auth.LoginWithCookie(ctx, token); err != nil {
		return err
	}

	identity := r.auth.Identity()
	return r.writePlain("✓ Logged in as %s (%s)\n", identity.Username, identity.UserID)
}

// Logout clears the persisted session and the in-memory catalog.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	if err := r.store.Clear(); err != nil {
		return err
	}
	r.catalog.Clear()
	r.client.SetToken("")

	r.logger.Info("session cleared")
	return r.writePlain("✓ Logged out\n")
}

// Whoami prints the authenticated identity.
func (r *Runner) Whoami(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireLogin(); err != nil {
		return err
	}

	identity := r.auth.Identity()
	if cmd.Bool("json") {
		return r.writeJSON(identity, true)
	}

	r.writePlain("User: %s\n", identity.Username)
	r.writePlain("ID: %s\n", identity.UserID)
	r.writePlain("Logged in: %s\n", identity.LoginTime.Format("2006-01-02 15:04"))
	return nil
}
