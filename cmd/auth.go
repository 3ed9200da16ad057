package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/nook/internal/server"
	"github.com/desertthunder/nook/internal/shared"
	"github.com/urfave/cli/v3"
)

const loginTimeout = 2 * time.Minute

// AuthLogin runs the authorization-code flow: starts the localhost
// callback server, opens the browser, and waits for the redirect.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.auth == nil {
		return fmt.Errorf("%w: spotify client_id not configured, run 'nook setup' first", shared.ErrMissingConfig)
	}

	authURL, state, err := r.auth.BeginLogin()
	if err != nil {
		return fmt.Errorf("failed to start login: %w", err)
	}

	handler := server.NewCallbackHandler(state)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("callback server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL to sign in:\n%s\n", authURL)
	} else {
		r.logger.Info("opening browser for authorization")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
			r.writePlain("Open this URL to sign in:\n%s\n", authURL)
		}
	}

	var result server.CallbackResult
	select {
	case result = <-handler.Result():
	case <-time.After(loginTimeout):
		return fmt.Errorf("%w: no authorization callback received", shared.ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := result.Error(); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	cred, err := r.auth.CompleteLogin(ctx, result.Query)
	if err != nil {
		return err
	}
	if cred == nil {
		return fmt.Errorf("%w: callback carried no authorization code", shared.ErrAuthCancelled)
	}

	if cred.DisplayName != "" {
		return r.writePlain("✓ Signed in as %s\n", cred.DisplayName)
	}
	return r.writePlain("✓ Signed in\n")
}

// AuthLogout clears the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.sessions.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports whether a valid session exists and who it belongs to.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	cred, ok, err := r.sessions.Restore()
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		r.writePlain("✗ Not signed in\n")
		return nil
	}

	r.writePlain("✓ Signed in")
	if cred.DisplayName != "" {
		r.writePlain(" as %s", cred.DisplayName)
	}
	r.writePlain("\nSession expires: %s\n", cred.ExpiresAt.Format(time.RFC1123))
	return nil
}
