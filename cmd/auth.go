package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/desertthunder/lbsync/internal/server"
	"github.com/desertthunder/lbsync/internal/shared"
)

// approvalTimeout bounds how long `auth tmdb` waits for the browser redirect.
const approvalTimeout = 5 * time.Minute

var openBrowser = shared.OpenBrowser

// AuthTMDB creates a TMDB session and stores its id in the config file.
//
// A request token is approved in the browser, which redirects back to a local callback
// server. When that server cannot start, the user confirms approval with ENTER instead.
func (r *Runner) AuthTMDB(ctx context.Context, cmd *cli.Command) error {
	tmdb, err := r.tmdb()
	if err != nil {
		return err
	}

	token, err := tmdb.RequestToken(ctx)
	if err != nil {
		return err
	}

	handler := server.NewApprovalHandler(token)
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	srv := server.NewCallbackServer(addr, router, r.logger)

	redirectTo := ""
	if err := srv.Start(); err != nil {
		r.logger.Warn("callback server unavailable, falling back to manual confirmation", "error", err)
	} else {
		redirectTo = r.config.Server.CallbackURL()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				r.logger.Warn("callback server shutdown", "error", err)
			}
		}()
	}

	approvalURL := tmdb.ApprovalURL(token, redirectTo)
	r.writePlain("Approve lbsync in your browser:\n  %s\n", approvalURL)
	if err := openBrowser(approvalURL); err != nil {
		r.logger.Debug("could not open browser", "error", err)
	}

	if redirectTo != "" {
		err = r.awaitApproval(ctx, handler)
	} else {
		err = r.confirmApproval()
	}
	if err != nil {
		return err
	}

	sessionID, err := tmdb.CreateSession(ctx, token)
	if err != nil {
		return err
	}
	tmdb.SetSessionID(sessionID)

	r.config.Credentials.TMDB.SessionID = sessionID
	if err := r.saveConfig(); err != nil {
		return fmt.Errorf("session created but not saved: %w", err)
	}
	r.logger.Info("TMDB session saved", "path", r.configPath)

	if acct, err := tmdb.Account(ctx); err == nil {
		return r.writePlain("✓ Authorized as %s\n", acct.Username)
	}
	return r.writePlain("✓ TMDB session saved\n")
}

func (r *Runner) awaitApproval(ctx context.Context, h *server.ApprovalHandler) error {
	select {
	case res := <-h.Result():
		return res.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(approvalTimeout):
		return fmt.Errorf("%w: no approval after %s", shared.ErrTimeout, approvalTimeout)
	}
}

func (r *Runner) confirmApproval() error {
	r.writePlain("Press ENTER once you have approved access... ")
	if _, err := bufio.NewReader(r.input).ReadString('\n'); err != nil {
		return fmt.Errorf("%w: no confirmation: %v", shared.ErrAuthFailed, err)
	}
	return nil
}

// AuthLetterboxd signs in to Letterboxd and saves the session cookies.
func (r *Runner) AuthLetterboxd(ctx context.Context, cmd *cli.Command) error {
	in := bufio.NewReader(r.input)

	username := cmd.String("username")
	if username == "" {
		r.writePlain("Letterboxd username: ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("%w: username", shared.ErrMissingArgument)
		}
		username = strings.TrimSpace(line)
	}

	password, err := r.readPassword(in)
	if err != nil {
		return err
	}
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", shared.ErrMissingArgument)
	}

	jar := r.config.Credentials.Letterboxd.CookieJar
	lb, err := r.letterboxd(jar)
	if err != nil {
		return err
	}

	if err := lb.Login(ctx, username, password); err != nil {
		return err
	}
	if err := lb.SaveCookies(jar); err != nil {
		return err
	}

	r.logger.Info("letterboxd cookies saved", "path", jar)
	return r.writePlain("✓ Signed in to Letterboxd as %s\n", username)
}

// readPassword reads without echo from a terminal, or a plain line otherwise.
func (r *Runner) readPassword(in *bufio.Reader) (string, error) {
	r.writePlain("Letterboxd password: ")

	if f, ok := r.input.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		r.writePlain("\n")
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("%w: password", shared.ErrMissingArgument)
	}
	return strings.TrimSpace(line), nil
}

// AuthStatus reports whether the TMDB session and the Letterboxd cookies are usable.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("Authentication")

	if tmdb, err := r.tmdb(); err != nil {
		r.writePlain("TMDB:       ✗ %v\n", err)
	} else if acct, err := tmdb.Account(ctx); err != nil {
		r.writePlain("TMDB:       ✗ %v\n", err)
	} else {
		r.writePlain("TMDB:       ✓ %s (account %d)\n", acct.Username, acct.ID)
	}

	jar := r.config.Credentials.Letterboxd.CookieJar
	lb, err := r.letterboxd(jar)
	switch {
	case err != nil:
		r.writePlain("Letterboxd: ✗ %v\n", err)
	case lb.IsLoggedIn():
		r.writePlain("Letterboxd: ✓ session cookies in %s\n", jar)
	default:
		r.writePlain("Letterboxd: ✗ no session, run 'lbsync auth letterboxd'\n")
	}
	return nil
}
