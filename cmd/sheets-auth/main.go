// Command sheets-auth runs the browser consent flow once and saves the user token
// that the export worker reads from GOOGLE_OAUTH_TOKEN_FILE.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/prathap-k00/expense-tracker/internal/cli"
	applog "github.com/prathap-k00/expense-tracker/internal/log"
	"github.com/prathap-k00/expense-tracker/internal/sheets/google"
)

const authTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentSheets)

	clientFile := os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")
	if clientFile == "" {
		logger.Error("GOOGLE_OAUTH_CLIENT_FILE is required")
		os.Exit(1)
	}
	tokenFile := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	if tokenFile == "" {
		tokenFile = "token.json"
	}
	port := os.Getenv("OAUTH_REDIRECT_PORT")
	if port == "" {
		port = "8085"
	}

	cfg, err := google.OAuthConfig(clientFile)
	if err != nil {
		logger.Error("Failed to load OAuth client", applog.FieldError, err)
		os.Exit(1)
	}
	// The redirect URI must be listed on the OAuth client.
	cfg.RedirectURL = "http://localhost:" + port + "/callback"

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	tok, err := authorize(ctx, cfg, ":"+port)
	if err != nil {
		logger.Error("Authorization failed", applog.FieldError, err)
		os.Exit(1)
	}
	if err := google.SaveOAuthToken(tokenFile, tok); err != nil {
		logger.Error("Failed to save token", applog.FieldError, err, "path", tokenFile)
		os.Exit(1)
	}
	logger.Info("Saved OAuth token", "path", tokenFile)
}

// authorize serves the callback on addr until the code arrives or ctx ends.
func authorize(ctx context.Context, cfg *oauth2.Config, addr string) (*oauth2.Token, error) {
	state := uuid.NewString()
	codes := make(chan string, 1)
	errs := make(chan error, 1)

	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			select {
			case errs <- fmt.Errorf("consent denied: %s", q.Get("error")):
			default:
			}
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			select {
			case codes <- q.Get("code"):
			default:
			}
		}
	})

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case code := <-codes:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for consent: %w", ctx.Err())
	}
}
