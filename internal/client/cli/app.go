package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/briefly/internal/client/client"
	"github.com/dmitrijs2005/briefly/internal/client/clipboard"
	"github.com/dmitrijs2005/briefly/internal/client/config"
	"github.com/dmitrijs2005/briefly/internal/client/models"
	"github.com/dmitrijs2005/briefly/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/briefly/internal/client/services"
	"github.com/dmitrijs2005/briefly/internal/client/sinks"
	"github.com/dmitrijs2005/briefly/internal/logging"
)

type App struct {
	config    *config.Config
	log       logging.Logger
	db        *sql.DB
	api       client.Client
	session   *services.SessionController
	clipboard services.Clipboard
	sink      services.DownloadSink

	// collection is nil while signed out.
	collection *services.CollectionController

	reader *bufio.Reader
	out    io.Writer
	// readSecret reads a password; a terminal gets a no-echo prompt.
	readSecret func(prompt string) ([]byte, error)
}

// NewApp wires the application from c. Logs go to stderr; the REPL reads
// from in and writes to out.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer) (*App, error) {
	log := logging.New(os.Stderr, c.LogLevel)
	return newApp(ctx, c, log, in, out)
}

func newApp(ctx context.Context, c *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	a := &App{
		config:    c,
		log:       log,
		clipboard: clipboard.System{},
		reader:    bufio.NewReader(in),
		out:       out,
	}
	a.readSecret = a.secretReader(in)

	var repo metadata.Repository
	if c.Ephemeral {
		repo = metadata.NewMemoryRepository()
	} else {
		db, err := client.InitDatabase(ctx, c.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		a.db = db
		repo = metadata.NewSQLiteRepository(db)
	}
	if c.SessionSecret != "" {
		repo = metadata.NewSealedRepository(repo, []byte(c.SessionSecret))
	}

	api, err := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.api = api

	if c.S3.Enabled() {
		sink, err := sinks.NewS3Sink(ctx, c.S3, &http.Client{Timeout: c.RequestTimeout})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("s3 sink: %w", err)
		}
		a.sink = sink
	} else {
		a.sink = sinks.NewLocalSink(c.DownloadDir)
	}

	a.session = services.NewSessionController(api, services.NewSessionStore(repo), log)
	return a, nil
}

// Run restores the saved session and runs the REPL until the user exits
// or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to Briefly CLI (type 'help' for commands)")
	a.restoreSession(ctx)
	runREPL(ctx, a, a.status, a.reader, a.out)
}

// Close releases the controllers and the local database.
func (a *App) Close() {
	if a.collection != nil {
		a.collection.Close()
		a.collection = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn(context.Background(), "close database", "error", err)
		}
		a.db = nil
	}
}

func (a *App) restoreSession(ctx context.Context) {
	items, err := a.session.VerifyStartupSession(ctx)
	switch {
	case err == nil:
		a.startCollection(items)
		fmt.Fprintf(a.out, "Welcome back, %s (%d summaries).\n", a.userLabel(), len(items))
	case errors.Is(err, services.ErrNoSession):
		fmt.Fprintln(a.out, "Please log in or register.")
	case errors.Is(err, services.ErrSessionExpired):
		fmt.Fprintln(a.out, "Your session has expired. Please log in again.")
	default:
		fmt.Fprintln(a.out, "Your saved session could not be used. Please log in again.")
	}
}

func (a *App) startCollection(items []models.Summary) {
	if a.collection != nil {
		a.collection.Close()
	}
	a.collection = services.NewCollectionController(a.api, a.session, a.clipboard, a.sink, a.log)
	a.collection.Seed(items)
}

func (a *App) stopCollection() {
	if a.collection != nil {
		a.collection.Close()
		a.collection = nil
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.Current().IsAuthenticated
}

// signedIn reports whether commands needing a session can run. A session
// ended by the server since the last command is noticed here.
func (a *App) signedIn() bool {
	if a.isLoggedIn() && a.collection != nil {
		return true
	}
	if a.collection != nil {
		a.stopCollection()
		fmt.Fprintln(a.out, "Your session has ended. Please log in again.")
		return false
	}
	fmt.Fprintln(a.out, "Please log in first.")
	return false
}

func (a *App) userLabel() string {
	s := a.session.Current()
	if s.User == nil {
		return ""
	}
	if s.User.Email != "" {
		return s.User.Email
	}
	return s.User.ID
}

// status is shown in the prompt: the user and, inside the collection, the
// active list or the open summary.
func (a *App) status() string {
	if !a.isLoggedIn() || a.collection == nil {
		return ""
	}
	v := a.collection.Snapshot()
	if v.Selected != nil {
		return fmt.Sprintf("(%s %s/%s)", a.userLabel(), v.ActiveList, truncate(v.Selected.Title, 20))
	}
	return fmt.Sprintf("(%s %s)", a.userLabel(), v.ActiveList)
}
