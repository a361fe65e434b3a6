package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/briefly/internal/auth"
	"github.com/dmitrijs2005/briefly/internal/client/client"
	"github.com/dmitrijs2005/briefly/internal/client/models"
	"github.com/dmitrijs2005/briefly/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/briefly/internal/logging"
	"github.com/stretchr/testify/require"
)

// ---- fake client ----

// fakeClient implements client.Client. Each method delegates to its
// function field when set and records the call.
type fakeClient struct {
	mu     sync.Mutex
	calls  map[string]int
	tokens []string

	CreateUserFn   func(ctx context.Context, reg models.Registration) (*models.RegisteredUser, error)
	VerifyUserFn   func(ctx context.Context, email, password string) (*models.Credentials, error)
	ListOwnedFn    func(ctx context.Context, userID string) ([]models.Summary, error)
	ListSharedFn   func(ctx context.Context, userID string) ([]models.Summary, error)
	FetchFn        func(ctx context.Context, id string) (*models.Summary, error)
	CreateTextFn   func(ctx context.Context, req models.TextSummaryRequest) (*models.CreatedSummary, error)
	CreateFileFn   func(ctx context.Context, req models.FileSummaryRequest) (*models.CreatedSummary, error)
	DeleteFn       func(ctx context.Context, id string) error
	ShareFn        func(ctx context.Context, id, recipient string) (string, error)
	RegenerateFn   func(ctx context.Context, id, feedback string) error
	DownloadFileFn func(ctx context.Context, fileID string) (*client.Blob, error)
}

var _ client.Client = (*fakeClient)(nil)

func (f *fakeClient) record(ctx context.Context, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
	f.tokens = append(f.tokens, client.AccessToken(ctx))
}

func (f *fakeClient) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeClient) LastToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tokens) == 0 {
		return ""
	}
	return f.tokens[len(f.tokens)-1]
}

func (f *fakeClient) CreateUser(ctx context.Context, reg models.Registration) (*models.RegisteredUser, error) {
	f.record(ctx, "CreateUser")
	if f.CreateUserFn == nil {
		return &models.RegisteredUser{Message: "User created successfully", UserID: "u-new"}, nil
	}
	return f.CreateUserFn(ctx, reg)
}

func (f *fakeClient) VerifyUser(ctx context.Context, email, password string) (*models.Credentials, error) {
	f.record(ctx, "VerifyUser")
	if f.VerifyUserFn == nil {
		return nil, errors.New("VerifyUser not configured")
	}
	return f.VerifyUserFn(ctx, email, password)
}

func (f *fakeClient) ListOwnedSummaries(ctx context.Context, userID string) ([]models.Summary, error) {
	f.record(ctx, "ListOwned")
	if f.ListOwnedFn == nil {
		return []models.Summary{}, nil
	}
	return f.ListOwnedFn(ctx, userID)
}

func (f *fakeClient) ListSharedSummaries(ctx context.Context, userID string) ([]models.Summary, error) {
	f.record(ctx, "ListShared")
	if f.ListSharedFn == nil {
		return []models.Summary{}, nil
	}
	return f.ListSharedFn(ctx, userID)
}

func (f *fakeClient) FetchSummary(ctx context.Context, id string) (*models.Summary, error) {
	f.record(ctx, "Fetch")
	if f.FetchFn == nil {
		return nil, client.ErrNotFound
	}
	return f.FetchFn(ctx, id)
}

func (f *fakeClient) CreateSummaryFromText(ctx context.Context, req models.TextSummaryRequest) (*models.CreatedSummary, error) {
	f.record(ctx, "CreateText")
	if f.CreateTextFn == nil {
		return &models.CreatedSummary{Message: "Summary created successfully", SummaryID: "s-new"}, nil
	}
	return f.CreateTextFn(ctx, req)
}

func (f *fakeClient) CreateSummaryFromFile(ctx context.Context, req models.FileSummaryRequest) (*models.CreatedSummary, error) {
	f.record(ctx, "CreateFile")
	if f.CreateFileFn == nil {
		_, _ = io.Copy(io.Discard, req.Content)
		return &models.CreatedSummary{Message: "Summary created successfully", SummaryID: "s-file", FileID: "f-1"}, nil
	}
	return f.CreateFileFn(ctx, req)
}

func (f *fakeClient) DeleteSummary(ctx context.Context, id string) error {
	f.record(ctx, "Delete")
	if f.DeleteFn == nil {
		return nil
	}
	return f.DeleteFn(ctx, id)
}

func (f *fakeClient) ShareSummary(ctx context.Context, id, recipient string) (string, error) {
	f.record(ctx, "Share")
	if f.ShareFn == nil {
		return "Summary shared successfully with " + recipient, nil
	}
	return f.ShareFn(ctx, id, recipient)
}

func (f *fakeClient) RegenerateSummary(ctx context.Context, id, feedback string) error {
	f.record(ctx, "Regenerate")
	if f.RegenerateFn == nil {
		return nil
	}
	return f.RegenerateFn(ctx, id, feedback)
}

func (f *fakeClient) DownloadFile(ctx context.Context, fileID string) (*client.Blob, error) {
	f.record(ctx, "Download")
	if f.DownloadFileFn == nil {
		return nil, client.ErrNotFound
	}
	return f.DownloadFileFn(ctx, fileID)
}

// ---- fake session ----

// fakeSession is a SessionProvider with a fixed signed-in user.
type fakeSession struct {
	mu      sync.Mutex
	state   models.Session
	logouts int
}

func signedInSession() *fakeSession {
	return &fakeSession{state: models.Session{
		Token:           "tok-1",
		User:            &models.User{ID: "u1", Email: "ann@example.com"},
		IsAuthenticated: true,
	}}
}

func (s *fakeSession) Current() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *fakeSession) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logouts++
	s.state = models.Session{}
}

func (s *fakeSession) Logouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logouts
}

// ---- clipboard, sink, timer ----

type fakeClipboard struct {
	text string
	err  error
	n    int
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.n++
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type savedFile struct {
	name, contentType string
	data              []byte
}

type fakeSink struct {
	saved []savedFile
	err   error
}

func (s *fakeSink) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, savedFile{name, contentType, data})
	return "/downloads/" + name, nil
}

// fakeTimers captures AfterFunc callbacks so tests decide when they fire.
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (ft *fakeTimers) AfterFunc(d time.Duration, f func()) stopper {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	ft.timers = append(ft.timers, t)
	return t
}

// fire runs the i-th callback as the runtime would: regardless of Stop,
// since a stopped timer may already have fired.
func (ft *fakeTimers) fire(i int) {
	ft.mu.Lock()
	t := ft.timers[i]
	ft.mu.Unlock()
	t.f()
}

// ---- helpers ----

func discard() logging.Logger { return logging.Discard() }

func newMemoryStore() (*SessionStore, *metadata.MemoryRepository) {
	repo := metadata.NewMemoryRepository()
	return NewSessionStore(repo), repo
}

func token(t *testing.T, userID string, validity time.Duration) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte("server-secret"), validity)
	require.NoError(t, err)
	return tok
}

func summaries(ids ...string) []models.Summary {
	out := make([]models.Summary, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Summary{ID: id, Title: "T" + id, Type: models.SummaryTypeCode})
	}
	return out
}

func itemIDs(items []models.Summary) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, s.ID)
	}
	return out
}
