package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/briefly/internal/auth"
	"github.com/dmitrijs2005/briefly/internal/client/client"
	"github.com/dmitrijs2005/briefly/internal/client/models"
	"github.com/dmitrijs2005/briefly/internal/common"
	"github.com/dmitrijs2005/briefly/internal/logging"
)

// SessionController owns the authentication state machine:
// Anonymous -> Verifying -> Authenticated, and back to Anonymous through
// Logout, the only path that clears a session.
type SessionController struct {
	client client.Client
	store  *SessionStore
	log    logging.Logger
	now    func() time.Time

	mu        sync.Mutex
	state     models.Session
	verified  bool
	observers observers[models.Session]
}

var _ SessionProvider = (*SessionController)(nil)

func NewSessionController(c client.Client, store *SessionStore, log logging.Logger) *SessionController {
	return &SessionController{
		client: c,
		store:  store,
		log:    log.With("component", "session"),
		now:    time.Now,
	}
}

// Current returns a copy of the session.
func (s *SessionController) Current() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn to receive the session after every change.
func (s *SessionController) Subscribe(fn func(models.Session)) (cancel func()) {
	return s.observers.subscribe(fn)
}

// update applies fn to the state under the lock and notifies observers
// with the result.
func (s *SessionController) update(fn func(st *models.Session)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state.Clone()
	s.mu.Unlock()

	s.observers.notify(snap)
}

// Login exchanges credentials for a token, persists it with the profile
// and authenticates the session. On failure the session stays anonymous
// with LastError set.
func (s *SessionController) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		err := client.Validation("Email and password are required.")
		s.update(func(st *models.Session) { st.LastError = client.Message(err) })
		return err
	}

	s.update(func(st *models.Session) {
		st.IsLoading = true
		st.LastError = ""
	})

	creds, err := s.client.VerifyUser(ctx, email, password)
	if err == nil {
		if _, expErr := auth.CheckExpiry(creds.Token, s.now()); expErr != nil {
			s.log.Warn(ctx, "login returned an unusable token", "error", expErr)
			err = fmt.Errorf("%w: %w", client.ErrMalformedResponse, expErr)
		}
	}
	if err != nil {
		s.update(func(st *models.Session) {
			st.IsLoading = false
			st.LastError = client.Message(err)
		})
		return err
	}

	if err := s.store.Save(ctx, creds.Token, creds.User); err != nil {
		s.log.Warn(ctx, "session not persisted", "error", err)
	}

	s.update(func(st *models.Session) {
		*st = models.Session{Token: creds.Token, User: creds.User, IsAuthenticated: true}
	})
	s.log.Info(ctx, "signed in", "user_id", creds.User.ID)
	return nil
}

// Register creates an account. It never authenticates; the caller is
// expected to send the user to Login.
func (s *SessionController) Register(ctx context.Context, reg models.Registration) (*models.RegisteredUser, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	switch {
	case reg.Email == "":
		return nil, client.Validation("Email is required.")
	case reg.Password == "":
		return nil, client.Validation("Password is required.")
	case reg.Password != reg.ConfirmPassword:
		return nil, client.Validation("Passwords do not match.")
	}

	s.update(func(st *models.Session) { st.IsLoading = true })
	res, err := s.client.CreateUser(ctx, reg)
	s.update(func(st *models.Session) { st.IsLoading = false })
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Logout clears the persisted session and the in-memory state. It never
// fails; storage errors are logged.
func (s *SessionController) Logout(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error(ctx, "clear stored session", "error", err)
	}
	s.update(func(st *models.Session) { *st = models.Session{} })
}

// VerifyStartupSession restores a persisted session once per process. It
// fails with ErrNoSession, ErrMalformedToken or ErrSessionExpired, logging
// the session out in each case. On success it returns a prefetch of the
// owned summaries; a failed prefetch yields an empty list, except an
// unauthorized one, which ends the session.
func (s *SessionController) VerifyStartupSession(ctx context.Context) ([]models.Summary, error) {
	s.mu.Lock()
	if s.verified {
		s.mu.Unlock()
		return nil, ErrAlreadyVerified
	}
	s.verified = true
	s.mu.Unlock()

	s.update(func(st *models.Session) { st.IsLoading = true })

	fail := func(err error) ([]models.Summary, error) {
		s.log.Info(ctx, "stored session rejected", "reason", err)
		s.Logout(ctx)
		return nil, err
	}

	token, user, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn(ctx, "stored session unreadable", "error", err)
		return fail(fmt.Errorf("%w: %w", ErrNoSession, err))
	}
	if token == "" || user == nil || user.ID == "" {
		return fail(ErrNoSession)
	}

	if _, err := auth.CheckExpiry(token, s.now()); err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return fail(ErrSessionExpired)
		}
		return fail(fmt.Errorf("%w: %w", ErrMalformedToken, err))
	}

	s.update(func(st *models.Session) {
		*st = models.Session{Token: token, User: user, IsAuthenticated: true, IsLoading: true}
	})

	items, err := s.client.ListOwnedSummaries(client.WithAccessToken(ctx, token), user.ID)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return fail(fmt.Errorf("%w: %w", ErrSessionExpired, err))
		}
		s.log.Warn(ctx, "prefetch of owned summaries failed", "error", err)
		items = []models.Summary{}
	}

	s.update(func(st *models.Session) { st.IsLoading = false })
	return items, nil
}
