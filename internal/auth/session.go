package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// State is the authentication state of a Session.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Modal is the visibility of the auth modal. It is independent of State.
type Modal int

const (
	ModalClosed Modal = iota
	ModalLogin
	ModalRegister
)

func (m Modal) String() string {
	switch m {
	case ModalLogin:
		return "login"
	case ModalRegister:
		return "register"
	default:
		return "closed"
	}
}

// Authenticator is the identity API as seen by a Session.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (Grant, error)
	Register(ctx context.Context, name, email, password string) (Grant, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context) (Identity, error)
}

const defaultLogoutTimeout = 5 * time.Second

// Session combines the Store and an Authenticator into the capability set
// the views use. Create one per process and pass it to every consumer.
//
// At most one login or registration is in flight at a time; further
// submissions fail with ErrInFlight until it resolves.
type Session struct {
	store  *Store
	auth   Authenticator
	logger *slog.Logger
	now    func() time.Time

	logoutTimeout time.Duration

	mu       sync.Mutex
	modal    Modal
	inflight bool
	epoch    uint64

	bg sync.WaitGroup
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogoutTimeout bounds the background logout notification.
func WithLogoutTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.logoutTimeout = d
		}
	}
}

// WithClock replaces time.Now, used for token expiry checks.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates a Session in StateAnonymous with the modal closed.
// Call Restore to pick up a persisted token.
func NewSession(store *Store, auth Authenticator, logger *slog.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		store:         store,
		auth:          auth,
		logger:        logger,
		now:           time.Now,
		logoutTimeout: defaultLogoutTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsAuthenticated reports whether a session is held.
func (s *Session) IsAuthenticated() bool {
	return s.store.IsAuthenticated()
}

// CurrentUser returns the signed-in identity. Right after Restore it may be
// a placeholder with only the fields the token itself carried.
func (s *Session) CurrentUser() (Identity, bool) {
	return s.store.Identity()
}

// State returns the derived authentication state.
func (s *Session) State() State {
	s.mu.Lock()
	inflight := s.inflight
	s.mu.Unlock()
	switch {
	case inflight:
		return StateAuthenticating
	case s.store.IsAuthenticated():
		return StateAuthenticated
	default:
		return StateAnonymous
	}
}

// Modal returns the current modal visibility.
func (s *Session) Modal() Modal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modal
}

// OpenLoginModal shows the modal in login mode.
func (s *Session) OpenLoginModal() {
	s.setModal(ModalLogin)
}

// OpenRegisterModal shows the modal in registration mode.
func (s *Session) OpenRegisterModal() {
	s.setModal(ModalRegister)
}

// CloseModal hides the modal. An in-flight submission keeps running and
// its result still reaches the Store.
func (s *Session) CloseModal() {
	s.setModal(ModalClosed)
}

// SwitchModal flips an open modal between login and registration.
func (s *Session) SwitchModal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.modal {
	case ModalLogin:
		s.modal = ModalRegister
	case ModalRegister:
		s.modal = ModalLogin
	}
}

func (s *Session) setModal(m Modal) {
	s.mu.Lock()
	s.modal = m
	s.mu.Unlock()
}

// SubmitLogin validates in and, if valid, signs in. Invalid input returns
// an InvalidInput *Error without any network call. On success the Store
// holds the new session and the modal is closed.
func (s *Session) SubmitLogin(ctx context.Context, in LoginInput) (Identity, error) {
	email := strings.TrimSpace(in.Email)
	if err := ValidateLogin(email, in.Password); err != nil {
		return Identity{}, err
	}
	epoch, err := s.begin()
	if err != nil {
		return Identity{}, err
	}
	grant, err := s.auth.Login(ctx, email, in.Password)
	return s.finish("login", epoch, grant, err)
}

// SubmitRegister validates in and, if valid, creates the account and signs
// in with it.
func (s *Session) SubmitRegister(ctx context.Context, in RegisterInput) (Identity, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if err := ValidateRegistration(name, email, in.Password, in.ConfirmPassword); err != nil {
		return Identity{}, err
	}
	epoch, err := s.begin()
	if err != nil {
		return Identity{}, err
	}
	grant, err := s.auth.Register(ctx, name, email, in.Password)
	return s.finish("register", epoch, grant, err)
}

func (s *Session) begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight {
		return 0, ErrInFlight
	}
	s.inflight = true
	return s.epoch, nil
}

func (s *Session) finish(op string, epoch uint64, grant Grant, err error) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight = false

	if epoch != s.epoch {
		s.logger.Info("discarding sign-in result after logout", "op", op)
		return Identity{}, ErrSuperseded
	}
	if err != nil {
		s.logger.Info("sign-in failed", "op", op, "kind", KindOf(err).String())
		return Identity{}, err
	}

	if err := s.store.Set(grant.Identity, grant.Token); err != nil {
		s.logger.Error("persisting session", "op", op, "error", err)
		return Identity{}, &Error{Kind: KindStorage, Err: err}
	}
	s.modal = ModalClosed
	s.logger.Info("signed in", "op", op, "user_id", grant.Identity.ID)
	return grant.Identity, nil
}

// Logout clears the session immediately and notifies the API in the
// background. The local session is gone even if the notification fails.
// Any in-flight submission is discarded when it resolves.
func (s *Session) Logout() {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()

	token := s.store.Token()
	if err := s.store.Clear(); err != nil {
		s.logger.Error("clearing persisted token", "error", err)
	}
	if token == "" {
		return
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.logoutTimeout)
		defer cancel()
		if err := s.auth.Logout(ctx, token); err != nil {
			s.logger.Warn("logout notification failed", "error", err)
		}
	}()
	s.logger.Info("signed out")
}

// Restore picks up a persisted token and optimistically treats the session
// as authenticated. Call Validate afterwards to confirm it with the API.
// Failures are logged and reported as false; they are never surfaced to the
// user.
func (s *Session) Restore() bool {
	ok, err := s.store.Restore(s.now())
	if err != nil {
		s.logger.Info("session restore failed", "error", err)
		return false
	}
	if !ok {
		return false
	}
	s.logger.Info("session restored from disk")
	return true
}

// Validate confirms a restored token with the API. A rejected token, or an
// unexpected server answer, clears the session. A network failure keeps the
// optimistic session and returns the error. If the session changed while the
// call was running, the result is ignored.
func (s *Session) Validate(ctx context.Context) error {
	token := s.store.Token()
	if token == "" {
		return nil
	}
	identity, err := s.auth.Me(ctx)
	if err == nil {
		s.store.replaceIdentity(token, identity)
		return nil
	}
	if errors.Is(err, ErrNetwork) {
		s.logger.Info("session validation deferred", "error", err)
		return err
	}
	cleared, clearErr := s.store.clearIf(token)
	if clearErr != nil {
		s.logger.Error("clearing persisted token", "error", clearErr)
	}
	if cleared {
		s.logger.Info("restored session rejected", "kind", KindOf(err).String())
	}
	return err
}

// Token returns the held session token, or "" when signed out.
func (s *Session) Token() string {
	return s.store.Token()
}

// Expire drops the session after the platform API rejected token outside
// of sign-in. It is a no-op if the session has since changed. No logout
// notification is sent because the server no longer knows the token.
func (s *Session) Expire(token string) bool {
	cleared, err := s.store.clearIf(token)
	if err != nil {
		s.logger.Error("clearing persisted token", "error", err)
	}
	if cleared {
		s.logger.Info("session expired by the API")
	}
	return cleared
}

// Wait blocks until background logout notifications have finished.
func (s *Session) Wait() {
	s.bg.Wait()
}
