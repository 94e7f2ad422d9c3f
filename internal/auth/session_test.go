package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fragmede/v2xdash/internal/api"
	"github.com/fragmede/v2xdash/internal/cache"
)

// fakeAuth is an Authenticator with function fields and call counters.
type fakeAuth struct {
	loginFn    func(ctx context.Context, email, password string) (Grant, error)
	registerFn func(ctx context.Context, name, email, password string) (Grant, error)
	logoutFn   func(ctx context.Context, token string) error
	meFn       func(ctx context.Context) (Identity, error)

	logins    atomic.Int32
	registers atomic.Int32
	logouts   atomic.Int32
	mes       atomic.Int32
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (Grant, error) {
	f.logins.Add(1)
	if f.loginFn != nil {
		return f.loginFn(ctx, email, password)
	}
	return Grant{}, errors.New("login not stubbed")
}

func (f *fakeAuth) Register(ctx context.Context, name, email, password string) (Grant, error) {
	f.registers.Add(1)
	if f.registerFn != nil {
		return f.registerFn(ctx, name, email, password)
	}
	return Grant{}, errors.New("register not stubbed")
}

func (f *fakeAuth) Logout(ctx context.Context, token string) error {
	f.logouts.Add(1)
	if f.logoutFn != nil {
		return f.logoutFn(ctx, token)
	}
	return nil
}

func (f *fakeAuth) Me(ctx context.Context) (Identity, error) {
	f.mes.Add(1)
	if f.meFn != nil {
		return f.meFn(ctx)
	}
	return Identity{}, errors.New("me not stubbed")
}

func (f *fakeAuth) calls() int32 {
	return f.logins.Load() + f.registers.Load() + f.logouts.Load() + f.mes.Load()
}

var userA = Identity{ID: "1", Name: "A", Email: "a@b.com"}

func grantA(context.Context, string, string) (Grant, error) {
	return Grant{Identity: userA, Token: "t1"}, nil
}

func newTestSession(fa *fakeAuth) (*Session, *memTokens) {
	durable := &memTokens{}
	return NewSession(NewStore(durable), fa, nil), durable
}

func TestSession_Initial(t *testing.T) {
	s, _ := newTestSession(&fakeAuth{})
	if s.State() != StateAnonymous || s.Modal() != ModalClosed || s.IsAuthenticated() {
		t.Fatalf("initial = %v/%v/%v", s.State(), s.Modal(), s.IsAuthenticated())
	}
	if _, ok := s.CurrentUser(); ok {
		t.Fatal("CurrentUser present on a new session")
	}
}

func TestSession_ModalTransitions(t *testing.T) {
	s, _ := newTestSession(&fakeAuth{})

	s.OpenLoginModal()
	if s.Modal() != ModalLogin {
		t.Fatalf("Modal = %v, want login", s.Modal())
	}
	s.SwitchModal()
	if s.Modal() != ModalRegister {
		t.Fatalf("Modal after switch = %v, want register", s.Modal())
	}
	s.SwitchModal()
	if s.Modal() != ModalLogin {
		t.Fatalf("Modal after second switch = %v, want login", s.Modal())
	}
	s.OpenRegisterModal()
	if s.Modal() != ModalRegister {
		t.Fatalf("Modal = %v, want register", s.Modal())
	}
	s.CloseModal()
	if s.Modal() != ModalClosed {
		t.Fatalf("Modal = %v, want closed", s.Modal())
	}
	s.SwitchModal()
	if s.Modal() != ModalClosed {
		t.Fatalf("SwitchModal opened a closed modal: %v", s.Modal())
	}
	if s.State() != StateAnonymous {
		t.Fatalf("modal changes altered state: %v", s.State())
	}
}

func TestSession_LoginSuccess(t *testing.T) {
	fa := &fakeAuth{loginFn: grantA}
	s, durable := newTestSession(fa)
	s.OpenLoginModal()

	id, err := s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("SubmitLogin: %v", err)
	}
	if id != userA {
		t.Errorf("identity = %+v", id)
	}
	if s.State() != StateAuthenticated || !s.IsAuthenticated() {
		t.Errorf("State = %v", s.State())
	}
	if s.Modal() != ModalClosed {
		t.Errorf("Modal = %v, want closed", s.Modal())
	}
	if cur, _ := s.CurrentUser(); cur != userA {
		t.Errorf("CurrentUser = %+v", cur)
	}
	if durable.stored() != "t1" {
		t.Errorf("persisted token = %q, want t1", durable.stored())
	}
}

func TestSession_LoginAgainstHTTPStub(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantState State
		wantModal Modal
		wantErr   error
		wantToken string
	}{
		{
			name:      "200",
			status:    http.StatusOK,
			body:      `{"token":"t1","user":{"id":1,"name":"A","email":"a@b.com"}}`,
			wantState: StateAuthenticated,
			wantModal: ModalClosed,
			wantToken: "t1",
		},
		{
			name:      "401",
			status:    http.StatusUnauthorized,
			body:      `{"message":"invalid credentials"}`,
			wantState: StateAnonymous,
			wantModal: ModalLogin,
			wantErr:   ErrInvalidCredentials,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			durable := &memTokens{}
			store := NewStore(durable)
			gw := NewGateway(api.NewClient(server.URL, store), nil)
			s := NewSession(store, gw, nil)
			s.OpenLoginModal()

			_, err := s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("SubmitLogin: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if s.State() != tt.wantState {
				t.Errorf("State = %v, want %v", s.State(), tt.wantState)
			}
			if s.Modal() != tt.wantModal {
				t.Errorf("Modal = %v, want %v", s.Modal(), tt.wantModal)
			}
			if durable.stored() != tt.wantToken {
				t.Errorf("persisted token = %q, want %q", durable.stored(), tt.wantToken)
			}
		})
	}
}

func TestSession_InvalidInputMakesNoNetworkCall(t *testing.T) {
	fa := &fakeAuth{loginFn: grantA, registerFn: func(context.Context, string, string, string) (Grant, error) {
		return Grant{Identity: userA, Token: "t1"}, nil
	}}
	s, durable := newTestSession(fa)

	logins := []struct {
		in    LoginInput
		field string
	}{
		{LoginInput{Email: "", Password: "secret123"}, FieldEmail},
		{LoginInput{Email: "not-an-email", Password: "secret123"}, FieldEmail},
		{LoginInput{Email: "a@b.com", Password: ""}, FieldPassword},
	}
	for _, tt := range logins {
		_, err := s.SubmitLogin(context.Background(), tt.in)
		if FieldErrors(err)[tt.field] == "" {
			t.Errorf("SubmitLogin(%+v) err = %v, want field %q", tt.in, err, tt.field)
		}
	}

	registers := []struct {
		in    RegisterInput
		field string
	}{
		{RegisterInput{Name: "", Email: "a@b.com", Password: "secret123", ConfirmPassword: "secret123"}, FieldName},
		{RegisterInput{Name: "A", Email: "a@", Password: "secret123", ConfirmPassword: "secret123"}, FieldEmail},
		{RegisterInput{Name: "A", Email: "a@b.com", Password: "short", ConfirmPassword: "short"}, FieldPassword},
		{RegisterInput{Name: "A", Email: "a@b.com", Password: "abc", ConfirmPassword: "xyz"}, FieldConfirmPassword},
	}
	for _, tt := range registers {
		_, err := s.SubmitRegister(context.Background(), tt.in)
		if FieldErrors(err)[tt.field] == "" {
			t.Errorf("SubmitRegister(%+v) err = %v, want field %q", tt.in, err, tt.field)
		}
	}

	if fa.calls() != 0 {
		t.Errorf("gateway calls = %d, want 0", fa.calls())
	}
	if s.IsAuthenticated() || durable.stored() != "" {
		t.Error("session changed by invalid input")
	}
}

func TestSession_RegisterSuccess(t *testing.T) {
	var gotName, gotEmail string
	fa := &fakeAuth{registerFn: func(_ context.Context, name, email, password string) (Grant, error) {
		gotName, gotEmail = name, email
		return Grant{Identity: userA, Token: "t1"}, nil
	}}
	s, durable := newTestSession(fa)
	s.OpenRegisterModal()

	id, err := s.SubmitRegister(context.Background(), RegisterInput{
		Name: "  A ", Email: " a@b.com", Password: "secret123", ConfirmPassword: "secret123",
	})
	if err != nil {
		t.Fatalf("SubmitRegister: %v", err)
	}
	if gotName != "A" || gotEmail != "a@b.com" {
		t.Errorf("sent name %q email %q, want trimmed", gotName, gotEmail)
	}
	if id != userA || !s.IsAuthenticated() || s.Modal() != ModalClosed || durable.stored() != "t1" {
		t.Errorf("after register: id %+v, auth %v, modal %v, token %q", id, s.IsAuthenticated(), s.Modal(), durable.stored())
	}
}

func TestSession_RegisterEmailExists(t *testing.T) {
	fa := &fakeAuth{registerFn: func(context.Context, string, string, string) (Grant, error) {
		return Grant{}, &Error{Kind: KindEmailAlreadyExists, Status: http.StatusConflict}
	}}
	s, _ := newTestSession(fa)
	s.OpenRegisterModal()

	_, err := s.SubmitRegister(context.Background(), RegisterInput{
		Name: "A", Email: "a@b.com", Password: "secret123", ConfirmPassword: "secret123",
	})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("err = %v", err)
	}
	if s.Modal() != ModalRegister || s.State() != StateAnonymous {
		t.Errorf("modal %v state %v, want register/anonymous", s.Modal(), s.State())
	}
}

func TestSession_NetworkErrorKeepsModalOpen(t *testing.T) {
	fa := &fakeAuth{loginFn: func(context.Context, string, string) (Grant, error) {
		return Grant{}, &Error{Kind: KindNetwork, Err: errors.New("connection refused")}
	}}
	s, _ := newTestSession(fa)
	s.OpenLoginModal()

	if _, err := s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"}); !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v", err)
	}
	if s.Modal() != ModalLogin || s.State() != StateAnonymous {
		t.Errorf("modal %v state %v", s.Modal(), s.State())
	}

	// The user may resubmit.
	fa.loginFn = grantA
	if _, err := s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !s.IsAuthenticated() {
		t.Error("resubmit did not authenticate")
	}
}

func TestSession_StorageFailure(t *testing.T) {
	fa := &fakeAuth{loginFn: grantA}
	s, durable := newTestSession(fa)
	durable.saveErr = errors.New("read-only filesystem")
	s.OpenLoginModal()

	_, err := s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"})
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err = %v, want StorageError", err)
	}
	if s.IsAuthenticated() || s.Modal() != ModalLogin {
		t.Errorf("auth %v modal %v", s.IsAuthenticated(), s.Modal())
	}
}

// blockingLogin returns a loginFn that waits for release and a channel that
// is closed once the call has started.
func blockingLogin(release <-chan struct{}, grant Grant) (func(context.Context, string, string) (Grant, error), <-chan struct{}) {
	started := make(chan struct{})
	var once sync.Once
	return func(context.Context, string, string) (Grant, error) {
		once.Do(func() { close(started) })
		<-release
		return grant, nil
	}, started
}

func TestSession_SecondSubmitWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	loginFn, started := blockingLogin(release, Grant{Identity: userA, Token: "t1"})
	fa := &fakeAuth{loginFn: loginFn}
	s, durable := newTestSession(fa)
	s.OpenLoginModal()

	done := make(chan error, 1)
	go func() {
		_, err := s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"})
		done <- err
	}()
	<-started

	if s.State() != StateAuthenticating {
		t.Fatalf("State = %v, want authenticating", s.State())
	}
	if _, err := s.SubmitLogin(context.Background(), LoginInput{Email: "other@b.com", Password: "pw"}); !errors.Is(err, ErrInFlight) {
		t.Fatalf("second submit err = %v, want ErrInFlight", err)
	}
	if _, err := s.SubmitRegister(context.Background(), RegisterInput{
		Name: "B", Email: "b@c.com", Password: "secret123", ConfirmPassword: "secret123",
	}); !errors.Is(err, ErrInFlight) {
		t.Fatalf("register during login err = %v, want ErrInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if fa.logins.Load() != 1 || fa.registers.Load() != 0 {
		t.Errorf("logins %d registers %d, want 1/0", fa.logins.Load(), fa.registers.Load())
	}
	if durable.saves != 1 {
		t.Errorf("token saves = %d, want 1", durable.saves)
	}
	if s.State() != StateAuthenticated {
		t.Errorf("State = %v", s.State())
	}
}

func TestSession_CloseModalDuringFlight(t *testing.T) {
	release := make(chan struct{})
	loginFn, started := blockingLogin(release, Grant{Identity: userA, Token: "t1"})
	s, durable := newTestSession(&fakeAuth{loginFn: loginFn})
	s.OpenLoginModal()

	done := make(chan error, 1)
	go func() {
		_, err := s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"})
		done <- err
	}()
	<-started
	s.CloseModal()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("SubmitLogin: %v", err)
	}
	if !s.IsAuthenticated() || durable.stored() != "t1" {
		t.Error("result not applied after modal closed")
	}
	if s.Modal() != ModalClosed {
		t.Errorf("Modal = %v, want closed", s.Modal())
	}
}

func TestSession_FailureAfterModalClosedDoesNotReopen(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	s, _ := newTestSession(&fakeAuth{loginFn: func(context.Context, string, string) (Grant, error) {
		close(started)
		<-release
		return Grant{}, &Error{Kind: KindInvalidCredentials, Status: 401}
	}})
	s.OpenLoginModal()

	done := make(chan error, 1)
	go func() {
		_, err := s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"})
		done <- err
	}()
	<-started
	s.CloseModal()
	close(release)

	if err := <-done; !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
	if s.Modal() != ModalClosed {
		t.Errorf("Modal = %v, want closed", s.Modal())
	}
}

func TestSession_LogoutDuringFlightDiscardsResult(t *testing.T) {
	release := make(chan struct{})
	loginFn, started := blockingLogin(release, Grant{Identity: userA, Token: "t1"})
	s, durable := newTestSession(&fakeAuth{loginFn: loginFn})

	done := make(chan error, 1)
	go func() {
		_, err := s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"})
		done <- err
	}()
	<-started
	s.Logout()
	close(release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
	if s.IsAuthenticated() || durable.stored() != "" {
		t.Error("logout undone by in-flight login")
	}
}

func TestSession_LogoutClearsEvenWhenNotifyFails(t *testing.T) {
	var gotToken atomic.Value
	fa := &fakeAuth{
		loginFn: grantA,
		logoutFn: func(_ context.Context, token string) error {
			gotToken.Store(token)
			return &Error{Kind: KindNetwork, Err: errors.New("timeout")}
		},
	}
	s, durable := newTestSession(fa)
	s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"})

	s.Logout()
	if s.IsAuthenticated() || s.State() != StateAnonymous || durable.stored() != "" {
		t.Fatal("logout did not clear the session immediately")
	}
	s.Wait()
	if fa.logouts.Load() != 1 {
		t.Errorf("logout calls = %d, want 1", fa.logouts.Load())
	}
	if gotToken.Load() != "t1" {
		t.Errorf("logout token = %v, want t1", gotToken.Load())
	}
}

func TestSession_LogoutHungNotifyDoesNotBlock(t *testing.T) {
	fa := &fakeAuth{
		loginFn: grantA,
		logoutFn: func(ctx context.Context, _ string) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	durable := &memTokens{}
	s := NewSession(NewStore(durable), fa, nil, WithLogoutTimeout(20*time.Millisecond))
	s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"})

	s.Logout()
	if s.IsAuthenticated() || durable.stored() != "" {
		t.Fatal("logout waited on the network")
	}
	s.Wait()
}

func TestSession_LogoutWhenAnonymous(t *testing.T) {
	fa := &fakeAuth{}
	s, _ := newTestSession(fa)
	s.Logout()
	s.Wait()
	if fa.logouts.Load() != 0 {
		t.Errorf("logout notified without a token")
	}
}

func TestSession_RestoreAndValidate(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		fa := &fakeAuth{meFn: func(context.Context) (Identity, error) { return userA, nil }}
		durable := &memTokens{token: "t1"}
		s := NewSession(NewStore(durable), fa, nil)

		if !s.Restore() {
			t.Fatal("Restore = false")
		}
		if !s.IsAuthenticated() || s.State() != StateAuthenticated {
			t.Fatal("not optimistically authenticated")
		}
		if s.Modal() != ModalClosed {
			t.Errorf("Modal = %v", s.Modal())
		}
		if err := s.Validate(context.Background()); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if cur, _ := s.CurrentUser(); cur != userA {
			t.Errorf("CurrentUser = %+v, want confirmed identity", cur)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		fa := &fakeAuth{meFn: func(context.Context) (Identity, error) {
			return Identity{}, &Error{Kind: KindInvalidCredentials, Status: 401}
		}}
		durable := &memTokens{token: "stale"}
		s := NewSession(NewStore(durable), fa, nil)

		s.Restore()
		if err := s.Validate(context.Background()); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Validate err = %v", err)
		}
		if s.IsAuthenticated() || durable.stored() != "" {
			t.Error("rejected token kept")
		}
		if s.Modal() != ModalClosed {
			t.Errorf("Modal = %v, want closed (silent revert)", s.Modal())
		}
	})

	t.Run("network error keeps session", func(t *testing.T) {
		fa := &fakeAuth{meFn: func(context.Context) (Identity, error) {
			return Identity{}, &Error{Kind: KindNetwork}
		}}
		durable := &memTokens{token: "t1"}
		s := NewSession(NewStore(durable), fa, nil)

		s.Restore()
		if err := s.Validate(context.Background()); !errors.Is(err, ErrNetwork) {
			t.Fatalf("Validate err = %v", err)
		}
		if !s.IsAuthenticated() || durable.stored() != "t1" {
			t.Error("session dropped on network error")
		}
	})

	t.Run("nothing persisted", func(t *testing.T) {
		fa := &fakeAuth{}
		s := NewSession(NewStore(&memTokens{}), fa, nil)
		if s.Restore() {
			t.Fatal("Restore = true with empty storage")
		}
		if err := s.Validate(context.Background()); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if fa.calls() != 0 {
			t.Error("network used with no token")
		}
	})
}

func TestSession_ValidateIgnoresReplacedToken(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fa := &fakeAuth{
		loginFn: func(context.Context, string, string) (Grant, error) {
			return Grant{Identity: userA, Token: "fresh"}, nil
		},
		meFn: func(context.Context) (Identity, error) {
			close(started)
			<-release
			return Identity{}, &Error{Kind: KindInvalidCredentials, Status: 401}
		},
	}
	durable := &memTokens{token: "stale"}
	s := NewSession(NewStore(durable), fa, nil)
	s.Restore()

	done := make(chan error, 1)
	go func() { done <- s.Validate(context.Background()) }()
	<-started
	if _, err := s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"}); err != nil {
		t.Fatalf("SubmitLogin: %v", err)
	}
	close(release)
	<-done

	if !s.IsAuthenticated() || durable.stored() != "fresh" {
		t.Error("late validation failure cleared the new session")
	}
}

func TestSession_Expire(t *testing.T) {
	fa := &fakeAuth{loginFn: grantA}
	s, durable := newTestSession(fa)
	if _, err := s.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"}); err != nil {
		t.Fatalf("SubmitLogin: %v", err)
	}

	if s.Expire("some-other-token") {
		t.Fatal("Expire cleared a session holding a different token")
	}
	if !s.IsAuthenticated() {
		t.Fatal("session dropped for a stale token")
	}

	if !s.Expire(s.Token()) {
		t.Fatal("Expire = false for the held token")
	}
	if s.IsAuthenticated() || s.State() != StateAnonymous || durable.stored() != "" {
		t.Error("expired session kept")
	}
	s.Wait()
	if fa.logouts.Load() != 0 {
		t.Error("expire should not notify the API")
	}
}

func TestSession_RoundTripAcrossProcesses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v2xdash.db")

	db, err := cache.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	first := NewSession(NewStore(db), &fakeAuth{loginFn: grantA}, nil)
	if _, err := first.SubmitLogin(context.Background(), LoginInput{Email: "a@b.com", Password: "secret123"}); err != nil {
		t.Fatalf("SubmitLogin: %v", err)
	}
	db.Close()

	db, err = cache.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	fa := &fakeAuth{meFn: func(context.Context) (Identity, error) { return userA, nil }}
	second := NewSession(NewStore(db), fa, nil)
	if !second.Restore() {
		t.Fatal("Restore = false after reopen")
	}
	if err := second.Validate(context.Background()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cur, ok := second.CurrentUser(); !ok || cur != userA {
		t.Errorf("CurrentUser = %+v, %v; want %+v", cur, ok, userA)
	}
}
