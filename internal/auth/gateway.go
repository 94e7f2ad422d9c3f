package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fragmede/v2xdash/internal/api"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	logoutPath   = "/auth/logout"
	mePath       = "/auth/me"
)

// Gateway is the only component that talks to the identity API. It turns
// transport results into *Error values and never retries.
type Gateway struct {
	client *api.Client
	logger *slog.Logger
}

// NewGateway creates a gateway over client. The client is expected to attach
// the Store's token to every request.
func NewGateway(client *api.Client, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{client: client, logger: logger}
}

type userPayload struct {
	ID    api.ID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u userPayload) identity() Identity {
	return Identity{ID: string(u.ID), Name: u.Name, Email: u.Email}
}

type grantPayload struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

func (g grantPayload) grant() (Grant, error) {
	if g.Token == "" {
		return Grant{}, errors.New("response has no token")
	}
	if g.User.ID == "" {
		return Grant{}, errors.New("response has no user id")
	}
	return Grant{Identity: g.User.identity(), Token: g.Token}, nil
}

// Login exchanges credentials for a session.
func (g *Gateway) Login(ctx context.Context, email, password string) (Grant, error) {
	body := map[string]string{"email": email, "password": password}
	var resp grantPayload
	if err := g.client.Post(ctx, loginPath, body, &resp); err != nil {
		return Grant{}, g.classify("login", err, loginStatus)
	}
	grant, err := resp.grant()
	if err != nil {
		return Grant{}, g.classify("login", fmt.Errorf("%w: %v", api.ErrDecode, err), loginStatus)
	}
	return grant, nil
}

// Register creates an account and returns its session. There is no separate
// confirmation step.
func (g *Gateway) Register(ctx context.Context, name, email, password string) (Grant, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	var resp grantPayload
	if err := g.client.Post(ctx, registerPath, body, &resp); err != nil {
		return Grant{}, g.classify("register", err, registerStatus)
	}
	grant, err := resp.grant()
	if err != nil {
		return Grant{}, g.classify("register", fmt.Errorf("%w: %v", api.ErrDecode, err), registerStatus)
	}
	return grant, nil
}

// Logout tells the API that token is no longer in use. The token is passed
// explicitly because the local session is usually gone by the time this
// runs.
func (g *Gateway) Logout(ctx context.Context, token string) error {
	if err := g.client.Post(ctx, logoutPath, nil, nil, api.WithToken(token)); err != nil {
		return g.classify("logout", err, meStatus)
	}
	return nil
}

// Me returns the identity behind the stored token.
func (g *Gateway) Me(ctx context.Context) (Identity, error) {
	var resp struct {
		userPayload
		User *userPayload `json:"user"`
	}
	if err := g.client.Get(ctx, mePath, &resp); err != nil {
		return Identity{}, g.classify("me", err, meStatus)
	}
	u := resp.userPayload
	if resp.User != nil {
		u = *resp.User
	}
	if u.ID == "" {
		return Identity{}, g.classify("me", fmt.Errorf("%w: response has no user id", api.ErrDecode), meStatus)
	}
	return u.identity(), nil
}

// statusKind maps a non-2xx status to a failure kind for one operation.
type statusKind func(code int) Kind

func loginStatus(code int) Kind {
	switch {
	case code == http.StatusRequestTimeout:
		return KindNetwork
	case code >= 400 && code < 500:
		return KindInvalidCredentials
	default:
		return KindServer
	}
}

func registerStatus(code int) Kind {
	switch code {
	case http.StatusConflict:
		return KindEmailAlreadyExists
	case http.StatusRequestTimeout:
		return KindNetwork
	default:
		return KindServer
	}
}

func meStatus(code int) Kind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindInvalidCredentials
	case http.StatusRequestTimeout:
		return KindNetwork
	default:
		return KindServer
	}
}

func (g *Gateway) classify(op string, err error, byStatus statusKind) error {
	var se *api.StatusError
	switch {
	case errors.As(err, &se):
		kind := byStatus(se.Code)
		if kind == KindServer {
			g.logger.Error("identity api unexpected status",
				"op", op, "status", se.Code, "summary", se.Summary)
		}
		return &Error{Kind: kind, Status: se.Code, Err: err}
	case errors.Is(err, api.ErrDecode):
		g.logger.Error("identity api malformed response", "op", op, "error", err)
		return &Error{Kind: KindServer, Err: err}
	default:
		g.logger.Warn("identity api unreachable", "op", op, "error", err)
		return &Error{Kind: KindNetwork, Err: err}
	}
}
