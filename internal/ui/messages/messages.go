package messages

import (
	"github.com/fragmede/v2xdash/internal/api"
	"github.com/fragmede/v2xdash/internal/auth"
)

// Modal transition messages.
type (
	OpenLoginMsg    struct{}
	OpenRegisterMsg struct{}
	CloseModalMsg   struct{}
	LogoutMsg       struct{}
)

// Session messages.
type (
	SessionRestoredMsg struct {
		Restored bool
	}

	// SessionValidatedMsg carries the result of confirming a restored token.
	// Err is nil when the token was accepted.
	SessionValidatedMsg struct {
		Err error
	}

	LoginResultMsg struct {
		Identity auth.Identity
		Err      error
	}

	RegisterResultMsg struct {
		Identity auth.Identity
		Err      error
	}
)

// Data messages.
type (
	// DashboardLoadedMsg carries one fetch result. Expired is set when the
	// API rejected the token and the session was dropped.
	DashboardLoadedMsg struct {
		UserID    string
		Dashboard *api.Dashboard
		Cached    bool
		Expired   bool
		Err       error
	}

	StatusMsg struct {
		Text    string
		IsError bool
	}
)
