package monitor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fragmede/v2xdash/internal/api"
	"github.com/fragmede/v2xdash/internal/auth"
	"github.com/fragmede/v2xdash/internal/ui/messages"
)

// Fetcher loads the dashboard from the platform API.
type Fetcher interface {
	FetchDashboard(ctx context.Context) (*api.Dashboard, error)
}

// SnapshotStore keeps the last dashboard seen per user.
type SnapshotStore interface {
	PutDashboard(userID string, dash *api.Dashboard) error
}

// Sender delivers messages to the UI. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Monitor refreshes the dashboard on an interval while a user is signed in.
type Monitor struct {
	fetcher  Fetcher
	store    SnapshotStore
	session  *auth.Session
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	sender Sender
	stopCh chan struct{}
}

// New creates a stopped monitor.
func New(fetcher Fetcher, store SnapshotStore, session *auth.Session, interval, timeout time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		fetcher:  fetcher,
		store:    store,
		session:  session,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start begins the background refresh loop. It is a no-op if the loop is
// already running.
func (m *Monitor) Start(sender Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		return
	}
	m.sender = sender
	m.stopCh = make(chan struct{})
	go m.loop(m.stopCh)
}

// Stop halts the background refresh loop. It does not wait for an
// in-progress refresh, so it is safe to call from Update. Safe to call
// repeatedly.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	m.stopCh = nil
}

func (m *Monitor) loop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			msg, ok := m.Refresh(context.Background())
			if !ok {
				continue
			}
			select {
			case <-stopCh:
				return
			default:
			}
			m.mu.Lock()
			sender := m.sender
			m.mu.Unlock()
			if sender != nil {
				sender.Send(msg)
			}
		}
	}
}

// Refresh fetches the dashboard once for the signed-in user and caches it.
// ok is false when nobody is signed in. A 401 or 403 from the platform API
// expires the session that made the request.
func (m *Monitor) Refresh(ctx context.Context) (messages.DashboardLoadedMsg, bool) {
	token := m.session.Token()
	user, signedIn := m.session.CurrentUser()
	if !signedIn {
		return messages.DashboardLoadedMsg{}, false
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	dash, err := m.fetcher.FetchDashboard(ctx)
	if err != nil {
		m.logger.Warn("dashboard refresh failed", "error", err)
		msg := messages.DashboardLoadedMsg{UserID: user.ID, Err: err}
		if rejected(err) {
			msg.Expired = m.session.Expire(token)
		}
		return msg, true
	}
	if user.ID != "" {
		if err := m.store.PutDashboard(user.ID, dash); err != nil {
			m.logger.Warn("caching dashboard", "error", err)
		}
	}
	return messages.DashboardLoadedMsg{UserID: user.ID, Dashboard: dash}, true
}

func rejected(err error) bool {
	var se *api.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden
}
