package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/fragmede/v2xdash/internal/api"
)

// GetDashboard retrieves the cached dashboard for a user. Returns
// (dashboard, isFresh, error); dashboard is nil on cache miss.
func (d *DB) GetDashboard(userID string, ttl time.Duration) (*api.Dashboard, bool, error) {
	row := d.db.QueryRow(`SELECT payload, fetched_at FROM dashboard_snapshots WHERE user_id = ?`, userID)

	var payload string
	var fetchedAt int64
	err := row.Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var dash api.Dashboard
	if err := json.Unmarshal([]byte(payload), &dash); err != nil {
		return nil, false, err
	}

	isFresh := time.Since(time.Unix(fetchedAt, 0)) < ttl
	return &dash, isFresh, nil
}

// PutDashboard stores a dashboard snapshot for a user.
func (d *DB) PutDashboard(userID string, dash *api.Dashboard) error {
	payload, err := json.Marshal(dash)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`INSERT OR REPLACE INTO dashboard_snapshots (user_id, payload, fetched_at) VALUES (?, ?, ?)`,
		userID, string(payload), time.Now().Unix())
	return err
}

// ClearDashboards drops every cached snapshot.
func (d *DB) ClearDashboards() error {
	_, err := d.db.Exec(`DELETE FROM dashboard_snapshots`)
	return err
}
