package cache

import (
	"database/sql"
	"errors"
	"fmt"
)

// TokenKey is the session table key under which the auth token is stored.
const TokenKey = "auth_token"

// LoadToken returns the persisted token. ok is false when none is stored.
func (d *DB) LoadToken() (token string, ok bool, err error) {
	row := d.db.QueryRow(`SELECT value FROM session WHERE key = ?`, TokenKey)
	err = row.Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading token: %w", err)
	}
	return token, token != "", nil
}

// SaveToken replaces the persisted token.
func (d *DB) SaveToken(token string) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO session (key, value) VALUES (?, ?)`, TokenKey, token)
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// DeleteToken erases the persisted token. Deleting a missing token is not
// an error.
func (d *DB) DeleteToken() error {
	if _, err := d.db.Exec(`DELETE FROM session WHERE key = ?`, TokenKey); err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	return nil
}
