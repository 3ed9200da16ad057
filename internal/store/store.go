// Package store persists the OAuth session in a small SQLite key/value
// table. The storage is ephemeral by policy: logout or a detected expiry
// clears every key. The PKCE verifier is stashed here too, since the two
// legs of the login flow run as independent entry points with nothing but
// persisted state between them.
package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyExpiresAt    = "expires_at"
	keyDisplayName  = "display_name"
	keyVerifier     = "pkce_verifier"
)

// Credential holds the tokens for an authenticated session.
//
// Credentials are replaced wholesale, never mutated in place.
type Credential struct {
	AccessToken  string
	RefreshToken string
	DisplayName  string
	ExpiresAt    time.Time
}

// Valid reports whether the credential's expiry is strictly in the future.
func (c Credential) Valid() bool {
	return c.AccessToken != "" && time.Now().Before(c.ExpiresAt)
}

// SessionStore reads and writes session state.
type SessionStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSessionStore creates the session table if needed and returns a store.
func NewSessionStore(db *sql.DB) (*SessionStore, error) {
	schema := `CREATE TABLE IF NOT EXISTS session (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}
	return &SessionStore{db: db}, nil
}

// Save replaces the stored credential wholesale.
func (s *SessionStore) Save(cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pairs := map[string]string{
		keyAccessToken: cred.AccessToken,
		keyExpiresAt:   strconv.FormatInt(cred.ExpiresAt.UnixMilli(), 10),
	}
	if cred.RefreshToken != "" {
		pairs[keyRefreshToken] = cred.RefreshToken
	}
	if cred.DisplayName != "" {
		pairs[keyDisplayName] = cred.DisplayName
	}

	for _, key := range []string{keyAccessToken, keyRefreshToken, keyExpiresAt, keyDisplayName} {
		if _, err := tx.Exec(`DELETE FROM session WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}
	for key, value := range pairs {
		if _, err := tx.Exec(`INSERT INTO session (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Restore reads the stored credential. It returns ok only when the expiry is
// strictly in the future; an expired or partial session is cleared.
func (s *SessionStore) Restore() (Credential, bool, error) {
	s.mu.Lock()
	values, err := s.readAll()
	s.mu.Unlock()
	if err != nil {
		return Credential{}, false, err
	}

	token := values[keyAccessToken]
	millis, parseErr := strconv.ParseInt(values[keyExpiresAt], 10, 64)
	if token == "" || parseErr != nil {
		return Credential{}, false, nil
	}

	cred := Credential{
		AccessToken:  token,
		RefreshToken: values[keyRefreshToken],
		DisplayName:  values[keyDisplayName],
		ExpiresAt:    time.UnixMilli(millis),
	}

	if !cred.Valid() {
		if err := s.Clear(); err != nil {
			return Credential{}, false, err
		}
		return Credential{}, false, nil
	}

	return cred, true, nil
}

// Clear removes every persisted session key, verifier included.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// AccessToken implements the API client's token source: the stored access
// token, if still valid.
func (s *SessionStore) AccessToken() (string, bool) {
	cred, ok, err := s.Restore()
	if err != nil || !ok {
		return "", false
	}
	return cred.AccessToken, true
}

// Authorized reports whether a currently valid credential is stored.
func (s *SessionStore) Authorized() bool {
	_, ok, err := s.Restore()
	return err == nil && ok
}

// SaveVerifier stashes the PKCE verifier between the two login legs.
func (s *SessionStore) SaveVerifier(verifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO session (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		keyVerifier, verifier,
	)
	if err != nil {
		return fmt.Errorf("failed to store verifier: %w", err)
	}
	return nil
}

// Verifier returns the stashed PKCE verifier, or "" when absent.
func (s *SessionStore) Verifier() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var value string
	err := s.db.QueryRow(`SELECT value FROM session WHERE key = ?`, keyVerifier).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read verifier: %w", err)
	}
	return value, nil
}

// ClearVerifier removes the stashed verifier after a completed exchange.
func (s *SessionStore) ClearVerifier() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM session WHERE key = ?`, keyVerifier); err != nil {
		return fmt.Errorf("failed to clear verifier: %w", err)
	}
	return nil
}

func (s *SessionStore) readAll() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM session`)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		values[key] = value
	}
	return values, rows.Err()
}
