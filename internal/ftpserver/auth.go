package ftpserver

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"goftp.io/server/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/driveftp/driveftp/internal/logging"
	"github.com/driveftp/driveftp/internal/metrics"
)

// User is one FTP account as stored in the users file.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"` // bcrypt
}

// UserStore holds FTP accounts and implements server.Auth.
type UserStore struct {
	users map[string]string // username -> bcrypt hash
}

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]string)}
}

// LoadUsers reads a JSON array of users with bcrypt password hashes.
func LoadUsers(path string) (*UserStore, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var users []User
	if err := json.Unmarshal(b, &users); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}
	s := NewUserStore()
	for _, u := range users {
		if u.Username == "" || u.PasswordHash == "" {
			return nil, fmt.Errorf("users file: entry with empty username or password_hash")
		}
		s.users[u.Username] = u.PasswordHash
	}
	return s, nil
}

// AddPassword hashes password and adds (or replaces) the account.
func (s *UserStore) AddPassword(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.users[username] = string(hash)
	return nil
}

// Len returns the number of accounts.
func (s *UserStore) Len() int { return len(s.users) }

// CheckPasswd implements server.Auth.
func (s *UserStore) CheckPasswd(_ *server.Context, username, password string) (bool, error) {
	hash, ok := s.users[username]
	if !ok {
		metrics.RecordFTPLogin(false)
		logging.Warn("ftp login for unknown user", zap.String("user", username))
		return false, nil
	}
	ok = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	metrics.RecordFTPLogin(ok)
	if !ok {
		logging.Warn("ftp login failed", zap.String("user", username))
	}
	return ok, nil
}
