package ftpserver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestUserStoreCheckPasswd(t *testing.T) {
	s := NewUserStore()
	if err := s.AddPassword("alice", "secret"); err != nil {
		t.Fatalf("add: %v", err)
	}

	ok, err := s.CheckPasswd(nil, "alice", "secret")
	if err != nil || !ok {
		t.Errorf("valid login rejected: ok=%v err=%v", ok, err)
	}
	ok, _ = s.CheckPasswd(nil, "alice", "wrong")
	if ok {
		t.Error("wrong password accepted")
	}
	ok, _ = s.CheckPasswd(nil, "bob", "secret")
	if ok {
		t.Error("unknown user accepted")
	}
}

func TestLoadUsers(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, _ := json.Marshal([]User{{Username: "carol", PasswordHash: string(hash)}})

	path := filepath.Join(t.TempDir(), "users.json")
	if err := os.WriteFile(path, b, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := LoadUsers(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 user, got %d", s.Len())
	}
	if ok, _ := s.CheckPasswd(nil, "carol", "hunter2"); !ok {
		t.Error("loaded user cannot log in")
	}
}

func TestLoadUsersRejectsEmptyFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	if err := os.WriteFile(path, []byte(`[{"username": "", "password_hash": "x"}]`), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadUsers(path); err == nil {
		t.Error("expected error for empty username")
	}
}
