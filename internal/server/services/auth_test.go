package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/akarpov/taskdeck/internal/common"
	"github.com/akarpov/taskdeck/internal/server/config"
	"github.com/akarpov/taskdeck/internal/server/models"
	"github.com/akarpov/taskdeck/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T, db *sql.DB, rm repomanager.RepositoryManager) *AuthService {
	t.Helper()
	cfg := &config.Config{
		SessionValidityDuration: 2 * time.Hour,
		BcryptCost:              bcrypt.MinCost,
	}
	return NewAuthService(db, rm, cfg)
}

func seedUser(t *testing.T, rm *fakeRepoManager, id, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	u := &models.User{ID: id, Name: "Alice", Email: email, PasswordHash: hash}
	rm.users.users[id] = u
	return u
}

func TestRegister_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm)

	err := s.Register(context.Background(), "Alice", "Alice@Example.com ", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if len(rm.users.users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(rm.users.users))
	}
	for _, u := range rm.users.users {
		if u.Email != "alice@example.com" {
			t.Errorf("email not normalized: %q", u.Email)
		}
		if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte("s3cret-pass")) != nil {
			t.Errorf("stored hash does not verify")
		}
	}

	// login ran server-side: a session and a token exist even though the
	// caller got neither back
	if len(rm.sessions.sessions) != 1 {
		t.Errorf("expected 1 session, got %d", len(rm.sessions.sessions))
	}
	if len(rm.tokens.tokens) != 1 {
		t.Errorf("expected 1 access token, got %d", len(rm.tokens.tokens))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRegister_NameLimitCountsRunes(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := newFakeRepoManager()
	s := newAuthService(t, db, rm)

	// 100 two-byte runes: over the limit in bytes, exactly at it in runes.
	name := strings.Repeat("ж", 100)
	if err := s.Register(context.Background(), name, "zh@example.com", "longenough", ""); err != nil {
		t.Fatalf("100-rune name must be accepted: %v", err)
	}

	err := s.Register(context.Background(), name+"ж", "zh2@example.com", "longenough", "")
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("101-rune name must be rejected, got %v", err)
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	seedUser(t, rm, "u1", "taken@example.com", "whatever1")
	s := newAuthService(t, db, rm)

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		field    string
	}{
		{"empty name", "", "a@b.io", "longenough", "name"},
		{"bad email", "Alice", "not-an-email", "longenough", "email"},
		{"short password", "Alice", "a@b.io", "short", "password"},
		{"duplicate email", "Alice", "taken@example.com", "longenough", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Register(context.Background(), tt.userName, tt.email, tt.password, "")
			if !errors.Is(err, common.ErrorValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var verr *common.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("expected error on field %q, got %v", tt.field, verr.Fields)
			}
		})
	}
}

func TestLogin_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := newFakeRepoManager()
	user := seedUser(t, rm, "u1", "alice@example.com", "s3cret-pass")
	s := newAuthService(t, db, rm)

	plaintext, session, err := s.Login(context.Background(), "ALICE@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	id, secret, ok := strings.Cut(plaintext, "|")
	if !ok || id == "" || secret == "" {
		t.Fatalf("token plaintext has wrong shape: %q", plaintext)
	}
	stored, okTok := rm.tokens.tokens[id]
	if !okTok {
		t.Fatalf("token %q not stored", id)
	}
	if stored.TokenHash == secret {
		t.Errorf("secret stored in plaintext")
	}
	if stored.TokenHash != hashTokenSecret(secret) {
		t.Errorf("stored hash does not match secret digest")
	}

	if !session.Authenticated() || *session.UserID != user.ID {
		t.Errorf("session not bound to user: %+v", session)
	}
	if session.CSRFToken == "" {
		t.Errorf("session missing anti-forgery token")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLogin_InvalidatesPreviousSession(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := newFakeRepoManager()
	seedUser(t, rm, "u1", "alice@example.com", "s3cret-pass")
	rm.sessions.sessions["old-session"] = &models.Session{ID: "old-session", ExpiresAt: time.Now().Add(time.Hour)}
	s := newAuthService(t, db, rm)

	_, session, err := s.Login(context.Background(), "alice@example.com", "s3cret-pass", "old-session")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	if _, ok := rm.sessions.sessions["old-session"]; ok {
		t.Errorf("pre-login session survived")
	}
	if session.ID == "old-session" {
		t.Errorf("session id not rotated")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	seedUser(t, rm, "u1", "alice@example.com", "s3cret-pass")
	s := newAuthService(t, db, rm)

	if _, _, err := s.Login(context.Background(), "alice@example.com", "wrong-pass", ""); !errors.Is(err, common.ErrorInvalidCredentials) {
		t.Errorf("wrong password: expected ErrorInvalidCredentials, got %v", err)
	}
	if _, _, err := s.Login(context.Background(), "nobody@example.com", "s3cret-pass", ""); !errors.Is(err, common.ErrorInvalidCredentials) {
		t.Errorf("unknown email: expected ErrorInvalidCredentials, got %v", err)
	}
	if len(rm.tokens.tokens) != 0 {
		t.Errorf("failed login must not mint tokens")
	}
}

func TestResolve_BearerToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := newFakeRepoManager()
	user := seedUser(t, rm, "u1", "alice@example.com", "s3cret-pass")
	s := newAuthService(t, db, rm)

	plaintext, _, err := s.Login(context.Background(), "alice@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	identity, err := s.Resolve(context.Background(), Credentials{BearerToken: plaintext})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if identity.Via != ViaToken {
		t.Errorf("expected ViaToken, got %v", identity.Via)
	}
	if identity.User.ID != user.ID {
		t.Errorf("wrong user resolved: %v", identity.User.ID)
	}
	if len(rm.tokens.touched) != 1 {
		t.Errorf("last_used not touched")
	}
}

func TestResolve_BearerWinsOverSession(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := newFakeRepoManager()
	seedUser(t, rm, "u1", "alice@example.com", "s3cret-pass")
	s := newAuthService(t, db, rm)

	plaintext, session, err := s.Login(context.Background(), "alice@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	identity, err := s.Resolve(context.Background(), Credentials{BearerToken: plaintext, SessionID: session.ID})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if identity.Via != ViaToken {
		t.Errorf("token must take precedence over session, got %v", identity.Via)
	}
}

func TestResolve_RejectsBadCredentials(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	userID := "u1"
	seedUser(t, rm, userID, "alice@example.com", "s3cret-pass")
	rm.tokens.tokens["t1"] = &models.AccessToken{ID: "t1", UserID: userID, TokenHash: hashTokenSecret("real-secret")}
	rm.sessions.sessions["anon"] = &models.Session{ID: "anon", CSRFToken: "c", ExpiresAt: time.Now().Add(time.Hour)}
	rm.sessions.sessions["stale"] = &models.Session{ID: "stale", UserID: &userID, CSRFToken: "c", ExpiresAt: time.Now().Add(-time.Minute)}

	s := newAuthService(t, db, rm)

	tests := []struct {
		name  string
		creds Credentials
	}{
		{"no credentials", Credentials{}},
		{"malformed bearer", Credentials{BearerToken: "no-separator"}},
		{"unknown token id", Credentials{BearerToken: "zzz|real-secret"}},
		{"wrong secret", Credentials{BearerToken: "t1|forged-secret"}},
		{"unknown session", Credentials{SessionID: "missing"}},
		{"anonymous session", Credentials{SessionID: "anon"}},
		{"expired session", Credentials{SessionID: "stale"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Resolve(context.Background(), tt.creds); !errors.Is(err, common.ErrorUnauthenticated) {
				t.Errorf("expected ErrorUnauthenticated, got %v", err)
			}
		})
	}
}

func TestLogout_TokenRevokesOnlyItself(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	user := seedUser(t, rm, "u1", "alice@example.com", "s3cret-pass")
	rm.tokens.tokens["t1"] = &models.AccessToken{ID: "t1", UserID: user.ID, TokenHash: "h1"}
	rm.tokens.tokens["t2"] = &models.AccessToken{ID: "t2", UserID: user.ID, TokenHash: "h2"}
	s := newAuthService(t, db, rm)

	err := s.Logout(context.Background(), &Identity{User: user, Via: ViaToken, TokenID: "t1"})
	if err != nil {
		t.Fatalf("Logout error: %v", err)
	}

	if _, ok := rm.tokens.tokens["t1"]; ok {
		t.Errorf("presented token not revoked")
	}
	if _, ok := rm.tokens.tokens["t2"]; !ok {
		t.Errorf("sibling token must survive")
	}
}

func TestLogout_SessionDestroysSession(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	user := seedUser(t, rm, "u1", "alice@example.com", "s3cret-pass")
	rm.sessions.sessions["s1"] = &models.Session{ID: "s1", UserID: &user.ID, CSRFToken: "c", ExpiresAt: time.Now().Add(time.Hour)}
	s := newAuthService(t, db, rm)

	err := s.Logout(context.Background(), &Identity{User: user, Via: ViaSession, SessionID: "s1"})
	if err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if _, ok := rm.sessions.sessions["s1"]; ok {
		t.Errorf("session survived logout")
	}
}

func TestEnsureSession(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	live := &models.Session{ID: "live", CSRFToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	rm.sessions.sessions["live"] = live
	rm.sessions.sessions["stale"] = &models.Session{ID: "stale", CSRFToken: "old", ExpiresAt: time.Now().Add(-time.Minute)}
	s := newAuthService(t, db, rm)

	got, err := s.EnsureSession(context.Background(), "live")
	if err != nil {
		t.Fatalf("EnsureSession error: %v", err)
	}
	if got.ID != "live" || got.CSRFToken != "tok" {
		t.Errorf("live session must be kept as is, got %+v", got)
	}

	for _, id := range []string{"", "unknown", "stale"} {
		got, err := s.EnsureSession(context.Background(), id)
		if err != nil {
			t.Fatalf("EnsureSession(%q) error: %v", id, err)
		}
		if got.ID == id || got.CSRFToken == "" || got.Authenticated() {
			t.Errorf("EnsureSession(%q) must mint a fresh anonymous session, got %+v", id, got)
		}
	}
}

func TestCheckCSRF(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	rm.sessions.sessions["s1"] = &models.Session{ID: "s1", CSRFToken: "expected", ExpiresAt: time.Now().Add(time.Hour)}
	rm.sessions.sessions["stale"] = &models.Session{ID: "stale", CSRFToken: "expected", ExpiresAt: time.Now().Add(-time.Minute)}
	s := newAuthService(t, db, rm)

	if err := s.CheckCSRF(context.Background(), "s1", "expected"); err != nil {
		t.Errorf("matching token rejected: %v", err)
	}

	tests := []struct {
		name      string
		sessionID string
		header    string
	}{
		{"mismatched token", "s1", "forged"},
		{"missing header", "s1", ""},
		{"no session", "", "expected"},
		{"unknown session", "ghost", "expected"},
		{"expired session", "stale", "expected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.CheckCSRF(context.Background(), tt.sessionID, tt.header); !errors.Is(err, common.ErrorForgeryCheckFailed) {
				t.Errorf("expected ErrorForgeryCheckFailed, got %v", err)
			}
		})
	}
}
