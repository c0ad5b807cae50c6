package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akarpov/taskdeck/internal/common"
	"github.com/akarpov/taskdeck/internal/dbx"
	"github.com/akarpov/taskdeck/internal/server/config"
	"github.com/akarpov/taskdeck/internal/server/models"
	"github.com/akarpov/taskdeck/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CredentialKind records which proof of identity a request presented.
type CredentialKind int

const (
	ViaToken CredentialKind = iota
	ViaSession
)

// Credentials is the request-scoped credential material handed to Resolve.
// Either field may be empty.
type Credentials struct {
	BearerToken string
	SessionID   string
}

// Identity is a resolved caller. TokenID is set when Via == ViaToken,
// SessionID when Via == ViaSession.
type Identity struct {
	User      *models.User
	Via       CredentialKind
	TokenID   string
	SessionID string
}

type AuthService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	sessionValidity time.Duration
	bcryptCost      int
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AuthService {
	return &AuthService{
		db:              db,
		repomanager:     m,
		sessionValidity: cfg.SessionValidityDuration,
		bcryptCost:      cfg.BcryptCost,
	}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail lowercases and trims an email address. All storage and
// lookups use the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user and immediately runs the login flow server-side,
// discarding its results. The caller receives only an acknowledgment and
// must call Login explicitly to obtain a usable token. This asymmetry is
// deliberate two-step onboarding, not an oversight.
func (s *AuthService) Register(ctx context.Context, name, email, password, currentSessionID string) error {

	email = NormalizeEmail(email)

	verr := common.NewValidationError()
	if name == "" {
		verr.Add("name", "is required")
	}
	if utf8.RuneCountInString(name) > 100 {
		verr.Add("name", "must not exceed 100 characters")
	}
	if !emailPattern.MatchString(email) {
		verr.Add("email", "must be a valid email address")
	}
	if len(password) < 8 {
		verr.Add("password", "must be at least 8 characters")
	}
	if verr.Empty() {
		if _, err := s.repomanager.Users(s.db).GetByEmail(ctx, email); err == nil {
			verr.Add("email", "has already been taken")
		} else if !errors.Is(err, common.ErrorNotFound) {
			return common.ErrorInternal
		}
	}
	if !verr.Empty() {
		return verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return common.ErrorInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		// Server-side login: a fresh session and token are established, but
		// the token plaintext is dropped on the floor.
		if _, _, err := s.establishCredentials(ctx, tx, user.ID, currentSessionID); err != nil {
			return err
		}
		return nil
	})
}

// Login verifies the password for the normalized email and, on success,
// invalidates the caller's previous session, creates a fresh one, and
// issues a new opaque access token. The plaintext token is returned
// exactly once and is never retrievable again.
func (s *AuthService) Login(ctx context.Context, email, password, currentSessionID string) (string, *models.Session, error) {

	email = NormalizeEmail(email)

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil, common.ErrorInvalidCredentials
		}
		return "", nil, common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return "", nil, common.ErrorInvalidCredentials
	}

	var plaintext string
	var session *models.Session

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		plaintext, session, err = s.establishCredentials(ctx, tx, user.ID, currentSessionID)
		return err
	})
	if err != nil {
		return "", nil, common.ErrorInternal
	}

	return plaintext, session, nil
}

// establishCredentials runs the privileged part of login inside tx:
// the old session id is invalidated before the new session is created
// (session fixation prevention), the anti-forgery token is rotated as a
// side effect of session creation, and a new access token is issued.
func (s *AuthService) establishCredentials(ctx context.Context, tx dbx.DBTX, userID, currentSessionID string) (string, *models.Session, error) {

	sessionsRepo := s.repomanager.Sessions(tx)

	if currentSessionID != "" {
		if err := sessionsRepo.Delete(ctx, currentSessionID); err != nil {
			return "", nil, fmt.Errorf("error invalidating session: %w", err)
		}
	}

	session, err := s.newSession(&userID)
	if err != nil {
		return "", nil, err
	}
	if err := sessionsRepo.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("error creating session: %w", err)
	}

	plaintext, token, err := mintAccessToken(userID)
	if err != nil {
		return "", nil, err
	}
	if err := s.repomanager.AccessTokens(tx).Create(ctx, token); err != nil {
		return "", nil, fmt.Errorf("error creating access token: %w", err)
	}

	return plaintext, session, nil
}

func (s *AuthService) newSession(userID *string) (*models.Session, error) {
	id, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	csrf, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &models.Session{
		ID:        id,
		UserID:    userID,
		CSRFToken: csrf,
		ExpiresAt: time.Now().Add(s.sessionValidity),
	}, nil
}

// mintAccessToken builds a new opaque token. The plaintext takes the form
// "<id>|<secret>"; only the SHA-256 digest of the secret is stored.
func mintAccessToken(userID string) (string, *models.AccessToken, error) {
	secret, err := common.MakeRandHexString(32)
	if err != nil {
		return "", nil, common.ErrorInternal
	}

	token := &models.AccessToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: hashTokenSecret(secret),
		Name:      "api",
	}

	return token.ID + "|" + secret, token, nil
}

func hashTokenSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Resolve turns request credential material into a typed identity. A valid
// bearer token wins over a session; a request with neither proof fails
// with ErrorUnauthenticated.
func (s *AuthService) Resolve(ctx context.Context, creds Credentials) (*Identity, error) {

	if creds.BearerToken != "" {
		identity, err := s.resolveBearer(ctx, creds.BearerToken)
		if err == nil {
			return identity, nil
		}
		if !errors.Is(err, common.ErrorUnauthenticated) {
			return nil, err
		}
	}

	if creds.SessionID != "" {
		return s.resolveSession(ctx, creds.SessionID)
	}

	return nil, common.ErrorUnauthenticated
}

func (s *AuthService) resolveBearer(ctx context.Context, bearer string) (*Identity, error) {
	id, secret, ok := strings.Cut(bearer, "|")
	if !ok {
		return nil, common.ErrorUnauthenticated
	}

	tokensRepo := s.repomanager.AccessTokens(s.db)

	token, err := tokensRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, common.ErrorInternal
	}

	candidate := hashTokenSecret(secret)
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(token.TokenHash)) != 1 {
		return nil, common.ErrorUnauthenticated
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, common.ErrorInternal
	}

	// best effort; a failed touch must not fail the request
	_ = tokensRepo.TouchLastUsed(ctx, token.ID)

	return &Identity{User: user, Via: ViaToken, TokenID: token.ID}, nil
}

func (s *AuthService) resolveSession(ctx context.Context, sessionID string) (*Identity, error) {

	session, err := s.repomanager.Sessions(s.db).Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, common.ErrorInternal
	}

	if session.Expired(time.Now()) || !session.Authenticated() {
		return nil, common.ErrorUnauthenticated
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, *session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, common.ErrorInternal
	}

	return &Identity{User: user, Via: ViaSession, SessionID: session.ID}, nil
}

// Logout revokes the specific proof the caller presented: bearer callers
// lose only that token (sibling tokens stay valid), session callers lose
// the session, whose anti-forgery token dies with it and is rotated by the
// next handshake.
func (s *AuthService) Logout(ctx context.Context, identity *Identity) error {

	switch identity.Via {
	case ViaToken:
		if err := s.repomanager.AccessTokens(s.db).Delete(ctx, identity.TokenID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthenticated
			}
			return common.ErrorInternal
		}
		return nil
	case ViaSession:
		if err := s.repomanager.Sessions(s.db).Delete(ctx, identity.SessionID); err != nil {
			return common.ErrorInternal
		}
		return nil
	}

	return common.ErrorUnauthenticated
}

// EnsureSession is the anti-forgery handshake: it returns the live session
// for the given id, or creates a fresh anonymous one when the id is empty,
// unknown, or expired.
func (s *AuthService) EnsureSession(ctx context.Context, sessionID string) (*models.Session, error) {

	sessionsRepo := s.repomanager.Sessions(s.db)

	if sessionID != "" {
		session, err := sessionsRepo.Get(ctx, sessionID)
		if err == nil && !session.Expired(time.Now()) {
			return session, nil
		}
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInternal
		}
	}

	session, err := s.newSession(nil)
	if err != nil {
		return nil, err
	}
	if err := sessionsRepo.Create(ctx, session); err != nil {
		return nil, common.ErrorInternal
	}

	return session, nil
}

// CheckCSRF validates the anti-forgery token presented by a session-backed
// state-changing request. Bearer-token callers never reach this check.
func (s *AuthService) CheckCSRF(ctx context.Context, sessionID, headerToken string) error {

	if sessionID == "" || headerToken == "" {
		return common.ErrorForgeryCheckFailed
	}

	session, err := s.repomanager.Sessions(s.db).Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorForgeryCheckFailed
		}
		return common.ErrorInternal
	}

	if session.Expired(time.Now()) {
		return common.ErrorForgeryCheckFailed
	}

	if subtle.ConstantTimeCompare([]byte(session.CSRFToken), []byte(headerToken)) != 1 {
		return common.ErrorForgeryCheckFailed
	}

	return nil
}
