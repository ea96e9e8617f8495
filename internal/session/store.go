package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bgv-dashboard/internal/model"
	"bgv-dashboard/internal/util"
)

// The three fixed names every session persists. Nothing else is ever
// written to durable storage for a browser session.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUserData     = "user_data"
)

const keyPrefix = "session:"

// Cache is the durable key-value area behind the store. The production
// implementation is Redis; tests supply an in-memory fake.
type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get reports found=false for a missing key without an error.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Del(ctx context.Context, keys ...string) error
}

// Session is the hydrated authentication state for one browser.
type Session struct {
	ID     string
	User   *model.User
	Tokens *model.Tokens
}

// IsAuthenticated requires both a user record and a token pair.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.User != nil && s.Tokens != nil &&
		s.Tokens.Access != "" && s.Tokens.Refresh != ""
}

// Store persists sessions across requests. Mutations happen only via
// Login, Logout, and Evict; everything else reads.
type Store struct {
	cache      Cache
	defaultTTL time.Duration
	logger     *zap.Logger
}

func NewStore(cache Cache, defaultTTL time.Duration, logger *zap.Logger) *Store {
	return &Store{
		cache:      cache,
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

// Login creates a new session holding the user and token pair and
// returns its ID. A fresh ID is minted on every login; earlier sessions
// are left to expire.
func (s *Store) Login(ctx context.Context, user *model.User, tokens *model.Tokens) (string, error) {
	id := uuid.NewString()
	ttl := s.sessionTTL(tokens.Refresh)

	userData, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to serialize user record: %w", err)
	}

	entries := map[string]string{
		keyAccessToken:  tokens.Access,
		keyRefreshToken: tokens.Refresh,
		keyUserData:     string(userData),
	}
	for name, value := range entries {
		if err := s.cache.Set(ctx, sessionKey(id, name), value, ttl); err != nil {
			// Partial writes are cleaned up so hydration never sees a
			// half-written session.
			_ = s.destroy(ctx, id)
			return "", fmt.Errorf("failed to persist session: %w", err)
		}
	}

	s.logger.Info("session created",
		util.String("user_email", user.Email),
		util.String("role", user.Role),
		util.Duration("ttl", ttl),
	)
	return id, nil
}

// Hydrate loads the session for the given ID. A missing session or a
// corrupt user record yields (nil, nil): the visitor is simply
// unauthenticated, never an error page. Corrupt state is discarded so
// the next request starts clean.
func (s *Store) Hydrate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}

	access, ok, err := s.cache.Get(ctx, sessionKey(id, keyAccessToken))
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	refresh, ok, err := s.cache.Get(ctx, sessionKey(id, keyRefreshToken))
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	userData, ok, err := s.cache.Get(ctx, sessionKey(id, keyUserData))
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var user model.User
	if err := json.Unmarshal([]byte(userData), &user); err != nil {
		s.logger.Warn("discarding session with corrupt user record",
			util.ErrorField(err))
		_ = s.destroy(ctx, id)
		return nil, nil
	}

	return &Session{
		ID:     id,
		User:   &user,
		Tokens: &model.Tokens{Access: access, Refresh: refresh},
	}, nil
}

// Logout removes the session's three keys. Safe to call repeatedly.
func (s *Store) Logout(ctx context.Context, id string) error {
	return s.destroy(ctx, id)
}

// Evict removes a session after the backend rejected its token. It is
// idempotent: concurrent evictions of the same session all succeed.
func (s *Store) Evict(ctx context.Context, id string) error {
	s.logger.Info("session evicted after authentication failure")
	return s.destroy(ctx, id)
}

func (s *Store) destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	err := s.cache.Del(ctx,
		sessionKey(id, keyAccessToken),
		sessionKey(id, keyRefreshToken),
		sessionKey(id, keyUserData),
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// sessionTTL derives the session lifetime from the refresh token's exp
// claim. The signature is not checked here: the backend is the
// authority on token validity, the claim only bounds how long the keys
// stay in storage. Non-JWT tokens fall back to the configured default.
func (s *Store) sessionTTL(refreshToken string) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(refreshToken, claims); err != nil {
		return s.defaultTTL
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return s.defaultTTL
	}
	ttl := time.Until(exp.Time)
	if ttl <= 0 {
		return s.defaultTTL
	}
	return ttl
}

func sessionKey(id, name string) string {
	return keyPrefix + id + ":" + name
}
