package service

import (
	"context"

	"go.uber.org/zap"

	"bgv-dashboard/internal/audit"
	"bgv-dashboard/internal/client"
	"bgv-dashboard/internal/model"
	"bgv-dashboard/internal/session"
	"bgv-dashboard/internal/util"
)

// AuthService wires the backend login endpoint to the session store.
type AuthService struct {
	backend  *client.BackendClient
	sessions *session.Store
	audit    *audit.Publisher
	logger   *zap.Logger
}

func NewAuthService(backend *client.BackendClient, sessions *session.Store, auditor *audit.Publisher, logger *zap.Logger) *AuthService {
	return &AuthService{
		backend:  backend,
		sessions: sessions,
		audit:    auditor,
		logger:   logger,
	}
}

// Login authenticates against the backend and persists a new session.
// The returned session ID goes into the browser cookie.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	data, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	id, err := s.sessions.Login(ctx, &data.User, &data.Tokens)
	if err != nil {
		return "", nil, err
	}

	s.audit.Publish(ctx, audit.Event{
		Action:    audit.ActionUserLogin,
		UserEmail: data.User.Email,
		UserRole:  data.User.Role,
	})
	s.logger.Info("user logged in",
		util.String("email", data.User.Email),
		util.String("role", data.User.Role),
	)
	return id, &data.User, nil
}

// Logout drops the session's durable keys.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session) error {
	if err := s.sessions.Logout(ctx, sess.ID); err != nil {
		return err
	}
	s.audit.Publish(ctx, audit.Event{
		Action:    audit.ActionUserLogout,
		UserEmail: sess.User.Email,
		UserRole:  sess.User.Role,
	})
	return nil
}

// EvictSession removes a session whose token the backend rejected.
// It is safe to call for sessions already gone.
func (s *AuthService) EvictSession(ctx context.Context, id string) {
	if err := s.sessions.Evict(ctx, id); err != nil {
		s.logger.Warn("session eviction failed", util.ErrorField(err))
	}
	s.audit.Publish(ctx, audit.Event{Action: audit.ActionSessionEvicted})
}
