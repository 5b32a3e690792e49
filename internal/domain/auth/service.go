package auth

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// ErrInvalidCredentials indicates the supplied administrator password was wrong.
var ErrInvalidCredentials = eris.New("invalid credentials")

// Session is an authenticated administrator session.
type Session struct {
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore persists administrator sessions.
type SessionStore interface {
	Create(ctx context.Context, session Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Service authenticates the single blog administrator.
type Service interface {
	Login(ctx context.Context, password string) (*Session, error)
	Authenticate(ctx context.Context, token string) (bool, error)
	Logout(ctx context.Context, token string) error
}

// Options configures the authentication service.
type Options struct {
	Store         SessionStore
	AdminPassword string
	SessionTTL    time.Duration
	Logger        *logrus.Logger
}

type service struct {
	store    SessionStore
	password []byte
	ttl      time.Duration
	logger   *logrus.Logger
	now      func() time.Time
	newToken func() string
}

var _ Service = (*service)(nil)

// NewService constructs the authentication service.
func NewService(opts Options) (Service, error) {
	if opts.Store == nil {
		return nil, eris.New("session store is required")
	}
	if opts.AdminPassword == "" {
		return nil, eris.New("admin password is required")
	}
	if opts.SessionTTL <= 0 {
		return nil, eris.New("session TTL must be greater than zero")
	}

	return &service{
		store:    opts.Store,
		password: []byte(opts.AdminPassword),
		ttl:      opts.SessionTTL,
		logger:   opts.Logger,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: uuid.NewString,
	}, nil
}

func (s *service) Login(ctx context.Context, password string) (*Session, error) {
	if subtle.ConstantTimeCompare([]byte(password), s.password) != 1 {
		if s.logger != nil {
			s.logger.WithField("component", "auth").Warn("rejected administrator login")
		}
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if removed, err := s.store.DeleteExpired(ctx, now); err != nil {
		return nil, eris.Wrap(err, "pruning expired sessions")
	} else if removed > 0 && s.logger != nil {
		s.logger.WithField("sessions", removed).Debug("pruned expired sessions")
	}

	session := Session{
		Token:     s.newToken(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, eris.Wrap(err, "persisting session")
	}

	if s.logger != nil {
		s.logger.WithField("component", "auth").Info("administrator logged in")
	}

	return &session, nil
}

func (s *service) Authenticate(ctx context.Context, token string) (bool, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return false, nil
	}

	session, err := s.store.Get(ctx, trimmed)
	if err != nil {
		return false, eris.Wrap(err, "loading session")
	}
	if session == nil {
		return false, nil
	}

	return !session.Expired(s.now()), nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil
	}

	if err := s.store.Delete(ctx, trimmed); err != nil {
		return eris.Wrap(err, "deleting session")
	}

	return nil
}
