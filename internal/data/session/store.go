package session

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domainauth "notebook/app/internal/domain/auth"
)

// Record represents an administrator session persisted in the database.
type Record struct {
	Token     string    `gorm:"primaryKey;size:64"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index:idx_sessions_expires_at"`
}

// TableName defines the table name for the session Record model.
func (Record) TableName() string {
	return "sessions"
}

// Store persists sessions using a Gorm database connection.
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewStore constructs a Gorm-backed session store.
func NewStore(db *gorm.DB, logger *logrus.Logger) (*Store, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &Store{db: db, logger: logger}, nil
}

var _ domainauth.SessionStore = (*Store)(nil)

// Create stores a new session.
func (s *Store) Create(ctx context.Context, session domainauth.Session) error {
	token := strings.TrimSpace(session.Token)
	if token == "" {
		return eris.New("session token is required")
	}

	record := &Record{
		Token:     token,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		s.logError(err, "creating session")
		return eris.Wrap(err, "creating session")
	}

	return nil
}

// Get returns the session for the token or nil when none exists.
func (s *Store) Get(ctx context.Context, token string) (*domainauth.Session, error) {
	var record Record
	err := s.db.WithContext(ctx).First(&record, "token = ?", token).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logError(err, "fetching session")
		return nil, eris.Wrap(err, "fetching session")
	}

	return &domainauth.Session{
		Token:     record.Token,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// Delete removes the session for the token. Deleting an unknown token is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Delete(&Record{}, "token = ?", token).Error; err != nil {
		s.logError(err, "deleting session")
		return eris.Wrap(err, "deleting session")
	}
	return nil
}

// DeleteExpired removes every session that expired before now and returns how many were removed.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Delete(&Record{}, "expires_at <= ?", now)
	if result.Error != nil {
		s.logError(result.Error, "deleting expired sessions")
		return 0, eris.Wrap(result.Error, "deleting expired sessions")
	}
	return result.RowsAffected, nil
}

func (s *Store) logError(err error, message string) {
	if s.logger == nil || err == nil {
		return
	}
	s.logger.WithField("error", err.Error()).WithField("component", "session.store").Error(message)
}
