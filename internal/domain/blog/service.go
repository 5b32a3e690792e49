package blog

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Service defines the blog operations offered to the presentation layer and the CLI.
type Service interface {
	CreateOrUpdateEntry(ctx context.Context, input EntryInput) (*Entry, error)
	GetBySlug(ctx context.Context, slug string) (*Entry, error)
	ListPublic(ctx context.Context) ([]Entry, error)
	ListDrafts(ctx context.Context) ([]Entry, error)
	Search(ctx context.Context, text string) ([]SearchResult, error)
	DeleteEntry(ctx context.Context, slug string) error
	Reindex(ctx context.Context) (int, error)
}

type service struct {
	repo      Repository
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Service = (*service)(nil)

// NewService wires the blog service with its dependencies.
func NewService(repo Repository, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if repo == nil {
		return nil, eris.New("blog repository is required")
	}

	return &service{
		repo:      repo,
		logger:    logger,
		sentryHub: hub,
	}, nil
}

func (s *service) CreateOrUpdateEntry(ctx context.Context, input EntryInput) (*Entry, error) {
	entry := &Entry{
		ID:        input.ID,
		Title:     strings.TrimSpace(input.Title),
		Slug:      strings.TrimSpace(input.Slug),
		Content:   input.Content,
		Published: input.Published,
		Timestamp: input.Timestamp,
	}

	fields := logrus.Fields{"entry_id": entry.ID, "slug": entry.Slug}

	// Editing keeps the existing permalink unless a new slug is supplied.
	if entry.ID != 0 && entry.Slug == "" {
		existing, err := s.repo.GetByID(ctx, entry.ID)
		if err != nil {
			s.recordError(fields, err, "loading entry for update")
			return nil, eris.Wrapf(err, "loading entry %d", entry.ID)
		}
		if existing == nil {
			err := eris.Wrapf(ErrNotFound, "entry %d", entry.ID)
			s.recordError(fields, err, "loading entry for update")
			return nil, err
		}
		entry.Slug = existing.Slug
	}

	if err := s.repo.SaveEntryAndIndex(ctx, entry); err != nil {
		s.recordError(fields, err, "saving entry")
		return nil, eris.Wrap(err, "saving entry")
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"entry_id":  entry.ID,
			"slug":      entry.Slug,
			"published": entry.Published,
		}).Info("entry saved")
	}

	return entry, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*Entry, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, eris.Wrap(ErrInvalidEntry, "slug is required")
	}

	entry, err := s.repo.GetBySlug(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"slug": trimmed}, err, "retrieving entry from repository")
		return nil, eris.Wrapf(err, "retrieving entry: %s", trimmed)
	}

	if entry == nil {
		return nil, eris.Wrapf(ErrNotFound, "slug %s", trimmed)
	}

	return entry, nil
}

func (s *service) ListPublic(ctx context.Context) ([]Entry, error) {
	entries, err := s.repo.ListPublic(ctx)
	if err != nil {
		s.recordError(nil, err, "listing public entries")
		return nil, eris.Wrap(err, "listing public entries")
	}
	return entries, nil
}

func (s *service) ListDrafts(ctx context.Context) ([]Entry, error) {
	entries, err := s.repo.ListDrafts(ctx)
	if err != nil {
		s.recordError(nil, err, "listing drafts")
		return nil, eris.Wrap(err, "listing drafts")
	}
	return entries, nil
}

func (s *service) Search(ctx context.Context, text string) ([]SearchResult, error) {
	normalized := NormalizeQuery(text)

	results, err := s.repo.Search(ctx, normalized)
	if err != nil {
		s.recordError(logrus.Fields{"query": normalized}, err, "searching entries")
		return nil, eris.Wrap(err, "searching entries")
	}

	return results, nil
}

func (s *service) DeleteEntry(ctx context.Context, slug string) error {
	entry, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteEntryAndIndex(ctx, entry.ID); err != nil {
		s.recordError(logrus.Fields{"entry_id": entry.ID, "slug": entry.Slug}, err, "deleting entry")
		return eris.Wrapf(err, "deleting entry: %s", entry.Slug)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"entry_id": entry.ID, "slug": entry.Slug}).Info("entry deleted")
	}

	return nil
}

func (s *service) Reindex(ctx context.Context) (int, error) {
	count, err := s.repo.Reindex(ctx)
	if err != nil {
		s.recordError(nil, err, "rebuilding search index")
		return 0, eris.Wrap(err, "rebuilding search index")
	}

	if s.logger != nil {
		s.logger.WithField("entries", count).Info("search index rebuilt")
	}

	return count, nil
}

// IsExpected reports whether err is an outcome callers are expected to handle
// rather than a storage fault.
func IsExpected(err error) bool {
	return eris.Is(err, ErrNotFound) || eris.Is(err, ErrConstraintViolation) || eris.Is(err, ErrInvalidEntry)
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	expected := IsExpected(err)

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		if expected {
			entry.Warn(message)
		} else {
			entry.Error(message)
		}
	}

	if s.sentryHub != nil && !expected {
		s.sentryHub.CaptureException(err)
	}
}
