package blog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domainblog "notebook/app/internal/domain/blog"
)

// Repository persists blog entries and their search index using a Gorm database connection.
type Repository struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*Repository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &Repository{db: db, logger: logger, now: utcNow}, nil
}

var _ domainblog.Repository = (*Repository)(nil)

// SaveEntryAndIndex inserts or updates the entry and its search record in one transaction.
// On success the entry carries its assigned ID, final slug and timestamp.
func (r *Repository) SaveEntryAndIndex(ctx context.Context, entry *domainblog.Entry) error {
	if entry == nil {
		return eris.New("entry is nil")
	}

	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return eris.Wrap(domainblog.ErrInvalidEntry, "entry title is required")
	}

	slugSource := strings.TrimSpace(entry.Slug)
	if slugSource == "" {
		slugSource = title
	}
	slug := domainblog.Slugify(slugSource)
	if slug == "" {
		return eris.Wrapf(domainblog.ErrInvalidEntry, "no slug can be derived from %q", slugSource)
	}

	record := EntryRecord{
		ID:        entry.ID,
		Title:     title,
		Slug:      slug,
		Content:   entry.Content,
		Published: entry.Published,
		Timestamp: entry.Timestamp,
	}

	fields := logrus.Fields{"entry_id": record.ID, "slug": slug}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.writeEntry(tx, &record); err != nil {
			return err
		}

		text := domainblog.IndexedText(*toDomainEntry(&record))
		if err := upsertSearchRecord(tx, record.ID, text); err != nil {
			return r.indexFailure(logrus.Fields{"entry_id": record.ID, "slug": slug}, err, "updating search record")
		}

		return nil
	})
	if err != nil {
		if !domainblog.IsExpected(err) {
			r.logError(fields, err, "saving entry and search record")
		}
		return err
	}

	*entry = *toDomainEntry(&record)
	return nil
}

func (r *Repository) writeEntry(tx *gorm.DB, record *EntryRecord) error {
	if record.ID == 0 {
		if record.Timestamp.IsZero() {
			record.Timestamp = r.now()
		}
		record.Timestamp = record.Timestamp.UTC()
		if err := tx.Create(record).Error; err != nil {
			return translateWriteError(err, record.Slug)
		}
		return nil
	}

	var existing EntryRecord
	if err := tx.First(&existing, record.ID).Error; err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return eris.Wrapf(domainblog.ErrNotFound, "entry %d", record.ID)
		}
		return eris.Wrapf(err, "loading entry %d", record.ID)
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = existing.Timestamp
	}
	// Timestamps are stored as text, so only a single zone keeps ORDER BY chronological.
	record.Timestamp = record.Timestamp.UTC()

	if err := tx.Save(record).Error; err != nil {
		return translateWriteError(err, record.Slug)
	}

	return nil
}

func translateWriteError(err error, slug string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
		return eris.Wrapf(domainblog.ErrConstraintViolation, "slug %s", slug)
	}
	return eris.Wrapf(err, "writing entry: %s", slug)
}

// DeleteEntryAndIndex removes the entry and its search record in one transaction.
func (r *Repository) DeleteEntryAndIndex(ctx context.Context, id uint) error {
	if id == 0 {
		return eris.Wrap(domainblog.ErrInvalidEntry, "entry id is required")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&EntryRecord{}, id)
		if result.Error != nil {
			return eris.Wrapf(result.Error, "deleting entry %d", id)
		}
		if result.RowsAffected == 0 {
			return eris.Wrapf(domainblog.ErrNotFound, "entry %d", id)
		}

		if err := deleteSearchRecord(tx, id); err != nil {
			return r.indexFailure(logrus.Fields{"entry_id": id}, err, "deleting search record")
		}

		return nil
	})
	if err != nil && !domainblog.IsExpected(err) {
		r.logError(logrus.Fields{"entry_id": id}, err, "deleting entry and search record")
	}

	return err
}

// GetBySlug returns the entry for the provided slug or nil when not found.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*domainblog.Entry, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, eris.New("slug is required")
	}

	var record EntryRecord
	err := r.db.WithContext(ctx).First(&record, "slug = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"slug": trimmed}, err, "fetching entry by slug")
		return nil, eris.Wrapf(err, "fetching entry by slug: %s", trimmed)
	}

	return toDomainEntry(&record), nil
}

// GetByID returns the entry with the provided identifier or nil when not found.
func (r *Repository) GetByID(ctx context.Context, id uint) (*domainblog.Entry, error) {
	var record EntryRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"entry_id": id}, err, "fetching entry by id")
		return nil, eris.Wrapf(err, "fetching entry by id: %d", id)
	}

	return toDomainEntry(&record), nil
}

// ListPublic returns published entries, newest first.
func (r *Repository) ListPublic(ctx context.Context) ([]domainblog.Entry, error) {
	return r.listByPublished(ctx, true)
}

// ListDrafts returns unpublished entries, newest first.
func (r *Repository) ListDrafts(ctx context.Context) ([]domainblog.Entry, error) {
	return r.listByPublished(ctx, false)
}

func (r *Repository) listByPublished(ctx context.Context, published bool) ([]domainblog.Entry, error) {
	var records []EntryRecord

	err := r.db.WithContext(ctx).
		Where("published = ?", published).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&records).Error
	if err != nil {
		r.logError(logrus.Fields{"published": published}, err, "listing entries")
		return nil, eris.Wrap(err, "listing entries")
	}

	return toDomainEntries(records), nil
}

// Search returns published entries matching every token of the normalised query,
// ordered by relevance. An empty query matches nothing.
func (r *Repository) Search(ctx context.Context, normalizedQuery string) ([]domainblog.SearchResult, error) {
	expression := matchExpression(normalizedQuery)

	var scored []scoredEntryRecord
	var err error
	if expression == "" {
		// Entry ids start at 1, so this keeps the result shape while matching nothing.
		err = r.db.WithContext(ctx).
			Model(&EntryRecord{}).
			Select("entries.*, 0.0 AS score").
			Where("entries.id = ?", 0).
			Scan(&scored).Error
	} else {
		err = r.db.WithContext(ctx).Raw(rankedSearchSQL, true, expression).Scan(&scored).Error
	}
	if err != nil {
		r.logError(logrus.Fields{"query": normalizedQuery}, err, "searching entries")
		return nil, eris.Wrapf(err, "searching entries: %s", normalizedQuery)
	}

	results := make([]domainblog.SearchResult, 0, len(scored))
	for i := range scored {
		results = append(results, domainblog.SearchResult{
			Entry: *toDomainEntry(&scored[i].EntryRecord),
			Score: scored[i].Score,
		})
	}

	return results, nil
}

// IndexRecord returns the search record stored for the entry or nil when absent.
func (r *Repository) IndexRecord(ctx context.Context, entryID uint) (*domainblog.IndexRecord, error) {
	record, err := findSearchRecord(r.db.WithContext(ctx), entryID)
	if err != nil {
		r.logError(logrus.Fields{"entry_id": entryID}, err, "reading search record")
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	return &domainblog.IndexRecord{EntryID: record.EntryID, IndexedText: record.Content}, nil
}

// Reindex rebuilds the search index from the entries table and returns the number of
// entries indexed.
func (r *Repository) Reindex(ctx context.Context) (int, error) {
	var count int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM " + SearchIndexTable).Error; err != nil {
			return eris.Wrap(err, "clearing search index")
		}

		var records []EntryRecord
		if err := tx.Order("id ASC").Find(&records).Error; err != nil {
			return eris.Wrap(err, "loading entries for reindex")
		}

		for i := range records {
			text := domainblog.IndexedText(*toDomainEntry(&records[i]))
			if err := upsertSearchRecord(tx, records[i].ID, text); err != nil {
				return r.indexFailure(logrus.Fields{"entry_id": records[i].ID}, err, "rebuilding search record")
			}
		}

		count = len(records)
		return nil
	})
	if err != nil {
		r.logError(nil, err, "rebuilding search index")
		return 0, err
	}

	return count, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// indexFailure logs the underlying search index error and returns ErrIndexInconsistency
// carrying its message.
func (r *Repository) indexFailure(fields logrus.Fields, err error, action string) error {
	r.logError(fields, err, action+" failed")
	return eris.Wrapf(domainblog.ErrIndexInconsistency, "%s: %v", action, err)
}

func (r *Repository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func toDomainEntry(record *EntryRecord) *domainblog.Entry {
	if record == nil {
		return nil
	}

	return &domainblog.Entry{
		ID:        record.ID,
		Title:     record.Title,
		Slug:      record.Slug,
		Content:   record.Content,
		Published: record.Published,
		Timestamp: record.Timestamp,
	}
}

func toDomainEntries(records []EntryRecord) []domainblog.Entry {
	entries := make([]domainblog.Entry, 0, len(records))
	for i := range records {
		entries = append(entries, *toDomainEntry(&records[i]))
	}
	return entries
}
