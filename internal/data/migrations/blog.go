package migrations

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	blogdata "notebook/app/internal/data/blog"
	sessiondata "notebook/app/internal/data/session"
)

const (
	searchTokenizer      = "tokenize=unicode61"
	createSearchIndexSQL = "CREATE VIRTUAL TABLE IF NOT EXISTS " + blogdata.SearchIndexTable + " USING fts4(content, " + searchTokenizer + ")"
)

// MigrateBlog applies the blog schema: Gorm's AutoMigrate for the entries and sessions
// tables, then the full-text search table that Gorm cannot describe.
func MigrateBlog(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "blog.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying blog schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(&blogdata.EntryRecord{}, &sessiondata.Record{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("blog schema migration failed")
		}
		return eris.Wrap(err, "auto migrating blog schema")
	}

	if err := upgradeSearchTokenizer(ctx, db, logger); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("search index upgrade failed")
		}
		return err
	}

	if err := db.WithContext(ctx).Exec(createSearchIndexSQL).Error; err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("search index migration failed")
		}
		return eris.Wrap(err, "creating search index table")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("blog schema migration complete")
	}

	return nil
}

// upgradeSearchTokenizer recreates a search table declared without the unicode61
// tokenizer and refills it from the entries table.
func upgradeSearchTokenizer(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	var definitions []string
	err := db.WithContext(ctx).Table("sqlite_master").
		Where("type = ? AND name = ?", "table", blogdata.SearchIndexTable).
		Pluck("sql", &definitions).Error
	if err != nil {
		return eris.Wrap(err, "reading search index definition")
	}
	if len(definitions) == 0 || strings.Contains(definitions[0], searchTokenizer) {
		return nil
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DROP TABLE " + blogdata.SearchIndexTable).Error; err != nil {
			return eris.Wrap(err, "dropping outdated search index")
		}
		return tx.Exec(createSearchIndexSQL).Error
	})
	if err != nil {
		return eris.Wrap(err, "recreating search index")
	}

	repo, err := blogdata.NewRepository(db, logger)
	if err != nil {
		return err
	}
	count, err := repo.Reindex(ctx)
	if err != nil {
		return eris.Wrap(err, "refilling search index")
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{"component": "blog.migrate", "entries": count}).Info("search index rebuilt with unicode61 tokenizer")
	}
	return nil
}
