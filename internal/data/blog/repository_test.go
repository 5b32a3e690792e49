package blog_test

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	blogdata "notebook/app/internal/data/blog"
	"notebook/app/internal/data/database"
	"notebook/app/internal/data/migrations"
	domainblog "notebook/app/internal/domain/blog"
)

func TestNewRepositoryRequiresDatabase(t *testing.T) {
	t.Parallel()

	if _, err := blogdata.NewRepository(nil, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestSaveEntryAndIndexDerivesSlugAndIndexes(t *testing.T) {
	t.Parallel()

	repo, gormDB := setupRepository(t)
	ctx := context.Background()

	entry := &domainblog.Entry{Title: "Hello World!", Content: "First post", Published: true}
	if err := repo.SaveEntryAndIndex(ctx, entry); err != nil {
		t.Fatalf("SaveEntryAndIndex returned error: %v", err)
	}

	if entry.ID == 0 {
		t.Fatalf("expected entry id to be assigned")
	}
	if entry.Slug != "hello-world" {
		t.Fatalf("expected slug hello-world, got %q", entry.Slug)
	}
	if entry.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to default to write time")
	}

	record, err := repo.IndexRecord(ctx, entry.ID)
	if err != nil {
		t.Fatalf("IndexRecord returned error: %v", err)
	}
	if record == nil {
		t.Fatalf("expected search record to exist")
	}
	if record.IndexedText != "Hello World!\nFirst post" {
		t.Fatalf("expected indexed text to join title and content, got %q", record.IndexedText)
	}

	public, err := repo.ListPublic(ctx)
	if err != nil {
		t.Fatalf("ListPublic returned error: %v", err)
	}
	if len(public) != 1 || public[0].Slug != "hello-world" {
		t.Fatalf("expected hello-world in public entries, got %#v", public)
	}

	results, err := repo.Search(ctx, "hello")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 search result, got %d", len(results))
	}
	if results[0].Entry.ID != entry.ID {
		t.Fatalf("expected entry %d in results, got %d", entry.ID, results[0].Entry.ID)
	}
	if results[0].Score <= 0 {
		t.Fatalf("expected positive score, got %v", results[0].Score)
	}

	assertRowCounts(t, gormDB, entry.ID, 1, 1)
}

func TestSaveEntryAndIndexIsIdempotent(t *testing.T) {
	t.Parallel()

	repo, gormDB := setupRepository(t)
	ctx := context.Background()

	entry := &domainblog.Entry{Title: "Repeat", Content: "Same body", Published: true}
	for i := 0; i < 2; i++ {
		if err := repo.SaveEntryAndIndex(ctx, entry); err != nil {
			t.Fatalf("SaveEntryAndIndex call %d returned error: %v", i+1, err)
		}
	}

	assertTotalCounts(t, gormDB, 1, 1)
	assertRowCounts(t, gormDB, entry.ID, 1, 1)
}

func TestSaveEntryAndIndexUpdatesRecordInPlace(t *testing.T) {
	t.Parallel()

	repo, gormDB := setupRepository(t)
	ctx := context.Background()

	original := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &domainblog.Entry{Title: "Garden", Content: "tomatoes", Published: true, Timestamp: original}
	if err := repo.SaveEntryAndIndex(ctx, entry); err != nil {
		t.Fatalf("SaveEntryAndIndex returned error: %v", err)
	}

	entry.Content = "cucumbers"
	entry.Timestamp = time.Time{}
	if err := repo.SaveEntryAndIndex(ctx, entry); err != nil {
		t.Fatalf("SaveEntryAndIndex update returned error: %v", err)
	}

	if !entry.Timestamp.Equal(original) {
		t.Fatalf("expected timestamp %s to be preserved, got %s", original, entry.Timestamp)
	}

	record, err := repo.IndexRecord(ctx, entry.ID)
	if err != nil {
		t.Fatalf("IndexRecord returned error: %v", err)
	}
	if record == nil || record.IndexedText != "Garden\ncucumbers" {
		t.Fatalf("expected updated indexed text, got %#v", record)
	}

	stale, err := repo.Search(ctx, "tomatoes")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected stale content not to match, got %d results", len(stale))
	}

	assertRowCounts(t, gormDB, entry.ID, 1, 1)
}

func TestSaveEntryAndIndexRejectsDuplicateSlug(t *testing.T) {
	t.Parallel()

	repo, gormDB := setupRepository(t)
	ctx := context.Background()

	if err := repo.SaveEntryAndIndex(ctx, &domainblog.Entry{Title: "A B", Content: "one"}); err != nil {
		t.Fatalf("SaveEntryAndIndex returned error: %v", err)
	}

	err := repo.SaveEntryAndIndex(ctx, &domainblog.Entry{Title: "a--b", Content: "two"})
	if err == nil {
		t.Fatalf("expected constraint violation for duplicate slug")
	}
	if !eris.Is(err, domainblog.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}

	assertTotalCounts(t, gormDB, 1, 1)
}

func TestSaveEntryAndIndexRejectsUnsluggableTitle(t *testing.T) {
	t.Parallel()

	repo, gormDB := setupRepository(t)
	ctx := context.Background()

	for _, title := range []string{"", "   ", "?!"} {
		err := repo.SaveEntryAndIndex(ctx, &domainblog.Entry{Title: title, Content: "body"})
		if !eris.Is(err, domainblog.ErrInvalidEntry) {
			t.Fatalf("expected ErrInvalidEntry for title %q, got %v", title, err)
		}
	}

	assertTotalCounts(t, gormDB, 0, 0)
}

func TestSaveEntryAndIndexUsesExplicitSlug(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	entry := &domainblog.Entry{Title: "Title", Slug: "Custom Slug", Content: "body"}
	if err := repo.SaveEntryAndIndex(ctx, entry); err != nil {
		t.Fatalf("SaveEntryAndIndex returned error: %v", err)
	}

	if entry.Slug != "custom-slug" {
		t.Fatalf("expected normalised explicit slug custom-slug, got %q", entry.Slug)
	}
}

func TestSaveEntryAndIndexUnknownIDReturnsNotFound(t *testing.T) {
	t.Parallel()

	repo, gormDB := setupRepository(t)

	err := repo.SaveEntryAndIndex(context.Background(), &domainblog.Entry{ID: 42, Title: "Ghost", Content: "boo"})
	if !eris.Is(err, domainblog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	assertTotalCounts(t, gormDB, 0, 0)
}

func TestSaveEntryAndIndexRollsBackWhenIndexFails(t *testing.T) {
	t.Parallel()

	repo, gormDB := setupRepository(t)

	if err := gormDB.Exec("DROP TABLE " + blogdata.SearchIndexTable).Error; err != nil {
		t.Fatalf("dropping search index failed: %v", err)
	}

	err := repo.SaveEntryAndIndex(context.Background(), &domainblog.Entry{Title: "Orphan", Content: "never indexed"})
	if err == nil {
		t.Fatalf("expected failure when search index is unavailable")
	}
	if !eris.Is(err, domainblog.ErrIndexInconsistency) {
		t.Fatalf("expected ErrIndexInconsistency, got %v", err)
	}
	if !strings.Contains(err.Error(), "no such table") {
		t.Fatalf("expected the SQLite cause in the error, got %v", err)
	}

	var entries int64
	if countErr := gormDB.Model(&blogdata.EntryRecord{}).Count(&entries).Error; countErr != nil {
		t.Fatalf("counting entries failed: %v", countErr)
	}
	if entries != 0 {
		t.Fatalf("expected entry insert to be rolled back, found %d entries", entries)
	}
}

func TestSearchExcludesDrafts(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	draft := &domainblog.Entry{Title: "Plans", Content: "the secret recipe", Published: false}
	if err := repo.SaveEntryAndIndex(ctx, draft); err != nil {
		t.Fatalf("SaveEntryAndIndex returned error: %v", err)
	}

	results, err := repo.Search(ctx, "secret")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected drafts to be excluded from search, got %d results", len(results))
	}

	drafts, err := repo.ListDrafts(ctx)
	if err != nil {
		t.Fatalf("ListDrafts returned error: %v", err)
	}
	if len(drafts) != 1 || drafts[0].ID != draft.ID {
		t.Fatalf("expected draft in drafts listing, got %#v", drafts)
	}

	public, err := repo.ListPublic(ctx)
	if err != nil {
		t.Fatalf("ListPublic returned error: %v", err)
	}
	if len(public) != 0 {
		t.Fatalf("expected no public entries, got %d", len(public))
	}
}

func TestSearchEmptyQueryReturnsNothing(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	if err := repo.SaveEntryAndIndex(ctx, &domainblog.Entry{Title: "Visible", Content: "words", Published: true}); err != nil {
		t.Fatalf("SaveEntryAndIndex returned error: %v", err)
	}

	for _, query := range []string{"", "!!!", `"`} {
		results, err := repo.Search(ctx, query)
		if err != nil {
			t.Fatalf("Search(%q) returned error: %v", query, err)
		}
		if len(results) != 0 {
			t.Fatalf("expected no results for %q, got %d", query, len(results))
		}
	}
}

func TestSearchRanksByRelevance(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []*domainblog.Entry{
		{Title: "Passing mention", Content: "a little golang", Published: true, Timestamp: base.Add(2 * time.Hour)},
		{Title: "Deep dive", Content: "golang golang golang", Published: true, Timestamp: base},
		{Title: "Unrelated", Content: "python", Published: true, Timestamp: base.Add(time.Hour)},
	}
	for _, entry := range entries {
		if err := repo.SaveEntryAndIndex(ctx, entry); err != nil {
			t.Fatalf("SaveEntryAndIndex returned error: %v", err)
		}
	}

	results, err := repo.Search(ctx, "golang")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Entry.Slug != "deep-dive" {
		t.Fatalf("expected deep-dive to rank first, got %q", results[0].Entry.Slug)
	}
	if results[0].Score <= results[1].Score {
		t.Fatalf("expected descending scores, got %v then %v", results[0].Score, results[1].Score)
	}
}

func TestSearchBreaksTiesByTimestamp(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := &domainblog.Entry{Title: "Older", Content: "kayak", Published: true, Timestamp: base}
	newer := &domainblog.Entry{Title: "Newer", Content: "kayak", Published: true, Timestamp: base.Add(time.Hour)}
	for _, entry := range []*domainblog.Entry{older, newer} {
		if err := repo.SaveEntryAndIndex(ctx, entry); err != nil {
			t.Fatalf("SaveEntryAndIndex returned error: %v", err)
		}
	}

	results, err := repo.Search(ctx, "kayak")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Entry.Slug != "newer" || results[1].Entry.Slug != "older" {
		t.Fatalf("expected newer entry first on equal scores, got %q then %q", results[0].Entry.Slug, results[1].Entry.Slug)
	}
}

func TestSearchRequiresEveryToken(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	for _, entry := range []*domainblog.Entry{
		{Title: "Both", Content: "red fox", Published: true},
		{Title: "One", Content: "red panda", Published: true},
	} {
		if err := repo.SaveEntryAndIndex(ctx, entry); err != nil {
			t.Fatalf("SaveEntryAndIndex returned error: %v", err)
		}
	}

	results, err := repo.Search(ctx, "red fox")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 || results[0].Entry.Slug != "both" {
		t.Fatalf("expected only the entry containing every token, got %#v", results)
	}
}

func TestSearchTreatsOperatorsLiterally(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	if err := repo.SaveEntryAndIndex(ctx, &domainblog.Entry{Title: "Operators", Content: "cats NOT dogs", Published: true}); err != nil {
		t.Fatalf("SaveEntryAndIndex returned error: %v", err)
	}

	for _, query := range []string{`cats NOT`, `"cats`, `cats*`, `(dogs`} {
		if _, err := repo.Search(ctx, query); err != nil {
			t.Fatalf("Search(%q) returned error: %v", query, err)
		}
	}
}

func TestListPublicOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for idx, title := range []string{"first", "second", "third"} {
		entry := &domainblog.Entry{Title: title, Content: title, Published: true, Timestamp: base.Add(time.Duration(idx) * time.Hour)}
		if err := repo.SaveEntryAndIndex(ctx, entry); err != nil {
			t.Fatalf("SaveEntryAndIndex returned error: %v", err)
		}
	}

	listed, err := repo.ListPublic(ctx)
	if err != nil {
		t.Fatalf("ListPublic returned error: %v", err)
	}

	expectedOrder := []string{"third", "second", "first"}
	if len(listed) != len(expectedOrder) {
		t.Fatalf("expected %d entries, got %d", len(expectedOrder), len(listed))
	}
	for idx, slug := range expectedOrder {
		if listed[idx].Slug != slug {
			t.Fatalf("expected slug %q at index %d, got %q", slug, idx, listed[idx].Slug)
		}
	}
}

func TestListPublicOrdersMixedOffsetsByInstant(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	plusFive := time.FixedZone("UTC+5", 5*60*60)
	older := &domainblog.Entry{Title: "Older", Content: "east", Published: true, Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, plusFive)}
	newer := &domainblog.Entry{Title: "Newer", Content: "west", Published: true, Timestamp: time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)}
	for _, entry := range []*domainblog.Entry{older, newer} {
		if err := repo.SaveEntryAndIndex(ctx, entry); err != nil {
			t.Fatalf("SaveEntryAndIndex returned error: %v", err)
		}
	}

	if older.Timestamp.Location() != time.UTC {
		t.Fatalf("expected saved timestamp in UTC, got %v", older.Timestamp)
	}

	listed, err := repo.ListPublic(ctx)
	if err != nil {
		t.Fatalf("ListPublic returned error: %v", err)
	}
	if len(listed) != 2 || listed[0].Slug != "newer" || listed[1].Slug != "older" {
		t.Fatalf("expected newer before older, got %#v", listed)
	}

	older.Timestamp = time.Date(2024, 1, 1, 12, 0, 0, 0, plusFive)
	if err := repo.SaveEntryAndIndex(ctx, older); err != nil {
		t.Fatalf("updating entry returned error: %v", err)
	}

	listed, err = repo.ListPublic(ctx)
	if err != nil {
		t.Fatalf("ListPublic returned error: %v", err)
	}
	if listed[0].Slug != "older" {
		t.Fatalf("expected updated entry at 07:00 UTC first, got %q", listed[0].Slug)
	}
}

func TestSearchSplitsWordsOnUnicodePunctuation(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	if err := repo.SaveEntryAndIndex(ctx, &domainblog.Entry{Title: "Typography", Content: "I don’t know; foo—bar", Published: true}); err != nil {
		t.Fatalf("SaveEntryAndIndex returned error: %v", err)
	}

	for _, query := range []string{"don’t", "foo", "bar", "foo—bar", "know"} {
		results, err := repo.Search(ctx, query)
		if err != nil {
			t.Fatalf("Search(%q) returned error: %v", query, err)
		}
		if len(results) != 1 || results[0].Entry.Slug != "typography" {
			t.Fatalf("Search(%q) expected the typography entry, got %#v", query, results)
		}
	}
}

func TestGetBySlugReturnsNilForMissingEntry(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)

	entry, err := repo.GetBySlug(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil entry for missing slug, got %#v", entry)
	}
}

func TestDeleteEntryAndIndexRemovesBoth(t *testing.T) {
	t.Parallel()

	repo, gormDB := setupRepository(t)
	ctx := context.Background()

	entry := &domainblog.Entry{Title: "Short lived", Content: "ephemeral", Published: true}
	if err := repo.SaveEntryAndIndex(ctx, entry); err != nil {
		t.Fatalf("SaveEntryAndIndex returned error: %v", err)
	}

	if err := repo.DeleteEntryAndIndex(ctx, entry.ID); err != nil {
		t.Fatalf("DeleteEntryAndIndex returned error: %v", err)
	}

	assertRowCounts(t, gormDB, entry.ID, 0, 0)

	err := repo.DeleteEntryAndIndex(ctx, entry.ID)
	if !eris.Is(err, domainblog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestReindexRebuildsMissingRecords(t *testing.T) {
	t.Parallel()

	repo, gormDB := setupRepository(t)
	ctx := context.Background()

	for _, title := range []string{"North", "South"} {
		if err := repo.SaveEntryAndIndex(ctx, &domainblog.Entry{Title: title, Content: "compass", Published: true}); err != nil {
			t.Fatalf("SaveEntryAndIndex returned error: %v", err)
		}
	}

	if err := gormDB.Exec("DELETE FROM " + blogdata.SearchIndexTable).Error; err != nil {
		t.Fatalf("clearing search index failed: %v", err)
	}

	count, err := repo.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 entries reindexed, got %d", count)
	}

	assertTotalCounts(t, gormDB, 2, 2)

	results, err := repo.Search(ctx, "compass")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both entries searchable after reindex, got %d", len(results))
	}
}

func TestConcurrentSavesWithSameSlugLeaveOneEntry(t *testing.T) {
	t.Parallel()

	repo, gormDB := setupRepository(t)
	ctx := context.Background()

	const writers = 4
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = repo.SaveEntryAndIndex(ctx, &domainblog.Entry{Title: "Race Day", Content: "contender", Published: true})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case eris.Is(err, domainblog.ErrConstraintViolation):
		default:
			t.Fatalf("unexpected error from concurrent save: %v", err)
		}
	}

	if succeeded != 1 {
		t.Fatalf("expected exactly one successful save, got %d", succeeded)
	}

	assertTotalCounts(t, gormDB, 1, 1)
}

func setupRepository(t *testing.T) (*blogdata.Repository, *gorm.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "repo.db")
	gormDB, err := database.Open(database.Options{Path: path})
	if err != nil {
		t.Fatalf("database.Open returned error: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := database.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := migrations.MigrateBlog(context.Background(), gormDB, logger); err != nil {
		t.Fatalf("MigrateBlog returned error: %v", err)
	}

	repo, err := blogdata.NewRepository(gormDB, logger)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo, gormDB
}

func assertRowCounts(t *testing.T, gormDB *gorm.DB, entryID uint, wantEntries, wantIndex int64) {
	t.Helper()

	var entries int64
	if err := gormDB.Model(&blogdata.EntryRecord{}).Where("id = ?", entryID).Count(&entries).Error; err != nil {
		t.Fatalf("counting entries failed: %v", err)
	}
	if entries != wantEntries {
		t.Fatalf("expected %d entry rows for id %d, got %d", wantEntries, entryID, entries)
	}

	var indexed int64
	if err := gormDB.Raw("SELECT COUNT(*) FROM "+blogdata.SearchIndexTable+" WHERE docid = ?", entryID).Scan(&indexed).Error; err != nil {
		t.Fatalf("counting search records failed: %v", err)
	}
	if indexed != wantIndex {
		t.Fatalf("expected %d search records for id %d, got %d", wantIndex, entryID, indexed)
	}
}

func assertTotalCounts(t *testing.T, gormDB *gorm.DB, wantEntries, wantIndex int64) {
	t.Helper()

	var entries int64
	if err := gormDB.Model(&blogdata.EntryRecord{}).Count(&entries).Error; err != nil {
		t.Fatalf("counting entries failed: %v", err)
	}
	if entries != wantEntries {
		t.Fatalf("expected %d entry rows, got %d", wantEntries, entries)
	}

	var indexed int64
	if err := gormDB.Raw("SELECT COUNT(*) FROM " + blogdata.SearchIndexTable).Scan(&indexed).Error; err != nil {
		t.Fatalf("counting search records failed: %v", err)
	}
	if indexed != wantIndex {
		t.Fatalf("expected %d search records, got %d", wantIndex, indexed)
	}
}
