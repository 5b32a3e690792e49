package blog

import (
	"time"

	"github.com/rotisserie/eris"
)

// Entry represents a blog post within the domain layer.
type Entry struct {
	ID        uint
	Title     string
	Slug      string
	Content   string
	Published bool
	Timestamp time.Time
}

// IsDraft reports whether the entry is hidden from public listings.
func (e Entry) IsDraft() bool {
	return !e.Published
}

// SearchResult pairs a published entry with its relevance score.
type SearchResult struct {
	Entry Entry
	Score float64
}

// IndexRecord is the indexed text stored for one entry.
type IndexRecord struct {
	EntryID     uint
	IndexedText string
}

// EntryInput carries the fields accepted when creating or updating an entry.
// A zero ID creates a new entry; an empty Slug is derived from the title.
type EntryInput struct {
	ID        uint
	Title     string
	Slug      string
	Content   string
	Published bool
	Timestamp time.Time
}

var (
	// ErrNotFound indicates that no entry matched the lookup.
	ErrNotFound = eris.New("entry not found")
	// ErrConstraintViolation indicates the entry's slug is already taken by another entry.
	ErrConstraintViolation = eris.New("entry slug already exists")
	// ErrIndexInconsistency indicates the search index could not be brought in line with a saved entry.
	ErrIndexInconsistency = eris.New("search index update failed")
	// ErrInvalidEntry indicates the entry failed validation before reaching storage.
	ErrInvalidEntry = eris.New("invalid entry")
)

// IndexedText returns the text stored in the search index for the entry.
func IndexedText(entry Entry) string {
	return entry.Title + "\n" + entry.Content
}
