package blog

import "context"

// Repository defines persistence operations supported by the blog domain.
//
// SaveEntryAndIndex and DeleteEntryAndIndex are atomic: the entry row and its search
// index record are written or removed together or not at all.
type Repository interface {
	SaveEntryAndIndex(ctx context.Context, entry *Entry) error
	DeleteEntryAndIndex(ctx context.Context, id uint) error
	GetBySlug(ctx context.Context, slug string) (*Entry, error)
	GetByID(ctx context.Context, id uint) (*Entry, error)
	ListPublic(ctx context.Context) ([]Entry, error)
	ListDrafts(ctx context.Context) ([]Entry, error)
	Search(ctx context.Context, normalizedQuery string) ([]SearchResult, error)
	IndexRecord(ctx context.Context, entryID uint) (*IndexRecord, error)
	Reindex(ctx context.Context) (int, error)
}
