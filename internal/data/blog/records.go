package blog

import "time"

// EntryRecord represents a blog entry persisted in the entries table.
type EntryRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Title     string    `gorm:"type:text;not null"`
	Slug      string    `gorm:"size:255;uniqueIndex:idx_entries_slug;not null"`
	Content   string    `gorm:"type:text;not null"`
	Published bool      `gorm:"not null;index:idx_entries_published"`
	Timestamp time.Time `gorm:"not null;index:idx_entries_timestamp"`
	UpdatedAt time.Time
}

// TableName defines the table name for the EntryRecord model.
func (EntryRecord) TableName() string {
	return "entries"
}

// SearchIndexTable is the FTS4 virtual table holding one row per entry, keyed by docid.
const SearchIndexTable = "search_index"

// SearchIndexRecord is a row of the search index as read back from SQLite.
type SearchIndexRecord struct {
	EntryID uint
	Content string
}

type scoredEntryRecord struct {
	EntryRecord `gorm:"embedded"`
	Score       float64
}
