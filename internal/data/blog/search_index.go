package blog

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"notebook/app/internal/data/database"
)

// upsertSearchRecord stores text for entryID, updating the existing row in place when
// one exists. It must run on the transaction that wrote the entry.
func upsertSearchRecord(tx *gorm.DB, entryID uint, text string) error {
	if entryID == 0 {
		return eris.New("entry id is required for indexing")
	}

	var existing int64
	if err := tx.Raw("SELECT COUNT(*) FROM "+SearchIndexTable+" WHERE docid = ?", entryID).Scan(&existing).Error; err != nil {
		return eris.Wrapf(err, "looking up search record for entry %d", entryID)
	}

	if existing > 0 {
		if err := tx.Exec("UPDATE "+SearchIndexTable+" SET content = ? WHERE docid = ?", text, entryID).Error; err != nil {
			return eris.Wrapf(err, "updating search record for entry %d", entryID)
		}
		return nil
	}

	if err := tx.Exec("INSERT INTO "+SearchIndexTable+" (docid, content) VALUES (?, ?)", entryID, text).Error; err != nil {
		return eris.Wrapf(err, "inserting search record for entry %d", entryID)
	}

	return nil
}

func deleteSearchRecord(tx *gorm.DB, entryID uint) error {
	if err := tx.Exec("DELETE FROM "+SearchIndexTable+" WHERE docid = ?", entryID).Error; err != nil {
		return eris.Wrapf(err, "deleting search record for entry %d", entryID)
	}
	return nil
}

func findSearchRecord(tx *gorm.DB, entryID uint) (*SearchIndexRecord, error) {
	var records []SearchIndexRecord
	err := tx.Raw("SELECT docid AS entry_id, content FROM "+SearchIndexTable+" WHERE docid = ?", entryID).
		Scan(&records).Error
	if err != nil {
		return nil, eris.Wrapf(err, "reading search record for entry %d", entryID)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// rankedSearchSQL joins published entries to their search records and orders them by
// relevance, newest first among equal scores.
var rankedSearchSQL = `
SELECT entries.*, ` + database.RankFunctionName + `(matchinfo(` + SearchIndexTable + `, 'pcx')) AS score
FROM entries
JOIN ` + SearchIndexTable + ` ON ` + SearchIndexTable + `.docid = entries.id
WHERE entries.published = ? AND ` + SearchIndexTable + ` MATCH ?
ORDER BY score DESC, entries.timestamp DESC, entries.id DESC`

// matchExpression turns a normalised query into an FTS expression that requires every
// token. Each token is reduced to its letters and digits and quoted as a phrase, so FTS
// operators in user input never reach the query parser. Tokens without letters or digits
// are dropped.
func matchExpression(normalizedQuery string) string {
	tokens := strings.Fields(normalizedQuery)
	phrases := make([]string, 0, len(tokens))
	for _, token := range tokens {
		words := strings.FieldsFunc(token, func(r rune) bool { return !isWordRune(r) })
		if len(words) == 0 {
			continue
		}
		phrases = append(phrases, `"`+strings.Join(words, " ")+`"`)
	}
	return strings.Join(phrases, " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
