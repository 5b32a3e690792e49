package database

import "encoding/binary"

// Rank scores a full-text match from the blob returned by SQLite's
// matchinfo(table, 'pcx'). The blob is a sequence of native-endian uint32 values:
// phrase count, column count, then three values per phrase/column pair
// (hits in this row, hits in all rows, rows with at least one hit).
//
// The score sums hitsInRow/hitsInAllRows over every pair, so rows that use a query
// term often relative to the rest of the corpus rank higher. Malformed input scores 0.
func Rank(matchInfo []byte) float64 {
	values := decodeMatchInfo(matchInfo)
	if len(values) < 2 {
		return 0
	}

	phrases, columns := int(values[0]), int(values[1])
	if len(values) < 2+phrases*columns*3 {
		return 0
	}

	var score float64
	for phrase := 0; phrase < phrases; phrase++ {
		base := 2 + phrase*columns*3
		for column := 0; column < columns; column++ {
			idx := base + column*3
			hitsInRow := values[idx]
			hitsInAllRows := values[idx+1]
			if hitsInRow == 0 || hitsInAllRows == 0 {
				continue
			}
			score += float64(hitsInRow) / float64(hitsInAllRows)
		}
	}

	return score
}

func decodeMatchInfo(blob []byte) []uint32 {
	values := make([]uint32, 0, len(blob)/4)
	for offset := 0; offset+4 <= len(blob); offset += 4 {
		values = append(values, binary.NativeEndian.Uint32(blob[offset:offset+4]))
	}
	return values
}
