package sqlite

import (
	"fmt"
	"time"
)

// timeLayout is the TEXT representation used for every timestamp column.
// SQLite has no native datetime type, so ORDER BY on these columns compares
// text. The fraction is fixed-width (zero-padded, never trimmed): only then
// does lexical order match chronological order within the same second.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
