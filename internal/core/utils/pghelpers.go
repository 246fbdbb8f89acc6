package utils

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ToNullTimestamptz converts an optional time to a pgtype.Timestamptz.
// A nil pointer is considered invalid (NULL).
func ToNullTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{
		Time:  t.UTC(),
		Valid: true,
	}
}

// FromNullTimestamptz converts a pgtype.Timestamptz to an optional time.
// A NULL value is converted to nil.
func FromNullTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}
