package pgstore

// convert.go maps between core's optional values and pgtype columns.
//
// Optional core values are pointers or empty strings; every To* function
// returns a pgtype value with Valid=false for those, so the column is NULL.

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ToPgText converts a string to pgtype.Text. Empty strings are NULL.
func ToPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgTimestamptz converts an optional instant to pgtype.Timestamptz.
func ToPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// ToPgInt4 converts an optional int to pgtype.Int4.
func ToPgInt4(n *int) pgtype.Int4 {
	if n == nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(*n), Valid: true}
}

// ToPgUUID converts a string ID to pgtype.UUID. Empty or malformed IDs are NULL.
func ToPgUUID(id string) pgtype.UUID {
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: u, Valid: true}
}

// FromPgUUID converts a pgtype.UUID to a string ID, empty when NULL.
func FromPgUUID(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// FromPgTimestamptz converts a pgtype.Timestamptz to an optional instant.
func FromPgTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

// FromPgInt4 converts a pgtype.Int4 to an optional int.
func FromPgInt4(n pgtype.Int4) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

// FromPgText converts a pgtype.Text to a string, empty when NULL.
func FromPgText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}
