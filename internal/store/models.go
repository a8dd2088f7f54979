package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/mliyanage/kickass-morning-sub000/internal/domain"
)

// Serialization helpers for the storage boundary. Weekday sets, statuses
// and dates travel as text/unix columns; in-memory code uses domain types.

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeToNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func timeFromNull(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}

func dateToNull(d *domain.CivilDate) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func dateFromNull(ns sql.NullString) (*domain.CivilDate, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func statusToNull(s *domain.CallStatus) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}

func statusFromNull(ns sql.NullString) (*domain.CallStatus, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	s, err := domain.ParseCallStatus(ns.String)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func joinList(items []string) string {
	return strings.Join(items, "\n")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
