package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"callbridge/internal/phone"

	"github.com/jackc/pgx/v5"
)

const DefaultContactTable = "salesmanago"

// Store is the phone-indexed contact mirror kept in Postgres.
//
// NOTE: rows are looked up by exact match on the "Phone" column; no normalization
// happens in SQL. LookupByPhoneCandidates covers the common spellings.
type Store struct {
	db    *sql.DB
	query string
}

// NewStore builds a store over db. driverName selects the placeholder style
// ("sqlite" uses '?', anything else uses Postgres '$1'). table may be schema-qualified.
func NewStore(db *sql.DB, driverName, table string) *Store {
	if table == "" {
		table = DefaultContactTable
	}
	placeholder := "$1"
	if driverName == "sqlite" {
		placeholder = "?"
	}
	ident := pgx.Identifier(strings.Split(table, ".")).Sanitize()
	return &Store{
		db:    db,
		query: fmt.Sprintf(`SELECT * FROM %s WHERE "Phone" = %s`, ident, placeholder),
	}
}

// LookupByPhone returns every row whose Phone equals phoneNumber. Zero rows is not an error.
func (s *Store) LookupByPhone(ctx context.Context, phoneNumber string) ([]ContactRecord, error) {
	if s.db == nil {
		return nil, errors.New("crm: contact store not configured")
	}
	rows, err := s.db.QueryContext(ctx, s.query, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("crm: query contacts by phone: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []ContactRecord
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("crm: scan contact row: %w", err)
		}

		rec := ContactRecord{Columns: make(map[string]any, len(cols))}
		for i, col := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rec.Columns[col] = v
		}
		rec.Email = columnString(rec.Columns, "Email")
		rec.Name = columnString(rec.Columns, "Name")
		rec.Phone = columnString(rec.Columns, "Phone")
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LookupByPhoneCandidates tries each spelling from phone.Candidates and returns the first
// non-empty result. The last error is returned only when no candidate matched.
func (s *Store) LookupByPhoneCandidates(ctx context.Context, raw string) ([]ContactRecord, error) {
	var lastErr error
	for _, p := range phone.Candidates(raw) {
		recs, err := s.LookupByPhone(ctx, p)
		if err != nil {
			lastErr = err
			continue
		}
		if len(recs) > 0 {
			return recs, nil
		}
	}
	return nil, lastErr
}

func columnString(cols map[string]any, name string) string {
	v, ok := cols[name]
	if !ok {
		for k, x := range cols {
			if strings.EqualFold(k, name) {
				v, ok = x, true
				break
			}
		}
	}
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
