package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/culturekernel/internal/protocol"
)

// Record is a raw stored row. Data is the encoded protocol exactly as it was
// written; it has not been validated.
type Record struct {
	Seq  int64
	ID   string
	Data []byte
}

// ScanAll returns every stored record in insertion order (seq ASC).
// Either the full sequence is returned or an error matching
// ErrStorageUnavailable; a scan never partially succeeds.
//
// Returns an empty slice (not nil) if the store holds no records.
func (s *Store) ScanAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, body
		FROM protocols
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query protocols: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Seq, &r.ID, &r.Data); err != nil {
			return nil, fmt.Errorf("%w: scan protocol row: %w", ErrStorageUnavailable, err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate protocols: %w", ErrStorageUnavailable, err)
	}

	return records, nil
}

// Decode deserializes a stored record. A row whose bytes fail to decode, or
// whose decoded protocol_id disagrees with its key, is reported as a
// *protocol.DecodeError so callers can count it and keep scanning.
func Decode(r Record) (protocol.Protocol, error) {
	p, err := protocol.Decode(r.Data)
	if err != nil {
		var de *protocol.DecodeError
		if errors.As(err, &de) && de.ID == "" {
			de.ID = r.ID
		}
		return protocol.Protocol{}, err
	}
	if p.ProtocolID != r.ID {
		return protocol.Protocol{}, &protocol.DecodeError{
			ID:      r.ID,
			Field:   "protocol_id",
			Message: fmt.Sprintf("stored under key %q but body says %q", r.ID, p.ProtocolID),
		}
	}
	return p, nil
}

// Has reports whether a record with the given id exists.
func (s *Store) Has(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM protocols WHERE id = ?
	`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: check protocol %q: %w", ErrStorageUnavailable, id, err)
	}
	return count > 0, nil
}

// Initialized reports whether the protocols table exists. It is always true
// for a store returned by Open.
func (s *Store) Initialized(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'protocols'
	`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: check schema: %w", ErrStorageUnavailable, err)
	}
	return count > 0, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM protocols`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count protocols: %w", ErrStorageUnavailable, err)
	}
	return count, nil
}
