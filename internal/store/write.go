package store

import (
	"context"
	"fmt"

	"github.com/roach88/culturekernel/internal/protocol"
)

// ReplaceAll atomically clears the store and inserts records in the given
// order, assigning seq = position + 1.
//
// The table is dropped and recreated inside the same transaction, so a
// store whose table was created by an incompatible binary is repaired too.
// Duplicate ids violate the UNIQUE constraint and roll the whole
// transaction back; an encode failure aborts before anything is written.
// All errors match ErrReplaceFailed and leave the previous contents intact.
func (s *Store) ReplaceAll(ctx context.Context, records []protocol.Protocol) error {
	// Encode everything up front so a bad record never opens a transaction
	bodies := make([][]byte, len(records))
	for i, p := range records {
		data, err := protocol.Encode(p)
		if err != nil {
			return fmt.Errorf("%w: record %d: %w", ErrReplaceFailed, i, err)
		}
		bodies[i] = data
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", ErrReplaceFailed, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS protocols`); err != nil {
		return fmt.Errorf("%w: drop table: %w", ErrReplaceFailed, err)
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: create table: %w", ErrReplaceFailed, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO protocols (seq, id, body)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %w", ErrReplaceFailed, err)
	}
	defer stmt.Close()

	for i, p := range records {
		if _, err := stmt.ExecContext(ctx, int64(i+1), p.ProtocolID, bodies[i]); err != nil {
			return fmt.Errorf("%w: insert %q: %w", ErrReplaceFailed, p.ProtocolID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("%w: set user_version: %w", ErrReplaceFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrReplaceFailed, err)
	}

	return nil
}
