package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 2

// Version 1 keyed processed_posts by post_id alone. Post ids are only unique
// within one wall, so version 2 keys by (owner_id, post_id).
const detachV1 = `
	ALTER TABLE processed_posts RENAME TO processed_posts_v1;
	DROP INDEX IF EXISTS idx_processed_posts_posted_at;
	DROP INDEX IF EXISTS idx_processed_posts_commented_at;
`

const copyV1 = `
	INSERT INTO processed_posts (owner_id, post_id, posted_at, commented_at, comment_id, message)
	SELECT owner_id, post_id, posted_at, commented_at, comment_id, message FROM processed_posts_v1;
	DROP TABLE processed_posts_v1;
`

// migrate applies the idempotent schema and stamps metadata.schema_version.
// A database written by a newer binary is refused rather than modified.
func migrate(ctx context.Context, db *sql.DB) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	current, err := readSchemaVersion(ctx, tx)
	if err != nil {
		return err
	}

	switch {
	case current > schemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported %d", current, schemaVersion)
	case current < schemaVersion:
		if current == 1 {
			if err = upgradeV1(ctx, tx); err != nil {
				return err
			}
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO metadata(key, value) VALUES('schema_version', ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, strconv.Itoa(schemaVersion)); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
	}

	return tx.Commit()
}

// upgradeV1 rebuilds processed_posts with the composite key and keeps its rows.
func upgradeV1(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, detachV1); err != nil {
		return fmt.Errorf("upgrade schema v1: detach: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("upgrade schema v1: create: %w", err)
	}
	if _, err := tx.ExecContext(ctx, copyV1); err != nil {
		return fmt.Errorf("upgrade schema v1: copy: %w", err)
	}
	return nil
}

// readSchemaVersion returns 0 for a database that has never been stamped.
func readSchemaVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var raw string
	err := tx.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", raw, err)
	}
	return v, nil
}
