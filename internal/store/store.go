// Package store keeps the ledger of wall posts that already received a comment.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one processed post.
type Record struct {
	PostID      int64
	OwnerID     int64
	PostedAt    time.Time
	CommentedAt time.Time
	CommentID   int64 // 0 when the comment id is unknown
	Message     string
}

func (r Record) validate() error {
	if r.PostID == 0 {
		return errors.New("post_id is required")
	}
	if r.PostedAt.IsZero() {
		return errors.New("posted_at is required")
	}
	if r.CommentedAt.IsZero() {
		return errors.New("commented_at is required")
	}
	return nil
}

// Store is the sqlite-backed ledger.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer.
	db.SetMaxOpenConns(1)

	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	return nil
}

// IsProcessed reports whether post postID on ownerID's wall is in the ledger.
func (s *Store) IsProcessed(ctx context.Context, ownerID, postID int64) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM processed_posts WHERE owner_id = ? AND post_id = ?",
		ownerID, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup post %d_%d: %w", ownerID, postID, err)
	}
	return true, nil
}

// MarkProcessed records r. A second record for the same owner and post id
// replaces the first.
func (s *Store) MarkProcessed(ctx context.Context, r Record) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := r.validate(); err != nil {
		return err
	}

	var commentID sql.NullInt64
	if r.CommentID != 0 {
		commentID = sql.NullInt64{Int64: r.CommentID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_posts (post_id, owner_id, posted_at, commented_at, comment_id, message)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, post_id) DO UPDATE SET
			posted_at = excluded.posted_at,
			commented_at = excluded.commented_at,
			comment_id = excluded.comment_id,
			message = excluded.message
	`,
		r.PostID,
		r.OwnerID,
		r.PostedAt.Unix(),
		r.CommentedAt.Unix(),
		commentID,
		r.Message,
	)
	if err != nil {
		return fmt.Errorf("mark post %d: %w", r.PostID, err)
	}
	return nil
}

// List returns records commented at or after since, newest first.
// A limit of zero or less returns everything.
func (s *Store) List(ctx context.Context, since time.Time, limit int) ([]Record, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `
		SELECT post_id, owner_id, posted_at, commented_at, comment_id, message
		FROM processed_posts
		WHERE commented_at >= ?
		ORDER BY commented_at DESC, post_id DESC, owner_id DESC
	`
	args := []any{since.Unix()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list processed posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			r           Record
			postedAt    int64
			commentedAt int64
			commentID   sql.NullInt64
		)
		if err := rows.Scan(&r.PostID, &r.OwnerID, &postedAt, &commentedAt, &commentID, &r.Message); err != nil {
			return nil, fmt.Errorf("scan processed post: %w", err)
		}
		r.PostedAt = time.Unix(postedAt, 0).UTC()
		r.CommentedAt = time.Unix(commentedAt, 0).UTC()
		r.CommentID = commentID.Int64
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processed posts: %w", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM processed_posts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count processed posts: %w", err)
	}
	return n, nil
}

// PruneOld deletes records for posts published before cutoff and returns
// how many were removed.
func (s *Store) PruneOld(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM processed_posts WHERE posted_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune processed posts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return n, nil
}
