package store

import (
	"context"
	"sort"
	"time"
)

// Memory is a process-local ledger with the same methods as Store. Its
// contents are lost on exit. It is not safe for concurrent use.
type Memory struct {
	records map[postKey]Record
}

type postKey struct {
	owner, post int64
}

func NewMemory() *Memory {
	return &Memory{records: make(map[postKey]Record)}
}

func (m *Memory) IsProcessed(_ context.Context, ownerID, postID int64) (bool, error) {
	_, ok := m.records[postKey{ownerID, postID}]
	return ok, nil
}

func (m *Memory) MarkProcessed(_ context.Context, r Record) error {
	if err := r.validate(); err != nil {
		return err
	}
	m.records[postKey{r.OwnerID, r.PostID}] = r
	return nil
}

func (m *Memory) List(_ context.Context, since time.Time, limit int) ([]Record, error) {
	var out []Record
	for _, r := range m.records {
		if !r.CommentedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CommentedAt.Equal(out[j].CommentedAt) {
			return out[i].CommentedAt.After(out[j].CommentedAt)
		}
		if out[i].PostID != out[j].PostID {
			return out[i].PostID > out[j].PostID
		}
		return out[i].OwnerID > out[j].OwnerID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Count(context.Context) (int, error) {
	return len(m.records), nil
}

func (m *Memory) PruneOld(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for key, r := range m.records {
		if r.PostedAt.Before(cutoff) {
			delete(m.records, key)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error {
	return nil
}
