package reminders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store queues reminders and hands due ones to a single worker at a time.
type Store interface {
	Enqueue(ctx context.Context, r *Reminder) error
	// ClaimDue returns up to limit pending reminders due at or before asOf.
	// A claimed reminder is not returned again until it is rescheduled.
	ClaimDue(ctx context.Context, asOf time.Time, limit int) ([]Reminder, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	Reschedule(ctx context.Context, id string, next time.Time, attempts int, lastErr string) error
	MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error
	// List returns reminders newest first; an empty status matches all.
	List(ctx context.Context, status Status, limit int) ([]Reminder, error)
}

const defaultListLimit = 50

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu        sync.Mutex
	reminders map[string]*Reminder
	claimed   map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reminders: make(map[string]*Reminder),
		claimed:   make(map[string]bool),
	}
}

func (s *MemoryStore) Enqueue(ctx context.Context, r *Reminder) error {
	prepare(r)
	cp := *r
	s.mu.Lock()
	s.reminders[r.ID] = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ClaimDue(ctx context.Context, asOf time.Time, limit int) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Reminder
	for id, r := range s.reminders {
		if r.Status != StatusPending || s.claimed[id] || r.RemindAt.After(asOf) {
			continue
		}
		due = append(due, r)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RemindAt.Before(due[j].RemindAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]Reminder, 0, len(due))
	for _, r := range due {
		s.claimed[r.ID] = true
		out = append(out, *r)
	}
	return out, nil
}

func (s *MemoryStore) update(id string, fn func(r *Reminder)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return ErrNotFound
	}
	fn(r)
	delete(s.claimed, id)
	return nil
}

func (s *MemoryStore) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return s.update(id, func(r *Reminder) {
		at := sentAt.UTC()
		r.Status = StatusSent
		r.SentAt = &at
		r.Attempts++
		r.LastError = ""
	})
}

func (s *MemoryStore) Reschedule(ctx context.Context, id string, next time.Time, attempts int, lastErr string) error {
	return s.update(id, func(r *Reminder) {
		r.Status = StatusPending
		r.RemindAt = next.UTC()
		r.Attempts = attempts
		r.LastError = lastErr
	})
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	return s.update(id, func(r *Reminder) {
		r.Status = StatusFailed
		r.Attempts = attempts
		r.LastError = lastErr
	})
}

func (s *MemoryStore) List(ctx context.Context, status Status, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	s.mu.Lock()
	out := make([]Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, *r)
	}
	s.mu.Unlock()

	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(list []Reminder) {
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
}

var _ Store = (*MemoryStore)(nil)
