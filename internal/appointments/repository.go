package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists scheduled appointments.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) error
	Get(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, limit int) ([]Appointment, error)
}

const defaultListLimit = 50

// prepare assigns an ID and creation time to a new appointment.
func prepare(appt *Appointment) {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	if appt.PreferredChannel == "" {
		appt.PreferredChannel = DefaultChannel
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

// InMemoryRepository keeps appointments for the life of the process.
type InMemoryRepository struct {
	mu           sync.RWMutex
	appointments map[string]Appointment
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{appointments: make(map[string]Appointment)}
}

// Create stores a copy of appt after assigning its ID.
func (r *InMemoryRepository) Create(ctx context.Context, appt *Appointment) error {
	prepare(appt)
	r.mu.Lock()
	r.appointments[appt.ID] = *appt
	r.mu.Unlock()
	return nil
}

// Get returns the appointment with the given ID.
func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &appt, nil
}

// List returns the most recently created appointments first.
func (r *InMemoryRepository) List(ctx context.Context, limit int) ([]Appointment, error) {
	r.mu.RLock()
	out := make([]Appointment, 0, len(r.appointments))
	for _, appt := range r.appointments {
		out = append(out, appt)
	}
	r.mu.RUnlock()

	sortNewestFirst(out)
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(list []Appointment) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
