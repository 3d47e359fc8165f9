package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the appointments table.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a repository backed by db.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresRepository{db: db}
}

const selectAppointment = `
	SELECT id, patient_name, appointment_time, contact_number, whatsapp_number, email_address, preferred_channel, created_at
	FROM appointments`

// Create inserts a new appointment row.
func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) error {
	prepare(appt)
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (id, patient_name, appointment_time, contact_number, whatsapp_number, email_address, preferred_channel, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		appt.ID, appt.PatientName, appt.AppointmentTime, appt.ContactNumber,
		appt.WhatsAppNumber, appt.EmailAddress, string(appt.PreferredChannel), appt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// Get loads one appointment by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, selectAppointment+` WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return appt, nil
}

// List returns the newest appointments first.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, selectAppointment+` ORDER BY created_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, *appt)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	var channel string
	if err := row.Scan(
		&appt.ID, &appt.PatientName, &appt.AppointmentTime, &appt.ContactNumber,
		&appt.WhatsAppNumber, &appt.EmailAddress, &channel, &appt.CreatedAt,
	); err != nil {
		return nil, err
	}
	appt.PreferredChannel = Channel(channel)
	return &appt, nil
}
