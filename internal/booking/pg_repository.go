package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface so tests can substitute pgxmock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// activeStatuses is the occupancy predicate: only these statuses count
// against a doctor-date-time slot. Matched by the partial unique index
// uq_appointments_active_slot in the schema.
const activeStatuses = `('scheduled', 'confirmed', 'in_progress')`

const uniqueViolation = "23505"

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

// Helpers

func scanService(row pgx.Row) (*Service, error) {
	var s Service

	err := row.Scan(
		&s.Code,
		&s.Name,
		&s.Category,
		&s.DurationMinutes,
		&s.BasePriceCents,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Title,
		&d.FirstName,
		&d.LastName,
		&d.Specialization,
		&d.IsActive,
		&d.IsAvailable,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var phone *string

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Phone = phone
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var timeStr string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ServiceCode,
		&a.ServiceName,
		&a.Date,
		&timeStr,
		&a.DurationMinutes,
		&a.Status,
		&a.Urgency,
		&a.Notes,
		&a.PatientNotes,
		&a.PaymentMethod,
		&a.EstimatedCostCents,
		&a.CancellationReason,
		&a.CancelledBy,
		&a.CancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	t, err := ParseTimeOfDay(timeStr)
	if err != nil {
		return nil, fmt.Errorf("stored appointment time: %w", err)
	}
	a.Time = t

	return &a, nil
}

const appointmentColumns = `id, patient_id, doctor_id, service_code, service_name,
		       appointment_date, appointment_time, duration_minutes, status, urgency,
		       notes, patient_notes, payment_method, estimated_cost_cents,
		       cancellation_reason, cancelled_by, cancelled_at, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetServiceByCode(ctx context.Context, code string) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		SELECT code, name, category, duration_minutes, base_price_cents, is_active, created_at, updated_at
		FROM services
		WHERE code = $1 AND is_active
	`, code)
	return scanService(row)
}

func (r *PgRepository) ListActiveServices(ctx context.Context) ([]Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT code, name, category, duration_minutes, base_price_cents, is_active, created_at, updated_at
		FROM services
		WHERE is_active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	return result, rows.Err()
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, title, first_name, last_name, specialization, is_active, is_available, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

// ListDoctorsForService resolves doctors by capability. Name order keeps the
// "first eligible doctor" pick deterministic across requests.
func (r *PgRepository) ListDoctorsForService(ctx context.Context, serviceCode string) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT d.id, d.title, d.first_name, d.last_name, d.specialization, d.is_active, d.is_available, d.created_at, d.updated_at
		FROM doctors d
		JOIN doctor_services ds ON ds.doctor_id = d.id
		WHERE ds.service_code = $1 AND d.is_active AND d.is_available
		ORDER BY d.last_name, d.first_name
	`, serviceCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	return result, rows.Err()
}

func (r *PgRepository) WorkingHoursForDoctors(ctx context.Context, doctorIDs []uuid.UUID, weekday time.Weekday) (map[uuid.UUID]WorkingHours, error) {
	rows, err := r.db.Query(ctx, `
		SELECT doctor_id, weekday, start_time, end_time, is_working
		FROM doctor_working_hours
		WHERE doctor_id = ANY($1) AND weekday = $2
	`, doctorIDs, int(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[uuid.UUID]WorkingHours, len(doctorIDs))
	for rows.Next() {
		var wh WorkingHours
		var wd int
		var startStr, endStr string

		if err := rows.Scan(&wh.DoctorID, &wd, &startStr, &endStr, &wh.IsWorking); err != nil {
			return nil, err
		}
		wh.Weekday = time.Weekday(wd)

		if wh.Start, err = ParseTimeOfDay(startStr); err != nil {
			return nil, fmt.Errorf("stored start time: %w", err)
		}
		if wh.End, err = ParseTimeOfDay(endStr); err != nil {
			return nil, fmt.Errorf("stored end time: %w", err)
		}

		result[wh.DoctorID] = wh
	}

	return result, rows.Err()
}

// OccupiedSlots fetches the day's occupancy for all candidate doctors at
// once, so availability costs one query regardless of slot count.
func (r *PgRepository) OccupiedSlots(ctx context.Context, doctorIDs []uuid.UUID, date time.Time) (map[SlotKey]struct{}, error) {
	rows, err := r.db.Query(ctx, `
		SELECT doctor_id, appointment_time
		FROM appointments
		WHERE appointment_date = $1
		  AND doctor_id = ANY($2)
		  AND status IN `+activeStatuses+`
	`, date, doctorIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[SlotKey]struct{})
	for rows.Next() {
		var doctorID uuid.UUID
		var timeStr string

		if err := rows.Scan(&doctorID, &timeStr); err != nil {
			return nil, err
		}

		t, err := ParseTimeOfDay(timeStr)
		if err != nil {
			return nil, fmt.Errorf("stored appointment time: %w", err)
		}

		result[SlotKey{DoctorID: doctorID, Time: t}] = struct{}{}
	}

	return result, rows.Err()
}

// CreateAppointment is the reservation's atomic unit. The insert races
// against the partial unique index over active statuses: among concurrent
// attempts for one slot exactly one row lands, the rest observe the
// conflict and get ErrSlotTaken.
func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	id := appt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, service_code, service_name,
		                          appointment_date, appointment_time, duration_minutes, status, urgency,
		                          notes, patient_notes, payment_method, estimated_cost_cents,
		                          created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		ON CONFLICT (doctor_id, appointment_date, appointment_time)
		   WHERE status IN `+activeStatuses+`
		   DO NOTHING
		RETURNING `+appointmentColumns+`
	`, id, appt.PatientID, appt.DoctorID, appt.ServiceCode, appt.ServiceName,
		appt.Date, appt.Time.String(), appt.DurationMinutes, appt.Status, appt.Urgency,
		appt.Notes, appt.PatientNotes, appt.PaymentMethod, appt.EstimatedCostCents)

	created, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// ON CONFLICT DO NOTHING returned no row: the slot was taken.
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, status *AppointmentStatus, limit, offset int) ([]Appointment, int, error) {
	var total int
	var err error
	if status != nil {
		err = r.db.QueryRow(ctx, `
			SELECT count(*) FROM appointments WHERE patient_id = $1 AND status = $2
		`, patientID, *status).Scan(&total)
	} else {
		err = r.db.QueryRow(ctx, `
			SELECT count(*) FROM appointments WHERE patient_id = $1
		`, patientID).Scan(&total)
	}
	if err != nil {
		return nil, 0, err
	}

	var rows pgx.Rows
	if status != nil {
		rows, err = r.db.Query(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE patient_id = $1 AND status = $2
			ORDER BY appointment_date DESC, appointment_time DESC
			LIMIT $3 OFFSET $4
		`, patientID, *status, limit, offset)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE patient_id = $1
			ORDER BY appointment_date DESC, appointment_time DESC
			LIMIT $2 OFFSET $3
		`, patientID, limit, offset)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *a)
	}

	return result, total, rows.Err()
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, appt *Appointment, fromStatus AppointmentStatus) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_date = $2,
		    appointment_time = $3,
		    notes = $4,
		    patient_notes = $5,
		    payment_method = $6,
		    updated_at = now()
		WHERE id = $1
		  AND status = $7
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.Date, appt.Time.String(), appt.Notes, appt.PatientNotes,
		appt.PaymentMethod, fromStatus)

	updated, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// Moving onto a slot another active appointment holds.
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	return updated, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) CancelAppointment(ctx context.Context, id uuid.UUID, fromStatus AppointmentStatus, reason *string, cancelledBy string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancellation_reason = $2,
		    cancelled_by = $3,
		    cancelled_at = now(),
		    updated_at = now()
		WHERE id = $1
		  AND status = $4
		RETURNING `+appointmentColumns+`
	`, id, reason, cancelledBy, fromStatus)

	return scanAppointment(row)
}
