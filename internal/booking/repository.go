package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrServiceNotFound     = errors.New("service not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned when an active appointment already occupies the
	// requested doctor-date-time triple, including when a concurrent
	// reservation won the race.
	ErrSlotTaken = errors.New("time slot is already booked")
)

// Repository contains all DB interactions needed by the scheduler.
type Repository interface {
	GetServiceByCode(ctx context.Context, code string) (*Service, error)
	ListActiveServices(ctx context.Context) ([]Service, error)

	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	// ListDoctorsForService returns active, available doctors offering the
	// service, in stable resolution order.
	ListDoctorsForService(ctx context.Context, serviceCode string) ([]Doctor, error)

	// WorkingHoursForDoctors is the calendar lookup for one weekday. Doctors
	// without a row are closed that day.
	WorkingHoursForDoctors(ctx context.Context, doctorIDs []uuid.UUID, weekday time.Weekday) (map[uuid.UUID]WorkingHours, error)

	// OccupiedSlots returns the set of (doctor, time) pairs holding an active
	// appointment on the date, in a single query.
	OccupiedSlots(ctx context.Context, doctorIDs []uuid.UUID, date time.Time) (map[SlotKey]struct{}, error)

	// CreateAppointment inserts atomically, failing with ErrSlotTaken when the
	// slot is occupied at insert time. Concurrent inserts for the same slot
	// resolve to exactly one winner.
	CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, status *AppointmentStatus, limit, offset int) ([]Appointment, int, error)

	// UpdateAppointment rewrites the mutable fields, guarded by the same
	// occupancy constraint as CreateAppointment when the slot moves. The
	// update applies only while the appointment is still in fromStatus.
	UpdateAppointment(ctx context.Context, appt *Appointment, fromStatus AppointmentStatus) (*Appointment, error)

	// UpdateAppointmentStatus is a compare-and-swap on status.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// CancelAppointment moves the appointment from fromStatus to cancelled and
	// records the audit trail.
	CancelAppointment(ctx context.Context, id uuid.UUID, fromStatus AppointmentStatus, reason *string, cancelledBy string) (*Appointment, error)
}
