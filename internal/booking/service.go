package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightsmile/dental-portal/internal/observability/metrics"
	"github.com/brightsmile/dental-portal/pkg/logging"
)

var (
	ErrNoDoctorAvailable = errors.New("no doctor available for this service")
	ErrAccessDenied      = errors.New("appointment belongs to another patient")

	// ErrInvalidTransition covers patient actions against appointments that
	// are terminal or already underway.
	ErrInvalidTransition = errors.New("appointment status does not allow this change")
)

// AvailabilityCache is an optional read-through cache for availability
// responses. Availability is advisory, so bounded staleness is fine;
// writers still invalidate the touched dates.
type AvailabilityCache interface {
	GetSlots(ctx context.Context, date time.Time, serviceCode string) ([]Slot, bool)
	SetSlots(ctx context.Context, date time.Time, serviceCode string, slots []Slot)
	InvalidateDate(ctx context.Context, date time.Time)
}

// Scheduler is the slot-allocation and conflict-avoidance engine.
type Scheduler struct {
	repo    Repository
	cache   AvailabilityCache
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

func NewScheduler(repo Repository, cache AvailabilityCache, m *metrics.BookingMetrics, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		repo:    repo,
		cache:   cache,
		metrics: m,
		logger:  logger,
	}
}

// DateOnly truncates to the calendar day in UTC. Appointment dates carry no
// time component.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AvailableSlots computes the bookable (doctor, time) pairs for a date and
// service. Pure read path: zero open slots is a normal empty result, not an
// error. Results are grouped by doctor in resolution order, ascending time
// within each doctor.
func (s *Scheduler) AvailableSlots(ctx context.Context, date time.Time, serviceCode string) ([]Slot, error) {
	date = DateOnly(date)

	if s.cache != nil {
		if slots, ok := s.cache.GetSlots(ctx, date, serviceCode); ok {
			s.metrics.ObserveAvailability("cache")
			return slots, nil
		}
	}

	svc, err := s.repo.GetServiceByCode(ctx, serviceCode)
	if err != nil {
		return nil, err
	}

	doctors, err := s.repo.ListDoctorsForService(ctx, svc.Code)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	if len(doctors) == 0 {
		return nil, ErrNoDoctorAvailable
	}

	doctorIDs := make([]uuid.UUID, len(doctors))
	for i, d := range doctors {
		doctorIDs[i] = d.ID
	}

	hours, err := s.repo.WorkingHoursForDoctors(ctx, doctorIDs, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load working hours: %w", err)
	}

	occupied, err := s.repo.OccupiedSlots(ctx, doctorIDs, date)
	if err != nil {
		return nil, fmt.Errorf("load occupied slots: %w", err)
	}

	slots := []Slot{}
	for _, d := range doctors {
		wh, ok := hours[d.ID]
		if !ok {
			continue
		}
		start, end, open := wh.Open()
		if !open {
			continue
		}

		for _, t := range SlotTimes(start, end, SlotGranularityMinutes) {
			if _, taken := occupied[SlotKey{DoctorID: d.ID, Time: t}]; taken {
				continue
			}
			slots = append(slots, Slot{
				Time:            t,
				DoctorID:        d.ID,
				DoctorName:      d.DisplayName(),
				Specialization:  d.Specialization,
				DurationMinutes: svc.DurationMinutes,
			})
		}
	}

	if s.cache != nil {
		s.cache.SetSlots(ctx, date, serviceCode, slots)
	}
	s.metrics.ObserveAvailability("db")

	return slots, nil
}

// ReserveRequest is the validated input for a reservation. DoctorID nil
// means "any eligible doctor".
type ReserveRequest struct {
	PatientID          uuid.UUID
	DoctorID           *uuid.UUID
	ServiceCode        string
	Date               time.Time
	Time               TimeOfDay
	PaymentMethod      PaymentMethod
	Urgency            Urgency
	Notes              *string
	PatientNotes       *string
	EstimatedCostCents *int64
}

// Reserve books a slot. The occupancy re-check and the insert are one
// atomic unit in the repository, so two racing reservations for the same
// doctor-date-time resolve to exactly one winner; the loser gets
// ErrSlotTaken.
func (s *Scheduler) Reserve(ctx context.Context, req ReserveRequest) (*Appointment, error) {
	svc, err := s.repo.GetServiceByCode(ctx, req.ServiceCode)
	if err != nil {
		return nil, err
	}

	doctors, err := s.repo.ListDoctorsForService(ctx, svc.Code)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	if len(doctors) == 0 {
		return nil, ErrNoDoctorAvailable
	}

	// First eligible doctor unless the caller picked one. No load balancing;
	// resolution order is stable.
	doctor := &doctors[0]
	if req.DoctorID != nil {
		doctor = nil
		for i := range doctors {
			if doctors[i].ID == *req.DoctorID {
				doctor = &doctors[i]
				break
			}
		}
		if doctor == nil {
			return nil, ErrDoctorNotFound
		}
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = UrgencyRoutine
	}

	cost := svc.BasePriceCents
	if req.EstimatedCostCents != nil {
		cost = *req.EstimatedCostCents
	}

	appt := &Appointment{
		PatientID:          req.PatientID,
		DoctorID:           doctor.ID,
		ServiceCode:        svc.Code,
		ServiceName:        svc.Name,
		Date:               DateOnly(req.Date),
		Time:               req.Time,
		DurationMinutes:    svc.DurationMinutes,
		Status:             StatusScheduled,
		Urgency:            urgency,
		Notes:              req.Notes,
		PatientNotes:       req.PatientNotes,
		PaymentMethod:      req.PaymentMethod,
		EstimatedCostCents: cost,
	}

	created, err := s.repo.CreateAppointment(ctx, appt)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveReservation("conflict")
		}
		return nil, err
	}

	s.invalidate(ctx, created.Date)
	s.metrics.ObserveReservation("created")
	s.logger.Info("appointment reserved",
		"appointment_id", created.ID,
		"doctor_id", created.DoctorID,
		"date", created.Date.Format("2006-01-02"),
		"time", created.Time.String(),
	)

	return created, nil
}

// GetAppointment loads one appointment, enforcing patient ownership.
func (s *Scheduler) GetAppointment(ctx context.Context, patientID, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != patientID {
		return nil, ErrAccessDenied
	}
	return appt, nil
}

// ListAppointments returns the patient's history, newest first.
func (s *Scheduler) ListAppointments(ctx context.Context, patientID uuid.UUID, status *AppointmentStatus, page, limit int) ([]Appointment, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}

	return s.repo.ListAppointmentsByPatient(ctx, patientID, status, limit, (page-1)*limit)
}

// UpdateRequest carries the patient-editable fields; nil means unchanged.
type UpdateRequest struct {
	Date          *time.Time
	Time          *TimeOfDay
	Notes         *string
	PatientNotes  *string
	PaymentMethod *PaymentMethod
}

// UpdateAppointment reschedules or annotates an appointment the patient
// owns. Only scheduled and confirmed appointments may change; moving the
// slot goes through the same occupancy constraint as a fresh reservation.
func (s *Scheduler) UpdateAppointment(ctx context.Context, patientID, id uuid.UUID, upd UpdateRequest) (*Appointment, error) {
	appt, err := s.GetAppointment(ctx, patientID, id)
	if err != nil {
		return nil, err
	}

	if appt.Status != StatusScheduled && appt.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}

	oldDate := appt.Date
	if upd.Date != nil {
		appt.Date = DateOnly(*upd.Date)
	}
	if upd.Time != nil {
		appt.Time = *upd.Time
	}
	if upd.Notes != nil {
		appt.Notes = upd.Notes
	}
	if upd.PatientNotes != nil {
		appt.PatientNotes = upd.PatientNotes
	}
	if upd.PaymentMethod != nil {
		appt.PaymentMethod = *upd.PaymentMethod
	}

	updated, err := s.repo.UpdateAppointment(ctx, appt, appt.Status)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, oldDate)
	if !updated.Date.Equal(oldDate) {
		s.invalidate(ctx, updated.Date)
	}

	return updated, nil
}

// CancelAppointment cancels an appointment the patient owns, freeing its
// slot for future reservations.
func (s *Scheduler) CancelAppointment(ctx context.Context, patientID, id uuid.UUID, reason *string) (*Appointment, error) {
	appt, err := s.GetAppointment(ctx, patientID, id)
	if err != nil {
		return nil, err
	}

	if !appt.Status.CanTransitionTo(StatusCancelled) {
		return nil, ErrInvalidTransition
	}

	cancelled, err := s.repo.CancelAppointment(ctx, id, appt.Status, reason, "patient")
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with a staff-side status change.
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	s.invalidate(ctx, cancelled.Date)
	s.logger.Info("appointment cancelled",
		"appointment_id", cancelled.ID,
		"doctor_id", cancelled.DoctorID,
	)

	return cancelled, nil
}

// ListServices exposes the read-only catalog.
func (s *Scheduler) ListServices(ctx context.Context) ([]Service, error) {
	return s.repo.ListActiveServices(ctx)
}

// GetService looks up one active service by code.
func (s *Scheduler) GetService(ctx context.Context, code string) (*Service, error) {
	return s.repo.GetServiceByCode(ctx, code)
}

func (s *Scheduler) invalidate(ctx context.Context, date time.Time) {
	if s.cache != nil {
		s.cache.InvalidateDate(ctx, date)
	}
}
