package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// Occupies reports whether an appointment in this status counts against its
// doctor-date-time slot. Completed appointments occupy history, not the
// future; cancelled and no-show free the slot immediately.
func (s AppointmentStatus) Occupies() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// CanTransitionTo enforces the appointment lifecycle:
// scheduled -> confirmed|cancelled|no_show, confirmed -> in_progress|cancelled,
// in_progress -> completed.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case StatusScheduled:
		return next == StatusConfirmed || next == StatusCancelled || next == StatusNoShow
	case StatusConfirmed:
		return next == StatusInProgress || next == StatusCancelled
	case StatusInProgress:
		return next == StatusCompleted
	}
	return false
}

type Urgency string

const (
	UrgencyRoutine   Urgency = "routine"
	UrgencySoon      Urgency = "soon"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

type PaymentMethod string

const (
	PaymentInsurance  PaymentMethod = "insurance"
	PaymentSelfPay    PaymentMethod = "selfPay"
	PaymentPlan       PaymentMethod = "paymentPlan"
	PaymentCareCredit PaymentMethod = "careCredit"
)

func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentInsurance, PaymentSelfPay, PaymentPlan, PaymentCareCredit:
		return true
	}
	return false
}

type Patient struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID             uuid.UUID
	Title          string
	FirstName      string
	LastName       string
	Specialization string
	IsActive       bool
	IsAvailable    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayName is the patient-facing short form, e.g. "Dr. Reyes".
func (d *Doctor) DisplayName() string {
	return fmt.Sprintf("%s %s", d.Title, d.LastName)
}

type Service struct {
	Code            string
	Name            string
	Category        string
	DurationMinutes int
	BasePriceCents  int64
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WorkingHours is one weekday's open interval for a doctor. A row with
// IsWorking false (or no row at all) means the doctor is closed that day.
type WorkingHours struct {
	DoctorID  uuid.UUID
	Weekday   time.Weekday
	Start     TimeOfDay
	End       TimeOfDay
	IsWorking bool
}

// Open returns the day's interval. Closed days (IsWorking false) and
// degenerate intervals report open == false.
func (w WorkingHours) Open() (start, end TimeOfDay, open bool) {
	if !w.IsWorking || w.Start >= w.End {
		return 0, 0, false
	}
	return w.Start, w.End, true
}

type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	DoctorID           uuid.UUID
	ServiceCode        string
	ServiceName        string
	Date               time.Time // calendar day, midnight UTC
	Time               TimeOfDay
	DurationMinutes    int
	Status             AppointmentStatus
	Urgency            Urgency
	Notes              *string
	PatientNotes       *string
	PaymentMethod      PaymentMethod
	EstimatedCostCents int64
	CancellationReason *string
	CancelledBy        *string
	CancelledAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Slot is a bookable (doctor, time) pair for a given date. Derived on
// demand, never persisted.
type Slot struct {
	Time            TimeOfDay `json:"time"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	DoctorName      string    `json:"doctor_name"`
	Specialization  string    `json:"specialization"`
	DurationMinutes int       `json:"duration_minutes"`
}

// SlotKey identifies a doctor-time pair within one date, for occupancy sets.
type SlotKey struct {
	DoctorID uuid.UUID
	Time     TimeOfDay
}
