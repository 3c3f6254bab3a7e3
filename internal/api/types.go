package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/brightsmile/dental-portal/internal/booking"
)

type CreateAppointmentRequest struct {
	Service            string  `json:"service"`
	AppointmentDate    string  `json:"appointmentDate"`
	AppointmentTime    string  `json:"appointmentTime"`
	DoctorID           *string `json:"doctorId,omitempty"`
	PaymentMethod      string  `json:"paymentMethod"`
	Urgency            string  `json:"urgency,omitempty"`
	Notes              *string `json:"notes,omitempty"`
	PatientNotes       *string `json:"patientNotes,omitempty"`
	EstimatedCostCents *int64  `json:"estimatedCostCents,omitempty"`
}

type UpdateAppointmentRequest struct {
	AppointmentDate *string `json:"appointmentDate,omitempty"`
	AppointmentTime *string `json:"appointmentTime,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	PatientNotes    *string `json:"patientNotes,omitempty"`
	PaymentMethod   *string `json:"paymentMethod,omitempty"`
}

type CancelAppointmentRequest struct {
	CancellationReason *string `json:"cancellationReason,omitempty"`
}

type DoctorResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
}

type SlotResponse struct {
	Time     string         `json:"time"`
	Doctor   DoctorResponse `json:"doctor"`
	Duration int            `json:"duration"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patientId"`
	DoctorID           uuid.UUID  `json:"doctorId"`
	Service            string     `json:"service"`
	ServiceName        string     `json:"serviceName"`
	AppointmentDate    string     `json:"appointmentDate"`
	AppointmentTime    string     `json:"appointmentTime"`
	Duration           int        `json:"duration"`
	Status             string     `json:"status"`
	Urgency            string     `json:"urgency"`
	Notes              *string    `json:"notes,omitempty"`
	PatientNotes       *string    `json:"patientNotes,omitempty"`
	PaymentMethod      string     `json:"paymentMethod"`
	EstimatedCostCents int64      `json:"estimatedCostCents"`
	CancellationReason *string    `json:"cancellationReason,omitempty"`
	CancelledBy        *string    `json:"cancelledBy,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

type ServiceResponse struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Duration       int    `json:"duration"`
	BasePriceCents int64  `json:"basePriceCents"`
}

func toSlotResponse(s booking.Slot) SlotResponse {
	return SlotResponse{
		Time: s.Time.String(),
		Doctor: DoctorResponse{
			ID:             s.DoctorID,
			Name:           s.DoctorName,
			Specialization: s.Specialization,
		},
		Duration: s.DurationMinutes,
	}
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		DoctorID:           a.DoctorID,
		Service:            a.ServiceCode,
		ServiceName:        a.ServiceName,
		AppointmentDate:    a.Date.Format("2006-01-02"),
		AppointmentTime:    a.Time.String(),
		Duration:           a.DurationMinutes,
		Status:             string(a.Status),
		Urgency:            string(a.Urgency),
		Notes:              a.Notes,
		PatientNotes:       a.PatientNotes,
		PaymentMethod:      string(a.PaymentMethod),
		EstimatedCostCents: a.EstimatedCostCents,
		CancellationReason: a.CancellationReason,
		CancelledBy:        a.CancelledBy,
		CancelledAt:        a.CancelledAt,
		CreatedAt:          a.CreatedAt,
	}
}

func toServiceResponse(s booking.Service) ServiceResponse {
	return ServiceResponse{
		Code:           s.Code,
		Name:           s.Name,
		Category:       s.Category,
		Duration:       s.DurationMinutes,
		BasePriceCents: s.BasePriceCents,
	}
}
