package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightsmile/dental-portal/internal/booking"
)

func availableSlotsHandler(sched *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dateStr := r.URL.Query().Get("date")
		serviceCode := r.URL.Query().Get("service")

		if dateStr == "" || serviceCode == "" {
			writeError(w, http.StatusBadRequest, "date and service are required")
			return
		}

		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
			return
		}

		slots, err := sched.AvailableSlots(r.Context(), date, serviceCode)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, toSlotResponse(s))
		}

		writeSuccess(w, http.StatusOK, resp)
	}
}

func createAppointmentHandler(sched *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := PatientID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse request body")
			return
		}

		if req.Service == "" || req.AppointmentDate == "" || req.AppointmentTime == "" || req.PaymentMethod == "" {
			writeError(w, http.StatusBadRequest, "service, appointmentDate, appointmentTime and paymentMethod are required")
			return
		}

		date, err := time.Parse("2006-01-02", req.AppointmentDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "appointmentDate must be formatted YYYY-MM-DD")
			return
		}

		slotTime, err := booking.ParseTimeOfDay(req.AppointmentTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "appointmentTime must be formatted HH:MM")
			return
		}
		if int(slotTime)%booking.SlotGranularityMinutes != 0 {
			writeError(w, http.StatusBadRequest, "appointmentTime must fall on a 30-minute boundary")
			return
		}

		if !booking.ValidPaymentMethod(booking.PaymentMethod(req.PaymentMethod)) {
			writeError(w, http.StatusBadRequest, "unknown payment method")
			return
		}

		var doctorID *uuid.UUID
		if req.DoctorID != nil {
			id, err := uuid.Parse(*req.DoctorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "doctorId must be a valid UUID")
				return
			}
			doctorID = &id
		}

		appt, err := sched.Reserve(r.Context(), booking.ReserveRequest{
			PatientID:          patientID,
			DoctorID:           doctorID,
			ServiceCode:        req.Service,
			Date:               date,
			Time:               slotTime,
			PaymentMethod:      booking.PaymentMethod(req.PaymentMethod),
			Urgency:            booking.Urgency(req.Urgency),
			Notes:              req.Notes,
			PatientNotes:       req.PatientNotes,
			EstimatedCostCents: req.EstimatedCostCents,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeSuccess(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(sched *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := PatientID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		var status *booking.AppointmentStatus
		if s := r.URL.Query().Get("status"); s != "" {
			st := booking.AppointmentStatus(s)
			status = &st
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 10
		}

		appts, total, err := sched.ListAppointments(r.Context(), patientID, status, page, limit)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}

		pages := (total + limit - 1) / limit
		writePage(w, resp, Pagination{Current: page, Pages: pages, Total: total})
	}
}

func getAppointmentHandler(sched *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := PatientID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be a valid UUID")
			return
		}

		appt, err := sched.GetAppointment(r.Context(), patientID, id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateAppointmentHandler(sched *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := PatientID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse request body")
			return
		}

		var upd booking.UpdateRequest

		if req.AppointmentDate != nil {
			date, err := time.Parse("2006-01-02", *req.AppointmentDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "appointmentDate must be formatted YYYY-MM-DD")
				return
			}
			upd.Date = &date
		}
		if req.AppointmentTime != nil {
			t, err := booking.ParseTimeOfDay(*req.AppointmentTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, "appointmentTime must be formatted HH:MM")
				return
			}
			if int(t)%booking.SlotGranularityMinutes != 0 {
				writeError(w, http.StatusBadRequest, "appointmentTime must fall on a 30-minute boundary")
				return
			}
			upd.Time = &t
		}
		if req.PaymentMethod != nil {
			m := booking.PaymentMethod(*req.PaymentMethod)
			if !booking.ValidPaymentMethod(m) {
				writeError(w, http.StatusBadRequest, "unknown payment method")
				return
			}
			upd.PaymentMethod = &m
		}
		upd.Notes = req.Notes
		upd.PatientNotes = req.PatientNotes

		appt, err := sched.UpdateAppointment(r.Context(), patientID, id, upd)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(sched *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := PatientID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be a valid UUID")
			return
		}

		// Body is optional on cancel.
		var req CancelAppointmentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		appt, err := sched.CancelAppointment(r.Context(), patientID, id, req.CancellationReason)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listServicesHandler(sched *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := sched.ListServices(r.Context())
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := make([]ServiceResponse, 0, len(services))
		for _, s := range services {
			resp = append(resp, toServiceResponse(s))
		}

		writeSuccess(w, http.StatusOK, resp)
	}
}

func getServiceHandler(sched *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := sched.GetService(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, toServiceResponse(*svc))
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrServiceNotFound),
		errors.Is(err, booking.ErrDoctorNotFound),
		errors.Is(err, booking.ErrPatientNotFound),
		errors.Is(err, booking.ErrAppointmentNotFound),
		errors.Is(err, booking.ErrNoDoctorAvailable):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrAccessDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "This time slot is already booked. Please choose another time.")
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server error")
	}
}
