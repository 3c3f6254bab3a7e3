package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// anyArgs builds n pgxmock.AnyArg() matchers. pgxmock treats an expectation
// without WithArgs as "expects zero arguments", so queries that do take
// arguments need explicit wildcards to match.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgRepository(mock), mock
}

func appointmentRows(t *testing.T, a *Appointment) *pgxmock.Rows {
	t.Helper()
	return pgxmock.NewRows([]string{
		"id", "patient_id", "doctor_id", "service_code", "service_name",
		"appointment_date", "appointment_time", "duration_minutes", "status", "urgency",
		"notes", "patient_notes", "payment_method", "estimated_cost_cents",
		"cancellation_reason", "cancelled_by", "cancelled_at", "created_at", "updated_at",
	}).AddRow(
		a.ID, a.PatientID, a.DoctorID, a.ServiceCode, a.ServiceName,
		a.Date, a.Time.String(), a.DurationMinutes, a.Status, a.Urgency,
		a.Notes, a.PatientNotes, a.PaymentMethod, a.EstimatedCostCents,
		a.CancellationReason, a.CancelledBy, a.CancelledAt, a.CreatedAt, a.UpdatedAt,
	)
}

func sampleAppointment(t *testing.T) *Appointment {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	return &Appointment{
		ID:                 uuid.New(),
		PatientID:          uuid.New(),
		DoctorID:           uuid.New(),
		ServiceCode:        "CLEANING",
		ServiceName:        "Teeth Cleaning",
		Date:               time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		Time:               mustTime(t, "09:30"),
		DurationMinutes:    45,
		Status:             StatusScheduled,
		Urgency:            UrgencyRoutine,
		PaymentMethod:      PaymentSelfPay,
		EstimatedCostCents: 8000,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestPgCreateAppointment(t *testing.T) {
	repo, mock := newMockRepo(t)
	appt := sampleAppointment(t)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(anyArgs(14)...).
		WillReturnRows(appointmentRows(t, appt))

	created, err := repo.CreateAppointment(context.Background(), appt)
	require.NoError(t, err)

	assert.Equal(t, appt.ID, created.ID)
	assert.Equal(t, "09:30", created.Time.String())
	assert.Equal(t, StatusScheduled, created.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCreateAppointment_ConflictReturnsNoRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	// ON CONFLICT DO NOTHING suppresses the insert; no row comes back.
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(anyArgs(14)...).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.CreateAppointment(context.Background(), sampleAppointment(t))
	assert.ErrorIs(t, err, ErrSlotTaken)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateAppointment_UniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(anyArgs(7)...).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	_, err := repo.UpdateAppointment(context.Background(), sampleAppointment(t), StatusScheduled)
	assert.ErrorIs(t, err, ErrSlotTaken)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateAppointmentStatus_LostCompareAndSet(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(anyArgs(3)...).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.UpdateAppointmentStatus(context.Background(), uuid.New(), StatusScheduled, StatusConfirmed)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCancelAppointment(t *testing.T) {
	repo, mock := newMockRepo(t)

	appt := sampleAppointment(t)
	appt.Status = StatusCancelled
	reason := "patient request"
	by := "patient"
	cancelledAt := time.Now().UTC()
	appt.CancellationReason = &reason
	appt.CancelledBy = &by
	appt.CancelledAt = &cancelledAt

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(appt.ID, &reason, "patient", StatusScheduled).
		WillReturnRows(appointmentRows(t, appt))

	cancelled, err := repo.CancelAppointment(context.Background(), appt.ID, StatusScheduled, &reason, "patient")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, "patient", *cancelled.CancelledBy)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetServiceByCode_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM services").
		WithArgs("VENEERS").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetServiceByCode(context.Background(), "VENEERS")
	assert.ErrorIs(t, err, ErrServiceNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgOccupiedSlots(t *testing.T) {
	repo, mock := newMockRepo(t)

	drA, drB := uuid.New(), uuid.New()
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT doctor_id, appointment_time").
		WithArgs(anyArgs(2)...).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id", "appointment_time"}).
			AddRow(drA, "09:00").
			AddRow(drA, "10:30").
			AddRow(drB, "09:00"))

	occupied, err := repo.OccupiedSlots(context.Background(), []uuid.UUID{drA, drB}, date)
	require.NoError(t, err)
	require.Len(t, occupied, 3)

	_, ok := occupied[SlotKey{DoctorID: drA, Time: mustTime(t, "10:30")}]
	assert.True(t, ok)
	_, ok = occupied[SlotKey{DoctorID: drB, Time: mustTime(t, "10:30")}]
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgWorkingHoursForDoctors(t *testing.T) {
	repo, mock := newMockRepo(t)

	drA := uuid.New()

	mock.ExpectQuery("SELECT doctor_id, weekday, start_time, end_time, is_working").
		WithArgs(anyArgs(2)...).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id", "weekday", "start_time", "end_time", "is_working"}).
			AddRow(drA, 1, "09:00", "17:00", true))

	hours, err := repo.WorkingHoursForDoctors(context.Background(), []uuid.UUID{drA}, time.Monday)
	require.NoError(t, err)
	require.Contains(t, hours, drA)

	wh := hours[drA]
	assert.Equal(t, time.Monday, wh.Weekday)
	assert.Equal(t, "09:00", wh.Start.String())
	assert.Equal(t, "17:00", wh.End.String())
	assert.True(t, wh.IsWorking)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListAppointmentsByPatient(t *testing.T) {
	repo, mock := newMockRepo(t)

	appt := sampleAppointment(t)

	mock.ExpectQuery("SELECT count").
		WithArgs(appt.PatientID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(appt.PatientID, 10, 0).
		WillReturnRows(appointmentRows(t, appt))

	appts, total, err := repo.ListAppointmentsByPatient(context.Background(), appt.PatientID, nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, appts, 1)
	assert.Equal(t, appt.ID, appts[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
