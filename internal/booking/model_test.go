package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOccupies(t *testing.T) {
	assert.True(t, StatusScheduled.Occupies())
	assert.True(t, StatusConfirmed.Occupies())
	assert.True(t, StatusInProgress.Occupies())

	assert.False(t, StatusCompleted.Occupies())
	assert.False(t, StatusCancelled.Occupies())
	assert.False(t, StatusNoShow.Occupies())
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to AppointmentStatus
		allowed  bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusNoShow, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusScheduled, StatusInProgress, false},

		{StatusConfirmed, StatusInProgress, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusNoShow, false},

		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, false},

		{StatusCompleted, StatusScheduled, false},
		{StatusCancelled, StatusScheduled, false},
		{StatusNoShow, StatusScheduled, false},
	}

	for _, c := range cases {
		assert.Equalf(t, c.allowed, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []AppointmentStatus{StatusCompleted, StatusCancelled, StatusNoShow} {
		assert.Truef(t, s.Terminal(), "%s", s)
	}
	for _, s := range []AppointmentStatus{StatusScheduled, StatusConfirmed, StatusInProgress} {
		assert.Falsef(t, s.Terminal(), "%s", s)
	}
}

func TestDoctorDisplayName(t *testing.T) {
	d := Doctor{Title: "Dr.", FirstName: "Maria", LastName: "Reyes"}
	assert.Equal(t, "Dr. Reyes", d.DisplayName())
}
