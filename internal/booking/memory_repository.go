package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository with the same conflict
// semantics as the Postgres implementation. It backs tests and local
// development without a database.
type MemoryRepository struct {
	mu sync.Mutex

	services     map[string]Service
	patients     map[uuid.UUID]Patient
	doctors      map[uuid.UUID]Doctor
	capabilities map[string][]uuid.UUID // service code -> doctor ids
	hours        map[uuid.UUID]map[time.Weekday]WorkingHours
	appointments map[uuid.UUID]*Appointment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		services:     make(map[string]Service),
		patients:     make(map[uuid.UUID]Patient),
		doctors:      make(map[uuid.UUID]Doctor),
		capabilities: make(map[string][]uuid.UUID),
		hours:        make(map[uuid.UUID]map[time.Weekday]WorkingHours),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

// Fixture setup

func (r *MemoryRepository) AddService(s Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[s.Code] = s
}

func (r *MemoryRepository) AddPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
}

func (r *MemoryRepository) AddDoctor(d Doctor, serviceCodes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doctors[d.ID] = d
	for _, code := range serviceCodes {
		r.capabilities[code] = append(r.capabilities[code], d.ID)
	}
}

func (r *MemoryRepository) SetWorkingHours(doctorID uuid.UUID, wh WorkingHours) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wh.DoctorID = doctorID
	if r.hours[doctorID] == nil {
		r.hours[doctorID] = make(map[time.Weekday]WorkingHours)
	}
	r.hours[doctorID][wh.Weekday] = wh
}

// Repository implementation

func (r *MemoryRepository) GetServiceByCode(ctx context.Context, code string) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.services[code]
	if !ok || !s.IsActive {
		return nil, ErrServiceNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) ListActiveServices(ctx context.Context) ([]Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Service
	for _, s := range r.services {
		if s.IsActive {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *MemoryRepository) ListDoctorsForService(ctx context.Context, serviceCode string) ([]Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Doctor
	for _, id := range r.capabilities[serviceCode] {
		d := r.doctors[id]
		if d.IsActive && d.IsAvailable {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

func (r *MemoryRepository) WorkingHoursForDoctors(ctx context.Context, doctorIDs []uuid.UUID, weekday time.Weekday) (map[uuid.UUID]WorkingHours, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make(map[uuid.UUID]WorkingHours)
	for _, id := range doctorIDs {
		if wh, ok := r.hours[id][weekday]; ok {
			result[id] = wh
		}
	}
	return result, nil
}

func (r *MemoryRepository) OccupiedSlots(ctx context.Context, doctorIDs []uuid.UUID, date time.Time) (map[SlotKey]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidates := make(map[uuid.UUID]bool, len(doctorIDs))
	for _, id := range doctorIDs {
		candidates[id] = true
	}

	result := make(map[SlotKey]struct{})
	for _, a := range r.appointments {
		if a.Status.Occupies() && a.Date.Equal(date) && candidates[a.DoctorID] {
			result[SlotKey{DoctorID: a.DoctorID, Time: a.Time}] = struct{}{}
		}
	}
	return result, nil
}

func (r *MemoryRepository) CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slotOccupiedLocked(appt.DoctorID, appt.Date, appt.Time, uuid.Nil) {
		return nil, ErrSlotTaken
	}

	created := *appt
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.appointments[created.ID] = &created

	out := created
	return &out, nil
}

func (r *MemoryRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (r *MemoryRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, status *AppointmentStatus, limit, offset int) ([]Appointment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []Appointment
	for _, a := range r.appointments {
		if a.PatientID != patientID {
			continue
		}
		if status != nil && a.Status != *status {
			continue
		}
		all = append(all, *a)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return all[i].Time > all[j].Time
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *MemoryRepository) UpdateAppointment(ctx context.Context, appt *Appointment, fromStatus AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.appointments[appt.ID]
	if !ok || current.Status != fromStatus {
		return nil, ErrAppointmentNotFound
	}

	if r.slotOccupiedLocked(appt.DoctorID, appt.Date, appt.Time, appt.ID) {
		return nil, ErrSlotTaken
	}

	current.Date = appt.Date
	current.Time = appt.Time
	current.Notes = appt.Notes
	current.PatientNotes = appt.PatientNotes
	current.PaymentMethod = appt.PaymentMethod
	current.UpdatedAt = time.Now().UTC()

	out := *current
	return &out, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}

	a.Status = to
	a.UpdatedAt = time.Now().UTC()

	out := *a
	return &out, nil
}

func (r *MemoryRepository) CancelAppointment(ctx context.Context, id uuid.UUID, fromStatus AppointmentStatus, reason *string, cancelledBy string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != fromStatus {
		return nil, ErrAppointmentNotFound
	}

	now := time.Now().UTC()
	a.Status = StatusCancelled
	a.CancellationReason = reason
	a.CancelledBy = &cancelledBy
	a.CancelledAt = &now
	a.UpdatedAt = now

	out := *a
	return &out, nil
}

func (r *MemoryRepository) slotOccupiedLocked(doctorID uuid.UUID, date time.Time, t TimeOfDay, exclude uuid.UUID) bool {
	for _, a := range r.appointments {
		if a.ID == exclude {
			continue
		}
		if a.Status.Occupies() && a.DoctorID == doctorID && a.Date.Equal(date) && a.Time == t {
			return true
		}
	}
	return false
}
