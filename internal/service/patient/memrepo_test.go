package patient

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
)

type identityKey struct {
	doctorID uuid.UUID
	email    string
}

// memRepo enforces (doctor_id, email) uniqueness the way the patients
// table constraint does.
type memRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*model.Patient
	byKey   map[identityKey]uuid.UUID
	clock   time.Time
	failErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		rows:  make(map[uuid.UUID]*model.Patient),
		byKey: make(map[identityKey]uuid.UUID),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func clonePatient(p *model.Patient) *model.Patient {
	c := *p
	return &c
}

func (r *memRepo) GetByEmail(_ context.Context, doctorID uuid.UUID, email string) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	id, ok := r.byKey[identityKey{doctorID, email}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePatient(r.rows[id]), nil
}

func (r *memRepo) Get(_ context.Context, patientID, doctorID uuid.UUID) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[patientID]
	if !ok || p.DoctorID != doctorID {
		return nil, repository.ErrNotFound
	}
	return clonePatient(p), nil
}

func (r *memRepo) Create(_ context.Context, np *model.NewPatient) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := identityKey{np.DoctorID, np.Email}
	if _, exists := r.byKey[key]; exists {
		return nil, fmt.Errorf("failed to create patient: %w", repository.ErrDuplicate)
	}
	now := r.tick()
	p := &model.Patient{
		ID:              uuid.New(),
		Email:           np.Email,
		Name:            np.Name,
		PhoneNumber:     np.PhoneNumber,
		DateOfBirth:     np.DateOfBirth,
		DoctorID:        np.DoctorID,
		InvitationToken: np.Token,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.rows[p.ID] = p
	r.byKey[key] = p.ID
	return clonePatient(p), nil
}

func applyField(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	s := *v
	*dst = &s
}

func (r *memRepo) Update(_ context.Context, patientID, doctorID uuid.UUID, patch model.ProfilePatch) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[patientID]
	if !ok || p.DoctorID != doctorID {
		return nil, repository.ErrNotFound
	}
	applyField(&p.Name, patch.Name)
	applyField(&p.PhoneNumber, patch.PhoneNumber)
	applyField(&p.DateOfBirth, patch.DateOfBirth)
	p.UpdatedAt = r.tick()
	return clonePatient(p), nil
}

func (r *memRepo) Delete(_ context.Context, patientID, doctorID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[patientID]
	if !ok || p.DoctorID != doctorID {
		return repository.ErrNotFound
	}
	delete(r.rows, patientID)
	delete(r.byKey, identityKey{p.DoctorID, p.Email})
	return nil
}

func (r *memRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	out := []*model.Patient{}
	for _, p := range r.rows {
		if p.DoctorID == doctorID {
			out = append(out, clonePatient(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) count(doctorID uuid.UUID, email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.rows {
		if p.DoctorID == doctorID && p.Email == email {
			n++
		}
	}
	return n
}

func (r *memRepo) accept(patientID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[patientID].InvitationAccepted = true
}

// racingRepo holds every GetByEmail caller until n of them have looked up,
// so all of them observe "not found" before any insert.
type racingRepo struct {
	*memRepo
	barrier *sync.WaitGroup
}

func (r *racingRepo) GetByEmail(ctx context.Context, doctorID uuid.UUID, email string) (*model.Patient, error) {
	p, err := r.memRepo.GetByEmail(ctx, doctorID, email)
	r.barrier.Done()
	r.barrier.Wait()
	return p, err
}
