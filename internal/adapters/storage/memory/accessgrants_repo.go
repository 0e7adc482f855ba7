package memory

import (
	"context"
	"errors"
	"sync"

	"medical-records-sharing/internal/domain/accessgrants"
	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/platform/privilege"
)

type grantRepo struct {
	mu   sync.RWMutex
	byID map[string]accessgrants.Grant
}

func NewAccessGrantsRepo() accessgrants.Repository {
	return &grantRepo{
		byID: make(map[string]accessgrants.Grant),
	}
}

func (r *grantRepo) Create(ctx context.Context, tok privilege.Token, g accessgrants.Grant) error {
	if err := tok.ActsAsPatient(g.PatientID); err != nil {
		return err
	}
	if g.ID == "" {
		return errors.New("grant id required")
	}
	if !g.Consistent() {
		return errors.New("grant scope and resource_id mismatch")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[g.ID]; exists {
		return accessgrants.ErrDuplicate
	}
	// Mismo criterio que el índice único de Postgres.
	for _, e := range r.byID {
		if e.SameTuple(g) {
			return accessgrants.ErrDuplicate
		}
	}
	r.byID[g.ID] = g
	return nil
}

func (r *grantRepo) Delete(ctx context.Context, tok privilege.Token, grantID string) (accessgrants.Grant, bool, error) {
	if err := tok.Require(); err != nil {
		return accessgrants.Grant{}, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.byID[grantID]
	// Aun con token elevado, solo filas del paciente del token.
	if !ok || tok.ActsAsPatient(g.PatientID) != nil {
		return accessgrants.Grant{}, false, nil
	}
	delete(r.byID, grantID)
	return g, true, nil
}

func (r *grantRepo) DeleteByCategory(ctx context.Context, tok privilege.Token, doctorID string, c records.Category) (int, error) {
	if err := tok.ActsAsPatient(tok.ProfileID()); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, g := range r.byID {
		if g.PatientID == tok.ProfileID() && g.DoctorID == doctorID && g.Category == c {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *grantRepo) ListForPair(ctx context.Context, tok privilege.Token, patientID, doctorID string, cats ...records.Category) ([]accessgrants.Grant, error) {
	if err := tok.Participates(patientID, doctorID); err != nil {
		return nil, err
	}

	want := map[records.Category]struct{}{}
	for _, c := range cats {
		want[c] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accessgrants.Grant, 0)
	for _, g := range r.byID {
		if g.PatientID != patientID || g.DoctorID != doctorID {
			continue
		}
		if len(want) > 0 {
			if _, ok := want[g.Category]; !ok {
				continue
			}
		}
		out = append(out, g)
	}
	accessgrants.SortNewestFirst(out)
	return out, nil
}

func (r *grantRepo) ListByPatient(ctx context.Context, tok privilege.Token, doctorID string) ([]accessgrants.Grant, error) {
	if err := tok.ActsAsPatient(tok.ProfileID()); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accessgrants.Grant, 0)
	for _, g := range r.byID {
		if g.PatientID != tok.ProfileID() {
			continue
		}
		if doctorID != "" && g.DoctorID != doctorID {
			continue
		}
		out = append(out, g)
	}
	accessgrants.SortNewestFirst(out)
	return out, nil
}

func (r *grantRepo) ListByDoctor(ctx context.Context, tok privilege.Token) ([]accessgrants.Grant, error) {
	if err := tok.ActsAsDoctor(tok.ProfileID()); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accessgrants.Grant, 0)
	for _, g := range r.byID {
		if g.DoctorID == tok.ProfileID() {
			out = append(out, g)
		}
	}
	accessgrants.SortNewestFirst(out)
	return out, nil
}
