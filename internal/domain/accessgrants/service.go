package accessgrants

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/platform/exceptions"
	"medical-records-sharing/internal/platform/logger"
	"medical-records-sharing/internal/platform/privilege"
	"medical-records-sharing/internal/ports/auth"

	"github.com/google/uuid"
)

// Elevator convierte claims verificados en un token atado al perfil (profiles.Service).
type Elevator interface {
	Elevate(ctx context.Context, claims auth.Claims, role auth.Role) (privilege.Token, error)
}

// Service es la Grant Authority: única vía de escritura sobre grants.
type Service struct {
	repo     Repository
	profiles Elevator
	activity ActivityRecorder
	log      logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, profiles Elevator, activity ActivityRecorder, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo:     repo,
		profiles: profiles,
		activity: activity,
		log:      log,
		now:      time.Now,
	}
}

type ShareInput struct {
	DoctorID   string
	Category   records.Category
	ResourceID *string // nil => wildcard
	ExpiresAt  *time.Time
	Notes      string
}

// Share crea un grant del paciente autenticado. Si ya existe uno activo con la
// misma tupla lo devuelve con created=false; uno vencido se reemplaza.
func (s *Service) Share(ctx context.Context, claims auth.Claims, in ShareInput) (Grant, bool, error) {
	tok, err := s.profiles.Elevate(ctx, claims, auth.RolePatient)
	if err != nil {
		return Grant{}, false, err
	}

	doctorID := strings.TrimSpace(in.DoctorID)
	if doctorID == "" {
		return Grant{}, false, fmt.Errorf("%w: doctor_id required", exceptions.ErrInvalidInput)
	}
	if !in.Category.Valid() {
		return Grant{}, false, fmt.Errorf("%w: unknown category %q", exceptions.ErrInvalidInput, in.Category)
	}

	now := s.now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return Grant{}, false, fmt.Errorf("%w: expires_at must be in the future", exceptions.ErrInvalidInput)
	}

	g := Grant{
		ID:        uuid.NewString(),
		PatientID: tok.ProfileID(),
		DoctorID:  doctorID,
		Category:  in.Category,
		Scope:     ScopeWildcard,
		GrantedAt: now,
		ExpiresAt: in.ExpiresAt,
		Notes:     strings.TrimSpace(in.Notes),
	}
	// nil => wildcard; un resource_id presente pero vacío no se amplía a toda la categoría
	if in.ResourceID != nil {
		id := strings.TrimSpace(*in.ResourceID)
		if id == "" {
			return Grant{}, false, fmt.Errorf("%w: resource_id must not be blank", exceptions.ErrInvalidInput)
		}
		g.Scope = ScopeSpecific
		g.ResourceID = &id
	}

	existing, err := s.repo.ListForPair(ctx, tok, g.PatientID, doctorID, g.Category)
	if err != nil {
		return Grant{}, false, exceptions.Store("grants.list_pair", err)
	}
	for _, e := range existing {
		if !e.SameTuple(g) {
			continue
		}
		if e.Active(now) {
			return e, false, nil
		}
		if _, _, err := s.repo.Delete(ctx, tok, e.ID); err != nil {
			return Grant{}, false, exceptions.Store("grants.delete_expired", err)
		}
	}

	if err := s.repo.Create(ctx, tok, g); err != nil {
		if !errors.Is(err, ErrDuplicate) {
			return Grant{}, false, exceptions.Store("grants.create", err)
		}
		// Otro share ganó la carrera; devolvemos el que quedó.
		winner, ok, rerr := s.findTuple(ctx, tok, g, now)
		if rerr != nil {
			return Grant{}, false, rerr
		}
		if !ok {
			return Grant{}, false, exceptions.Store("grants.create", err)
		}
		return winner, false, nil
	}

	s.record(ctx, Activity{
		Action:     ActionShared,
		PatientID:  g.PatientID,
		DoctorID:   g.DoctorID,
		Category:   g.Category,
		GrantID:    g.ID,
		ResourceID: g.ResourceID,
		Count:      1,
		At:         now,
	})
	return g, true, nil
}

// Revoke borra un grant propio. ErrNotFound si no existe o es de otro paciente.
func (s *Service) Revoke(ctx context.Context, claims auth.Claims, grantID string) error {
	tok, err := s.profiles.Elevate(ctx, claims, auth.RolePatient)
	if err != nil {
		return err
	}
	grantID = strings.TrimSpace(grantID)
	if grantID == "" {
		return fmt.Errorf("%w: grant id required", exceptions.ErrInvalidInput)
	}

	g, ok, err := s.repo.Delete(ctx, tok, grantID)
	if err != nil {
		return exceptions.Store("grants.delete", err)
	}
	if !ok {
		return exceptions.ErrNotFound
	}

	s.record(ctx, Activity{
		Action:     ActionRevoked,
		PatientID:  g.PatientID,
		DoctorID:   g.DoctorID,
		Category:   g.Category,
		GrantID:    g.ID,
		ResourceID: g.ResourceID,
		Count:      1,
		At:         s.now(),
	})
	return nil
}

// RevokeAllOfCategory borra wildcard y específicos del trío (paciente, médico, categoría).
func (s *Service) RevokeAllOfCategory(ctx context.Context, claims auth.Claims, doctorID string, c records.Category) (int, error) {
	tok, err := s.profiles.Elevate(ctx, claims, auth.RolePatient)
	if err != nil {
		return 0, err
	}
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return 0, fmt.Errorf("%w: doctor_id required", exceptions.ErrInvalidInput)
	}
	if !c.Valid() {
		return 0, fmt.Errorf("%w: unknown category %q", exceptions.ErrInvalidInput, c)
	}

	n, err := s.repo.DeleteByCategory(ctx, tok, doctorID, c)
	if err != nil {
		return 0, exceptions.Store("grants.delete_category", err)
	}
	if n > 0 {
		s.record(ctx, Activity{
			Action:    ActionRevokedCategory,
			PatientID: tok.ProfileID(),
			DoctorID:  doctorID,
			Category:  c,
			Count:     n,
			At:        s.now(),
		})
	}
	return n, nil
}

// HasAccess evalúa, desde el lado del paciente, si un médico ve la categoría
// (resourceID vacío) o un registro puntual. No materializa registros.
func (s *Service) HasAccess(ctx context.Context, claims auth.Claims, doctorID string, c records.Category, resourceID string) (bool, error) {
	tok, err := s.profiles.Elevate(ctx, claims, auth.RolePatient)
	if err != nil {
		return false, err
	}
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" || !c.Valid() {
		return false, fmt.Errorf("%w: doctor_id and category required", exceptions.ErrInvalidInput)
	}

	grants, err := s.repo.ListForPair(ctx, tok, tok.ProfileID(), doctorID, c)
	if err != nil {
		return false, exceptions.Store("grants.list_pair", err)
	}
	return Evaluate(grants, s.now()).Allows(strings.TrimSpace(resourceID)), nil
}

// Listing es un grant del paciente con su estado de vencimiento.
type Listing struct {
	Grant
	Expired bool
}

// ListGrants devuelve los grants del paciente, más recientes primero.
func (s *Service) ListGrants(ctx context.Context, claims auth.Claims, doctorID string) ([]Listing, error) {
	tok, err := s.profiles.Elevate(ctx, claims, auth.RolePatient)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByPatient(ctx, tok, strings.TrimSpace(doctorID))
	if err != nil {
		return nil, exceptions.Store("grants.list_patient", err)
	}
	SortNewestFirst(items)

	now := s.now()
	out := make([]Listing, 0, len(items))
	for _, g := range items {
		out = append(out, Listing{Grant: g, Expired: !g.Active(now)})
	}
	return out, nil
}

// SharedPatients lista los pacientes con al menos un grant activo hacia el médico.
func (s *Service) SharedPatients(ctx context.Context, claims auth.Claims) ([]SharedPatient, error) {
	tok, err := s.profiles.Elevate(ctx, claims, auth.RoleDoctor)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByDoctor(ctx, tok)
	if err != nil {
		return nil, exceptions.Store("grants.list_doctor", err)
	}

	now := s.now()
	byPatient := map[string]map[records.Category]struct{}{}
	for _, g := range items {
		if !g.Active(now) || g.DoctorID != tok.ProfileID() {
			continue
		}
		if byPatient[g.PatientID] == nil {
			byPatient[g.PatientID] = map[records.Category]struct{}{}
		}
		byPatient[g.PatientID][g.Category] = struct{}{}
	}

	out := make([]SharedPatient, 0, len(byPatient))
	for patientID, cats := range byPatient {
		sp := SharedPatient{PatientID: patientID}
		for _, c := range records.Categories() {
			if _, ok := cats[c]; ok {
				sp.Categories = append(sp.Categories, c)
			}
		}
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientID < out[j].PatientID })
	return out, nil
}

// SortNewestFirst ordena por granted_at desc, desempate por id.
func SortNewestFirst(items []Grant) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].GrantedAt.Equal(items[j].GrantedAt) {
			return items[i].GrantedAt.After(items[j].GrantedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func (s *Service) findTuple(ctx context.Context, tok privilege.Token, want Grant, now time.Time) (Grant, bool, error) {
	items, err := s.repo.ListForPair(ctx, tok, want.PatientID, want.DoctorID, want.Category)
	if err != nil {
		return Grant{}, false, exceptions.Store("grants.list_pair", err)
	}
	for _, g := range items {
		if g.SameTuple(want) && g.Active(now) {
			return g, true, nil
		}
	}
	return Grant{}, false, nil
}

func (s *Service) record(ctx context.Context, a Activity) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, a); err != nil {
		s.log.Warn("sharing activity not recorded", map[string]any{
			"action":     string(a.Action),
			"patient_id": a.PatientID,
			"doctor_id":  a.DoctorID,
			"category":   string(a.Category),
			"error":      err,
		})
	}
}
