package accessgrants

import (
	"time"

	"medical-records-sharing/internal/domain/records"
)

type Scope string

const (
	ScopeWildcard Scope = "wildcard"
	ScopeSpecific Scope = "specific"
)

// Grant autoriza a un médico a leer una categoría de un paciente.
// Inmutable: cambiar el alcance es borrar y volver a crear.
type Grant struct {
	ID string

	PatientID string
	DoctorID  string

	Category   records.Category
	Scope      Scope
	ResourceID *string // solo ScopeSpecific

	GrantedAt time.Time
	ExpiresAt *time.Time

	Notes string
}

// Active es false cuando expires_at ya pasó.
func (g Grant) Active(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// Consistent verifica wildcard <=> sin resource_id.
func (g Grant) Consistent() bool {
	switch g.Scope {
	case ScopeWildcard:
		return g.ResourceID == nil
	case ScopeSpecific:
		return g.ResourceID != nil && *g.ResourceID != ""
	default:
		return false
	}
}

// SameTuple compara (paciente, médico, categoría, alcance, recurso).
func (g Grant) SameTuple(o Grant) bool {
	return g.PatientID == o.PatientID &&
		g.DoctorID == o.DoctorID &&
		g.Category == o.Category &&
		g.Scope == o.Scope &&
		resourceKey(g.ResourceID) == resourceKey(o.ResourceID)
}

func resourceKey(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

// SharedPatient agrupa, para un médico, las categorías activas de un paciente.
type SharedPatient struct {
	PatientID  string
	Categories []records.Category
}

type ActivityAction string

const (
	ActionShared          ActivityAction = "shared"
	ActionRevoked         ActivityAction = "revoked"
	ActionRevokedCategory ActivityAction = "revoked_category"
)

// Activity es una entrada del historial de compartidos del paciente.
type Activity struct {
	Action     ActivityAction
	PatientID  string
	DoctorID   string
	Category   records.Category
	GrantID    string
	ResourceID *string
	Count      int
	At         time.Time
}
