package accessgrants

import (
	"context"
	"errors"

	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/platform/privilege"
)

// ErrDuplicate lo devuelve Create cuando ya existe una fila con la misma tupla.
var ErrDuplicate = errors.New("grant already exists")

// Repository es el Grant Store. Todas las operaciones reciben el token elevado
// y lo revalidan: las escrituras exigen que el token sea del paciente dueño.
type Repository interface {
	Create(ctx context.Context, tok privilege.Token, g Grant) error

	// Delete borra un grant del paciente del token y lo devuelve; false si no había nada suyo.
	Delete(ctx context.Context, tok privilege.Token, grantID string) (Grant, bool, error)
	DeleteByCategory(ctx context.Context, tok privilege.Token, doctorID string, c records.Category) (int, error)

	// ListForPair lista los grants del par. Sin categorías => todas.
	// El token debe ser del paciente o del médico del par.
	ListForPair(ctx context.Context, tok privilege.Token, patientID, doctorID string, cats ...records.Category) ([]Grant, error)

	// ListByPatient lista los grants del paciente del token; doctorID opcional.
	ListByPatient(ctx context.Context, tok privilege.Token, doctorID string) ([]Grant, error)
	// ListByDoctor lista los grants cuyo destinatario es el médico del token.
	ListByDoctor(ctx context.Context, tok privilege.Token) ([]Grant, error)
}

// ActivityRecorder guarda el historial de compartidos. Es best-effort.
type ActivityRecorder interface {
	Record(ctx context.Context, a Activity) error
}
