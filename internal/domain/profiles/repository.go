package profiles

import (
	"context"

	"medical-records-sharing/internal/ports/auth"
)

// Repository devuelve exceptions.ErrProfileNotFound cuando no hay perfil para la identidad.
type Repository interface {
	FindByUserID(ctx context.Context, role auth.Role, userID string) (Profile, error)
}
