package profiles

import "medical-records-sharing/internal/ports/auth"

// Profile es el perfil interno (paciente o médico) detrás de una identidad.
type Profile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Role        auth.Role `json:"role"`
	DisplayName string    `json:"display_name"`
}
