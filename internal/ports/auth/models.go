package auth

import "strings"

// Role distingue sesiones de paciente y de médico.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RolePatient:
		return RolePatient, true
	case RoleDoctor:
		return RoleDoctor, true
	default:
		return "", false
	}
}

// Claims representa la información extraída del token.
type Claims struct {
	UserID string
	Email  string
	Role   Role
}

// Authenticated indica si hay una identidad utilizable.
func (c Claims) Authenticated() bool {
	return strings.TrimSpace(c.UserID) != "" && c.Role != ""
}
