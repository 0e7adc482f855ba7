// Package privilege modela el acceso elevado que permite saltar el chequeo de
// propiedad por fila del store. Un Token solo se obtiene desde claims
// verificados y queda atado al perfil (paciente o médico) que actúa; los
// stores lo revalidan en cada operación en lugar de confiar en ids recibidos.
package privilege

import (
	"fmt"
	"strings"
	"time"

	"medical-records-sharing/internal/platform/exceptions"
	"medical-records-sharing/internal/ports/auth"
)

type Token struct {
	userID    string
	role      auth.Role
	profileID string
	issuedAt  time.Time
}

// Mint crea un token para una identidad autenticada con el rol esperado.
func Mint(claims auth.Claims, want auth.Role) (Token, error) {
	if !claims.Authenticated() {
		return Token{}, exceptions.ErrAuthenticationRequired
	}
	if claims.Role != want {
		return Token{}, fmt.Errorf("%w: role %q cannot act as %q", exceptions.ErrForbidden, claims.Role, want)
	}
	return Token{
		userID:   strings.TrimSpace(claims.UserID),
		role:     claims.Role,
		issuedAt: time.Now(),
	}, nil
}

// Bind ata el token al id de perfil resuelto para la identidad.
// Un token ya atado no se puede re-atar a otro perfil.
func (t Token) Bind(profileID string) (Token, error) {
	profileID = strings.TrimSpace(profileID)
	if t.userID == "" || profileID == "" {
		return Token{}, exceptions.ErrAuthenticationRequired
	}
	if t.profileID != "" && t.profileID != profileID {
		return Token{}, exceptions.ErrForbidden
	}
	t.profileID = profileID
	return t, nil
}

func (t Token) UserID() string    { return t.userID }
func (t Token) Role() auth.Role   { return t.role }
func (t Token) ProfileID() string { return t.profileID }

// Valid es true solo para tokens emitidos por Mint y atados a un perfil.
func (t Token) Valid() bool {
	return t.userID != "" && t.role != "" && t.profileID != "" && !t.issuedAt.IsZero()
}

// Require falla si el token no viene de Mint+Bind. Los stores lo llaman antes
// de cualquier lectura elevada.
func (t Token) Require() error {
	if !t.Valid() {
		return exceptions.ErrAuthenticationRequired
	}
	return nil
}

// ActsAsPatient verifica que el token pertenezca al paciente indicado.
func (t Token) ActsAsPatient(patientID string) error {
	if !t.Valid() {
		return exceptions.ErrAuthenticationRequired
	}
	if t.role != auth.RolePatient || t.profileID != strings.TrimSpace(patientID) {
		return exceptions.ErrForbidden
	}
	return nil
}

// ActsAsDoctor verifica que el token pertenezca al médico indicado.
func (t Token) ActsAsDoctor(doctorID string) error {
	if !t.Valid() {
		return exceptions.ErrAuthenticationRequired
	}
	if t.role != auth.RoleDoctor || t.profileID != strings.TrimSpace(doctorID) {
		return exceptions.ErrForbidden
	}
	return nil
}

// Participates acepta al paciente dueño o al médico de un par (paciente, médico).
func (t Token) Participates(patientID, doctorID string) error {
	if err := t.ActsAsPatient(patientID); err == nil {
		return nil
	}
	return t.ActsAsDoctor(doctorID)
}
