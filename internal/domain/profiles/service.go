package profiles

import (
	"context"
	"fmt"

	"medical-records-sharing/internal/platform/exceptions"
	"medical-records-sharing/internal/platform/privilege"
	"medical-records-sharing/internal/ports/auth"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Elevate emite el token privilegiado para la identidad verificada actuando con role.
// El id de perfil sale del store, nunca del request.
func (s *Service) Elevate(ctx context.Context, claims auth.Claims, role auth.Role) (privilege.Token, error) {
	tok, err := privilege.Mint(claims, role)
	if err != nil {
		return privilege.Token{}, err
	}

	p, err := s.repo.FindByUserID(ctx, role, tok.UserID())
	if err != nil {
		return privilege.Token{}, exceptions.Store("profiles.find", err)
	}
	if p.ID == "" {
		return privilege.Token{}, fmt.Errorf("%s %s: %w", role, tok.UserID(), exceptions.ErrProfileNotFound)
	}
	return tok.Bind(p.ID)
}
