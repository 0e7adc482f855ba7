package memory

import (
	"context"
	"strings"
	"sync"

	"medical-records-sharing/internal/domain/profiles"
	"medical-records-sharing/internal/platform/exceptions"
	"medical-records-sharing/internal/ports/auth"
)

type ProfileRepo struct {
	mu       sync.RWMutex
	byKey    map[string]profiles.Profile
	identity bool
}

func NewProfileRepo() *ProfileRepo {
	return &ProfileRepo{byKey: map[string]profiles.Profile{}}
}

// NewIdentityProfileRepo es para modo dev: una identidad sin perfil registrado
// usa su user id como id de perfil.
func NewIdentityProfileRepo() *ProfileRepo {
	r := NewProfileRepo()
	r.identity = true
	return r
}

func (r *ProfileRepo) Add(p profiles.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[key(p.Role, p.UserID)] = p
}

func (r *ProfileRepo) FindByUserID(ctx context.Context, role auth.Role, userID string) (profiles.Profile, error) {
	userID = strings.TrimSpace(userID)

	r.mu.RLock()
	p, ok := r.byKey[key(role, userID)]
	r.mu.RUnlock()

	if ok {
		return p, nil
	}
	if r.identity && userID != "" {
		return profiles.Profile{ID: userID, UserID: userID, Role: role}, nil
	}
	return profiles.Profile{}, exceptions.ErrProfileNotFound
}

func key(role auth.Role, userID string) string {
	return string(role) + ":" + userID
}
