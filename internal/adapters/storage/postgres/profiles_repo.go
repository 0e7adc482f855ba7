package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"medical-records-sharing/internal/domain/profiles"
	"medical-records-sharing/internal/platform/exceptions"
	"medical-records-sharing/internal/ports/auth"
)

type ProfilesRepo struct {
	db *sql.DB
}

func NewProfilesRepo(db *sql.DB) *ProfilesRepo {
	return &ProfilesRepo{db: db}
}

func (r *ProfilesRepo) FindByUserID(ctx context.Context, role auth.Role, userID string) (profiles.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return profiles.Profile{}, exceptions.ErrProfileNotFound
	}

	q, err := profileSQL(role)
	if err != nil {
		return profiles.Profile{}, err
	}

	p := profiles.Profile{Role: role}
	var name sql.NullString
	err = r.db.QueryRowContext(ctx, q, userID).Scan(&p.ID, &p.UserID, &name)
	if err == sql.ErrNoRows {
		return profiles.Profile{}, exceptions.ErrProfileNotFound
	}
	if err != nil {
		return profiles.Profile{}, err
	}
	p.DisplayName = name.String
	return p, nil
}

func profileSQL(role auth.Role) (string, error) {
	switch role {
	case auth.RolePatient:
		return `SELECT id::text, user_id::text, full_name FROM patients WHERE user_id::text = $1 LIMIT 1`, nil
	case auth.RoleDoctor:
		return `SELECT id::text, user_id::text, full_name FROM doctors WHERE user_id::text = $1 LIMIT 1`, nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}
