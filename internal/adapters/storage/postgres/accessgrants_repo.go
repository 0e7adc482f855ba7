package postgres

import (
	"context"
	"database/sql"
	"strings"

	"medical-records-sharing/internal/domain/accessgrants"
	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/platform/privilege"
)

const grantColumns = `id, patient_id, doctor_id, category, scope, resource_id, granted_at, expires_at, notes`

type AccessGrantsRepo struct {
	db *sql.DB
}

func NewAccessGrantsRepo(db *sql.DB) *AccessGrantsRepo {
	return &AccessGrantsRepo{db: db}
}

// Create inserta con ON CONFLICT DO NOTHING sobre el índice único de la tupla.
func (r *AccessGrantsRepo) Create(ctx context.Context, tok privilege.Token, g accessgrants.Grant) error {
	if err := tok.ActsAsPatient(g.PatientID); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO record_grants (`+grantColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT DO NOTHING
	`,
		g.ID,
		g.PatientID,
		g.DoctorID,
		string(g.Category),
		string(g.Scope),
		toNullString(g.ResourceID),
		g.GrantedAt,
		toNullTime(g.ExpiresAt),
		g.Notes,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return accessgrants.ErrDuplicate
	}
	return nil
}

func (r *AccessGrantsRepo) Delete(ctx context.Context, tok privilege.Token, grantID string) (accessgrants.Grant, bool, error) {
	if err := tok.ActsAsPatient(tok.ProfileID()); err != nil {
		return accessgrants.Grant{}, false, err
	}
	grantID = strings.TrimSpace(grantID)
	if grantID == "" {
		return accessgrants.Grant{}, false, nil
	}

	row := r.db.QueryRowContext(ctx, `
		DELETE FROM record_grants
		WHERE id = $1 AND patient_id = $2
		RETURNING `+grantColumns, grantID, tok.ProfileID())

	g, err := scanGrant(row)
	if err == sql.ErrNoRows {
		return accessgrants.Grant{}, false, nil
	}
	if err != nil {
		return accessgrants.Grant{}, false, err
	}
	return g, true, nil
}

func (r *AccessGrantsRepo) DeleteByCategory(ctx context.Context, tok privilege.Token, doctorID string, c records.Category) (int, error) {
	if err := tok.ActsAsPatient(tok.ProfileID()); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM record_grants
		WHERE patient_id = $1 AND doctor_id = $2 AND category = $3
	`, tok.ProfileID(), doctorID, string(c))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *AccessGrantsRepo) ListForPair(ctx context.Context, tok privilege.Token, patientID, doctorID string, cats ...records.Category) ([]accessgrants.Grant, error) {
	if err := tok.Participates(patientID, doctorID); err != nil {
		return nil, err
	}

	if len(cats) == 0 {
		return r.list(ctx, `
			SELECT `+grantColumns+`
			FROM record_grants
			WHERE patient_id = $1 AND doctor_id = $2
			ORDER BY granted_at DESC, id ASC
		`, patientID, doctorID)
	}

	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, string(c))
	}
	return r.list(ctx, `
		SELECT `+grantColumns+`
		FROM record_grants
		WHERE patient_id = $1 AND doctor_id = $2 AND category = ANY($3)
		ORDER BY granted_at DESC, id ASC
	`, patientID, doctorID, names)
}

func (r *AccessGrantsRepo) ListByPatient(ctx context.Context, tok privilege.Token, doctorID string) ([]accessgrants.Grant, error) {
	if err := tok.ActsAsPatient(tok.ProfileID()); err != nil {
		return nil, err
	}
	if strings.TrimSpace(doctorID) == "" {
		return r.list(ctx, `
			SELECT `+grantColumns+`
			FROM record_grants
			WHERE patient_id = $1
			ORDER BY granted_at DESC, id ASC
		`, tok.ProfileID())
	}
	return r.list(ctx, `
		SELECT `+grantColumns+`
		FROM record_grants
		WHERE patient_id = $1 AND doctor_id = $2
		ORDER BY granted_at DESC, id ASC
	`, tok.ProfileID(), doctorID)
}

func (r *AccessGrantsRepo) ListByDoctor(ctx context.Context, tok privilege.Token) ([]accessgrants.Grant, error) {
	if err := tok.ActsAsDoctor(tok.ProfileID()); err != nil {
		return nil, err
	}
	return r.list(ctx, `
		SELECT `+grantColumns+`
		FROM record_grants
		WHERE doctor_id = $1
		ORDER BY granted_at DESC, id ASC
	`, tok.ProfileID())
}

func (r *AccessGrantsRepo) list(ctx context.Context, query string, args ...any) ([]accessgrants.Grant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]accessgrants.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGrant(s scanner) (accessgrants.Grant, error) {
	var (
		g          accessgrants.Grant
		category   string
		scope      string
		resourceID sql.NullString
		expiresAt  sql.NullTime
	)
	if err := s.Scan(
		&g.ID,
		&g.PatientID,
		&g.DoctorID,
		&category,
		&scope,
		&resourceID,
		&g.GrantedAt,
		&expiresAt,
		&g.Notes,
	); err != nil {
		return accessgrants.Grant{}, err
	}

	g.Category = records.Category(category)
	g.Scope = accessgrants.Scope(scope)
	if resourceID.Valid {
		id := resourceID.String
		g.ResourceID = &id
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		g.ExpiresAt = &t
	}
	return g, nil
}
