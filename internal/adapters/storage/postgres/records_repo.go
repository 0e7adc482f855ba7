package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/platform/privilege"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
)

// RecordsRepo lee las tablas de registros del catálogo. Los nombres de tabla y
// columna salen del catálogo y se citan con pgx.Identifier.
type RecordsRepo struct {
	db *sql.DB
}

func NewRecordsRepo(db *sql.DB) *RecordsRepo {
	return &RecordsRepo{db: db}
}

func (r *RecordsRepo) ListOwned(ctx context.Context, tok privilege.Token, t records.Table, patientID string) ([]records.Record, error) {
	if err := tok.Require(); err != nil {
		return nil, err
	}
	return r.query(ctx, t, selectOwnedSQL(t, false), patientID)
}

func (r *RecordsRepo) ListOwnedByIDs(ctx context.Context, tok privilege.Token, t records.Table, patientID string, ids []string) ([]records.Record, error) {
	if err := tok.Require(); err != nil {
		return nil, err
	}
	ids = records.UniqueIDs(ids)
	if len(ids) == 0 {
		return []records.Record{}, nil
	}
	return r.query(ctx, t, selectOwnedSQL(t, true), patientID, ids)
}

func (r *RecordsRepo) CountOwned(ctx context.Context, tok privilege.Token, t records.Table, patientID string) (int, error) {
	if err := tok.Require(); err != nil {
		return 0, err
	}
	var n int
	err := r.db.QueryRowContext(ctx, countOwnedSQL(t, false), patientID).Scan(&n)
	return n, err
}

func (r *RecordsRepo) CountOwnedByIDs(ctx context.Context, tok privilege.Token, t records.Table, patientID string, ids []string) (int, error) {
	if err := tok.Require(); err != nil {
		return 0, err
	}
	ids = records.UniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx, countOwnedSQL(t, true), patientID, ids).Scan(&n)
	return n, err
}

func (r *RecordsRepo) query(ctx context.Context, t records.Table, query string, args ...any) ([]records.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]records.Record, 0)
	for rows.Next() {
		var (
			rec records.Record
			at  sql.NullTime
			raw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.PatientID, &at, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &rec.Attributes); err != nil {
			return nil, fmt.Errorf("decode %s row %s: %w", t.Name, rec.ID, err)
		}
		rec.Category = t.Category
		rec.Kind = t.Kind
		if at.Valid {
			rec.OccurredAt = at.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// selectOwnedSQL: $1 = dueño, $2 = ids (si byIDs). "= ANY" es búsqueda por
// conjunto, ids repetidos no multiplican filas.
func selectOwnedSQL(t records.Table, byIDs bool) string {
	table, owner, id, order := quote(t)
	q := fmt.Sprintf(
		`SELECT t.%s::text, t.%s::text, t.%s, to_jsonb(t) FROM %s AS t WHERE t.%s::text = $1`,
		id, owner, order, table, owner,
	)
	if byIDs {
		q += fmt.Sprintf(` AND t.%s::text = ANY($2)`, id)
	}
	return q + fmt.Sprintf(` ORDER BY t.%s DESC NULLS LAST, t.%s ASC`, order, id)
}

func countOwnedSQL(t records.Table, byIDs bool) string {
	table, owner, id, _ := quote(t)
	q := fmt.Sprintf(`SELECT count(*) FROM %s AS t WHERE t.%s::text = $1`, table, owner)
	if byIDs {
		q += fmt.Sprintf(` AND t.%s::text = ANY($2)`, id)
	}
	return q
}

func quote(t records.Table) (table, owner, id, order string) {
	return pgx.Identifier{t.Name}.Sanitize(),
		pgx.Identifier{t.OwnerColumn}.Sanitize(),
		pgx.Identifier{t.IDColumn}.Sanitize(),
		pgx.Identifier{t.OrderColumn}.Sanitize()
}
