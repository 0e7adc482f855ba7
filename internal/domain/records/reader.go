package records

import (
	"context"

	"medical-records-sharing/internal/platform/privilege"
)

// Reader lee filas de una tabla filtrando siempre por dueño (OwnerColumn = patientID).
// Las lecturas son elevadas: el token debe venir de Mint+Bind.
// Los listados vienen ordenados por OrderColumn desc y luego id.
type Reader interface {
	ListOwned(ctx context.Context, tok privilege.Token, t Table, patientID string) ([]Record, error)
	// ListOwnedByIDs es una búsqueda por conjunto: ids repetidos no duplican filas.
	ListOwnedByIDs(ctx context.Context, tok privilege.Token, t Table, patientID string, ids []string) ([]Record, error)

	CountOwned(ctx context.Context, tok privilege.Token, t Table, patientID string) (int, error)
	CountOwnedByIDs(ctx context.Context, tok privilege.Token, t Table, patientID string, ids []string) (int, error)
}

// UniqueIDs elimina vacíos y repetidos conservando el primer orden de aparición.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
