package access

import (
	"context"

	"medical-records-sharing/internal/domain/accessgrants"
	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/platform/exceptions"
	"medical-records-sharing/internal/platform/privilege"
	"medical-records-sharing/internal/ports/auth"

	"golang.org/x/sync/errgroup"
)

// CategorySummary es la fila del dashboard del médico para una categoría.
type CategorySummary struct {
	Category     records.Category
	Count        int
	HasAllAccess bool
}

// Summarize agrega los grants del par en una sola lectura y cuenta registros
// por categoría sin materializarlos. Count coincide con len(Resolve(...)).
func (r *Resolver) Summarize(ctx context.Context, claims auth.Claims, patientID string) ([]CategorySummary, error) {
	tok, patientID, err := r.elevate(ctx, claims, patientID)
	if err != nil {
		return nil, err
	}

	grants, err := r.lookupGrants(ctx, tok, patientID)
	if err != nil {
		return nil, err
	}

	byCat := map[records.Category][]accessgrants.Grant{}
	for _, g := range grants {
		byCat[g.Category] = append(byCat[g.Category], g)
	}

	now := r.now()
	out := make([]CategorySummary, 0, len(byCat))
	decisions := make([]accessgrants.Decision, 0, len(byCat))
	for _, c := range records.Categories() {
		gs, ok := byCat[c]
		if !ok {
			continue
		}
		d := accessgrants.Evaluate(gs, now)
		if !d.Any {
			continue
		}
		out = append(out, CategorySummary{Category: c, HasAllAccess: d.Wildcard})
		decisions = append(decisions, d)
	}

	fctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	eg, ectx := errgroup.WithContext(fctx)
	for i := range out {
		eg.Go(func() error {
			n, err := r.count(ectx, tok, patientID, out[i].Category, decisions[i])
			if err != nil {
				return err
			}
			out[i].Count = n
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resolver) count(ctx context.Context, tok privilege.Token, patientID string, c records.Category, d accessgrants.Decision) (int, error) {
	spec, err := r.catalog.Lookup(c)
	if err != nil {
		return 0, err
	}
	if !d.Wildcard && len(d.ResourceIDs) == 0 {
		return 0, nil
	}

	total := 0
	for _, t := range spec.Tables {
		var n int
		if d.Wildcard {
			n, err = r.records.CountOwned(ctx, tok, t, patientID)
		} else {
			n, err = r.records.CountOwnedByIDs(ctx, tok, t, patientID, d.ResourceIDs)
		}
		if err != nil {
			return 0, exceptions.Store("records.count "+t.Name, err)
		}
		total += n
	}
	return total, nil
}
