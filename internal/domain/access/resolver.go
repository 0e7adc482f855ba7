// Package access calcula, en cada lectura del médico, el conjunto efectivo de
// registros visibles de un paciente por categoría. Default-deny: sin grant
// activo el resultado es vacío.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medical-records-sharing/internal/domain/accessgrants"
	"medical-records-sharing/internal/domain/content"
	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/platform/exceptions"
	"medical-records-sharing/internal/platform/logger"
	"medical-records-sharing/internal/platform/privilege"
	"medical-records-sharing/internal/ports/auth"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultGrantLookupTimeout = 3 * time.Second
	DefaultRecordFetchTimeout = 5 * time.Second
)

// GrantLister es la parte del Grant Store que usa el resolver.
type GrantLister interface {
	ListForPair(ctx context.Context, tok privilege.Token, patientID, doctorID string, cats ...records.Category) ([]accessgrants.Grant, error)
}

type Elevator interface {
	Elevate(ctx context.Context, claims auth.Claims, role auth.Role) (privilege.Token, error)
}

type Options struct {
	Catalog            records.Catalog // nil => records.DefaultCatalog()
	GrantLookupTimeout time.Duration
	RecordFetchTimeout time.Duration
	Logger             logger.Logger
}

type Resolver struct {
	grants   GrantLister
	records  records.Reader
	profiles Elevator
	docs     *content.Gateway
	catalog  records.Catalog
	log      logger.Logger
	now      func() time.Time

	grantTimeout time.Duration
	fetchTimeout time.Duration
}

func NewResolver(grants GrantLister, reader records.Reader, profiles Elevator, docs *content.Gateway, opts Options) *Resolver {
	r := &Resolver{
		grants:       grants,
		records:      reader,
		profiles:     profiles,
		docs:         docs,
		catalog:      opts.Catalog,
		log:          opts.Logger,
		now:          time.Now,
		grantTimeout: opts.GrantLookupTimeout,
		fetchTimeout: opts.RecordFetchTimeout,
	}
	if r.catalog == nil {
		r.catalog = records.DefaultCatalog()
	}
	if r.log == nil {
		r.log = logger.NewNop()
	}
	if r.grantTimeout <= 0 {
		r.grantTimeout = DefaultGrantLookupTimeout
	}
	if r.fetchTimeout <= 0 {
		r.fetchTimeout = DefaultRecordFetchTimeout
	}
	if r.docs == nil {
		r.docs = content.NewGateway(nil, 0, r.log)
	}
	return r
}

// Resolve devuelve los registros de la categoría que el médico autenticado puede ver.
func (r *Resolver) Resolve(ctx context.Context, claims auth.Claims, patientID string, c records.Category) ([]records.Record, error) {
	tok, patientID, err := r.elevate(ctx, claims, patientID)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, tok, patientID, c)
}

// ResolveDocuments resuelve documentos y les adjunta URLs firmadas.
func (r *Resolver) ResolveDocuments(ctx context.Context, claims auth.Claims, patientID string) ([]content.SignedDocument, error) {
	recs, err := r.Resolve(ctx, claims, patientID, records.CategoryDocument)
	if err != nil {
		return nil, err
	}
	return r.docs.Attach(ctx, recs), nil
}

// Section es el resultado de una categoría dentro de ResolveMany.
type Section struct {
	Category  records.Category
	Records   []records.Record
	Documents []content.SignedDocument // solo documentos
	Err       error
}

// ResolveMany resuelve varias categorías en paralelo. Cada sección lleva su
// propio error, así una categoría caída no vacía las demás.
func (r *Resolver) ResolveMany(ctx context.Context, claims auth.Claims, patientID string, cats []records.Category) ([]Section, error) {
	tok, patientID, err := r.elevate(ctx, claims, patientID)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		cats = records.Categories()
	}

	seen := map[records.Category]struct{}{}
	sections := make([]Section, 0, len(cats))
	for _, c := range cats {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		sections = append(sections, Section{Category: c})
	}

	var eg errgroup.Group
	for i := range sections {
		s := &sections[i]
		eg.Go(func() error {
			recs, err := r.resolve(ctx, tok, patientID, s.Category)
			if err != nil {
				s.Err = err
				return nil
			}
			if s.Category == records.CategoryDocument {
				s.Documents = r.docs.Attach(ctx, recs)
				return nil
			}
			s.Records = recs
			return nil
		})
	}
	_ = eg.Wait()
	return sections, nil
}

func (r *Resolver) elevate(ctx context.Context, claims auth.Claims, patientID string) (privilege.Token, string, error) {
	tok, err := r.profiles.Elevate(ctx, claims, auth.RoleDoctor)
	if err != nil {
		return privilege.Token{}, "", err
	}
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return privilege.Token{}, "", fmt.Errorf("%w: patient id required", exceptions.ErrInvalidInput)
	}
	return tok, patientID, nil
}

func (r *Resolver) resolve(ctx context.Context, tok privilege.Token, patientID string, c records.Category) ([]records.Record, error) {
	spec, err := r.catalog.Lookup(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", exceptions.ErrInvalidInput, err)
	}

	grants, err := r.lookupGrants(ctx, tok, patientID, c)
	if err != nil {
		return nil, err
	}
	d := accessgrants.Evaluate(grants, r.now())
	if !d.Any {
		return []records.Record{}, nil
	}
	if !d.Wildcard && len(d.ResourceIDs) == 0 {
		return []records.Record{}, nil
	}

	fctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	perTable := make([][]records.Record, len(spec.Tables))
	for i, t := range spec.Tables {
		var rows []records.Record
		if d.Wildcard {
			rows, err = r.records.ListOwned(fctx, tok, t, patientID)
		} else {
			rows, err = r.records.ListOwnedByIDs(fctx, tok, t, patientID, d.ResourceIDs)
		}
		if err != nil {
			return nil, exceptions.Store("records.list "+t.Name, err)
		}
		perTable[i] = rows
	}

	merged := spec.MergeResults(perTable)
	out := make([]records.Record, 0, len(merged))
	for _, rec := range merged {
		// segunda barrera: nunca filas de otro paciente
		if rec.PatientID != patientID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// lookupGrants aplica el deadline propio de la lectura de grants. Un timeout
// propio resuelve como "sin acceso"; la cancelación del caller se propaga.
func (r *Resolver) lookupGrants(ctx context.Context, tok privilege.Token, patientID string, cats ...records.Category) ([]accessgrants.Grant, error) {
	gctx, cancel := context.WithTimeout(ctx, r.grantTimeout)
	defer cancel()

	grants, err := r.grants.ListForPair(gctx, tok, patientID, tok.ProfileID(), cats...)
	if err == nil {
		return grants, nil
	}
	if ctx.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(gctx.Err(), context.DeadlineExceeded)) {
		r.log.Warn("grant lookup timed out, resolving as no access", map[string]any{
			"patient_id": patientID,
			"doctor_id":  tok.ProfileID(),
			"categories": fmt.Sprint(cats),
		})
		return nil, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, exceptions.Store("grants.list_pair", err)
}
