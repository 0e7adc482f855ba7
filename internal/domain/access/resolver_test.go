package access

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"medical-records-sharing/internal/domain/accessgrants"
	"medical-records-sharing/internal/domain/content"
	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/platform/exceptions"
	"medical-records-sharing/internal/platform/privilege"
	"medical-records-sharing/internal/ports/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Fakes
// -------------------------

type fakeProfiles struct{}

func (fakeProfiles) Elevate(_ context.Context, c auth.Claims, role auth.Role) (privilege.Token, error) {
	tok, err := privilege.Mint(c, role)
	if err != nil {
		return privilege.Token{}, err
	}
	return tok.Bind(c.UserID)
}

type fakeGrants struct {
	mu     sync.Mutex
	items  []accessgrants.Grant
	delay  time.Duration
	err    error
	lookup int
}

func (f *fakeGrants) add(g accessgrants.Grant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.ID == "" {
		g.ID = fmt.Sprintf("g-%d", len(f.items)+1)
	}
	f.items = append(f.items, g)
}

func (f *fakeGrants) remove(match func(accessgrants.Grant) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	for _, g := range f.items {
		if !match(g) {
			kept = append(kept, g)
		}
	}
	f.items = kept
}

func (f *fakeGrants) ListForPair(ctx context.Context, tok privilege.Token, patientID, doctorID string, cats ...records.Category) ([]accessgrants.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := tok.Participates(patientID, doctorID); err != nil {
		return nil, err
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookup++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]accessgrants.Grant, 0)
	for _, g := range f.items {
		if g.PatientID != patientID || g.DoctorID != doctorID {
			continue
		}
		if len(cats) > 0 && !hasCategory(cats, g.Category) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func hasCategory(cats []records.Category, c records.Category) bool {
	for _, k := range cats {
		if k == c {
			return true
		}
	}
	return false
}

type fakeReader struct {
	mu     sync.Mutex
	rows   map[string][]records.Record // por tabla
	delay  time.Duration
	failOn map[string]error
}

func newFakeReader() *fakeReader {
	return &fakeReader{rows: map[string][]records.Record{}, failOn: map[string]error{}}
}

func (f *fakeReader) put(t records.Table, patientID, id string, at time.Time, attrs map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if attrs == nil {
		attrs = map[string]any{}
	}
	attrs["id"] = id
	f.rows[t.Name] = append(f.rows[t.Name], records.Record{
		ID: id, PatientID: patientID, Category: t.Category, Kind: t.Kind, OccurredAt: at, Attributes: attrs,
	})
}

func (f *fakeReader) drop(table, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[table][:0]
	for _, r := range f.rows[table] {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.rows[table] = kept
}

func (f *fakeReader) wait(ctx context.Context, t records.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := f.failOn[t.Name]; ok {
		return err
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeReader) ListOwned(ctx context.Context, tok privilege.Token, t records.Table, patientID string) ([]records.Record, error) {
	return f.ListOwnedByIDs(ctx, tok, t, patientID, nil)
}

func (f *fakeReader) ListOwnedByIDs(ctx context.Context, tok privilege.Token, t records.Table, patientID string, ids []string) ([]records.Record, error) {
	if err := tok.Require(); err != nil {
		return nil, err
	}
	if err := f.wait(ctx, t); err != nil {
		return nil, err
	}
	var want map[string]struct{}
	if ids != nil {
		want = map[string]struct{}{}
		for _, id := range ids {
			want[id] = struct{}{}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]records.Record, 0)
	for _, r := range f.rows[t.Name] {
		if r.PatientID != patientID {
			continue
		}
		if want != nil {
			if _, ok := want[r.ID]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeReader) CountOwned(ctx context.Context, tok privilege.Token, t records.Table, patientID string) (int, error) {
	rows, err := f.ListOwned(ctx, tok, t, patientID)
	return len(rows), err
}

func (f *fakeReader) CountOwnedByIDs(ctx context.Context, tok privilege.Token, t records.Table, patientID string, ids []string) (int, error) {
	rows, err := f.ListOwnedByIDs(ctx, tok, t, patientID, ids)
	return len(rows), err
}

type flakySigner struct{ fail map[string]bool }

func (s flakySigner) SignGet(_ context.Context, path string, _ time.Duration) (string, error) {
	if s.fail[path] {
		return "", errors.New("presign failed")
	}
	return "https://objects.example/" + path, nil
}

// -------------------------
// Helpers
// -------------------------

const (
	patientID = "pat-1"
	doctorID  = "doc-1"
)

var (
	doctorClaims  = auth.Claims{UserID: doctorID, Role: auth.RoleDoctor}
	patientClaims = auth.Claims{UserID: patientID, Role: auth.RolePatient}
	t0            = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	grants  *fakeGrants
	reader  *fakeReader
	res     *Resolver
	catalog records.Catalog
}

func newFixture(t *testing.T, signer content.URLSigner) *fixture {
	t.Helper()
	f := &fixture{grants: &fakeGrants{}, reader: newFakeReader(), catalog: records.DefaultCatalog()}
	f.res = NewResolver(f.grants, f.reader, fakeProfiles{}, content.NewGateway(signer, time.Hour, nil), Options{
		GrantLookupTimeout: 50 * time.Millisecond,
		RecordFetchTimeout: 50 * time.Millisecond,
	})
	f.res.now = func() time.Time { return t0.Add(24 * time.Hour) }
	return f
}

func (f *fixture) table(c records.Category, i int) records.Table {
	spec, _ := f.catalog.Lookup(c)
	return spec.Tables[i]
}

func wildcard(c records.Category) accessgrants.Grant {
	return accessgrants.Grant{PatientID: patientID, DoctorID: doctorID, Category: c, Scope: accessgrants.ScopeWildcard}
}

func specific(c records.Category, id string) accessgrants.Grant {
	return accessgrants.Grant{PatientID: patientID, DoctorID: doctorID, Category: c, Scope: accessgrants.ScopeSpecific, ResourceID: &id}
}

func ids(recs []records.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

// -------------------------
// Tests
// -------------------------

func TestResolve_NoGrantsIsEmpty(t *testing.T) {
	f := newFixture(t, nil)
	f.reader.put(f.table(records.CategoryAllergy, 0), patientID, "a1", t0, nil)

	for _, c := range records.Categories() {
		got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, c)
		require.NoError(t, err, c)
		assert.NotNil(t, got)
		assert.Empty(t, got, c)
	}
}

func TestResolve_WildcardDominatesSpecific(t *testing.T) {
	f := newFixture(t, nil)
	tb := f.table(records.CategoryPrescription, 0)
	f.reader.put(tb, patientID, "rx1", t0, nil)
	f.reader.put(tb, patientID, "rx2", t0.Add(time.Hour), nil)
	f.reader.put(tb, "pat-2", "rx9", t0, nil)

	f.grants.add(specific(records.CategoryPrescription, "rx1"))
	f.grants.add(specific(records.CategoryPrescription, "rx-gone"))
	f.grants.add(wildcard(records.CategoryPrescription))

	got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryPrescription)
	require.NoError(t, err)
	assert.Equal(t, []string{"rx2", "rx1"}, ids(got))
}

func TestResolve_SpecificExcludesDeletedAndForeign(t *testing.T) {
	f := newFixture(t, nil)
	tb := f.table(records.CategoryVaccine, 0)
	f.reader.put(tb, patientID, "v1", t0, nil)
	f.reader.put(tb, patientID, "v2", t0, nil)
	f.reader.put(tb, "pat-2", "v3", t0, nil)

	f.grants.add(specific(records.CategoryVaccine, "v1"))
	f.grants.add(specific(records.CategoryVaccine, "v3"))      // de otro paciente
	f.grants.add(specific(records.CategoryVaccine, "deleted")) // ya no existe

	got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryVaccine)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, ids(got))
}

func TestResolve_DuplicateGrantsDoNotDuplicateRecords(t *testing.T) {
	f := newFixture(t, nil)
	f.reader.put(f.table(records.CategoryReport, 0), patientID, "r1", t0, nil)
	f.grants.add(specific(records.CategoryReport, "r1"))
	f.grants.add(specific(records.CategoryReport, "r1"))

	got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryReport)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(got))
}

func TestResolve_RevokeOneSpecificRemovesOnlyThatRecord(t *testing.T) {
	f := newFixture(t, nil)
	tb := f.table(records.CategoryMedication, 0)
	f.reader.put(tb, patientID, "m1", t0.Add(2*time.Hour), nil)
	f.reader.put(tb, patientID, "m2", t0.Add(time.Hour), nil)
	f.grants.add(specific(records.CategoryMedication, "m1"))
	f.grants.add(specific(records.CategoryMedication, "m2"))

	got, _ := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryMedication)
	require.Equal(t, []string{"m1", "m2"}, ids(got))

	f.grants.remove(func(g accessgrants.Grant) bool { return g.ResourceID != nil && *g.ResourceID == "m1" })
	got, _ = f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryMedication)
	assert.Equal(t, []string{"m2"}, ids(got))
}

func TestResolve_RevokeAllOfCategoryEmptiesEvenAfterWildcard(t *testing.T) {
	f := newFixture(t, nil)
	f.reader.put(f.table(records.CategoryAllergy, 0), patientID, "a1", t0, nil)
	f.grants.add(wildcard(records.CategoryAllergy))
	f.grants.add(specific(records.CategoryAllergy, "a1"))

	f.grants.remove(func(g accessgrants.Grant) bool { return g.Category == records.CategoryAllergy })
	got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryAllergy)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_ExpiredGrantBehavesAsAbsent(t *testing.T) {
	f := newFixture(t, nil)
	f.reader.put(f.table(records.CategoryReport, 0), patientID, "r1", t0, nil)

	expired := wildcard(records.CategoryReport)
	past := t0
	expired.ExpiresAt = &past
	f.grants.add(expired)

	got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryReport)
	require.NoError(t, err)
	assert.Empty(t, got)

	sum, err := f.res.Summarize(context.Background(), doctorClaims, patientID)
	require.NoError(t, err)
	assert.Empty(t, sum)
}

func TestResolve_Antecedents(t *testing.T) {
	f := newFixture(t, nil)
	personal := f.table(records.CategoryAntecedent, 0)
	family := f.table(records.CategoryAntecedent, 1)
	f.reader.put(personal, patientID, "p1", t0, nil)
	f.reader.put(personal, patientID, "p2", t0.Add(time.Hour), nil)
	f.reader.put(family, patientID, "f1", t0.Add(48*time.Hour), nil)

	f.grants.add(specific(records.CategoryAntecedent, "p1"))
	f.grants.add(specific(records.CategoryAntecedent, "f1"))
	got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryAntecedent)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "f1"}, ids(got))
	assert.Equal(t, records.KindPersonal, got[0].Kind)
	assert.Equal(t, records.KindFamily, got[1].Kind)

	f.grants.add(wildcard(records.CategoryAntecedent))
	got, err = f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryAntecedent)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1", "f1"}, ids(got), "personal entries precede family entries")
}

func TestResolve_RequiresDoctorIdentity(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.res.Resolve(context.Background(), auth.Claims{}, patientID, records.CategoryReport)
	assert.True(t, errors.Is(err, exceptions.ErrAuthenticationRequired))

	_, err = f.res.Resolve(context.Background(), patientClaims, patientID, records.CategoryReport)
	assert.True(t, errors.Is(err, exceptions.ErrForbidden))

	_, err = f.res.Resolve(context.Background(), doctorClaims, " ", records.CategoryReport)
	assert.True(t, errors.Is(err, exceptions.ErrInvalidInput))
}

func TestResolve_GrantLookupTimeoutFailsClosed(t *testing.T) {
	f := newFixture(t, nil)
	f.reader.put(f.table(records.CategoryReport, 0), patientID, "r1", t0, nil)
	f.grants.add(wildcard(records.CategoryReport))
	f.grants.delay = time.Second

	got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryReport)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_CallerCancellationPropagates(t *testing.T) {
	f := newFixture(t, nil)
	f.grants.add(wildcard(records.CategoryReport))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.res.Resolve(ctx, doctorClaims, patientID, records.CategoryReport)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestResolve_StoreFailuresPropagate(t *testing.T) {
	f := newFixture(t, nil)
	f.grants.add(wildcard(records.CategoryReport))
	f.reader.failOn["reports"] = errors.New("relation reports does not exist")

	_, err := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryReport)
	assert.True(t, errors.Is(err, exceptions.ErrStore))

	f.reader.failOn = map[string]error{}
	f.reader.delay = time.Second
	_, err = f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryReport)
	assert.True(t, errors.Is(err, exceptions.ErrStore), "record fetch timeout is a store error, got %v", err)

	f.reader.delay = 0
	f.grants.err = errors.New("grants table locked")
	_, err = f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryReport)
	assert.True(t, errors.Is(err, exceptions.ErrStore))
}

func TestSummarize_CountsMatchResolve(t *testing.T) {
	f := newFixture(t, nil)
	f.reader.put(f.table(records.CategoryDocument, 0), patientID, "d1", t0, nil)
	f.reader.put(f.table(records.CategoryDocument, 0), patientID, "d2", t0, nil)
	f.reader.put(f.table(records.CategoryAllergy, 0), patientID, "a1", t0, nil)
	f.reader.put(f.table(records.CategoryAllergy, 0), patientID, "a2", t0, nil)
	f.reader.put(f.table(records.CategoryAntecedent, 0), patientID, "p1", t0, nil)
	f.reader.put(f.table(records.CategoryAntecedent, 1), patientID, "f1", t0, nil)

	f.grants.add(wildcard(records.CategoryDocument))
	f.grants.add(specific(records.CategoryAllergy, "a1"))
	f.grants.add(specific(records.CategoryAllergy, "a1"))
	f.grants.add(specific(records.CategoryAllergy, "gone"))
	f.grants.add(wildcard(records.CategoryAntecedent))
	f.grants.add(specific(records.CategoryVaccine, "nothing"))

	sum, err := f.res.Summarize(context.Background(), doctorClaims, patientID)
	require.NoError(t, err)
	require.Len(t, sum, 4)

	for _, s := range sum {
		got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, s.Category)
		require.NoError(t, err)
		assert.Equal(t, len(got), s.Count, s.Category)
	}

	want := map[records.Category]CategorySummary{
		records.CategoryDocument:   {Category: records.CategoryDocument, Count: 2, HasAllAccess: true},
		records.CategoryAllergy:    {Category: records.CategoryAllergy, Count: 1},
		records.CategoryVaccine:    {Category: records.CategoryVaccine, Count: 0},
		records.CategoryAntecedent: {Category: records.CategoryAntecedent, Count: 2, HasAllAccess: true},
	}
	for _, s := range sum {
		assert.Equal(t, want[s.Category], s)
	}
}

func TestSummarize_SingleGrantRead(t *testing.T) {
	f := newFixture(t, nil)
	f.grants.add(wildcard(records.CategoryDocument))
	f.grants.add(wildcard(records.CategoryReport))

	_, err := f.res.Summarize(context.Background(), doctorClaims, patientID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.grants.lookup)
}

func TestResolveDocuments_SignedURLFailureKeepsRecord(t *testing.T) {
	f := newFixture(t, flakySigner{fail: map[string]bool{"pat-1/b.pdf": true}})
	tb := f.table(records.CategoryDocument, 0)
	f.reader.put(tb, patientID, "a", t0.Add(3*time.Hour), map[string]any{"storage_path": "pat-1/a.pdf"})
	f.reader.put(tb, patientID, "b", t0.Add(2*time.Hour), map[string]any{"storage_path": "pat-1/b.pdf"})
	f.reader.put(tb, patientID, "c", t0.Add(time.Hour), map[string]any{"storage_path": "pat-1/c.pdf"})
	f.grants.add(wildcard(records.CategoryDocument))

	docs, err := f.res.ResolveDocuments(context.Background(), doctorClaims, patientID)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.NotNil(t, docs[0].SignedURL)
	assert.Nil(t, docs[1].SignedURL)
	require.NotNil(t, docs[2].SignedURL)
	assert.Equal(t, "https://objects.example/pat-1/c.pdf", *docs[2].SignedURL)
}

func TestResolveMany_IsolatesSectionErrors(t *testing.T) {
	f := newFixture(t, flakySigner{})
	f.reader.put(f.table(records.CategoryDocument, 0), patientID, "d1", t0, map[string]any{"storage_path": "x/d1.pdf"})
	f.reader.put(f.table(records.CategoryAllergy, 0), patientID, "a1", t0, nil)
	f.grants.add(wildcard(records.CategoryDocument))
	f.grants.add(wildcard(records.CategoryAllergy))
	f.grants.add(wildcard(records.CategoryReport))
	f.reader.failOn["reports"] = errors.New("boom")

	sections, err := f.res.ResolveMany(context.Background(), doctorClaims, patientID, []records.Category{
		records.CategoryDocument, records.CategoryAllergy, records.CategoryReport, records.CategoryAllergy,
	})
	require.NoError(t, err)
	require.Len(t, sections, 3)

	assert.Equal(t, records.CategoryDocument, sections[0].Category)
	require.Len(t, sections[0].Documents, 1)
	assert.NotNil(t, sections[0].Documents[0].SignedURL)

	assert.NoError(t, sections[1].Err)
	assert.Equal(t, []string{"a1"}, ids(sections[1].Records))

	assert.True(t, errors.Is(sections[2].Err, exceptions.ErrStore))
}

func TestScenarioA_WildcardSeesNewUploads(t *testing.T) {
	f := newFixture(t, nil)
	tb := f.table(records.CategoryDocument, 0)
	for i, id := range []string{"d1", "d2", "d3"} {
		f.reader.put(tb, patientID, id, t0.Add(time.Duration(i)*time.Hour), map[string]any{"storage_path": id})
	}
	f.grants.add(wildcard(records.CategoryDocument))

	got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryDocument)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	f.reader.put(tb, patientID, "d4", t0.Add(10*time.Hour), map[string]any{"storage_path": "d4"})
	got, err = f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryDocument)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, "d4", got[0].ID)
}

func TestScenarioB_SpecificAllergies(t *testing.T) {
	f := newFixture(t, nil)
	tb := f.table(records.CategoryAllergy, 0)
	f.reader.put(tb, patientID, "a1", t0, nil)
	f.reader.put(tb, patientID, "a2", t0.Add(time.Hour), nil)
	f.reader.put(tb, patientID, "a3", t0.Add(2*time.Hour), nil)
	f.grants.add(specific(records.CategoryAllergy, "a1"))
	f.grants.add(specific(records.CategoryAllergy, "a3"))

	got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryAllergy)
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "a1"}, ids(got))
}

func TestScenarioC_RevokedWildcardHidesUntouchedRows(t *testing.T) {
	f := newFixture(t, nil)
	tb := f.table(records.CategoryPrescription, 0)
	f.reader.put(tb, patientID, "rx1", t0, nil)
	f.grants.add(wildcard(records.CategoryPrescription))

	got, _ := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryPrescription)
	require.Len(t, got, 1)

	f.grants.remove(func(g accessgrants.Grant) bool { return g.Scope == accessgrants.ScopeWildcard })
	got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryPrescription)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, f.reader.rows["prescriptions"], 1)
}

func TestResolve_DeletedRecordVanishesSilently(t *testing.T) {
	f := newFixture(t, nil)
	tb := f.table(records.CategoryReport, 0)
	f.reader.put(tb, patientID, "r1", t0, nil)
	f.grants.add(specific(records.CategoryReport, "r1"))
	f.reader.drop("reports", "r1")

	got, err := f.res.Resolve(context.Background(), doctorClaims, patientID, records.CategoryReport)
	require.NoError(t, err)
	assert.Empty(t, got)
}
