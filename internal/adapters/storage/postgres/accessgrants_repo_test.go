package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	"medical-records-sharing/internal/domain/accessgrants"
	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/platform/privilege"
	"medical-records-sharing/internal/ports/auth"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// arrayConverter deja pasar []string como lo hace pgx para "= ANY($n)".
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

// textArray compara el []string que recibe el driver.
type textArray []string

func (a textArray) Match(v driver.Value) bool {
	got, ok := v.([]string)
	return ok && reflect.DeepEqual([]string(a), got)
}

var grantCols = []string{"id", "patient_id", "doctor_id", "category", "scope", "resource_id", "granted_at", "expires_at", "notes"}

func newMockRepo(t *testing.T) (*AccessGrantsRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewAccessGrantsRepo(db), mock
}

func bound(t *testing.T, profileID string, role auth.Role) privilege.Token {
	t.Helper()
	tok, err := privilege.Mint(auth.Claims{UserID: "u-" + profileID, Role: role}, role)
	require.NoError(t, err)
	tok, err = tok.Bind(profileID)
	require.NoError(t, err)
	return tok
}

func TestAccessGrantsRepo_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	tok := bound(t, "pat-1", auth.RolePatient)
	rid := "a-1"
	g := accessgrants.Grant{
		ID: "g-1", PatientID: "pat-1", DoctorID: "doc-1",
		Category: records.CategoryAllergy, Scope: accessgrants.ScopeSpecific, ResourceID: &rid,
		GrantedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	insert := regexp.QuoteMeta("INSERT INTO record_grants")
	mock.ExpectExec(insert).
		WithArgs("g-1", "pat-1", "doc-1", "allergy", "specific", "a-1", g.GrantedAt, nil, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), tok, g))

	// el índice único absorbió el insert
	mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Create(context.Background(), tok, g)
	assert.True(t, errors.Is(err, accessgrants.ErrDuplicate), err)

	// un grant de otro paciente no llega al store
	other := g
	other.PatientID = "pat-2"
	assert.Error(t, repo.Create(context.Background(), tok, other))
}

func TestAccessGrantsRepo_DeleteReturning(t *testing.T) {
	repo, mock := newMockRepo(t)
	tok := bound(t, "pat-1", auth.RolePatient)
	granted := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	expires := granted.Add(48 * time.Hour)

	del := regexp.QuoteMeta("DELETE FROM record_grants")
	mock.ExpectQuery(del+`.*`+regexp.QuoteMeta("RETURNING")).
		WithArgs("g-1", "pat-1").
		WillReturnRows(sqlmock.NewRows(grantCols).
			AddRow("g-1", "pat-1", "doc-1", "report", "wildcard", nil, granted, expires, "control"))

	g, ok, err := repo.Delete(context.Background(), tok, " g-1 ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, records.CategoryReport, g.Category)
	assert.Equal(t, accessgrants.ScopeWildcard, g.Scope)
	assert.Nil(t, g.ResourceID)
	require.NotNil(t, g.ExpiresAt)
	assert.True(t, g.ExpiresAt.Equal(expires))
	assert.Equal(t, "control", g.Notes)

	// nada que borrar => ok=false sin error
	mock.ExpectQuery(del).WithArgs("g-9", "pat-1").WillReturnRows(sqlmock.NewRows(grantCols))
	_, ok, err = repo.Delete(context.Background(), tok, "g-9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessGrantsRepo_DeleteByCategory(t *testing.T) {
	repo, mock := newMockRepo(t)
	tok := bound(t, "pat-1", auth.RolePatient)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM record_grants")).
		WithArgs("pat-1", "doc-1", "allergy").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteByCategory(context.Background(), tok, "doc-1", records.CategoryAllergy)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAccessGrantsRepo_ListForPair(t *testing.T) {
	repo, mock := newMockRepo(t)
	tok := bound(t, "doc-1", auth.RoleDoctor)
	granted := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("category = ANY($3)")).
		WithArgs("pat-1", "doc-1", textArray{"allergy"}).
		WillReturnRows(sqlmock.NewRows(grantCols).
			AddRow("g-2", "pat-1", "doc-1", "allergy", "specific", "a-2", granted.Add(time.Hour), nil, "").
			AddRow("g-1", "pat-1", "doc-1", "allergy", "wildcard", nil, granted, nil, ""))

	got, err := repo.ListForPair(context.Background(), tok, "pat-1", "doc-1", records.CategoryAllergy)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].ResourceID)
	assert.Equal(t, "a-2", *got[0].ResourceID)
	assert.Nil(t, got[0].ExpiresAt)
	assert.Equal(t, accessgrants.ScopeWildcard, got[1].Scope)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE patient_id = $1 AND doctor_id = $2")).
		WithArgs("pat-1", "doc-1").
		WillReturnError(errors.New("conn closed"))
	_, err = repo.ListForPair(context.Background(), tok, "pat-1", "doc-1")
	assert.ErrorContains(t, err, "conn closed")

	// otro médico no puede leer grants ajenos
	_, err = repo.ListForPair(context.Background(), tok, "pat-1", "doc-2")
	assert.Error(t, err)
}
