package privilege

import (
	"errors"
	"testing"

	"medical-records-sharing/internal/platform/exceptions"
	"medical-records-sharing/internal/ports/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMint_RequiresAuthenticatedIdentity(t *testing.T) {
	_, err := Mint(auth.Claims{}, auth.RolePatient)
	assert.True(t, errors.Is(err, exceptions.ErrAuthenticationRequired))

	_, err = Mint(auth.Claims{UserID: "u-1"}, auth.RolePatient)
	assert.True(t, errors.Is(err, exceptions.ErrAuthenticationRequired))
}

func TestMint_RejectsWrongRole(t *testing.T) {
	_, err := Mint(auth.Claims{UserID: "u-1", Role: auth.RoleDoctor}, auth.RolePatient)
	assert.True(t, errors.Is(err, exceptions.ErrForbidden))
}

func TestToken_BindAndChecks(t *testing.T) {
	tok, err := Mint(auth.Claims{UserID: "u-1", Role: auth.RolePatient}, auth.RolePatient)
	require.NoError(t, err)
	assert.False(t, tok.Valid(), "unbound token must not be valid")
	assert.Error(t, tok.ActsAsPatient("p-1"))

	bound, err := tok.Bind("p-1")
	require.NoError(t, err)
	assert.True(t, bound.Valid())
	assert.NoError(t, bound.ActsAsPatient("p-1"))
	assert.True(t, errors.Is(bound.ActsAsPatient("p-2"), exceptions.ErrForbidden))
	assert.True(t, errors.Is(bound.ActsAsDoctor("p-1"), exceptions.ErrForbidden))
	assert.NoError(t, bound.Participates("p-1", "d-9"))

	_, err = bound.Bind("p-2")
	assert.True(t, errors.Is(err, exceptions.ErrForbidden))
}

func TestToken_ZeroValueIsNeverValid(t *testing.T) {
	var tok Token
	assert.False(t, tok.Valid())
	assert.True(t, errors.Is(tok.Participates("p", "d"), exceptions.ErrAuthenticationRequired))
	assert.True(t, errors.Is(tok.Require(), exceptions.ErrAuthenticationRequired))
}
