package exceptions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_WrapsAndUnwraps(t *testing.T) {
	driverErr := errors.New("connection reset")
	err := Store("grants.list", driverErr)

	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, driverErr))
	assert.Contains(t, err.Error(), "grants.list")
	assert.Nil(t, Store("noop", nil))
}

func TestStore_KeepsDomainSentinels(t *testing.T) {
	err := Store("profiles.get", fmt.Errorf("doctor: %w", ErrProfileNotFound))
	assert.False(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, ErrProfileNotFound))

	err = Store("grants.delete", ErrForbidden)
	assert.False(t, errors.Is(err, ErrStore))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		ErrAuthenticationRequired:            http.StatusUnauthorized,
		ErrForbidden:                         http.StatusForbidden,
		ErrProfileNotFound:                   http.StatusNotFound,
		ErrNotFound:                          http.StatusNotFound,
		fmt.Errorf("x: %w", ErrInvalidInput): http.StatusBadRequest,
		Store("q", errors.New("boom")):       http.StatusInternalServerError,
		context.DeadlineExceeded:             http.StatusGatewayTimeout,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
	assert.Equal(t, "internal error", ClientMessage(Store("q", errors.New("secret detail"))))
}
