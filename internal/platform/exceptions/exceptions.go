// Package exceptions concentra la taxonomía de errores del motor de acceso
// compartido y su traducción a status HTTP.
package exceptions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrForbidden              = errors.New("forbidden")
	ErrProfileNotFound        = errors.New("profile not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("not found")
	ErrStore                  = errors.New("store error")
)

// StoreError envuelve fallas del store relacional. errors.Is(err, ErrStore) es true.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store: %s failed", e.Op)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// Store envuelve err como StoreError. Devuelve nil si err es nil y deja pasar
// errores que ya son StoreError o sentinels de dominio.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	for _, sentinel := range []error{ErrNotFound, ErrProfileNotFound, ErrAuthenticationRequired, ErrForbidden, ErrInvalidInput} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &StoreError{Op: op, Err: err}
}

// HTTPStatus traduce un error del dominio a status HTTP.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrProfileNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage es el texto que se expone al cliente. El detalle del store lo
// loguea middleware.RequestLogger vía middleware.SetError.
func ClientMessage(err error) string {
	switch HTTPStatus(err) {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		if errors.Is(err, ErrProfileNotFound) {
			return "profile not found"
		}
		return "not found"
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusGatewayTimeout:
		return "upstream timeout"
	default:
		return "internal error"
	}
}
