package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestToDomainErrorKeepsDomainErrors(t *testing.T) {
	wrapped := fmt.Errorf("signup: %w", NewValidationError("email already registered", nil))
	got := ToDomainError(wrapped)
	if got.HTTPStatus != http.StatusBadRequest || got.Code != "VALIDATION_FAILED" {
		t.Fatalf("unexpected mapping: %+v", got)
	}
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	got := ToDomainError(fmt.Errorf("get image: %w", pgx.ErrNoRows))
	if got.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", got.HTTPStatus)
	}
	if !IsNotFound(pgx.ErrNoRows) || !IsNotFound(NewNotFound("coupon", nil)) {
		t.Fatalf("expected IsNotFound for no rows and NotFound errors")
	}
}

func TestToDomainErrorMapsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	got := ToDomainError(err)
	if got.HTTPStatus != http.StatusConflict {
		t.Fatalf("expected 409, got %d", got.HTTPStatus)
	}
}

func TestToDomainErrorMapsFiberErrors(t *testing.T) {
	got := ToDomainError(fiber.NewError(http.StatusTooManyRequests, "slow down"))
	if got.HTTPStatus != http.StatusTooManyRequests || got.Code != "RATE_LIMITED" || got.Message != "slow down" {
		t.Fatalf("unexpected mapping: %+v", got)
	}
}

func TestToDomainErrorDefaultsToInternal(t *testing.T) {
	cause := errors.New("boom")
	got := ToDomainError(cause)
	if got.HTTPStatus != http.StatusInternalServerError || !errors.Is(got, cause) {
		t.Fatalf("unexpected mapping: %+v", got)
	}
	if ToDomainError(nil) != nil {
		t.Fatalf("nil must map to nil")
	}
}

func TestToDomainErrorMapsMalformedIDToNotFound(t *testing.T) {
	got := ToDomainError(fmt.Errorf("get image: %w", &pgconn.PgError{Code: "22P02"}))
	if got.HTTPStatus != http.StatusNotFound || got.Code != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %+v", got)
	}
}

func TestToDomainErrorMapsForeignKeyViolation(t *testing.T) {
	got := ToDomainError(fmt.Errorf("delete category: %w", &pgconn.PgError{Code: "23503"}))
	if got.HTTPStatus != http.StatusConflict || got.Code != "CONFLICT" {
		t.Fatalf("expected 409 CONFLICT, got %+v", got)
	}
}

func TestToDomainErrorMapsStoreOutageToUpstream(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	cases := map[string]error{
		"connection refused": fmt.Errorf("query: %w", refused),
		"errno only":         fmt.Errorf("query: %w", syscall.ECONNREFUSED),
		"deadline":           fmt.Errorf("query: %w", context.DeadlineExceeded),
	}
	for name, err := range cases {
		got := ToDomainError(err)
		if got.HTTPStatus != http.StatusBadGateway || got.Code != "UPSTREAM_ERROR" {
			t.Fatalf("%s: expected 502 UPSTREAM_ERROR, got %+v", name, got)
		}
		if !errors.Is(got, err) {
			t.Fatalf("%s: cause must be kept", name)
		}
	}
}
