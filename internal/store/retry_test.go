package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsTransient_ConstraintViolationIsNotTransient(t *testing.T) {
	err := &pgconn.PgError{Code: "23505"}
	if isTransient(err) {
		t.Fatal("unique constraint violation must not be classified as transient")
	}
}

func TestIsTransient_SerializationFailureIsTransient(t *testing.T) {
	err := &pgconn.PgError{Code: "40001"}
	if !isTransient(err) {
		t.Fatal("serialization failure should be classified as transient")
	}
}

func TestWithRetry_StopsOnIntegrityError(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func() error {
		attempts++
		return &IntegrityError{Cause: errors.New("boom")}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for a fatal integrity error, got %d", attempts)
	}
}

func TestWithRetry_RetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWrapIntegrity_PassesThroughNonConstraintErrors(t *testing.T) {
	base := errors.New("connection reset")
	wrapped := wrapIntegrity(base)
	var integrity *IntegrityError
	if errors.As(wrapped, &integrity) {
		t.Fatal("non-constraint error must not be wrapped as IntegrityError")
	}
}

func TestWrapIntegrity_WrapsUniqueViolation(t *testing.T) {
	base := &pgconn.PgError{Code: "23505"}
	wrapped := wrapIntegrity(base)
	var integrity *IntegrityError
	if !errors.As(wrapped, &integrity) {
		t.Fatal("unique violation must be wrapped as IntegrityError")
	}
}
