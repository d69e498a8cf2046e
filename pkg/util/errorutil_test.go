package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestToDomainErrorPassesThroughWrapped(t *testing.T) {
	base := NewNotFound("ticket", map[string]any{"ticket_id": "INC-1"})
	wrapped := fmt.Errorf("lookup: %w", base)

	got := ToDomainError(wrapped)
	if got.Code != "NOT_FOUND" || got.HTTPStatus != http.StatusNotFound {
		t.Fatalf("unexpected %+v", got)
	}
	if got.Details["ticket_id"] != "INC-1" {
		t.Fatalf("details lost: %v", got.Details)
	}
}

func TestToDomainErrorDefaultsToInternal(t *testing.T) {
	got := ToDomainError(errors.New("boom"))
	if got.Code != "INTERNAL_ERROR" || got.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected %+v", got)
	}
	if ToDomainError(nil) != nil {
		t.Fatal("nil error must map to nil")
	}
}

func TestStorageFailureUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageFailure(cause)
	if !errors.Is(err, cause) {
		t.Fatal("storage failure must wrap its cause")
	}
	if de := ToDomainError(err); de.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", de.HTTPStatus)
	}
}
