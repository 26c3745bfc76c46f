package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"book not found", fmt.Errorf("loading: %w", ErrBookNotFound), http.StatusNotFound},
		{"invalid query", ErrInvalidQuery, http.StatusBadRequest},
		{"invalid document", fmt.Errorf("doc 3: %w", ErrInvalidDocument), http.StatusBadRequest},
		{"duplicate", ErrDuplicateDocument, http.StatusConflict},
		{"malformed", fmt.Errorf("decode: %w", ErrMalformedIndex), http.StatusUnprocessableEntity},
		{"unavailable", ErrIndexUnavailable, http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"app error", New(ErrInvalidQuery, http.StatusTeapot, "odd"), http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrIndexUnavailable, http.StatusServiceUnavailable, "book %q", "guide")
	if err.Error() != `index unavailable: book "guide"` {
		t.Errorf("Error() = %q", err.Error())
	}
	wrapped := fmt.Errorf("handler: %w", err)
	if HTTPStatusCode(wrapped) != http.StatusServiceUnavailable {
		t.Errorf("wrapped AppError lost its status")
	}
}
