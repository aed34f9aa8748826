package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestTaxonomyMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHTTP int
		wantGRPC codes.Code
	}{
		{"invalid input", InvalidInputf("bad path %q", "x"), http.StatusBadRequest, codes.InvalidArgument},
		{"not found", NotFoundf("invoice %s", "1"), http.StatusNotFound, codes.NotFound},
		{"resource", ResourceUnavailablef("tesseract missing"), http.StatusServiceUnavailable, codes.FailedPrecondition},
		{"config", Configurationf("no key"), http.StatusServiceUnavailable, codes.FailedPrecondition},
		{"upstream", &UpstreamError{StatusCode: 502, Message: "bad gateway"}, http.StatusBadGateway, codes.Unavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := &StageError{Stage: "field_extraction", Err: fmt.Errorf("ctx: %w", tt.err)}
			assert.Equal(t, tt.wantHTTP, HTTPStatus(wrapped))
			st, ok := status.FromError(GRPCStatus(wrapped))
			assert.True(t, ok)
			assert.Equal(t, tt.wantGRPC, st.Code())
			assert.Equal(t, "field_extraction", StageOf(wrapped))
		})
	}
}

func TestUpstreamErrorRetryable(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("attempt 1: %w", &UpstreamError{Retryable: true, Message: "send", Cause: cause})

	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsRetryable(&UpstreamError{StatusCode: 401, Message: "unauthorized"}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestValidator(t *testing.T) {
	desc := "a"
	neg := -1.0
	v := NewValidator().
		Field("index", 3, IndexIn(2)).
		Field("description", &desc, MaxLength(10)).
		Field("qty", &neg, NonNegative).
		Field("id", "not-a-uuid", UUID)

	err := v.Err()
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, v.Errors(), 3)
	assert.Contains(t, err.Error(), "index")
	assert.Contains(t, err.Error(), "qty")
	assert.Contains(t, err.Error(), "id")

	assert.NoError(t, NewValidator().Field("content", []byte("x"), Required).Err())
}
