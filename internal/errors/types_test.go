package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"marked transient", NewTransientError(errors.New("x"), ""), true},
		{"marked permanent", NewPermanentError(errors.New("x"), ""), false},
		{"wrapped transient", fmt.Errorf("outer: %w", NewTransientError(errors.New("x"), "")), true},
		{"http 429", NewHTTPStatusError(http.StatusTooManyRequests, "429 Too Many Requests", ""), true},
		{"http 503", NewHTTPStatusError(http.StatusServiceUnavailable, "503", ""), true},
		{"http 401", NewHTTPStatusError(http.StatusUnauthorized, "401", ""), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(NewPermanentError(errors.New("x"), "")))
	assert.True(t, IsPermanent(NewHTTPStatusError(http.StatusNotFound, "404", "")))
	assert.False(t, IsPermanent(NewTransientError(errors.New("x"), "")))
	assert.False(t, IsPermanent(errors.New("boom")))
	assert.False(t, IsPermanent(nil))
}

func TestErrorMessagesAndUnwrap(t *testing.T) {
	inner := errors.New("inner")

	te := NewTransientError(inner, "try again")
	assert.Equal(t, "try again", te.Error())
	assert.Equal(t, inner, errors.Unwrap(te))

	pe := NewPermanentError(inner, "")
	assert.Contains(t, pe.Error(), "permanent error")
	assert.Equal(t, inner, errors.Unwrap(pe))

	de := NewDegradedError(inner, "circuit open")
	assert.True(t, IsDegraded(de))
	assert.False(t, IsDegraded(te))
}
