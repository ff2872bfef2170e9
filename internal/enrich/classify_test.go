package enrich

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("provider status %d", e.code) }
func (e statusErr) HTTPStatus() int { return e.code }

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"status 429", fmt.Errorf("generate: %w", statusErr{429}), ClassQuota},
		{"status 404", statusErr{404}, ClassModelNotFound},
		{"status 500", statusErr{500}, ClassTransient},
		{"quota message", errors.New("googleapi: Error 429: Quota exceeded"), ClassQuota},
		{"resource exhausted", errors.New("RESOURCE_EXHAUSTED"), ClassQuota},
		{"model not found", errors.New("404 models/gemini-x is not found"), ClassModelNotFound},
		{"404 alone", errors.New("404"), ClassTransient},
		{"malformed", fmt.Errorf("%w: eof", ErrMalformedJSON), ClassStructural},
		{"canceled", fmt.Errorf("call: %w", context.Canceled), ClassCanceled},
		{"timeout", context.DeadlineExceeded, ClassCanceled},
		{"generic", errors.New("connection reset"), ClassTransient},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestClassLatches(t *testing.T) {
	t.Parallel()

	assert.True(t, ClassQuota.Latches())
	assert.True(t, ClassModelNotFound.Latches())
	assert.False(t, ClassTransient.Latches())
	assert.False(t, ClassStructural.Latches())
	assert.Equal(t, "model_not_found", ClassModelNotFound.String())
}
