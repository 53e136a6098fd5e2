package camunda

import (
	"fmt"
	"testing"

	"sales-assistant/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"write: broken pipe", true},
		{"rpc error: code = InvalidArgument desc = bad variables", false},
		{"rpc error: code = NotFound desc = job not found", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(fmt.Errorf("%s", tt.msg)))
		})
	}
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want errors.ErrorCode
	}{
		{"connection refused", errors.ErrCodeUpstreamUnavailable},
		{"job not found", errors.ErrCodeNotFound},
		{"permission denied", errors.ErrCodeInvalidRequest},
		{"something odd", errors.ErrCodeUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			stdErr, ok := errors.AsStandardError(mapZeebeError(fmt.Errorf("%s", tt.msg), "topology"))
			require.True(t, ok)
			assert.Equal(t, tt.want, stdErr.Code)
			assert.Contains(t, stdErr.Details, "topology")
		})
	}
}
