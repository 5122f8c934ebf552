package errortracking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapturePanic(t *testing.T) {
	errBoom := errors.New("boom")

	tests := map[string]struct {
		recovered interface{}
		check     func(t *testing.T, err error)
	}{
		"error_value": {
			recovered: errBoom,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, errBoom)
			},
		},
		"string_value": {
			recovered: "index out of range",
			check: func(t *testing.T, err error) {
				require.EqualError(t, err, "panic: index out of range")
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := CapturePanic(tt.recovered, "corr-id", WithField("path", "/"))
			tt.check(t, err)
		})
	}
}
