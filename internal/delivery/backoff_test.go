// internal/delivery/backoff_test.go
package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{retryCount: 0, want: 1 * time.Second},
		{retryCount: 1, want: 2 * time.Second},
		{retryCount: 2, want: 4 * time.Second},
		{retryCount: 3, want: 8 * time.Second},
		{retryCount: 8, want: 256 * time.Second},
		{retryCount: 9, want: 5 * time.Minute},
		{retryCount: 20, want: 5 * time.Minute},
		{retryCount: 64, want: 5 * time.Minute},
		{retryCount: -1, want: 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.retryCount), "retryCount=%d", tt.retryCount)
	}
}
