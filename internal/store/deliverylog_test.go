// internal/store/deliverylog_test.go
package store

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	short := "provider said ok"
	assert.Equal(t, short, Truncate(short))

	exact := strings.Repeat("a", MaxResponseLength)
	assert.Equal(t, exact, Truncate(exact))

	long := strings.Repeat("a", MaxResponseLength+50)
	assert.Len(t, Truncate(long), MaxResponseLength)
}

func TestTruncate_MultiByteBoundary(t *testing.T) {
	// Two-byte runes put a rune boundary across the byte cap; the cut must
	// count characters and leave valid UTF-8.
	long := strings.Repeat("é", MaxResponseLength+10)

	got := Truncate(long)
	assert.Equal(t, MaxResponseLength, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}
