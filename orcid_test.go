package scidata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeORCID(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		want string
	}{
		{"canonical", "0000-0002-1825-0097", "0000-0002-1825-0097"},
		{"bare digits", "0000000218250097", "0000-0002-1825-0097"},
		{"spaces", "0000 0002 1825 0097", "0000-0002-1825-0097"},
		{"x check digit", "0000-0002-9079-593x", "0000-0002-9079-593X"},
		{"corrupted digit", "0000-0002-1825-0098", ""},
		{"transposed digits", "0000-0002-1825-0907", ""},
		{"too short", "0000-0002-1825-009", ""},
		{"too long", "0000-0002-1825-00971", ""},
		{"non-digit prefix", "0000-00a2-1825-0097", ""},
		{"below number range", "0000-0000-0000-0001", ""},
		{"empty", "", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeORCID(tc.in))
		})
	}
}
