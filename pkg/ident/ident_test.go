package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		last     string
		expected string
	}{
		{
			name:     "three letter prefix",
			last:     "REV00042",
			expected: "REV00043",
		},
		{
			name:     "one letter prefix",
			last:     "R0000007",
			expected: "R0000008",
		},
		{
			name:     "rent prefix",
			last:     "REN00001",
			expected: "REN00002",
		},
		{
			name:     "carries over a nine",
			last:     "REN00099",
			expected: "REN00100",
		},
		{
			name:     "width preserved with leading zeros",
			last:     "A0000000",
			expected: "A0000001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Next(tt.last)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, next)
		})
	}
}

func TestNextMalformed(t *testing.T) {
	for _, last := range []string{"", "REV", "00042", "REV42X"} {
		_, err := Next(last)
		assert.ErrorIs(t, err, ErrMalformed, last)
	}
}
