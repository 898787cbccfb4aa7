package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already normalized", input: "+15550001", expected: "+15550001"},
		{name: "spacing and punctuation", input: " +1 (555) 000-1 ", expected: "+15550001"},
		{name: "no country prefix", input: "555.0001", expected: "5550001"},
		{name: "plus only allowed first", input: "1+555", expected: "1555"},
		{name: "empty", input: "   ", expected: ""},
		{name: "no digits", input: "+ - ()", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestDedupeList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: nil},
		{
			name:     "duplicates after normalizing preserve first position",
			input:    []string{"+1 555 0001", "+15550002", "+1-555-0001"},
			expected: []string{"+15550001", "+15550002"},
		},
		{
			name:     "drops blanks",
			input:    []string{"", "  ", "+15550003"},
			expected: []string{"+15550003"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeList(tt.input))
		})
	}
}
