package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"invoice", `"invoice"`},
		{"invoice total", `"invoice" OR "total"`},
		{"  spaced   out  ", `"spaced" OR "out"`},
		{`say "hello"`, `"say" OR """hello"""`},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, buildMatchQuery(tt.input), "input: %q", tt.input)
	}
}
