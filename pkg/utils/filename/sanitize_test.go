package filename

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{name: "plain", in: "My Podcast Episode", want: "My-Podcast-Episode"},
		{name: "invalid chars", in: `what/the\heck: "quotes"?`, want: "what-the-heck-quotes"},
		{name: "collapses dashes", in: "a -- b __ c", want: "a-b-c"},
		{name: "strips leading dots", in: "...hidden", want: "hidden"},
		{name: "empty", in: "   ", want: ""},
		{name: "truncated", in: "abcdefghij", maxLen: 5, want: "abcde"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in, tt.maxLen))
		})
	}
}
