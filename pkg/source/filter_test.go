package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Matches(t *testing.T) {
	f := NewFilter(nil, []string{"Crypto"})

	tests := []struct {
		text string
		want bool
	}{
		{"OpenClaw ships v2", true},
		{"openclaw ships v2", true},
		{"Peter STEINBERGER on agents", true},
		{"OpenClaw crypto scam warning", false},
		{"A story about phones", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Matches(tt.text))
		})
	}
}

func TestFilter_CustomKeywords(t *testing.T) {
	f := NewFilter([]string{" Agents ", "", "agents"}, nil)

	assert.True(t, f.Matches("AGENTS everywhere"))
	assert.False(t, f.Matches("OpenClaw"), "custom keywords replace the defaults")
	assert.Len(t, f.keywords, 1)
}
