package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGuard(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		key        string
		configured bool
	}{
		{"valid", "https://abcd.supabase.co", "anon-key", true},
		{"valid with trailing slash", "https://abcd.supabase.co/", "anon-key", true},
		{"missing url", "", "anon-key", false},
		{"missing key", "https://abcd.supabase.co", "", false},
		{"whitespace key", "https://abcd.supabase.co", "   ", false},
		{"placeholder url", "https://your-project.supabase.co", "anon-key", false},
		{"placeholder key", "https://abcd.supabase.co", "your-anon-key-here", false},
		{"dummy client url", "https://placeholder.supabase.co", "anon-key", false},
		{"dummy client key", "https://abcd.supabase.co", "placeholder-key", false},
		{"plain http", "http://abcd.supabase.co", "anon-key", false},
		{"no host", "https://", "anon-key", false},
		{"not a url", "abcd.supabase.co", "anon-key", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(tt.url, tt.key)
			assert.Equal(t, tt.configured, g.Configured())
			if tt.configured {
				assert.Empty(t, g.Reason())
				assert.Equal(t, "live", g.Mode())
			} else {
				assert.NotEmpty(t, g.Reason())
				assert.Equal(t, "demo", g.Mode())
			}
		})
	}
}

func TestGuardFromConfig_Nil(t *testing.T) {
	assert.False(t, GuardFromConfig(nil).Configured())
}

func TestGuard_ZeroValueIsClosed(t *testing.T) {
	var g Guard
	assert.False(t, g.Configured())
}
