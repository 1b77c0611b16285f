package config

import (
	"net/url"
	"strings"
)

// Placeholder values shipped in example environments. Credentials equal to
// any of these are treated as absent.
var placeholderURLs = map[string]struct{}{
	"https://your-project.supabase.co": {},
	"https://placeholder.supabase.co":  {},
}

var placeholderKeys = map[string]struct{}{
	"your-anon-key-here": {},
	"placeholder-key":    {},
}

// Guard records whether valid backend credentials are present. It is computed
// once at startup and copied into every component that talks to the backend.
type Guard struct {
	configured bool
	reason     string
}

// NewGuard evaluates backend credentials.
func NewGuard(rawURL, key string) Guard {
	rawURL = strings.TrimRight(strings.TrimSpace(rawURL), "/")
	key = strings.TrimSpace(key)

	switch {
	case rawURL == "":
		return Guard{reason: "SUPABASE_URL is not set"}
	case key == "":
		return Guard{reason: "SUPABASE_ANON_KEY is not set"}
	}
	if _, ok := placeholderURLs[rawURL]; ok {
		return Guard{reason: "SUPABASE_URL is a placeholder value"}
	}
	if _, ok := placeholderKeys[key]; ok {
		return Guard{reason: "SUPABASE_ANON_KEY is a placeholder value"}
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Guard{reason: "SUPABASE_URL is not a valid URL"}
	}
	if u.Scheme != "https" {
		return Guard{reason: "SUPABASE_URL must use https"}
	}

	return Guard{configured: true}
}

// GuardFromConfig evaluates the credentials carried by cfg.
func GuardFromConfig(cfg *Config) Guard {
	if cfg == nil {
		return Guard{reason: "configuration not loaded"}
	}
	return NewGuard(cfg.SupabaseURL, cfg.SupabaseAnonKey)
}

// Configured reports whether live backend access is allowed.
func (g Guard) Configured() bool {
	return g.configured
}

// Reason explains why the guard is closed. Empty when configured.
func (g Guard) Reason() string {
	return g.reason
}

// Mode names the runtime mode for logs and the CLI banner.
func (g Guard) Mode() string {
	if g.configured {
		return "live"
	}
	return "demo"
}
