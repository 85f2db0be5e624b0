package registry

import (
	"slices"
	"strings"
)

// Predefined tags.
const (
	TagSlow        = "slow"
	TagIntegration = "integration"
	TagUnit        = "unit"
	TagNetwork     = "requires_network"
	TagDB          = "requires_db"
	TagSmoke       = "smoke"
)

type testConfig struct {
	tags map[string]struct{}
	slow bool
	skip string
}

// Option adjusts a test at registration.
type Option func(*testConfig)

// WithTags adds tags to the test.
func WithTags(tags ...string) Option {
	return func(c *testConfig) {
		for _, t := range tags {
			if t = strings.TrimSpace(t); t != "" {
				c.tags[t] = struct{}{}
			}
		}
	}
}

// Slow marks the test slow and tags it TagSlow.
func Slow() Option {
	return func(c *testConfig) {
		c.slow = true
		c.tags[TagSlow] = struct{}{}
	}
}

// Skip registers the test but never runs it; it is reported Skipped with reason.
func Skip(reason string) Option {
	return func(c *testConfig) {
		if reason == "" {
			reason = "skipped"
		}
		c.skip = reason
	}
}

func applyOptions(opts []Option) testConfig {
	c := testConfig{tags: make(map[string]struct{})}
	for _, opt := range opts {
		opt(&c)
	}
	if _, ok := c.tags[TagSlow]; ok {
		c.slow = true
	}
	return c
}

func sortedTags(tags map[string]struct{}) []string {
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Filter narrows a registry to the tests to run. Empty fields match everything.
type Filter struct {
	// Suites restricts to the named suites.
	Suites []string
	// Include requires at least one of these tags.
	Include []string
	// Exclude drops tests carrying any of these tags. It wins over Include.
	Exclude []string
	// Locations selects the tests registered at or just before each
	// "file:line". Only Registry.Select applies them.
	Locations []string
}

// Matches reports whether tc passes the suite and tag rules.
func (f Filter) Matches(tc *TestCase) bool {
	if len(f.Suites) > 0 && !slices.Contains(f.Suites, tc.Suite) {
		return false
	}
	return f.MatchesTags(tc.Tags)
}

// MatchesTags applies the tag rules alone.
func (f Filter) MatchesTags(tags map[string]struct{}) bool {
	for _, t := range f.Exclude {
		if _, ok := tags[t]; ok {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, t := range f.Include {
		if _, ok := tags[t]; ok {
			return true
		}
	}
	return false
}

// ParseTags splits a comma-separated flag value.
func ParseTags(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
