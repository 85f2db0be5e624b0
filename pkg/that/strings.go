package that

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"
)

func (s *Subject) text(expr string) string {
	rv := reflect.ValueOf(s.value)
	if rv.Kind() != reflect.String {
		s.fail(expr, describef("string"), describef("%T", s.value))
	}
	return rv.String()
}

func (s *Subject) StartsWith(prefix string) *Subject {
	expr := s.expr("StartsWith", prefix)
	if !strings.HasPrefix(s.text(expr), prefix) {
		s.fail(expr, describef("string starting with %s", render(prefix)), s.value)
	}
	return s
}

func (s *Subject) EndsWith(suffix string) *Subject {
	expr := s.expr("EndsWith", suffix)
	if !strings.HasSuffix(s.text(expr), suffix) {
		s.fail(expr, describef("string ending with %s", render(suffix)), s.value)
	}
	return s
}

// Matches requires the pattern to match somewhere in the subject string.
// pattern is a string or a *regexp.Regexp.
func (s *Subject) Matches(pattern any) *Subject {
	expr := s.expr("Matches", pattern)
	var re *regexp.Regexp
	switch p := pattern.(type) {
	case *regexp.Regexp:
		re = p
	case string:
		var err error
		if re, err = regexp.Compile(p); err != nil {
			s.misuse(expr, "invalid pattern: %w", err)
		}
	default:
		s.misuse(expr, "pattern must be a string or *regexp.Regexp, got %T", pattern)
	}
	if !re.MatchString(s.text(expr)) {
		s.fail(expr, describef("string matching /%s/", re), s.value)
	}
	return s
}

// AsJSON parses a string or []byte subject as JSON and returns a subject
// over the decoded value (maps, slices, float64, string, bool, nil).
func (s *Subject) AsJSON() *Subject {
	expr := s.expr("AsJSON")
	var raw []byte
	switch v := s.value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		s.fail(expr, describef("JSON text"), describef("%T", s.value))
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		s.fail(expr, describef("valid JSON"), describef("%s", err))
	}
	return That(out, expr)
}
