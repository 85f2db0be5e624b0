package replay

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// Redacted replaces sensitive query parameters and JSON fields in cassettes.
const Redacted = "REDACTED"

// Headers never written to a cassette.
var redactedHeaders = map[string]bool{
	"Authorization":       true,
	"Cookie":              true,
	"Proxy-Authorization": true,
	"Set-Cookie":          true,
	"Www-Authenticate":    true,
	"X-Access-Token":      true,
	"X-Api-Key":           true,
	"X-Api-Secret":        true,
	"X-Auth-Token":        true,
	"X-Csrf-Token":        true,
	"X-Session-Id":        true,
	"X-User-Token":        true,
}

// Query parameters and JSON object keys, lower-cased, whose values are masked.
var sensitiveNames = map[string]bool{
	"access_token":  true,
	"api_key":       true,
	"apikey":        true,
	"auth":          true,
	"authorization": true,
	"client_secret": true,
	"key":           true,
	"password":      true,
	"refresh_token": true,
	"secret":        true,
	"session":       true,
	"sid":           true,
	"token":         true,
}

func sensitive(name string) bool { return sensitiveNames[strings.ToLower(name)] }

// RedactURL masks the values of sensitive query parameters. URLs without
// any, or that do not parse, come back unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for k := range q {
		if sensitive(k) {
			q[k] = []string{Redacted}
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedactBody masks sensitive fields at any depth of a JSON body. Other
// bodies, and JSON without such fields, come back unchanged.
func RedactBody(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return body
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return body
	}
	if !redactValue(v) {
		return body
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return body
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// redactValue masks in place and reports whether anything changed.
func redactValue(v any) bool {
	changed := false
	switch v := v.(type) {
	case map[string]any:
		for k, val := range v {
			if sensitive(k) && val != nil {
				if val != Redacted {
					v[k] = Redacted
					changed = true
				}
				continue
			}
			changed = redactValue(val) || changed
		}
	case []any:
		for _, el := range v {
			changed = redactValue(el) || changed
		}
	}
	return changed
}
