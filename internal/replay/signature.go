package replay

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Signature identifies a request for matching against recorded
// interactions: the upper-cased method, the URL and a digest of the body.
// Both are taken in their redacted form, so a cassette matches the live
// request it was recorded from. JSON bodies are canonicalized (RFC 8785)
// first, so key order and whitespace do not change the signature.
func Signature(method, url string, body []byte) string {
	sig := strings.ToUpper(method) + " " + RedactURL(url)
	if len(bytes.TrimSpace(body)) == 0 {
		return sig
	}
	sum := sha256.Sum256(CanonicalBody(RedactBody(body)))
	return sig + " " + hex.EncodeToString(sum[:8])
}

// CanonicalBody returns the JCS form of a JSON body, or body unchanged when
// it is not JSON.
func CanonicalBody(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return body
	}
	canonical, err := jsoncanonicalizer.Transform(trimmed)
	if err != nil {
		return body
	}
	return canonical
}

func (r Request) signature() string {
	return Signature(r.Method, r.URL, []byte(r.Body))
}
