// Package replay makes tests that talk HTTP or read the clock deterministic.
//
// A Recorder is an http.RoundTripper backed by a YAML cassette:
//
//	rec, err := replay.Open("fetch_user")
//	client := rec.Client()
//
// In ModeOnce the first run records real traffic and later runs replay it;
// ModeNone never touches the network; ModeAll always re-records. Requests
// match on method, URL and body, with JSON bodies compared in canonical form.
// Credentials are never written to a cassette.
//
// Freeze pins a func() time.Time attribute to a fixed instant for the
// duration of a test:
//
//	replay.Freeze(t, svc, "Now", "2024-01-01T00:00:00Z")
package replay
