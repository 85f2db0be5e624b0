package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"that/internal/config"
	"that/pkg/logging"
	"that/pkg/mock"
)

// Mode decides when a Recorder talks to the network.
type Mode string

const (
	// ModeOnce replays an existing cassette, or records a new one when none exists.
	ModeOnce Mode = config.ReplayOnce
	// ModeNone only replays; unmatched requests fail.
	ModeNone Mode = config.ReplayNone
	// ModeAll always records, replacing the cassette.
	ModeAll Mode = config.ReplayAll
)

// ErrNoInteraction is returned when a replayed request has no recorded match.
var ErrNoInteraction = errors.New("no recorded interaction")

var (
	defaultsMu  sync.RWMutex
	defaultDir  = "testdata/cassettes"
	defaultMode = ModeOnce
)

// Configure sets the cassette directory and mode used by Open.
func Configure(cfg config.ReplayConfig) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	if cfg.CassetteDir != "" {
		defaultDir = cfg.CassetteDir
	}
	if cfg.Mode != "" {
		defaultMode = Mode(cfg.Mode)
	}
}

// Option configures a Recorder opened by name.
type Option func(*openOptions)

type openOptions struct {
	dir       string
	mode      Mode
	transport http.RoundTripper
}

// WithDir overrides the configured cassette directory.
func WithDir(dir string) Option { return func(o *openOptions) { o.dir = dir } }

// WithMode overrides the configured mode.
func WithMode(m Mode) Option { return func(o *openOptions) { o.mode = m } }

// WithTransport sets the transport used while recording.
func WithTransport(rt http.RoundTripper) Option { return func(o *openOptions) { o.transport = rt } }

// Open returns a Recorder for the named cassette in the configured directory.
func Open(name string, opts ...Option) (*Recorder, error) {
	defaultsMu.RLock()
	o := openOptions{dir: defaultDir, mode: defaultMode}
	defaultsMu.RUnlock()
	for _, opt := range opts {
		opt(&o)
	}
	return New(CassettePath(o.dir, name), o.mode, o.transport)
}

// Recorder is an http.RoundTripper that records interactions to a cassette
// or replays them from it.
type Recorder struct {
	path      string
	mode      Mode
	transport http.RoundTripper

	mu        sync.Mutex
	cassette  *Cassette
	recording bool
	served    map[int]bool
}

// New creates a Recorder for the cassette at path. A nil transport uses
// http.DefaultTransport. ModeNone requires the cassette to exist.
func New(path string, mode Mode, transport http.RoundTripper) (*Recorder, error) {
	if transport == nil {
		transport = http.DefaultTransport
	}
	r := &Recorder{path: path, mode: mode, transport: transport, served: make(map[int]bool)}

	switch mode {
	case ModeAll:
		r.cassette = &Cassette{Version: CassetteVersion}
		r.recording = true
	case ModeOnce, ModeNone:
		c, err := LoadCassette(path)
		switch {
		case err == nil:
			r.cassette = c
		case errors.Is(err, os.ErrNotExist) && mode == ModeOnce:
			r.cassette = &Cassette{Version: CassetteVersion}
			r.recording = true
		default:
			return nil, fmt.Errorf("failed to open cassette: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown replay mode %q", mode)
	}

	logging.Debug("Replay", "Opened cassette %s (mode=%s, recording=%t)", path, mode, r.recording)
	return r, nil
}

// Recording reports whether requests go to the network.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Path returns the cassette file.
func (r *Recorder) Path() string { return r.path }

// Client returns an http.Client using the Recorder as its transport.
func (r *Recorder) Client() *http.Client {
	return &http.Client{Transport: r}
}

// Interactions returns a copy of the recorded interactions.
func (r *Recorder) Interactions() []Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Interaction(nil), r.cassette.Interactions...)
}

// RoundTrip implements http.RoundTripper.
func (r *Recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, err
	}

	if !r.Recording() {
		resp, err := r.Replay(req.Method, req.URL.String(), body)
		if err != nil {
			return nil, err
		}
		return resp.toHTTP(req), nil
	}

	resp, err := r.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	interaction := Interaction{
		Request: Request{
			Method:  req.Method,
			URL:     RedactURL(req.URL.String()),
			Headers: flattenHeaders(req.Header),
			Body:    string(RedactBody(body)),
		},
		Response: Response{
			Status:  resp.StatusCode,
			Headers: flattenHeaders(resp.Header),
			Body:    string(RedactBody(respBody)),
		},
	}
	if err := r.record(interaction); err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *Recorder) record(i Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cassette.Interactions = append(r.cassette.Interactions, i)
	r.served[len(r.cassette.Interactions)-1] = true
	if err := r.cassette.Save(r.path); err != nil {
		return err
	}
	logging.Debug("Replay", "Recorded %s %s to %s", i.Request.Method, i.Request.URL, r.path)
	return nil
}

// Replay returns the recorded response for a request. Identical requests
// are answered by their recordings in order; once all have been served the
// last one repeats. Requests differing only in redacted values are identical.
func (r *Recorder) Replay(method, url string, body []byte) (*Response, error) {
	sig := Signature(method, url, body)

	r.mu.Lock()
	defer r.mu.Unlock()
	last := -1
	for i, in := range r.cassette.Interactions {
		if in.Request.signature() != sig {
			continue
		}
		if !r.served[i] {
			r.served[i] = true
			resp := in.Response
			return &resp, nil
		}
		last = i
	}
	if last >= 0 {
		resp := r.cassette.Interactions[last].Response
		return &resp, nil
	}
	url = RedactURL(url)
	logging.Warn("Replay", "No interaction in %s for %s %s", r.path, method, url)
	return nil, fmt.Errorf("%w for %s %s in %s", ErrNoInteraction, strings.ToUpper(method), url, r.path)
}

// Behavior returns a mock behavior answering calls shaped (method, url[, body])
// with the recorded *Response.
func (r *Recorder) Behavior() mock.Behavior {
	return mock.Dynamic(func(args []any, _ map[string]any) (any, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("replay behavior needs (method, url[, body]), got %d args", len(args))
		}
		method, ok1 := args[0].(string)
		url, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("replay behavior needs string method and url, got %T and %T", args[0], args[1])
		}
		var body []byte
		if len(args) > 2 {
			switch b := args[2].(type) {
			case nil:
			case string:
				body = []byte(b)
			case []byte:
				body = b
			default:
				return nil, fmt.Errorf("replay behavior body must be string or []byte, got %T", b)
			}
		}
		return r.Replay(method, url, body)
	})
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func flattenHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if redactedHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func (resp Response) toHTTP(req *http.Request) *http.Response {
	header := make(http.Header, len(resp.Headers))
	for k, v := range resp.Headers {
		header.Set(k, v)
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.Status, http.StatusText(resp.Status)),
		StatusCode:    resp.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}
}
