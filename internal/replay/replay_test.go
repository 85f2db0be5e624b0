package replay

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"that/internal/config"
	"that/pkg/mock"
)

func newServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Set-Cookie", "session=secret")
		fmt.Fprintf(w, `{"path":%q,"hit":%d,"body":%q}`, r.URL.Path, n, string(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, c *http.Client, url string) string {
	t.Helper()
	resp, err := c.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecorder_OnceRecordsThenReplays(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	path := filepath.Join(t.TempDir(), "cassettes", "users.yaml")

	rec, err := New(path, ModeOnce, nil)
	require.NoError(t, err)
	assert.True(t, rec.Recording())

	first := get(t, rec.Client(), srv.URL+"/users/1")
	assert.Contains(t, first, `"hit":1`)
	assert.FileExists(t, path)
	require.Len(t, rec.Interactions(), 1)
	assert.Equal(t, http.StatusOK, rec.Interactions()[0].Response.Status)

	srv.Close()

	replayer, err := New(path, ModeOnce, nil)
	require.NoError(t, err)
	assert.False(t, replayer.Recording())

	resp, err := replayer.Client().Get(srv.URL + "/users/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, first, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, int32(1), hits.Load(), "replay does not touch the network")
}

func TestRecorder_RedactsCredentials(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	path := filepath.Join(t.TempDir(), "auth.yaml")

	rec, err := New(path, ModeAll, nil)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Accept", "application/json")
	resp, err := rec.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Bearer token")
	assert.NotContains(t, string(data), "session=secret")
	assert.Contains(t, string(data), "Accept: application/json")
}

func TestRecorder_RedactsTokensHeadersQueryAndBodies(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Www-Authenticate", `Bearer realm="issuer-realm"`)
		fmt.Fprint(w, `{"access_token":"issued-1","expires":3600}`)
	}))
	t.Cleanup(srv.Close)
	path := filepath.Join(t.TempDir(), "login.yaml")

	login := func(c *http.Client, apiKey string) string {
		t.Helper()
		body := `{"user":"ann","password":"hunter2","profile":{"token":"tok-1"},"devices":[{"secret":"dev-1"}]}`
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/login?page=2&api_key="+apiKey+"&client_secret=cs-789", strings.NewReader(body))
		require.NoError(t, err)
		for _, h := range []string{"X-Api-Key", "X-Auth-Token", "X-Access-Token", "X-Csrf-Token"} {
			req.Header.Set(h, "hdr-"+h)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		got, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(got)
	}

	rec, err := New(path, ModeAll, nil)
	require.NoError(t, err)
	assert.Contains(t, login(rec.Client(), "k-123"), "issued-1", "the live caller sees the real response")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, secret := range []string{"hdr-", "issuer-realm", "k-123", "cs-789", "hunter2", "tok-1", "dev-1", "issued-1"} {
		assert.NotContains(t, string(data), secret)
	}
	assert.Contains(t, string(data), "page=2")
	assert.Contains(t, string(data), `"user":"ann"`)
	assert.Contains(t, string(data), `"expires":3600`)
	assert.Contains(t, string(data), "Accept: application/json")

	replayer, err := New(path, ModeNone, nil)
	require.NoError(t, err)
	assert.Contains(t, login(replayer.Client(), "k-123"), `"access_token":"REDACTED"`)
	assert.Contains(t, login(replayer.Client(), "another-key"), "REDACTED", "only redacted values differ")
	assert.Equal(t, int32(1), hits.Load())

	_, err = replayer.Client().Post(srv.URL+"/login?page=3", "application/json", strings.NewReader(`{}`))
	assert.ErrorIs(t, err, ErrNoInteraction)
}

func TestRecorder_UnmatchedErrorHidesSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, (&Cassette{Version: CassetteVersion}).Save(path))
	rec, err := New(path, ModeNone, nil)
	require.NoError(t, err)

	_, err = rec.Replay("GET", "http://x/items?token=abc", nil)
	require.ErrorIs(t, err, ErrNoInteraction)
	assert.NotContains(t, err.Error(), "abc")
	assert.Contains(t, err.Error(), "token=REDACTED")
}

func TestFlattenHeadersDropsCredentials(t *testing.T) {
	h := http.Header{}
	for _, name := range []string{
		"Authorization", "Proxy-Authorization", "Cookie", "Set-Cookie", "Www-Authenticate",
		"X-Api-Key", "X-Auth-Token", "X-Access-Token", "X-Csrf-Token",
	} {
		h.Set(name, "secret")
	}
	h.Set("Content-Type", "application/json")
	h["x-api-key"] = []string{"lower-case secret"}

	assert.Equal(t, map[string]string{"Content-Type": "application/json"}, flattenHeaders(h))
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no query", "http://x/items", "http://x/items"},
		{"nothing sensitive keeps order", "http://x/items?b=2&a=1", "http://x/items?b=2&a=1"},
		{"token", "http://x/items?token=abc&page=1", "http://x/items?page=1&token=REDACTED"},
		{"api key any case", "http://x/?API_KEY=k", "http://x/?API_KEY=REDACTED"},
		{"access and refresh", "http://x/?access_token=a&refresh_token=r", "http://x/?access_token=REDACTED&refresh_token=REDACTED"},
		{"client secret", "http://x/?client_secret=s", "http://x/?client_secret=REDACTED"},
		{"password repeated", "http://x/?password=a&password=b", "http://x/?password=REDACTED"},
		{"already redacted", "http://x/?token=REDACTED", "http://x/?token=REDACTED"},
		{"unparseable", "http://x/%zz?token=a", "http://x/%zz?token=a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactURL(tt.in))
		})
	}
}

func TestRedactBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text", "password=hunter2", "password=hunter2"},
		{"nothing sensitive", `{ "b": 1, "a": 2 }`, `{ "b": 1, "a": 2 }`},
		{"password", `{"user":"ann","password":"hunter2"}`, `{"password":"REDACTED","user":"ann"}`},
		{"nested token", `{"profile":{"Token":"t"}}`, `{"profile":{"Token":"REDACTED"}}`},
		{"array of objects", `[{"secret":"s"},{"id":1}]`, `[{"secret":"REDACTED"},{"id":1}]`},
		{"object value", `{"auth":{"user":"u","pass":"p"}}`, `{"auth":"REDACTED"}`},
		{"null stays null", `{"token":null}`, `{"token":null}`},
		{"numbers keep their text", `{"api_key":"k","amount":10.50}`, `{"amount":10.50,"api_key":"REDACTED"}`},
		{"html is not escaped", `{"secret":"s","q":"a<b"}`, `{"q":"a<b","secret":"REDACTED"}`},
		{"invalid json", `{"password":`, `{"password":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(RedactBody([]byte(tt.in))))
		})
	}
}

func TestSignatureUsesRedactedForm(t *testing.T) {
	live := Signature("POST", "http://x/login?token=abc", []byte(`{"password":"hunter2","user":"ann"}`))
	recorded := Signature("POST", RedactURL("http://x/login?token=abc"), RedactBody([]byte(`{"password":"hunter2","user":"ann"}`)))
	assert.Equal(t, recorded, live)
	assert.Equal(t, live, Signature("POST", "http://x/login?token=other", []byte(`{"user":"ann","password":"other"}`)))
	assert.NotEqual(t, live, Signature("POST", "http://x/login?token=abc", []byte(`{"password":"hunter2","user":"bob"}`)))
}

func TestRecorder_NoneMode(t *testing.T) {
	dir := t.TempDir()

	_, err := New(filepath.Join(dir, "absent.yaml"), ModeNone, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(dir, "known.yaml")
	c := &Cassette{Interactions: []Interaction{{
		Request:  Request{Method: "GET", URL: "http://api.test/known"},
		Response: Response{Status: 200, Body: "ok"},
	}}}
	require.NoError(t, c.Save(path))

	rec, err := New(path, ModeNone, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", get(t, rec.Client(), "http://api.test/known"))

	_, err = rec.Client().Get("http://api.test/unknown")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoInteraction)
}

func TestRecorder_AllModeReplacesCassette(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	path := filepath.Join(t.TempDir(), "stale.yaml")
	stale := &Cassette{Interactions: []Interaction{{
		Request:  Request{Method: "GET", URL: srv.URL + "/users/1"},
		Response: Response{Status: 200, Body: "stale"},
	}}}
	require.NoError(t, stale.Save(path))

	rec, err := New(path, ModeAll, nil)
	require.NoError(t, err)
	body := get(t, rec.Client(), srv.URL+"/users/1")
	assert.Contains(t, body, `"hit":1`)

	saved, err := LoadCassette(path)
	require.NoError(t, err)
	require.Len(t, saved.Interactions, 1)
	assert.NotEqual(t, "stale", saved.Interactions[0].Response.Body)
}

func TestRecorder_JSONBodiesMatchCanonically(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	path := filepath.Join(t.TempDir(), "create.yaml")

	rec, err := New(path, ModeOnce, nil)
	require.NoError(t, err)
	resp, err := rec.Client().Post(srv.URL+"/items", "application/json", strings.NewReader(`{"b":1,"a":2}`))
	require.NoError(t, err)
	resp.Body.Close()

	replayer, err := New(path, ModeNone, nil)
	require.NoError(t, err)
	resp, err = replayer.Client().Post(srv.URL+"/items", "application/json", strings.NewReader("{ \"a\": 2,\n  \"b\": 1 }"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(1), hits.Load())

	_, err = replayer.Client().Post(srv.URL+"/items", "application/json", strings.NewReader(`{"a":3}`))
	assert.ErrorIs(t, err, ErrNoInteraction, "a different body does not match")
}

func TestRecorder_RepeatedRequestsServeInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poll.yaml")
	c := &Cassette{Interactions: []Interaction{
		{Request: Request{Method: "GET", URL: "http://api.test/status"}, Response: Response{Status: 202, Body: "pending"}},
		{Request: Request{Method: "GET", URL: "http://api.test/status"}, Response: Response{Status: 200, Body: "done"}},
	}}
	require.NoError(t, c.Save(path))

	rec, err := New(path, ModeNone, nil)
	require.NoError(t, err)
	for _, want := range []string{"pending", "done", "done"} {
		resp, err := rec.Replay("get", "http://api.test/status", nil)
		require.NoError(t, err)
		assert.Equal(t, want, resp.Body)
	}
}

type apiClient struct {
	Fetch func(method, url string, body []byte) (*Response, error)
}

func TestRecorder_Behavior(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	c := &Cassette{Interactions: []Interaction{{
		Request:  Request{Method: "POST", URL: "http://api.test/users", Body: `{"name":"ada"}`},
		Response: Response{Status: 201, Body: `{"id":1}`},
	}}}
	require.NoError(t, c.Save(path))
	rec, err := New(path, ModeNone, nil)
	require.NoError(t, err)

	client := &apiClient{Fetch: func(string, string, []byte) (*Response, error) {
		return nil, errors.New("network disabled")
	}}
	h, err := mock.Install(t, client, "Fetch", rec.Behavior())
	require.NoError(t, err)

	resp, err := client.Fetch("POST", "http://api.test/users", []byte(`{ "name": "ada" }`))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.Status)
	assert.NoError(t, h.CheckCalledOnce())

	_, err = client.Fetch("GET", "http://api.test/other", nil)
	assert.ErrorIs(t, err, ErrNoInteraction)
}

func TestOpen_UsesConfiguredDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() {
		Configure(config.ReplayConfig{CassetteDir: "testdata/cassettes", Mode: config.ReplayOnce})
	})
	Configure(config.ReplayConfig{CassetteDir: dir, Mode: config.ReplayNone})

	_, err := Open("missing")
	assert.ErrorIs(t, err, os.ErrNotExist, "mode none from config")

	rec, err := Open("fresh", WithMode(ModeOnce))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fresh.yaml"), rec.Path())
	assert.True(t, rec.Recording())
}

func TestNew_UnknownMode(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "x.yaml"), Mode("sometimes"), nil)
	assert.ErrorContains(t, err, `unknown replay mode "sometimes"`)
}

func TestLoadCassette(t *testing.T) {
	dir := t.TempDir()

	future := filepath.Join(dir, "future.yaml")
	require.NoError(t, os.WriteFile(future, []byte("version: 2\ninteractions: []\n"), 0644))
	_, err := LoadCassette(future)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("interactions: [unclosed"), 0644))
	_, err = LoadCassette(broken)
	assert.ErrorContains(t, err, "failed to parse cassette")

	legacy := filepath.Join(dir, "legacy.yaml")
	require.NoError(t, os.WriteFile(legacy, []byte("interactions:\n- request: {method: GET, url: \"http://x\"}\n  response: {status: 200, body: ok}\n"), 0644))
	c, err := LoadCassette(legacy)
	require.NoError(t, err)
	assert.Equal(t, CassetteVersion, c.Version)
	assert.Equal(t, "ok", c.Interactions[0].Response.Body)
}

func TestSignature(t *testing.T) {
	a := Signature("post", "http://x/items", []byte(`{"b":1,"a":[1,2]}`))
	b := Signature("POST", "http://x/items", []byte(" {\"a\": [1, 2], \"b\": 1}\n"))
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "POST http://x/items "))

	assert.NotEqual(t, a, Signature("POST", "http://x/items", []byte(`{"a":[2,1],"b":1}`)))
	assert.Equal(t, "GET http://x", Signature("GET", "http://x", nil))
	assert.Equal(t, []byte("plain text"), CanonicalBody([]byte("plain text")))
	assert.Equal(t, []byte(`{"a":1,"b":2}`), CanonicalBody([]byte(`{ "b": 2, "a": 1 }`)))
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-01T00:00:00Z", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-06-15T10:30:00.5Z", time.Date(2024, 6, 15, 10, 30, 0, 500_000_000, time.UTC)},
		{"2024-06-15T10:30:00", time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-06-15", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTime("yesterday")
	assert.ErrorContains(t, err, `invalid ISO datetime string: "yesterday"`)
}

func TestClocks(t *testing.T) {
	c, err := Frozen("2024-01-01T00:00:00Z")
	require.NoError(t, err)
	var clock Clock = c
	assert.Equal(t, 2024, clock.Now().Year())
	assert.Equal(t, clock.Now(), clock.Now())

	before := time.Now()
	assert.False(t, SystemClock{}.Now().Before(before))
}

var now = time.Now

func TestFreeze(t *testing.T) {
	t.Run("frozen inside the scope", func(t *testing.T) {
		h, err := Freeze(t, &now, "", "2024-01-01T00:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), now())
		assert.Equal(t, 1, h.CallCount())
	})
	assert.NotEqual(t, 2024, now().Year(), "restored after the scope ends")

	_, err := Freeze(t, &now, "", "not a time")
	assert.Error(t, err)
}
