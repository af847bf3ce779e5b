package swisspost

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeResponse struct {
	status int
	body   string
}

// fakeUpstream mimics the OAuth endpoint and the address API.
type fakeUpstream struct {
	t      *testing.T
	server *httptest.Server

	mu         sync.Mutex
	responses  map[string]fakeResponse
	hits       map[string]int
	queries    map[string]url.Values
	lastBody   []byte
	authHeader string
	tokenForm  url.Values
	tokenDelay time.Duration
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	f := &fakeUpstream{
		t:         t,
		responses: map[string]fakeResponse{},
		hits:      map[string]int{},
		queries:   map[string]url.Values{},
	}
	f.set("/token", http.StatusOK, `{"access_token":"tok-1","expires_in":300}`)
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) set(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = fakeResponse{status: status, body: body}
}

func (f *fakeUpstream) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeUpstream) query(path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[path]
}

func (f *fakeUpstream) form() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenForm
}

func (f *fakeUpstream) bearer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authHeader
}

func (f *fakeUpstream) body() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody
}

func (f *fakeUpstream) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.hits[r.URL.Path]++
	f.queries[r.URL.Path] = r.URL.Query()
	if r.URL.Path == "/token" {
		f.tokenForm, _ = url.ParseQuery(string(body))
	} else {
		f.authHeader = r.Header.Get("Authorization")
		f.lastBody = body
	}
	resp, ok := f.responses[r.URL.Path]
	delay := f.tokenDelay
	f.mu.Unlock()

	if r.URL.Path == "/token" && delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (f *fakeUpstream) oauthConfig() OAuthConfig {
	return OAuthConfig{
		TokenURL:     f.server.URL + "/token",
		ClientID:     "client",
		ClientSecret: "secret",
		Scope:        "DCAPI_ADDRESS_VALIDATE DCAPI_ADDRESS_AUTOCOMPLETE",
	}
}

func (f *fakeUpstream) newTokenCache() *TokenCache {
	tc, err := NewTokenCache(f.oauthConfig(), nil, f.server.Client(), zap.NewNop(), nil)
	if err != nil {
		f.t.Fatalf("NewTokenCache: %v", err)
	}
	return tc
}

func (f *fakeUpstream) newClient(cache *LookupCache) *Client {
	return NewClient(Config{BaseURL: f.server.URL}, f.newTokenCache(), f.server.Client(), cache, zap.NewNop(), nil)
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
