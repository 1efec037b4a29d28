package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordingNavigator struct {
	mu   sync.Mutex
	hard []string
	soft []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.soft = append(n.soft, path)
}

func (n *recordingNavigator) HardNavigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hard = append(n.hard, path)
}

func (n *recordingNavigator) hardPaths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.hard...)
}

func (n *recordingNavigator) softPaths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.soft...)
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *CredentialStore, *recordingNavigator, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	creds, err := NewCredentialStore(NewMemoryStore(), server.URL)
	if err != nil {
		t.Fatalf("credential store: %v", err)
	}
	nav := &recordingNavigator{}
	return New(server.URL, creds, nav), creds, nav, server
}

func TestBearerHeaderAttached(t *testing.T) {
	var gotAuth string
	c, creds, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("{}"))
	}))
	creds.SetTokens("tok-123", "ref-123")

	if _, err := c.Do(context.Background(), http.MethodGet, "/echo/", "", nil); err != nil {
		t.Fatalf("request error: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("expected Bearer tok-123, got %q", gotAuth)
	}
}

func TestNoHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	c, _, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("{}"))
	}))

	if _, err := c.Do(context.Background(), http.MethodGet, "/echo/", "", nil); err != nil {
		t.Fatalf("request error: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("expected no authorization header, got %q", gotAuth)
	}
}

func TestRefreshReplayExactlyOnce(t *testing.T) {
	var dataCalls, refreshCalls int32
	var replayAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&dataCalls, 1)
		if r.Header.Get("Authorization") != "Bearer new-access" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Given token not valid for any token type"}`))
			return
		}
		replayAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok": true}`))
	})
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		w.Write([]byte(`{"access": "new-access"}`))
	})

	c, creds, _, _ := newTestClient(t, mux)
	creds.SetTokens("stale-access", "ref-1")

	if _, err := c.Do(context.Background(), http.MethodGet, "/data/", "", nil); err != nil {
		t.Fatalf("request error: %v", err)
	}

	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", n)
	}
	if n := atomic.LoadInt32(&dataCalls); n != 2 {
		t.Fatalf("expected original request plus one replay, got %d calls", n)
	}
	if replayAuth != "Bearer new-access" {
		t.Fatalf("replay carried %q", replayAuth)
	}
	if creds.AccessToken() != "new-access" {
		t.Fatalf("stored access token is %q", creds.AccessToken())
	}
	if creds.RefreshToken() != "ref-1" {
		t.Fatal("refresh token should survive a refresh exchange")
	}
	if cookie := creds.TokenCookie(KeyAccessToken); cookie == nil || cookie.Value != "new-access" {
		t.Fatal("cookie jar not updated with the refreshed access token")
	}
}

func TestAbsentRefreshTokenClearsWithoutReplay(t *testing.T) {
	var dataCalls int32
	c, creds, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&dataCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Given token not valid for any token type"}`))
	}))
	// Access token only: the pair was half-wiped somewhere.
	creds.durable.Set(KeyAccessToken, "stale-access")

	_, err := c.Do(context.Background(), http.MethodGet, "/data/", "", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected the original 401 back, got %v", err)
	}
	if n := atomic.LoadInt32(&dataCalls); n != 1 {
		t.Fatalf("expected no replay, got %d calls", n)
	}
	for _, key := range credentialKeys {
		if creds.durable.Get(key) != "" {
			t.Fatalf("expected %s cleared", key)
		}
	}
}

func TestRefreshFailureIsTerminal(t *testing.T) {
	var dataCalls, refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&dataCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Given token not valid for any token type"}`))
	})
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Token is invalid or expired"}`))
	})

	c, creds, nav, _ := newTestClient(t, mux)
	creds.SetTokens("stale-access", "revoked-refresh")

	_, err := c.Do(context.Background(), http.MethodGet, "/data/", "", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Detail != "Token is invalid or expired" {
		t.Fatalf("expected the refresh error, got %v", err)
	}

	// The failed refresh is terminal: a 401 from the refresh endpoint is
	// never itself retried.
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Fatalf("expected one refresh call, got %d", n)
	}
	if n := atomic.LoadInt32(&dataCalls); n != 1 {
		t.Fatalf("expected no replay, got %d calls", n)
	}
	if creds.AccessToken() != "" || creds.RefreshToken() != "" {
		t.Fatal("expected credentials cleared")
	}
	if hard := nav.hardPaths(); len(hard) != 1 || hard[0] != "/login" {
		t.Fatalf("expected hard navigation to /login, got %v", hard)
	}
}

func TestConcurrentRefreshDeduplicated(t *testing.T) {
	const workers = 8

	var refreshCalls int32
	var arrived int32
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer new-access" {
			w.Write([]byte(`{"ok": true}`))
			return
		}
		// Hold every first attempt until all workers are in flight, so
		// their 401s and refresh attempts genuinely overlap.
		if atomic.AddInt32(&arrived, 1) == workers {
			close(release)
		}
		<-release
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Given token not valid for any token type"}`))
	})
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`{"access": "new-access"}`))
	})

	c, creds, _, _ := newTestClient(t, mux)
	creds.SetTokens("stale-access", "ref-1")

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Do(context.Background(), http.MethodGet, "/data/", "", nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Fatalf("expected one shared refresh, got %d", n)
	}
}

func TestAPIErrorMessages(t *testing.T) {
	detailErr := decodeAPIError(401, []byte(`{"detail": "No active account found with the given credentials"}`))
	if detailErr.Error() != "No active account found with the given credentials" {
		t.Fatalf("unexpected message: %q", detailErr.Error())
	}

	fieldErr := decodeAPIError(400, []byte(`{"email": ["already exists"], "password": ["too short"]}`))
	msg := fieldErr.Error()
	if msg != "email: already exists; password: too short" {
		t.Fatalf("unexpected message: %q", msg)
	}

	bare := decodeAPIError(502, nil)
	if bare.Error() != "request failed with status 502" {
		t.Fatalf("unexpected message: %q", bare.Error())
	}
}
