package client

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sync"
	"time"
)

// Credential keys in the durable store. The two token keys are mirrored
// into the cookie jar so request-time guards that only see cookies still
// recognize the session.
const (
	KeyAccessToken    = "accessToken"
	KeyRefreshToken   = "refreshToken"
	KeyStudentProfile = "studentProfile"
	KeyCompanyProfile = "companyProfile"
)

var credentialKeys = []string{KeyAccessToken, KeyRefreshToken, KeyStudentProfile, KeyCompanyProfile}

// Store is a durable string key-value store.
type Store interface {
	Get(key string) string
	Set(key, value string)
	Delete(key string)
}

// CredentialStore is the single seam for session credentials. Every write
// fans out to the durable store and, for token keys, the cookie jar, so
// the two stay consistent.
type CredentialStore struct {
	durable Store
	jar     http.CookieJar
	baseURL *url.URL
}

func NewCredentialStore(durable Store, baseURL string) (*CredentialStore, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &CredentialStore{durable: durable, jar: jar, baseURL: parsed}, nil
}

// Jar exposes the cookie jar so the HTTP client can share it.
func (c *CredentialStore) Jar() http.CookieJar {
	return c.jar
}

// SetTokens stores an access/refresh pair atomically in both backing
// stores. Tokens are always issued together.
func (c *CredentialStore) SetTokens(access, refresh string) {
	c.durable.Set(KeyAccessToken, access)
	c.durable.Set(KeyRefreshToken, refresh)
	c.setCookie(KeyAccessToken, access)
	c.setCookie(KeyRefreshToken, refresh)
}

// SetAccessToken replaces only the access token, as after a refresh
// exchange. The refresh token is untouched.
func (c *CredentialStore) SetAccessToken(access string) {
	c.durable.Set(KeyAccessToken, access)
	c.setCookie(KeyAccessToken, access)
}

func (c *CredentialStore) AccessToken() string {
	return c.durable.Get(KeyAccessToken)
}

func (c *CredentialStore) RefreshToken() string {
	return c.durable.Get(KeyRefreshToken)
}

func (c *CredentialStore) SetProfile(userType string, user User) {
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	c.durable.Set(profileKey(userType), string(data))
}

func (c *CredentialStore) Profile(userType string) (User, bool) {
	raw := c.durable.Get(profileKey(userType))
	if raw == "" {
		return User{}, false
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return User{}, false
	}
	return user, true
}

// Clear wipes every credential key and expires the token cookies.
func (c *CredentialStore) Clear() {
	for _, key := range credentialKeys {
		c.durable.Delete(key)
	}
	c.expireCookie(KeyAccessToken)
	c.expireCookie(KeyRefreshToken)
}

// TokenCookie returns the named token cookie as the jar would send it to
// the API host, or nil if absent.
func (c *CredentialStore) TokenCookie(name string) *http.Cookie {
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		if cookie.Name == name && cookie.Value != "" {
			return cookie
		}
	}
	return nil
}

func (c *CredentialStore) setCookie(name, value string) {
	c.jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:     name,
		Value:    value,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	}})
}

func (c *CredentialStore) expireCookie(name string) {
	c.jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		SameSite: http.SameSiteStrictMode,
	}})
}

func profileKey(userType string) string {
	if userType == UserTypeCompany {
		return KeyCompanyProfile
	}
	return KeyStudentProfile
}

// MemoryStore is an in-process Store, used by tests and short-lived
// sessions.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// FileStore persists credentials as a JSON file, for the terminal client.
// Every write rewrites the file; reads always reload it, so concurrent
// invocations see each other's sessions.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()[key]
}

func (s *FileStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.load()
	values[key] = value
	s.save(values)
}

func (s *FileStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.load()
	delete(values, key)
	s.save(values)
}

func (s *FileStore) load() map[string]string {
	values := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if err != nil {
		return values
	}
	_ = json.Unmarshal(data, &values)
	return values
}

func (s *FileStore) save(values map[string]string) {
	data, err := json.Marshal(values)
	if err != nil {
		return
	}
	_ = os.WriteFile(s.path, data, 0o600)
}
