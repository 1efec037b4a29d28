package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

const (
	UserTypeStudent = "student"
	UserTypeCompany = "company"
)

// User mirrors the portal's user payload. The role tag decides which
// attachment set is meaningful.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	UserType    string `json:"user_type"`
	PhoneNumber string `json:"phone_number,omitempty"`

	GraduationYear *int     `json:"graduation_year,omitempty"`
	Branch         string   `json:"branch,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	GithubURL      string   `json:"github_url,omitempty"`
	LinkedinURL    string   `json:"linkedin_url,omitempty"`
	PortfolioURL   string   `json:"portfolio_url,omitempty"`

	CompanyName        string `json:"company_name,omitempty"`
	CompanyDescription string `json:"company_description,omitempty"`
	CompanyWebsite     string `json:"company_website,omitempty"`
	CompanyLogo        string `json:"company_logo,omitempty"`
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}

// loginStrategy maps a login flow to its endpoint and request shape. The
// company flow authenticates by email on its own endpoint; the generic
// flow takes a username.
type loginStrategy struct {
	path    string
	payload func(identifier, secret string) map[string]string
}

var loginStrategies = map[bool]loginStrategy{
	false: {
		path: "/token/",
		payload: func(identifier, secret string) map[string]string {
			return map[string]string{"username": identifier, "password": secret}
		},
	},
	true: {
		path: "/users/company/login/",
		payload: func(identifier, secret string) map[string]string {
			return map[string]string{"email": identifier, "password": secret}
		},
	},
}

// RegisterPayload is the registration form. UserType selects the student
// or company creation endpoint.
type RegisterPayload struct {
	Username    string `json:"username,omitempty"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Password2   string `json:"password2"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	UserType    string `json:"user_type,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

// Session owns the process-wide authentication state: the current user,
// the loading flag, and the last auth failure message.
type Session struct {
	client *Client
	creds  *CredentialStore
	nav    Navigator

	mu          sync.Mutex
	currentUser *User
	loading     bool
	lastError   string
}

func NewSession(apiClient *Client, creds *CredentialStore, nav Navigator) *Session {
	if nav == nil {
		nav = NopNavigator{}
	}
	return &Session{client: apiClient, creds: creds, nav: nav}
}

func (s *Session) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentUser
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Restore resolves existing credentials at startup. With no stored access
// token it settles on anonymous without any network call. It never
// returns an error: a failed profile fetch wipes the credentials and
// degrades to anonymous.
func (s *Session) Restore(ctx context.Context) {
	s.setLoading(true)
	defer s.setLoading(false)

	if s.creds.AccessToken() == "" {
		s.setUser(nil)
		return
	}

	var user User
	if err := s.client.GetJSON(ctx, "/users/me/", &user); err != nil {
		s.creds.Clear()
		s.setUser(nil)
		s.setError("Session expired. Please log in again.")
		return
	}
	s.setUser(&user)
}

// Login authenticates through the flow-specific endpoint, persists the
// token pair to both stores, resolves the profile, caches it under the
// role key, and hard-navigates to the role's landing page.
func (s *Session) Login(ctx context.Context, identifier, secret string, isCompanyFlow bool) error {
	s.setLoading(true)
	defer s.setLoading(false)
	s.setError("")

	strategy := loginStrategies[isCompanyFlow]
	var tokens tokenResponse
	if err := s.client.PostJSON(ctx, strategy.path, strategy.payload(identifier, secret), &tokens); err != nil {
		s.setError(loginErrorMessage(err))
		return err
	}

	// Tokens land in both stores before anything else runs, so the very
	// next request already carries the new credential.
	s.creds.SetTokens(tokens.Access, tokens.Refresh)

	user := tokens.User
	if user == nil {
		user = &User{}
		if err := s.client.GetJSON(ctx, "/users/me/", user); err != nil {
			s.setError(loginErrorMessage(err))
			return err
		}
	}

	s.creds.SetProfile(user.UserType, *user)
	s.setUser(user)

	if user.UserType == UserTypeCompany {
		s.nav.HardNavigate("/company")
	} else {
		s.nav.HardNavigate("/student")
	}
	return nil
}

// Register creates the account on the role-specific endpoint, then logs
// in with the same credentials. Registration alone never yields a
// session.
func (s *Session) Register(ctx context.Context, payload RegisterPayload) error {
	s.setLoading(true)
	s.setError("")

	path := "/users/"
	isCompanyFlow := payload.UserType == UserTypeCompany
	if isCompanyFlow {
		path = "/users/company/register/"
		payload.UserType = UserTypeCompany
	}

	if err := s.client.PostJSON(ctx, path, payload, nil); err != nil {
		s.setError(registerErrorMessage(err))
		s.setLoading(false)
		return err
	}
	s.setLoading(false)

	identifier := payload.Email
	if !isCompanyFlow && payload.Username != "" {
		identifier = payload.Username
	}
	return s.Login(ctx, identifier, payload.Password, isCompanyFlow)
}

// Logout wipes the user, both token stores, and the cached profile
// snapshots, then routes to the login page. No hard reload is needed: no
// stale credential can leak into a later request. The server-side session
// is revoked best effort; a failure there never blocks the local wipe.
func (s *Session) Logout(ctx context.Context) {
	if refresh := s.creds.RefreshToken(); refresh != "" {
		_ = s.client.PostJSON(ctx, "/users/logout/", map[string]string{"refresh": refresh}, nil)
	}
	s.setUser(nil)
	s.setError("")
	s.creds.Clear()
	s.nav.Navigate("/login")
}

func (s *Session) setUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUser = user
}

func (s *Session) setLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

func (s *Session) setError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = message
}

// loginErrorMessage resolves a login failure to its display message. A 401
// always reads as bad credentials, even when the server sent a detail.
func loginErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized {
			return "Invalid username or password. Please try again."
		}
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
	}
	return "An error occurred during login. Please try again."
}

func registerErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		if len(apiErr.Fields) > 0 {
			return apiErr.Error()
		}
	}
	return "Registration failed. Please try again."
}
