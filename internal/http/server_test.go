package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/addu10/CareerBridge/client"
	"github.com/addu10/CareerBridge/internal/auth"
	"github.com/addu10/CareerBridge/internal/config"
	"github.com/addu10/CareerBridge/internal/model"
	"github.com/addu10/CareerBridge/internal/repository"
)

func testConfig() config.Config {
	return config.Config{
		HTTPAddr:        ":0",
		JWTSecret:       "test-secret",
		JWTIssuer:       "test-issuer",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		UploadDir:       os.TempDir(),
	}
}

func TestPageGuard(t *testing.T) {
	server := NewServer(testConfig(), nil, nil, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	// Public pages are reachable without credentials.
	resp, err := client.Get(app.URL + "/login")
	if err != nil {
		t.Fatalf("http error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// Role areas redirect anonymous visitors to the login page.
	for _, path := range []string{"/student", "/student/dashboard", "/company", "/company/jobs"} {
		resp, err := client.Get(app.URL + path)
		if err != nil {
			t.Fatalf("http error: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("%s: expected 302, got %d", path, resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != "/login" {
			t.Fatalf("%s: expected redirect to /login, got %q", path, loc)
		}
	}

	// An accessToken cookie is enough to pass the guard.
	req, _ := http.NewRequest(http.MethodGet, app.URL+"/student/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "anything"})
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("http error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with cookie, got %d", resp.StatusCode)
	}

	// So is a bearer header.
	req, _ = http.NewRequest(http.MethodGet, app.URL+"/company", nil)
	req.Header.Set("Authorization", "Bearer anything")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("http error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with bearer, got %d", resp.StatusCode)
	}
}

func TestAuthMiddlewareMessages(t *testing.T) {
	server := NewServer(testConfig(), nil, nil, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	resp := doReq(t, http.MethodGet, app.URL+"/users/me/", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if detail := readDetail(t, resp); detail != "Authentication credentials were not provided." {
		t.Fatalf("unexpected detail: %q", detail)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/users/me/", "not-a-jwt", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if detail := readDetail(t, resp); detail != "Given token not valid for any token type" {
		t.Fatalf("unexpected detail: %q", detail)
	}
}

func TestRoleGate(t *testing.T) {
	cfg := testConfig()
	server := NewServer(cfg, nil, nil, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	studentToken := mustToken(t, cfg.JWTSecret, cfg.JWTIssuer, "u1", "student")

	// Students cannot post jobs.
	resp := doReq(t, http.MethodPost, app.URL+"/jobs/", studentToken, map[string]interface{}{
		"title": "Backend Engineer",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestAuthFlow(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := testConfig()
	store := repository.NewStore(pool)
	server := NewServer(cfg, store, nil, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	stamp := time.Now().Format("150405.000000")
	email := "student." + stamp + "@example.local"

	// Register a student account.
	resp := doReq(t, http.MethodPost, app.URL+"/users/", "", map[string]interface{}{
		"email":      email,
		"password":   "dev-password",
		"password2":  "dev-password",
		"first_name": "Test",
		"last_name":  "Student",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}

	// Log in with the username (defaults to the email).
	resp = doReq(t, http.MethodPost, app.URL+"/token/", "", map[string]interface{}{
		"username": email,
		"password": "dev-password",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
		User    struct {
			UserType string `json:"user_type"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	resp.Body.Close()
	if tokens.Access == "" || tokens.Refresh == "" {
		t.Fatal("expected both access and refresh tokens")
	}
	if tokens.User.UserType != "student" {
		t.Fatalf("expected student user_type, got %q", tokens.User.UserType)
	}

	// The access token opens /users/me/.
	resp = doReq(t, http.MethodGet, app.URL+"/users/me/", tokens.Access, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", resp.StatusCode)
	}

	// The refresh token mints a fresh access token.
	resp = doReq(t, http.MethodPost, app.URL+"/token/refresh/", "", map[string]interface{}{
		"refresh": tokens.Refresh,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", resp.StatusCode)
	}
	var refreshed struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	resp.Body.Close()
	if refreshed.Access == "" {
		t.Fatal("expected a new access token")
	}

	// Logout revokes the session; the refresh token stops exchanging.
	resp = doReq(t, http.MethodPost, app.URL+"/users/logout/", tokens.Access, map[string]interface{}{
		"refresh": tokens.Refresh,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}
	resp = doReq(t, http.MethodPost, app.URL+"/token/refresh/", "", map[string]interface{}{
		"refresh": tokens.Refresh,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", resp.StatusCode)
	}
	if detail := readDetail(t, resp); detail != "Token is invalid or expired" {
		t.Fatalf("unexpected detail: %q", detail)
	}

	// A bad password is rejected with the canonical detail.
	resp = doReq(t, http.MethodPost, app.URL+"/token/", "", map[string]interface{}{
		"username": email,
		"password": "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", resp.StatusCode)
	}
	if detail := readDetail(t, resp); detail != "No active account found with the given credentials" {
		t.Fatalf("unexpected detail: %q", detail)
	}

	// A student account cannot use the company login.
	resp = doReq(t, http.MethodPost, app.URL+"/users/company/login/", "", map[string]interface{}{
		"email":    email,
		"password": "dev-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("company login: expected 401, got %d", resp.StatusCode)
	}
}

func TestRegisterValidation(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := testConfig()
	store := repository.NewStore(pool)
	server := NewServer(cfg, store, nil, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	resp := doReq(t, http.MethodPost, app.URL+"/users/", "", map[string]interface{}{
		"email":     "bad@example.local",
		"password":  "short",
		"password2": "different",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var fields map[string][]string
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	resp.Body.Close()
	if len(fields["password"]) == 0 {
		t.Fatal("expected a password error")
	}
	// The mismatch message reports under password, not password2.
	var haveMismatch bool
	for _, msg := range fields["password"] {
		if msg == "Password fields didn't match." {
			haveMismatch = true
		}
	}
	if !haveMismatch {
		t.Fatalf("expected the mismatch message under password, got %v", fields["password"])
	}
}

func TestRegisterAcceptsClientPayload(t *testing.T) {
	payload := client.RegisterPayload{
		Email:       "co@example.local",
		Password:    "dev-password",
		Password2:   "dev-password",
		FirstName:   "Test",
		LastName:    "Company",
		PhoneNumber: "555-0100",
		UserType:    "company",
		CompanyName: "Acme Corp",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}

	// decodeJSON rejects unknown fields, so every key the client sends
	// must exist on registerRequest.
	req := httptest.NewRequest(http.MethodPost, "/users/company/register/", bytes.NewReader(body))
	var reg registerRequest
	if err := decodeJSON(req, &reg); err != nil {
		t.Fatalf("client register payload rejected: %v", err)
	}
	if reg.CompanyName != "Acme Corp" || reg.PhoneNumber != "555-0100" {
		t.Fatalf("company fields lost in decode: %+v", reg)
	}
}

func TestListingShapesMatchClient(t *testing.T) {
	deadline := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	job := model.Job{
		ID:          "j1",
		CompanyName: "Acme Corp",
		Title:       "Backend Engineer",
		SalaryRange: "10-12 LPA",
		Deadline:    &deadline,
		Status:      "published",
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(toJobJSON(job))
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	var gotJob client.Job
	if err := json.Unmarshal(data, &gotJob); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if gotJob.Company != "Acme Corp" || gotJob.SalaryRange != "10-12 LPA" {
		t.Fatalf("job fields lost on the wire: %+v", gotJob)
	}
	if gotJob.ApplicationDeadline != "2026-10-01" {
		t.Fatalf("deadline lost on the wire: %q", gotJob.ApplicationDeadline)
	}

	internship := model.Internship{
		ID:          "i1",
		CompanyName: "Acme Corp",
		Title:       "Summer Intern",
		Duration:    "3 months",
		Deadline:    &deadline,
		Status:      "published",
		CreatedAt:   time.Now().UTC(),
	}
	data, err = json.Marshal(toInternshipJSON(internship))
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	var gotInternship client.Internship
	if err := json.Unmarshal(data, &gotInternship); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if gotInternship.Company != "Acme Corp" || gotInternship.Deadline != "2026-10-01" {
		t.Fatalf("internship fields lost on the wire: %+v", gotInternship)
	}
}

func openTestDB(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("CAREERBRIDGE_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("CAREERBRIDGE_TEST_DB or DATABASE_URL not set")
		return nil
	}
	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	return pool
}

func mustToken(t *testing.T, secret, issuer, userID, userType string) string {
	token, err := auth.NewAccessToken(secret, issuer, 10*time.Minute, auth.Claims{
		UserID:   userID,
		UserType: userType,
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func doReq(t *testing.T, method, url, token string, body interface{}) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode error: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("http error: %v", err)
	}
	return resp
}

func readDetail(t *testing.T, resp *http.Response) string {
	defer resp.Body.Close()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return body.Detail
}
