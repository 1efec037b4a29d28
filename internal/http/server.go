package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/addu10/CareerBridge/internal/ai"
	"github.com/addu10/CareerBridge/internal/auth"
	"github.com/addu10/CareerBridge/internal/cache"
	"github.com/addu10/CareerBridge/internal/config"
	"github.com/addu10/CareerBridge/internal/crypto"
	"github.com/addu10/CareerBridge/internal/model"
	"github.com/addu10/CareerBridge/internal/repository"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careerbridge_login_attempts_total",
		Help: "Login attempts by endpoint and result.",
	}, []string{"endpoint", "result"})
	tokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careerbridge_token_refreshes_total",
		Help: "Refresh-token exchanges by result.",
	}, []string{"result"})
)

type Server struct {
	cfg   config.Config
	store *repository.Store
	cache *cache.Cache
	ai    *ai.Client
}

func NewServer(cfg config.Config, store *repository.Store, profileCache *cache.Cache, aiClient *ai.Client) *Server {
	return &Server{
		cfg:   cfg,
		store: store,
		cache: profileCache,
		ai:    aiClient,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/token/", s.handleToken)
	r.Post("/token/refresh/", s.handleRefresh)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", s.handleRegister)
		r.Post("/company/register/", s.handleCompanyRegister)
		r.Post("/company/login/", s.handleCompanyLogin)
		r.With(s.authMiddleware).Get("/me/", s.handleGetMe)
		r.With(s.authMiddleware).Patch("/me/", s.handleUpdateMe)
		r.With(s.authMiddleware).Post("/logout/", s.handleLogout)
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", s.handleListJobs)
		r.With(s.authMiddleware, s.requireCompany).Post("/", s.handleCreateJob)
		r.Get("/internships/", s.handleListInternships)
		r.With(s.authMiddleware, s.requireCompany).Post("/internships/", s.handleCreateInternship)
		r.Get("/internships/{internshipID}/", s.handleGetInternship)
		r.With(s.authMiddleware, s.requireCompany).Get("/company/jobs/", s.handleCompanyJobs)
		r.With(s.authMiddleware, s.requireCompany).Get("/company/internships/", s.handleCompanyInternships)
		r.Get("/{jobID}/", s.handleGetJob)
	})

	r.Route("/applications", func(r chi.Router) {
		r.With(s.authMiddleware).Get("/", s.handleListApplications)
		r.With(s.authMiddleware, s.requireStudent).Post("/create/", s.handleCreateApplication)
		r.With(s.authMiddleware, s.requireCompany).Get("/company/applications/", s.handleCompanyApplications)
		r.With(s.authMiddleware, s.requireCompany).Patch("/{applicationID}/", s.handleUpdateApplication)
	})

	r.Route("/ai", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/resume-analysis/analyze/", s.handleResumeAnalysis)
		r.Post("/ats-review/review/", s.handleATSReview)
		r.Post("/career-roadmap/generate_roadmap/", s.handleRoadmap)
		r.Post("/mock-interview/", s.handleMockInterview)
	})

	// Page entry points mirroring the web shell. Everything under /student
	// and /company is gated by the credential guard.
	for _, path := range []string{"/", "/login", "/register", "/about"} {
		r.Get(path, s.handlePage)
	}
	r.Group(func(r chi.Router) {
		r.Use(s.pageGuard)
		r.Get("/student", s.handlePage)
		r.Get("/student/*", s.handlePage)
		r.Get("/company", s.handlePage)
		r.Get("/company/*", s.handlePage)
	})

	return r
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type companyLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Access  string    `json:"access"`
	Refresh string    `json:"refresh"`
	User    *userJSON `json:"user,omitempty"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, err := s.store.GetUserByLogin(r.Context(), strings.ToLower(req.Username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			loginAttempts.WithLabelValues("token", "denied").Inc()
			writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
			return
		}
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		loginAttempts.WithLabelValues("token", "denied").Inc()
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	s.respondWithTokens(w, r, "token", user)
}

func (s *Server) handleCompanyLogin(w http.ResponseWriter, r *http.Request) {
	var req companyLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			loginAttempts.WithLabelValues("company_login", "denied").Inc()
			writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
			return
		}
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}
	if user.UserType != model.UserTypeCompany {
		loginAttempts.WithLabelValues("company_login", "denied").Inc()
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		loginAttempts.WithLabelValues("company_login", "denied").Inc()
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	s.respondWithTokens(w, r, "company_login", user)
}

func (s *Server) respondWithTokens(w http.ResponseWriter, r *http.Request, endpoint string, user model.User) {
	accessToken, refreshToken, err := s.issueTokens(r.Context(), user, r.UserAgent(), clientIP(r))
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token_error")
		return
	}
	loginAttempts.WithLabelValues(endpoint, "granted").Inc()

	summary := toUserJSON(user)
	writeJSON(w, http.StatusOK, tokenResponse{
		Access:  accessToken,
		Refresh: refreshToken,
		User:    &summary,
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Refresh == "" {
		writeDetail(w, http.StatusBadRequest, "missing_refresh_token")
		return
	}

	tokenHash := crypto.HashToken(req.Refresh)
	session, err := s.store.GetRefreshSession(r.Context(), tokenHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			tokenRefreshes.WithLabelValues("denied").Inc()
			writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}
	if session.RevokedAt != nil || session.ExpiresAt.Before(time.Now().UTC()) {
		tokenRefreshes.WithLabelValues("denied").Inc()
		writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		tokenRefreshes.WithLabelValues("denied").Inc()
		writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}

	// The refresh exchange mints a new access token only; the session row
	// stays live until it expires or the user's credentials are wiped.
	accessToken, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID:   user.ID,
		UserType: user.UserType,
	})
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token_error")
		return
	}

	tokenRefreshes.WithLabelValues("granted").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"access": accessToken})
}

type logoutRequest struct {
	Refresh string `json:"refresh"`
}

// handleLogout revokes the caller's refresh sessions, best effort. With a
// refresh token in the body only that session dies; otherwise all of the
// user's live sessions are revoked.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeDetail(w, http.StatusUnauthorized, "missing_token")
		return
	}

	now := time.Now().UTC()
	var req logoutRequest
	if err := decodeJSON(r, &req); err == nil && req.Refresh != "" {
		session, err := s.store.GetRefreshSession(r.Context(), crypto.HashToken(req.Refresh))
		if err == nil && session.UserID == claims.UserID {
			_ = s.store.RevokeRefreshSession(r.Context(), session.ID, now)
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
	}

	_ = s.store.RevokeRefreshSessionsByUser(r.Context(), claims.UserID, now)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeDetail(w, http.StatusUnauthorized, "missing_token")
		return
	}

	if user, err := s.cache.GetProfile(r.Context(), claims.UserID); err == nil {
		writeJSON(w, http.StatusOK, toUserJSON(user))
		return
	}

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "user_not_found")
		return
	}
	_ = s.cache.SetProfile(r.Context(), user)
	writeJSON(w, http.StatusOK, toUserJSON(user))
}

type updateMeRequest struct {
	Email       *string `json:"email,omitempty"`
	Password    *string `json:"password,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`

	GraduationYear *int      `json:"graduation_year,omitempty"`
	Branch         *string   `json:"branch,omitempty"`
	Skills         *[]string `json:"skills,omitempty"`
	GithubURL      *string   `json:"github_url,omitempty"`
	LinkedinURL    *string   `json:"linkedin_url,omitempty"`
	PortfolioURL   *string   `json:"portfolio_url,omitempty"`

	CompanyName        *string `json:"company_name,omitempty"`
	CompanyDescription *string `json:"company_description,omitempty"`
	CompanyWebsite     *string `json:"company_website,omitempty"`
	CompanyLogo        *string `json:"company_logo,omitempty"`
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeDetail(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_request")
		return
	}

	update := repository.UserUpdate{
		FirstName:   trimmed(req.FirstName),
		LastName:    trimmed(req.LastName),
		PhoneNumber: req.PhoneNumber,
	}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email != "" {
			update.Email = &email
		}
	}
	if req.Password != nil && strings.TrimSpace(*req.Password) != "" {
		hash, err := crypto.HashPassword(*req.Password)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "password_hash_failed")
			return
		}
		update.PasswordHash = &hash
	}

	// The role is fixed at registration; only the matching attachment set
	// is writable.
	switch claims.UserType {
	case model.UserTypeStudent:
		update.GraduationYear = req.GraduationYear
		update.Branch = req.Branch
		update.Skills = req.Skills
		update.GithubURL = req.GithubURL
		update.LinkedinURL = req.LinkedinURL
		update.PortfolioURL = req.PortfolioURL
	case model.UserTypeCompany:
		update.CompanyName = req.CompanyName
		update.CompanyDescription = req.CompanyDescription
		update.CompanyWebsite = req.CompanyWebsite
		update.CompanyLogo = req.CompanyLogo
	}

	user, err := s.store.UpdateUser(r.Context(), claims.UserID, update)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "update_failed")
		return
	}

	_ = s.cache.InvalidateProfile(r.Context(), claims.UserID)
	writeJSON(w, http.StatusOK, toUserJSON(user))
}

func (s *Server) issueTokens(ctx context.Context, user model.User, userAgent, ip string) (string, string, error) {
	accessToken, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID:   user.ID,
		UserType: user.UserType,
	})
	if err != nil {
		return "", "", err
	}

	refreshToken, err := crypto.NewRefreshToken()
	if err != nil {
		return "", "", err
	}

	now := time.Now().UTC()
	session := model.RefreshSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: crypto.HashToken(refreshToken),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}
	if userAgent != "" {
		session.UserAgent = &userAgent
	}
	if ip != "" {
		session.IPAddress = &ip
	}

	if err := s.store.CreateRefreshSession(ctx, session); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireStudent(next http.Handler) http.Handler {
	return requireUserType(next, model.UserTypeStudent)
}

func (s *Server) requireCompany(next http.Handler) http.Handler {
	return requireUserType(next, model.UserTypeCompany)
}

func requireUserType(next http.Handler, userType string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.UserType != userType {
			writeDetail(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// pageGuard redirects unauthenticated page requests to the login entry
// point. Presence of a credential is enough here; API handlers verify it.
func (s *Server) pageGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			if cookie, err := r.Cookie("accessToken"); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"page": r.URL.Path})
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	if out == "" {
		return nil
	}
	return &out
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeDetail answers the DRF-style {"detail": ...} error body the web
// client keys on.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeFieldErrors answers a DRF-style validation map: field -> messages.
func writeFieldErrors(w http.ResponseWriter, fields map[string][]string) {
	writeJSON(w, http.StatusBadRequest, fields)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return ""
}
