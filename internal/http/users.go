package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/addu10/CareerBridge/internal/crypto"
	"github.com/addu10/CareerBridge/internal/model"
)

type userJSON struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	UserType    string `json:"user_type"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`

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

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserJSON(user model.User) userJSON {
	out := userJSON{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		UserType:    user.UserType,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		PhoneNumber: user.PhoneNumber,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
	switch user.UserType {
	case model.UserTypeStudent:
		out.GraduationYear = user.GraduationYear
		out.Branch = user.Branch
		out.Skills = user.Skills
		out.GithubURL = user.GithubURL
		out.LinkedinURL = user.LinkedinURL
		out.PortfolioURL = user.PortfolioURL
	case model.UserTypeCompany:
		out.CompanyName = user.CompanyName
		out.CompanyDescription = user.CompanyDescription
		out.CompanyWebsite = user.CompanyWebsite
		out.CompanyLogo = user.CompanyLogo
	}
	return out
}

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Password2   string `json:"password2"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	UserType    string `json:"user_type"`
	CompanyName string `json:"company_name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.UserType == "" {
		req.UserType = model.UserTypeStudent
	}
	s.registerUser(w, r, req)
}

func (s *Server) handleCompanyRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_request")
		return
	}
	// This endpoint creates company accounts regardless of the submitted
	// user_type.
	req.UserType = model.UserTypeCompany
	s.registerUser(w, r, req)
}

func (s *Server) registerUser(w http.ResponseWriter, r *http.Request, req registerRequest) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	if req.Username == "" {
		req.Username = req.Email
	}

	fields := map[string][]string{}
	if req.Email == "" {
		fields["email"] = append(fields["email"], "This field is required.")
	} else if s.store.EmailExists(r.Context(), req.Email) {
		fields["email"] = append(fields["email"], "user with this email already exists.")
	}
	if req.Username != "" && req.Username != req.Email && s.store.UsernameExists(r.Context(), req.Username) {
		fields["username"] = append(fields["username"], "A user with that username already exists.")
	}
	if req.Password == "" {
		fields["password"] = append(fields["password"], "This field is required.")
	} else if len(req.Password) < 8 {
		fields["password"] = append(fields["password"], "This password is too short. It must contain at least 8 characters.")
	}
	if req.Password != "" && req.Password != req.Password2 {
		fields["password"] = append(fields["password"], "Password fields didn't match.")
	}
	if req.UserType != model.UserTypeStudent && req.UserType != model.UserTypeCompany {
		fields["user_type"] = append(fields["user_type"], "\""+req.UserType+"\" is not a valid choice.")
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "password_hash_failed")
		return
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		UserType:     req.UserType,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Skills:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.UserType == model.UserTypeCompany {
		user.CompanyName = strings.TrimSpace(req.CompanyName)
		if user.CompanyName == "" {
			// The portal shows the company under its display name; default
			// it from the contact name until the profile is filled in.
			user.CompanyName = strings.TrimSpace(req.FirstName + " " + req.LastName)
		}
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		writeDetail(w, http.StatusBadRequest, "user_create_failed")
		return
	}

	writeJSON(w, http.StatusCreated, toUserJSON(user))
}
