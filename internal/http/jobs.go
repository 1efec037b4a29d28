package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/addu10/CareerBridge/internal/model"
)

const listingLimit = 100

type jobJSON struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	Category     string   `json:"category,omitempty"`
	Type         string   `json:"type"`
	SalaryRange  string   `json:"salary_range"`
	Status       string   `json:"status"`
	PostedDate   string   `json:"posted_date"`
	Deadline     string   `json:"application_deadline,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

func toJobJSON(job model.Job) jobJSON {
	out := jobJSON{
		ID:           job.ID,
		Title:        job.Title,
		Company:      job.CompanyName,
		Location:     job.Location,
		Description:  job.Description,
		Requirements: job.Requirements,
		Category:     job.Category,
		Type:         job.Type,
		SalaryRange:  job.SalaryRange,
		Status:       job.Status,
		PostedDate:   job.CreatedAt.UTC().Format("2006-01-02"),
		CreatedAt:    job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if out.Requirements == nil {
		out.Requirements = []string{}
	}
	if job.Deadline != nil {
		out.Deadline = job.Deadline.UTC().Format("2006-01-02")
	}
	return out
}

type internshipJSON struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	Duration     string   `json:"duration"`
	Stipend      string   `json:"stipend,omitempty"`
	Status       string   `json:"status"`
	Deadline     string   `json:"deadline,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

func toInternshipJSON(internship model.Internship) internshipJSON {
	out := internshipJSON{
		ID:           internship.ID,
		Title:        internship.Title,
		Company:      internship.CompanyName,
		Location:     internship.Location,
		Description:  internship.Description,
		Requirements: internship.Requirements,
		Duration:     internship.Duration,
		Stipend:      internship.Stipend,
		Status:       internship.Status,
		CreatedAt:    internship.CreatedAt.UTC().Format(time.RFC3339),
	}
	if out.Requirements == nil {
		out.Requirements = []string{}
	}
	if internship.Deadline != nil {
		out.Deadline = internship.Deadline.UTC().Format("2006-01-02")
	}
	return out
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context(), "published", listingLimit)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}
	out := make([]jobJSON, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toJobJSON(job))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": out})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "job_not_found")
		return
	}
	writeJSON(w, http.StatusOK, toJobJSON(job))
}

type createJobRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
	Category     string `json:"category"`
	Location     string `json:"location"`
	Type         string `json:"type"`
	SalaryRange  string `json:"salary_range"`
	Deadline     string `json:"application_deadline"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Description) == "" {
		writeDetail(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if req.Type == "" {
		req.Type = "full_time"
	}

	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_deadline")
		return
	}

	company, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}

	now := time.Now().UTC()
	job := model.Job{
		ID:           uuid.NewString(),
		CompanyID:    claims.UserID,
		CompanyName:  company.CompanyName,
		Title:        req.Title,
		Description:  req.Description,
		Requirements: splitLines(req.Requirements),
		Category:     req.Category,
		Location:     req.Location,
		Type:         req.Type,
		SalaryRange:  req.SalaryRange,
		Deadline:     deadline,
		Status:       "published",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateJob(r.Context(), job); err != nil {
		writeDetail(w, http.StatusBadRequest, "job_create_failed")
		return
	}

	writeJSON(w, http.StatusCreated, toJobJSON(job))
}

func (s *Server) handleCompanyJobs(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	jobs, err := s.store.ListJobsByCompany(r.Context(), claims.UserID, listingLimit)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}
	out := make([]jobJSON, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toJobJSON(job))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": out})
}

func (s *Server) handleListInternships(w http.ResponseWriter, r *http.Request) {
	internships, err := s.store.ListInternships(r.Context(), "published", listingLimit)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}
	out := make([]internshipJSON, 0, len(internships))
	for _, internship := range internships {
		out = append(out, toInternshipJSON(internship))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"internships": out})
}

func (s *Server) handleGetInternship(w http.ResponseWriter, r *http.Request) {
	internship, err := s.store.GetInternship(r.Context(), chi.URLParam(r, "internshipID"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "internship_not_found")
		return
	}
	writeJSON(w, http.StatusOK, toInternshipJSON(internship))
}

type createInternshipRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
	Duration     string `json:"duration"`
	Location     string `json:"location"`
	Stipend      string `json:"stipend"`
	Deadline     string `json:"deadline"`
}

func (s *Server) handleCreateInternship(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createInternshipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Description) == "" || strings.TrimSpace(req.Duration) == "" {
		writeDetail(w, http.StatusBadRequest, "missing_fields")
		return
	}

	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_deadline")
		return
	}

	company, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}

	now := time.Now().UTC()
	internship := model.Internship{
		ID:           uuid.NewString(),
		CompanyID:    claims.UserID,
		CompanyName:  company.CompanyName,
		Title:        req.Title,
		Description:  req.Description,
		Requirements: splitLines(req.Requirements),
		Duration:     req.Duration,
		Location:     req.Location,
		Stipend:      req.Stipend,
		Deadline:     deadline,
		Status:       "published",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateInternship(r.Context(), internship); err != nil {
		writeDetail(w, http.StatusBadRequest, "internship_create_failed")
		return
	}

	writeJSON(w, http.StatusCreated, toInternshipJSON(internship))
}

func (s *Server) handleCompanyInternships(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	internships, err := s.store.ListInternshipsByCompany(r.Context(), claims.UserID, listingLimit)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}
	out := make([]internshipJSON, 0, len(internships))
	for _, internship := range internships {
		out = append(out, toInternshipJSON(internship))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"internships": out})
}

// splitLines turns the free-text requirements box into one entry per line.
func splitLines(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func parseDeadline(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, err
		}
	}
	parsed = parsed.UTC()
	return &parsed, nil
}
