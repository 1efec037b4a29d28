package http

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/addu10/CareerBridge/internal/model"
)

const maxResumeBytes = 10 << 20

type applicationJSON struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	CoverLetter   string          `json:"cover_letter,omitempty"`
	Resume        string          `json:"resume"`
	InterviewDate string          `json:"interview_date,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     string          `json:"created_at"`
	Job           *jobJSON        `json:"job,omitempty"`
	Internship    *internshipJSON `json:"internship,omitempty"`
}

func (s *Server) toApplicationJSON(r *http.Request, app model.Application) applicationJSON {
	out := applicationJSON{
		ID:          app.ID,
		Status:      app.Status,
		CoverLetter: app.CoverLetter,
		Resume:      app.ResumePath,
		Notes:       app.Notes,
		CreatedAt:   app.CreatedAt.UTC().Format(time.RFC3339),
	}
	if app.InterviewDate != nil {
		out.InterviewDate = app.InterviewDate.UTC().Format(time.RFC3339)
	}
	if app.JobID != nil {
		if job, err := s.store.GetJob(r.Context(), *app.JobID); err == nil {
			jobOut := toJobJSON(job)
			out.Job = &jobOut
		}
	}
	if app.InternshipID != nil {
		if internship, err := s.store.GetInternship(r.Context(), *app.InternshipID); err == nil {
			internshipOut := toInternshipJSON(internship)
			out.Internship = &internshipOut
		}
	}
	return out
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	if err := r.ParseMultipartForm(maxResumeBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_form")
		return
	}

	jobID := strings.TrimSpace(r.FormValue("job"))
	internshipID := strings.TrimSpace(r.FormValue("internship"))
	if (jobID == "") == (internshipID == "") {
		writeDetail(w, http.StatusBadRequest, "Either job or internship must be specified")
		return
	}

	app := model.Application{
		ID:          uuid.NewString(),
		UserID:      claims.UserID,
		CoverLetter: r.FormValue("cover_letter"),
		Status:      model.ApplicationPending,
	}

	if jobID != "" {
		if _, err := s.store.GetJob(r.Context(), jobID); err != nil {
			writeDetail(w, http.StatusNotFound, "job_not_found")
			return
		}
		if s.store.HasApplication(r.Context(), claims.UserID, jobID) {
			writeDetail(w, http.StatusBadRequest, "You have already applied for this job")
			return
		}
		app.JobID = &jobID
	} else {
		if _, err := s.store.GetInternship(r.Context(), internshipID); err != nil {
			writeDetail(w, http.StatusNotFound, "internship_not_found")
			return
		}
		app.InternshipID = &internshipID
	}

	resumePath, err := s.saveResume(r, app.ID)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "resume_required")
		return
	}
	app.ResumePath = resumePath

	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	if err := s.store.CreateApplication(r.Context(), app); err != nil {
		writeDetail(w, http.StatusBadRequest, "application_create_failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Application submitted successfully",
		"application": s.toApplicationJSON(r, app),
	})
}

func (s *Server) saveResume(r *http.Request, applicationID string) (string, error) {
	file, header, err := r.FormFile("resume")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", err
	}
	name := applicationID + filepath.Ext(header.Filename)
	path := filepath.Join(s.cfg.UploadDir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(file, maxResumeBytes)); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	status := r.URL.Query().Get("status")
	jobID := r.URL.Query().Get("job")

	apps, err := s.store.ListApplicationsByUser(r.Context(), claims.UserID, status, jobID, listingLimit)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}
	s.writeApplicationList(w, r, apps)
}

func (s *Server) handleCompanyApplications(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	status := r.URL.Query().Get("status")
	jobID := r.URL.Query().Get("job")

	apps, err := s.store.ListApplicationsForCompany(r.Context(), claims.UserID, status, jobID, listingLimit)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}
	s.writeApplicationList(w, r, apps)
}

func (s *Server) writeApplicationList(w http.ResponseWriter, r *http.Request, apps []model.Application) {
	out := make([]applicationJSON, 0, len(apps))
	for _, app := range apps {
		out = append(out, s.toApplicationJSON(r, app))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(out),
		"results": out,
	})
}

type updateApplicationRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	applicationID := chi.URLParam(r, "applicationID")

	var req updateApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if !model.ValidApplicationStatus(req.Status) {
		writeFieldErrors(w, map[string][]string{
			"status": {"\"" + req.Status + "\" is not a valid choice."},
		})
		return
	}

	app, err := s.store.GetApplication(r.Context(), applicationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeDetail(w, http.StatusNotFound, "application_not_found")
			return
		}
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}

	if !s.ownsApplication(r, claims.UserID, app) {
		writeDetail(w, http.StatusForbidden, "forbidden")
		return
	}

	updated, err := s.store.UpdateApplicationStatus(r.Context(), applicationID, req.Status, time.Now().UTC())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, s.toApplicationJSON(r, updated))
}

// ownsApplication reports whether the position the application targets was
// posted by the given company.
func (s *Server) ownsApplication(r *http.Request, companyID string, app model.Application) bool {
	if app.JobID != nil {
		job, err := s.store.GetJob(r.Context(), *app.JobID)
		return err == nil && job.CompanyID == companyID
	}
	if app.InternshipID != nil {
		internship, err := s.store.GetInternship(r.Context(), *app.InternshipID)
		return err == nil && internship.CompanyID == companyID
	}
	return false
}
