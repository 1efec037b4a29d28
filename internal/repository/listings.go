package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/addu10/CareerBridge/internal/model"
)

const jobColumns = `
	j.id, j.company_id, u.company_name, j.title, j.description, j.requirements,
	j.category, j.location, j.type, j.salary_range, j.deadline, j.status,
	j.created_at, j.updated_at
`

func scanJob(row pgx.Row) (model.Job, error) {
	var job model.Job
	err := row.Scan(
		&job.ID, &job.CompanyID, &job.CompanyName, &job.Title, &job.Description,
		&job.Requirements, &job.Category, &job.Location, &job.Type,
		&job.SalaryRange, &job.Deadline, &job.Status, &job.CreatedAt, &job.UpdatedAt,
	)
	return job, err
}

func (s *Store) CreateJob(ctx context.Context, job model.Job) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO jobs (id, company_id, title, description, requirements, category, location, type, salary_range, deadline, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, job.ID, job.CompanyID, job.Title, job.Description, job.Requirements, job.Category,
		job.Location, job.Type, job.SalaryRange, job.Deadline, job.Status, job.CreatedAt, job.UpdatedAt)
	return err
}

func (s *Store) GetJob(ctx context.Context, jobID string) (model.Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs j JOIN users u ON u.id = j.company_id
		WHERE j.id = $1
	`, jobID)
	return scanJob(row)
}

func (s *Store) ListJobs(ctx context.Context, status string, limit int) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs j JOIN users u ON u.id = j.company_id
		WHERE $1 = '' OR j.status = $1
		ORDER BY j.created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Store) ListJobsByCompany(ctx context.Context, companyID string, limit int) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs j JOIN users u ON u.id = j.company_id
		WHERE j.company_id = $1
		ORDER BY j.created_at DESC
		LIMIT $2
	`, companyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

const internshipColumns = `
	i.id, i.company_id, u.company_name, i.title, i.description, i.requirements,
	i.duration, i.location, i.stipend, i.deadline, i.status, i.created_at, i.updated_at
`

func scanInternship(row pgx.Row) (model.Internship, error) {
	var internship model.Internship
	err := row.Scan(
		&internship.ID, &internship.CompanyID, &internship.CompanyName,
		&internship.Title, &internship.Description, &internship.Requirements,
		&internship.Duration, &internship.Location, &internship.Stipend,
		&internship.Deadline, &internship.Status, &internship.CreatedAt, &internship.UpdatedAt,
	)
	return internship, err
}

func (s *Store) CreateInternship(ctx context.Context, internship model.Internship) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO internships (id, company_id, title, description, requirements, duration, location, stipend, deadline, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, internship.ID, internship.CompanyID, internship.Title, internship.Description,
		internship.Requirements, internship.Duration, internship.Location, internship.Stipend,
		internship.Deadline, internship.Status, internship.CreatedAt, internship.UpdatedAt)
	return err
}

func (s *Store) GetInternship(ctx context.Context, internshipID string) (model.Internship, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+internshipColumns+`
		FROM internships i JOIN users u ON u.id = i.company_id
		WHERE i.id = $1
	`, internshipID)
	return scanInternship(row)
}

func (s *Store) ListInternships(ctx context.Context, status string, limit int) ([]model.Internship, error) {
	return s.listInternships(ctx, `WHERE $1 = '' OR i.status = $1`, status, limit)
}

func (s *Store) ListInternshipsByCompany(ctx context.Context, companyID string, limit int) ([]model.Internship, error) {
	return s.listInternships(ctx, `WHERE i.company_id = $1`, companyID, limit)
}

func (s *Store) listInternships(ctx context.Context, where, arg string, limit int) ([]model.Internship, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM internships i JOIN users u ON u.id = i.company_id
		%s
		ORDER BY i.created_at DESC
		LIMIT $2
	`, internshipColumns, where), arg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	internships := []model.Internship{}
	for rows.Next() {
		internship, err := scanInternship(rows)
		if err != nil {
			return nil, err
		}
		internships = append(internships, internship)
	}
	return internships, rows.Err()
}

const applicationColumns = `
	id, user_id, job_id, internship_id, resume_path, cover_letter, status,
	interview_date, notes, created_at, updated_at
`

func scanApplication(row pgx.Row) (model.Application, error) {
	var app model.Application
	err := row.Scan(
		&app.ID, &app.UserID, &app.JobID, &app.InternshipID, &app.ResumePath,
		&app.CoverLetter, &app.Status, &app.InterviewDate, &app.Notes,
		&app.CreatedAt, &app.UpdatedAt,
	)
	return app, err
}

func (s *Store) CreateApplication(ctx context.Context, app model.Application) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO applications (id, user_id, job_id, internship_id, resume_path, cover_letter, status, interview_date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, app.ID, app.UserID, app.JobID, app.InternshipID, app.ResumePath, app.CoverLetter,
		app.Status, app.InterviewDate, app.Notes, app.CreatedAt, app.UpdatedAt)
	return err
}

func (s *Store) GetApplication(ctx context.Context, applicationID string) (model.Application, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, applicationID)
	return scanApplication(row)
}

func (s *Store) HasApplication(ctx context.Context, userID, jobID string) bool {
	var exists bool
	_ = s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM applications WHERE user_id = $1 AND job_id = $2)
	`, userID, jobID).Scan(&exists)
	return exists
}

func (s *Store) ListApplicationsByUser(ctx context.Context, userID, status, jobID string, limit int) ([]model.Application, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE user_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR job_id = $3)
		ORDER BY created_at DESC
		LIMIT $4
	`, userID, status, jobID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApplications(rows)
}

// ListApplicationsForCompany returns applications against any job or
// internship posted by the given company.
func (s *Store) ListApplicationsForCompany(ctx context.Context, companyID, status, jobID string, limit int) ([]model.Application, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM applications a
		WHERE (
			a.job_id IN (SELECT id FROM jobs WHERE company_id = $1)
			OR a.internship_id IN (SELECT id FROM internships WHERE company_id = $1)
		)
		  AND ($2 = '' OR a.status = $2)
		  AND ($3 = '' OR a.job_id = $3)
		ORDER BY a.created_at DESC
		LIMIT $4
	`, companyID, status, jobID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApplications(rows)
}

func (s *Store) UpdateApplicationStatus(ctx context.Context, applicationID, status string, updatedAt time.Time) (model.Application, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE applications
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+applicationColumns+`
	`, status, updatedAt, applicationID)
	return scanApplication(row)
}

func collectApplications(rows pgx.Rows) ([]model.Application, error) {
	apps := []model.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}
