package client

import (
	"context"
	"net/url"
)

// Job is a posting as listed by the portal.
type Job struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Company             string   `json:"company"`
	Description         string   `json:"description"`
	Requirements        []string `json:"requirements"`
	Category            string   `json:"category,omitempty"`
	Location            string   `json:"location"`
	Type                string   `json:"type"`
	SalaryRange         string   `json:"salary_range"`
	PostedDate          string   `json:"posted_date"`
	ApplicationDeadline string   `json:"application_deadline,omitempty"`
	Status              string   `json:"status"`
}

// Internship mirrors Job with a duration and stipend instead of a salary.
type Internship struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	Location     string   `json:"location"`
	Duration     string   `json:"duration"`
	Stipend      string   `json:"stipend,omitempty"`
	Deadline     string   `json:"deadline,omitempty"`
	Status       string   `json:"status"`
}

// Application is a student's submission for a job or internship.
type Application struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	CoverLetter string      `json:"cover_letter,omitempty"`
	Resume      string      `json:"resume"`
	CreatedAt   string      `json:"created_at"`
	Job         *Job        `json:"job,omitempty"`
	Internship  *Internship `json:"internship,omitempty"`
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.GetJSON(ctx, "/users/me/", &user)
	return user, err
}

func (c *Client) UpdateMe(ctx context.Context, patch map[string]interface{}) (User, error) {
	var user User
	err := c.PatchJSON(ctx, "/users/me/", patch, &user)
	return user, err
}

func (c *Client) Jobs(ctx context.Context) ([]Job, error) {
	var out struct {
		Jobs []Job `json:"jobs"`
	}
	err := c.GetJSON(ctx, "/jobs/", &out)
	return out.Jobs, err
}

func (c *Client) Job(ctx context.Context, jobID string) (Job, error) {
	var job Job
	err := c.GetJSON(ctx, "/jobs/"+url.PathEscape(jobID)+"/", &job)
	return job, err
}

func (c *Client) Internships(ctx context.Context) ([]Internship, error) {
	var out struct {
		Internships []Internship `json:"internships"`
	}
	err := c.GetJSON(ctx, "/jobs/internships/", &out)
	return out.Internships, err
}

// Apply submits an application with a resume upload. Exactly one of jobID
// or internshipID must be set.
func (c *Client) Apply(ctx context.Context, jobID, internshipID, coverLetter, resumeFilename string, resume []byte) (Application, error) {
	fields := map[string]string{"cover_letter": coverLetter}
	if jobID != "" {
		fields["job"] = jobID
	}
	if internshipID != "" {
		fields["internship"] = internshipID
	}

	var out struct {
		Application Application `json:"application"`
	}
	err := c.PostMultipart(ctx, "/applications/create/", fields, "resume", resumeFilename, resume, &out)
	return out.Application, err
}

func (c *Client) Applications(ctx context.Context, status string) ([]Application, error) {
	path := "/applications/"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out struct {
		Results []Application `json:"results"`
	}
	err := c.GetJSON(ctx, path, &out)
	return out.Results, err
}

func (c *Client) CompanyApplications(ctx context.Context, status string) ([]Application, error) {
	path := "/applications/company/applications/"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out struct {
		Results []Application `json:"results"`
	}
	err := c.GetJSON(ctx, path, &out)
	return out.Results, err
}

func (c *Client) UpdateApplicationStatus(ctx context.Context, applicationID, status string) (Application, error) {
	var app Application
	err := c.PatchJSON(ctx, "/applications/"+url.PathEscape(applicationID)+"/", map[string]string{"status": status}, &app)
	return app, err
}
