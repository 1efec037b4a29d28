package model

import "time"

const (
	UserTypeStudent = "student"
	UserTypeCompany = "company"
)

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	UserType     string
	FirstName    string
	LastName     string
	PhoneNumber  string

	// Student attachment, meaningful when UserType is "student".
	GraduationYear *int
	Branch         string
	Skills         []string
	GithubURL      string
	LinkedinURL    string
	PortfolioURL   string

	// Company attachment, meaningful when UserType is "company".
	CompanyName        string
	CompanyDescription string
	CompanyWebsite     string
	CompanyLogo        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent *string
	IPAddress *string
}

type Job struct {
	ID           string
	CompanyID    string
	CompanyName  string
	Title        string
	Description  string
	Requirements []string
	Category     string
	Location     string
	Type         string
	SalaryRange  string
	Deadline     *time.Time
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Internship struct {
	ID           string
	CompanyID    string
	CompanyName  string
	Title        string
	Description  string
	Requirements []string
	Duration     string
	Location     string
	Stipend      string
	Deadline     *time.Time
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	ApplicationPending     = "pending"
	ApplicationReviewing   = "reviewing"
	ApplicationShortlisted = "shortlisted"
	ApplicationInterviewed = "interviewed"
	ApplicationAccepted    = "accepted"
	ApplicationRejected    = "rejected"
)

// Application references exactly one of JobID or InternshipID.
type Application struct {
	ID            string
	UserID        string
	JobID         *string
	InternshipID  *string
	ResumePath    string
	CoverLetter   string
	Status        string
	InterviewDate *time.Time
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func ValidApplicationStatus(status string) bool {
	switch status {
	case ApplicationPending, ApplicationReviewing, ApplicationShortlisted,
		ApplicationInterviewed, ApplicationAccepted, ApplicationRejected:
		return true
	default:
		return false
	}
}
