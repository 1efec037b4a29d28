package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/addu10/CareerBridge/client"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	baseURL := os.Getenv("CAREERBRIDGE_API")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	store := client.NewFileStore(sessionPath())
	creds, err := client.NewCredentialStore(store, baseURL)
	if err != nil {
		log.Fatalf("credential store: %v", err)
	}
	api := client.New(baseURL, creds, client.NopNavigator{})
	session := client.NewSession(api, creds, client.NopNavigator{})
	ctx := context.Background()

	switch os.Args[1] {
	case "login":
		runLogin(ctx, session, os.Args[2:])
	case "register":
		runRegister(ctx, session, os.Args[2:])
	case "me":
		runMe(ctx, api)
	case "jobs":
		runJobs(ctx, api)
	case "internships":
		runInternships(ctx, api)
	case "apply":
		runApply(ctx, api, os.Args[2:])
	case "applications":
		runApplications(ctx, api, os.Args[2:])
	case "logout":
		session.Logout(ctx)
		fmt.Println("logged out")
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: careerctl <command> [flags]

commands:
  login         -user <identifier> -password <password> [-company]
  register      -email <email> -password <password> [-company] [-name <company name>]
  me            show the signed-in profile
  jobs          list open jobs
  internships   list open internships
  apply         -job <id> | -internship <id> -resume <file> [-cover <text>]
  applications  [-status <status>] list own applications
  logout        clear the stored session`)
}

func sessionPath() string {
	if path := os.Getenv("CAREERBRIDGE_SESSION"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".careerbridge.json"
	}
	return filepath.Join(home, ".careerbridge.json")
}

func runLogin(ctx context.Context, session *client.Session, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	user := fs.String("user", "", "username or email")
	password := fs.String("password", "", "password")
	company := fs.Bool("company", false, "log in as a company account")
	fs.Parse(args)

	if *user == "" || *password == "" {
		log.Fatal("login: -user and -password are required")
	}
	if err := session.Login(ctx, *user, *password, *company); err != nil {
		log.Fatalf("login failed: %s", session.LastError())
	}
	current := session.CurrentUser()
	fmt.Printf("logged in as %s (%s)\n", current.Email, current.UserType)
}

func runRegister(ctx context.Context, session *client.Session, args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	company := fs.Bool("company", false, "register a company account")
	companyName := fs.String("name", "", "company name")
	fs.Parse(args)

	if *email == "" || *password == "" {
		log.Fatal("register: -email and -password are required")
	}

	payload := client.RegisterPayload{
		Email:       *email,
		Password:    *password,
		Password2:   *password,
		FirstName:   *first,
		LastName:    *last,
		CompanyName: *companyName,
	}
	if *company {
		payload.UserType = client.UserTypeCompany
	}
	if err := session.Register(ctx, payload); err != nil {
		log.Fatalf("registration failed: %s", session.LastError())
	}
	current := session.CurrentUser()
	fmt.Printf("registered and logged in as %s (%s)\n", current.Email, current.UserType)
}

func runMe(ctx context.Context, api *client.Client) {
	user, err := api.Me(ctx)
	if err != nil {
		log.Fatalf("me: %v", err)
	}
	fmt.Printf("%s %s <%s> [%s]\n", user.FirstName, user.LastName, user.Email, user.UserType)
	if user.UserType == client.UserTypeCompany {
		if user.CompanyName != "" {
			fmt.Printf("company: %s\n", user.CompanyName)
		}
		return
	}
	if user.Branch != "" {
		fmt.Printf("branch: %s\n", user.Branch)
	}
	if len(user.Skills) > 0 {
		fmt.Printf("skills: %v\n", user.Skills)
	}
}

func runJobs(ctx context.Context, api *client.Client) {
	jobs, err := api.Jobs(ctx)
	if err != nil {
		log.Fatalf("jobs: %v", err)
	}
	for _, job := range jobs {
		fmt.Printf("%s  %-30s %-20s %s\n", job.ID, job.Title, job.Company, job.Location)
	}
}

func runInternships(ctx context.Context, api *client.Client) {
	internships, err := api.Internships(ctx)
	if err != nil {
		log.Fatalf("internships: %v", err)
	}
	for _, internship := range internships {
		fmt.Printf("%s  %-30s %-20s %s\n", internship.ID, internship.Title, internship.Company, internship.Duration)
	}
}

func runApply(ctx context.Context, api *client.Client, args []string) {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	jobID := fs.String("job", "", "job id")
	internshipID := fs.String("internship", "", "internship id")
	resumePath := fs.String("resume", "", "path to resume file")
	cover := fs.String("cover", "", "cover letter text")
	fs.Parse(args)

	if (*jobID == "") == (*internshipID == "") {
		log.Fatal("apply: exactly one of -job or -internship is required")
	}
	if *resumePath == "" {
		log.Fatal("apply: -resume is required")
	}
	resume, err := os.ReadFile(*resumePath)
	if err != nil {
		log.Fatalf("apply: %v", err)
	}

	app, err := api.Apply(ctx, *jobID, *internshipID, *cover, filepath.Base(*resumePath), resume)
	if err != nil {
		log.Fatalf("apply: %v", err)
	}
	fmt.Printf("application %s submitted (%s)\n", app.ID, app.Status)
}

func runApplications(ctx context.Context, api *client.Client, args []string) {
	fs := flag.NewFlagSet("applications", flag.ExitOnError)
	status := fs.String("status", "", "filter by status")
	fs.Parse(args)

	apps, err := api.Applications(ctx, *status)
	if err != nil {
		log.Fatalf("applications: %v", err)
	}
	for _, app := range apps {
		title := ""
		switch {
		case app.Job != nil:
			title = app.Job.Title
		case app.Internship != nil:
			title = app.Internship.Title
		}
		fmt.Printf("%s  %-12s %s\n", app.ID, app.Status, title)
	}
}
