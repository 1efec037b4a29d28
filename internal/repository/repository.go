package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/addu10/CareerBridge/internal/model"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = `
	id, username, email, password_hash, user_type, first_name, last_name, phone_number,
	graduation_year, branch, skills, github_url, linkedin_url, portfolio_url,
	company_name, company_description, company_website, company_logo,
	created_at, updated_at
`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.UserType,
		&user.FirstName,
		&user.LastName,
		&user.PhoneNumber,
		&user.GraduationYear,
		&user.Branch,
		&user.Skills,
		&user.GithubURL,
		&user.LinkedinURL,
		&user.PortfolioURL,
		&user.CompanyName,
		&user.CompanyDescription,
		&user.CompanyWebsite,
		&user.CompanyLogo,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (
			id, username, email, password_hash, user_type, first_name, last_name, phone_number,
			graduation_year, branch, skills, github_url, linkedin_url, portfolio_url,
			company_name, company_description, company_website, company_logo,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.UserType,
		user.FirstName, user.LastName, user.PhoneNumber,
		user.GraduationYear, user.Branch, user.Skills,
		user.GithubURL, user.LinkedinURL, user.PortfolioURL,
		user.CompanyName, user.CompanyDescription, user.CompanyWebsite, user.CompanyLogo,
		user.CreatedAt, user.UpdatedAt,
	)
	return err
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByLogin resolves the /token/ identifier: username first, then email.
func (s *Store) GetUserByLogin(ctx context.Context, login string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, login)
	user, err := scanUser(row)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, err
	}
	return s.GetUserByEmail(ctx, login)
}

func (s *Store) EmailExists(ctx context.Context, email string) bool {
	return exists(ctx, s.pool, `SELECT 1 FROM users WHERE email = $1`, email)
}

func (s *Store) UsernameExists(ctx context.Context, username string) bool {
	return exists(ctx, s.pool, `SELECT 1 FROM users WHERE username = $1`, username)
}

type UserUpdate struct {
	Email        *string
	FirstName    *string
	LastName     *string
	PhoneNumber  *string
	PasswordHash *string

	GraduationYear *int
	Branch         *string
	Skills         *[]string
	GithubURL      *string
	LinkedinURL    *string
	PortfolioURL   *string

	CompanyName        *string
	CompanyDescription *string
	CompanyWebsite     *string
	CompanyLogo        *string
}

func (s *Store) UpdateUser(ctx context.Context, userID string, update UserUpdate) (model.User, error) {
	sets := []string{}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Email != nil {
		add("email", *update.Email)
	}
	if update.FirstName != nil {
		add("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		add("last_name", *update.LastName)
	}
	if update.PhoneNumber != nil {
		add("phone_number", *update.PhoneNumber)
	}
	if update.PasswordHash != nil {
		add("password_hash", *update.PasswordHash)
	}
	if update.GraduationYear != nil {
		add("graduation_year", *update.GraduationYear)
	}
	if update.Branch != nil {
		add("branch", *update.Branch)
	}
	if update.Skills != nil {
		add("skills", *update.Skills)
	}
	if update.GithubURL != nil {
		add("github_url", *update.GithubURL)
	}
	if update.LinkedinURL != nil {
		add("linkedin_url", *update.LinkedinURL)
	}
	if update.PortfolioURL != nil {
		add("portfolio_url", *update.PortfolioURL)
	}
	if update.CompanyName != nil {
		add("company_name", *update.CompanyName)
	}
	if update.CompanyDescription != nil {
		add("company_description", *update.CompanyDescription)
	}
	if update.CompanyWebsite != nil {
		add("company_website", *update.CompanyWebsite)
	}
	if update.CompanyLogo != nil {
		add("company_logo", *update.CompanyLogo)
	}

	if len(sets) == 0 {
		return s.GetUserByID(ctx, userID)
	}

	add("updated_at", time.Now().UTC())
	args = append(args, userID)

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "), len(args),
	)
	return scanUser(s.pool.QueryRow(ctx, query, args...))
}

func (s *Store) CreateRefreshSession(ctx context.Context, session model.RefreshSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_token_sessions (id, user_id, token_hash, created_at, expires_at, revoked_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, session.ID, session.UserID, session.TokenHash, session.CreatedAt, session.ExpiresAt, session.RevokedAt, session.UserAgent, session.IPAddress)
	return err
}

func (s *Store) GetRefreshSession(ctx context.Context, tokenHash string) (model.RefreshSession, error) {
	var session model.RefreshSession
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, created_at, expires_at, revoked_at, user_agent, ip_address
		FROM refresh_token_sessions
		WHERE token_hash = $1
	`, tokenHash)
	err := row.Scan(&session.ID, &session.UserID, &session.TokenHash, &session.CreatedAt, &session.ExpiresAt, &session.RevokedAt, &session.UserAgent, &session.IPAddress)
	return session, err
}

func (s *Store) RevokeRefreshSession(ctx context.Context, sessionID string, revokedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE refresh_token_sessions SET revoked_at = $1 WHERE id = $2`, revokedAt, sessionID)
	return err
}

func (s *Store) RevokeRefreshSessionsByUser(ctx context.Context, userID string, revokedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_token_sessions
		SET revoked_at = $1
		WHERE user_id = $2 AND revoked_at IS NULL
	`, revokedAt, userID)
	return err
}

func exists(ctx context.Context, pool *pgxpool.Pool, query string, arg string) bool {
	var exists bool
	_ = pool.QueryRow(ctx, `SELECT EXISTS (`+query+`)`, arg).Scan(&exists)
	return exists
}
