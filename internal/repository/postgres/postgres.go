package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge/api/internal/domain"
	"github.com/taskforge/api/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository        = (*Repository)(nil)
	_ repository.ProjectRepository     = (*Repository)(nil)
	_ repository.ContributorRepository = (*Repository)(nil)
	_ repository.IssueRepository       = (*Repository)(nil)
	_ repository.CommentRepository     = (*Repository)(nil)
)

const uniqueViolation = "23505"

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrConflict
	}
	return err
}

// CreateUser inserts an account.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, username, email, first_name, last_name, password_hash, age, can_be_contacted, can_data_be_shared, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.Age, user.CanBeContacted, user.CanDataBeShared, user.CreatedAt)
	return translateError(err)
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, username, email, first_name, last_name, password_hash, age, can_be_contacted, can_data_be_shared, created_at
		FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByUsername fetches a user by login name.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT id, username, email, first_name, last_name, password_hash, age, can_be_contacted, can_data_be_shared, created_at
		FROM users WHERE username = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, username))
}

func (r *Repository) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.Age, &u.CanBeContacted, &u.CanDataBeShared, &u.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

// ListUsers returns a page of users matching the filter plus the total count.
func (r *Repository) ListUsers(ctx context.Context, filter repository.UserFilter, limit, offset int) ([]domain.User, int, error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 4)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Age != nil {
		add("age = $%d", *filter.Age)
	}
	if filter.AgeGT != nil {
		add("age > $%d", *filter.AgeGT)
	}
	if filter.AgeGTE != nil {
		add("age >= $%d", *filter.AgeGTE)
	}
	if filter.AgeLT != nil {
		add("age < $%d", *filter.AgeLT)
	}
	if filter.AgeLTE != nil {
		add("age <= $%d", *filter.AgeLTE)
	}
	if filter.CanBeContacted != nil {
		add("can_be_contacted = $%d", *filter.CanBeContacted)
	}
	if filter.CanDataBeShared != nil {
		add("can_data_be_shared = $%d", *filter.CanDataBeShared)
	}
	condition := ""
	if len(where) > 0 {
		condition = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(1) FROM users"+condition, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, username, email, first_name, last_name, password_hash, age, can_be_contacted, can_data_be_shared, created_at
		FROM users` + condition + fmt.Sprintf(" ORDER BY username LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
			&u.Age, &u.CanBeContacted, &u.CanDataBeShared, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// UpdateUser persists mutable account fields.
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	const query = `UPDATE users SET username = $2, email = $3, first_name = $4, last_name = $5,
		password_hash = $6, age = $7, can_be_contacted = $8, can_data_be_shared = $9
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.Age, user.CanBeContacted, user.CanDataBeShared)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteUser removes an account.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateProject inserts a project.
func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	const query = `INSERT INTO projects (id, title, description, type, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, project.ID, project.Title, project.Description, project.Type,
		project.AuthorID, project.CreatedAt)
	return translateError(err)
}

// GetProjectByID fetches project details.
func (r *Repository) GetProjectByID(ctx context.Context, id string) (*domain.Project, error) {
	const query = `SELECT id, title, description, type, author_id, created_at FROM projects WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var p domain.Project
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Type, &p.AuthorID, &p.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

// ListProjectsByUser returns projects the user contributes to, optionally
// narrowed by type, ordered by title.
func (r *Repository) ListProjectsByUser(ctx context.Context, userID, projectType string, limit, offset int) ([]domain.Project, int, error) {
	condition := ` FROM projects p INNER JOIN contributors c ON c.project_id = p.id WHERE c.user_id = $1`
	args := []any{userID}
	if projectType != "" {
		args = append(args, projectType)
		condition += fmt.Sprintf(" AND p.type = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(1)"+condition, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT p.id, p.title, p.description, p.type, p.author_id, p.created_at" + condition +
		fmt.Sprintf(" ORDER BY p.title LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Type, &p.AuthorID, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	return projects, total, rows.Err()
}

// UpdateProject persists mutable project fields.
func (r *Repository) UpdateProject(ctx context.Context, project *domain.Project) error {
	const query = `UPDATE projects SET title = $2, description = $3, type = $4 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, project.ID, project.Title, project.Description, project.Type)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteProject removes a project; contributors and issues cascade.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddContributor inserts a membership row.
func (r *Repository) AddContributor(ctx context.Context, contributor *domain.Contributor) error {
	const query = `INSERT INTO contributors (id, project_id, user_id, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, contributor.ID, contributor.ProjectID, contributor.UserID, contributor.CreatedAt)
	return translateError(err)
}

// GetContributorByID fetches a membership row.
func (r *Repository) GetContributorByID(ctx context.Context, id string) (*domain.Contributor, error) {
	const query = `SELECT id, project_id, user_id, created_at FROM contributors WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var c domain.Contributor
	if err := row.Scan(&c.ID, &c.ProjectID, &c.UserID, &c.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

// ListContributorsByProject returns a page of project members.
func (r *Repository) ListContributorsByProject(ctx context.Context, projectID string, limit, offset int) ([]domain.Contributor, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(1) FROM contributors WHERE project_id = $1`, projectID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `SELECT id, project_id, user_id, created_at FROM contributors
		WHERE project_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	contributors := make([]domain.Contributor, 0)
	for rows.Next() {
		var c domain.Contributor
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.UserID, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		contributors = append(contributors, c)
	}
	return contributors, total, rows.Err()
}

// DeleteContributor removes a membership row.
func (r *Repository) DeleteContributor(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contributors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IsContributor reports project membership for a user.
func (r *Repository) IsContributor(ctx context.Context, projectID, userID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM contributors WHERE project_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, projectID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateIssue inserts an issue.
func (r *Repository) CreateIssue(ctx context.Context, issue *domain.Issue) error {
	const query = `INSERT INTO issues (id, project_id, title, description, tag, priority, status, author_id, assignee_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query, issue.ID, issue.ProjectID, issue.Title, issue.Description,
		issue.Tag, issue.Priority, issue.Status, issue.AuthorID, issue.AssigneeID, issue.CreatedAt)
	return translateError(err)
}

// GetIssueByID fetches an issue.
func (r *Repository) GetIssueByID(ctx context.Context, id string) (*domain.Issue, error) {
	const query = `SELECT id, project_id, title, description, tag, priority, status, author_id, assignee_id, created_at
		FROM issues WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var i domain.Issue
	if err := row.Scan(&i.ID, &i.ProjectID, &i.Title, &i.Description, &i.Tag, &i.Priority, &i.Status,
		&i.AuthorID, &i.AssigneeID, &i.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &i, nil
}

// ListIssues returns a page of issues matching the filter.
func (r *Repository) ListIssues(ctx context.Context, filter repository.IssueFilter, limit, offset int) ([]domain.Issue, int, error) {
	where := []string{"project_id = $1"}
	args := []any{filter.ProjectID}
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Tag != "" {
		add("tag = $%d", filter.Tag)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Priority != "" {
		add("priority = $%d", filter.Priority)
	}
	if filter.AssigneeID != "" {
		add("assignee_id = $%d", filter.AssigneeID)
	}
	condition := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(1) FROM issues"+condition, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, project_id, title, description, tag, priority, status, author_id, assignee_id, created_at
		FROM issues` + condition + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	issues := make([]domain.Issue, 0)
	for rows.Next() {
		var i domain.Issue
		if err := rows.Scan(&i.ID, &i.ProjectID, &i.Title, &i.Description, &i.Tag, &i.Priority, &i.Status,
			&i.AuthorID, &i.AssigneeID, &i.CreatedAt); err != nil {
			return nil, 0, err
		}
		issues = append(issues, i)
	}
	return issues, total, rows.Err()
}

// UpdateIssue persists mutable issue fields.
func (r *Repository) UpdateIssue(ctx context.Context, issue *domain.Issue) error {
	const query = `UPDATE issues SET title = $2, description = $3, tag = $4, priority = $5, status = $6, assignee_id = $7
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, issue.ID, issue.Title, issue.Description, issue.Tag,
		issue.Priority, issue.Status, issue.AssigneeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteIssue removes an issue; its comments cascade.
func (r *Repository) DeleteIssue(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateComment inserts a comment.
func (r *Repository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	const query = `INSERT INTO comments (id, issue_id, description, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, comment.ID, comment.IssueID, comment.Description, comment.AuthorID, comment.CreatedAt)
	return translateError(err)
}

// GetCommentByID fetches a comment.
func (r *Repository) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	const query = `SELECT id, issue_id, description, author_id, created_at FROM comments WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.IssueID, &c.Description, &c.AuthorID, &c.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

// ListCommentsByIssue returns a page of comments ordered by creation time.
func (r *Repository) ListCommentsByIssue(ctx context.Context, issueID string, limit, offset int) ([]domain.Comment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(1) FROM comments WHERE issue_id = $1`, issueID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `SELECT id, issue_id, description, author_id, created_at FROM comments
		WHERE issue_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, issueID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	comments := make([]domain.Comment, 0)
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Description, &c.AuthorID, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		comments = append(comments, c)
	}
	return comments, total, rows.Err()
}

// UpdateComment rewrites a comment's description.
func (r *Repository) UpdateComment(ctx context.Context, comment *domain.Comment) error {
	tag, err := r.pool.Exec(ctx, `UPDATE comments SET description = $2 WHERE id = $1`, comment.ID, comment.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteComment removes a comment.
func (r *Repository) DeleteComment(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
