package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/devfolio/portfolio/types"
)

// ProjectRepository handles persistence for projects.
type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, title, description, link, image`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (types.Project, error) {
	var (
		project     types.Project
		link, image sql.NullString
	)
	if err := row.Scan(&project.ID, &project.Title, &project.Description, &link, &image); err != nil {
		return types.Project{}, err
	}
	project.Link = stringPtr(link)
	project.Image = stringPtr(image)
	return project, nil
}

// List returns every project in insertion order.
func (r *ProjectRepository) List(ctx context.Context) ([]types.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]types.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(1) FROM projects`
	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *ProjectRepository) Get(ctx context.Context, id int) (types.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	project, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Project{}, ErrNotFound
		}
		return types.Project{}, err
	}
	return project, nil
}

func (r *ProjectRepository) Create(ctx context.Context, project types.Project) (types.Project, error) {
	const query = `
		INSERT INTO projects (title, description, link, image)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		return tx.QueryRowContext(
			ctx,
			query,
			project.Title,
			project.Description,
			nullString(project.Link),
			nullString(project.Image),
		).Scan(&project.ID)
	})
	if err != nil {
		return types.Project{}, err
	}
	return project, nil
}

// CreateMany inserts all projects in a single transaction.
func (r *ProjectRepository) CreateMany(ctx context.Context, projects []types.Project) ([]types.Project, error) {
	const query = `
		INSERT INTO projects (title, description, link, image)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	created := make([]types.Project, 0, len(projects))
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, project := range projects {
			if err := tx.QueryRowContext(
				ctx,
				query,
				project.Title,
				project.Description,
				nullString(project.Link),
				nullString(project.Image),
			).Scan(&project.ID); err != nil {
				return err
			}
			created = append(created, project)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Delete removes the project together with all of its comments.
func (r *ProjectRepository) Delete(ctx context.Context, id int) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE project_id = $1`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
