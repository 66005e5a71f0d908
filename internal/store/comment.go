package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/devfolio/portfolio/types"
)

// CommentRepository handles persistence for comments.
type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const commentColumns = `id, username, email, content, created_at, author_id, project_id`

func scanComment(row rowScanner) (types.Comment, error) {
	var (
		comment  types.Comment
		authorID sql.NullInt64
	)
	if err := row.Scan(
		&comment.ID,
		&comment.Username,
		&comment.Email,
		&comment.Content,
		&comment.CreatedAt,
		&authorID,
		&comment.ProjectID,
	); err != nil {
		return types.Comment{}, err
	}
	comment.AuthorID = intPtr(authorID)
	return comment, nil
}

func (r *CommentRepository) list(ctx context.Context, query string, args ...any) ([]types.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]types.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}

// List returns every comment in insertion order.
func (r *CommentRepository) List(ctx context.Context) ([]types.Comment, error) {
	const query = `SELECT ` + commentColumns + ` FROM comments ORDER BY id`
	return r.list(ctx, query)
}

// ListByProject returns the project's comments oldest first.
func (r *CommentRepository) ListByProject(ctx context.Context, projectID int) ([]types.Comment, error) {
	const query = `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE project_id = $1
		ORDER BY created_at, id`
	return r.list(ctx, query, projectID)
}

// CountByProject returns comment totals keyed by project id. Projects
// without comments are absent from the map.
func (r *CommentRepository) CountByProject(ctx context.Context) (map[int]int, error) {
	const query = `SELECT project_id, COUNT(1) FROM comments GROUP BY project_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var projectID, count int
		if err := rows.Scan(&projectID, &count); err != nil {
			return nil, err
		}
		counts[projectID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *CommentRepository) Get(ctx context.Context, id int) (types.Comment, error) {
	const query = `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Comment{}, ErrNotFound
		}
		return types.Comment{}, err
	}
	return comment, nil
}

// Create inserts the comment. A project id that does not exist yields
// ErrNotFound.
func (r *CommentRepository) Create(ctx context.Context, comment types.Comment) (types.Comment, error) {
	comment.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO comments (username, email, content, created_at, author_id, project_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		return tx.QueryRowContext(
			ctx,
			query,
			comment.Username,
			comment.Email,
			comment.Content,
			comment.CreatedAt,
			nullInt(comment.AuthorID),
			comment.ProjectID,
		).Scan(&comment.ID)
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.Comment{}, ErrNotFound
		}
		return types.Comment{}, err
	}
	return comment, nil
}

func (r *CommentRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM comments WHERE id = $1`
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, id)
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
