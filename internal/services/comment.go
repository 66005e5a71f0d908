package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/devfolio/portfolio/internal/metrics"
	"github.com/devfolio/portfolio/internal/session"
	"github.com/devfolio/portfolio/internal/store"
	"github.com/devfolio/portfolio/types"
	"github.com/rs/zerolog"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	ListByProject(ctx context.Context, projectID int) ([]types.Comment, error)
	CountByProject(ctx context.Context) (map[int]int, error)
	Get(ctx context.Context, id int) (types.Comment, error)
	Create(ctx context.Context, comment types.Comment) (types.Comment, error)
	Delete(ctx context.Context, id int) error
}

// CommentService encapsulates comment use-cases.
type CommentService struct {
	repo CommentRepository
	log  zerolog.Logger
}

func NewCommentService(repo CommentRepository, log zerolog.Logger) *CommentService {
	return &CommentService{repo: repo, log: log}
}

// ListByProject returns the project's comments oldest first.
func (s *CommentService) ListByProject(ctx context.Context, projectID int) ([]types.Comment, error) {
	return s.repo.ListByProject(ctx, projectID)
}

func (s *CommentService) CountByProject(ctx context.Context) (map[int]int, error) {
	return s.repo.CountByProject(ctx)
}

// Create attaches a comment by author to the project. The author's name
// and email are copied onto the comment.
func (s *CommentService) Create(ctx context.Context, projectID int, author session.Identity, content string) (types.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return types.Comment{}, invalid("Comment cannot be empty.")
	}

	authorID := author.UserID
	comment, err := s.repo.Create(ctx, types.Comment{
		Username:  author.Username,
		Email:     author.Email,
		Content:   content,
		AuthorID:  &authorID,
		ProjectID: projectID,
	})
	if errors.Is(err, store.ErrNotFound) {
		return types.Comment{}, ErrProjectNotFound
	}
	if err != nil {
		return types.Comment{}, fmt.Errorf("create comment: %w", err)
	}

	metrics.CommentsCreatedTotal.Inc()
	s.log.Info().Int("comment_id", comment.ID).Int("project_id", projectID).Int("user_id", authorID).Msg("comment created")
	return comment, nil
}

// Delete removes a comment written by actor and returns the project it
// belonged to. The project id is also returned with ErrForbidden so the
// caller can send the user back.
func (s *CommentService) Delete(ctx context.Context, id int, actor session.Identity) (int, error) {
	comment, err := s.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrCommentNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get comment: %w", err)
	}
	if !comment.IsAuthoredBy(actor.UserID) {
		return comment.ProjectID, ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return comment.ProjectID, ErrCommentNotFound
		}
		return comment.ProjectID, fmt.Errorf("delete comment: %w", err)
	}

	metrics.CommentsDeletedTotal.Inc()
	s.log.Info().Int("comment_id", id).Int("project_id", comment.ProjectID).Msg("comment deleted")
	return comment.ProjectID, nil
}
