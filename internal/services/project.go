package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/devfolio/portfolio/internal/store"
	"github.com/devfolio/portfolio/types"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	List(ctx context.Context) ([]types.Project, error)
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id int) (types.Project, error)
	Create(ctx context.Context, project types.Project) (types.Project, error)
	CreateMany(ctx context.Context, projects []types.Project) ([]types.Project, error)
	Delete(ctx context.Context, id int) error
}

// CommentCounter reports comment totals per project.
type CommentCounter interface {
	CountByProject(ctx context.Context) (map[int]int, error)
}

// ImageStore holds uploaded project images.
type ImageStore interface {
	UploadImage(ctx context.Context, filename string, r io.Reader, size int64) (string, error)
	DeleteImage(ctx context.Context, key string) error
}

// ProjectSummary is a project with its comment total, as listed on the
// portfolio page.
type ProjectSummary struct {
	types.Project
	CommentCount int
}

// ImageUpload is an image file to store alongside a new project.
type ImageUpload struct {
	Filename string
	Body     io.Reader
	Size     int64
}

// ProjectService encapsulates project use-cases.
type ProjectService struct {
	repo     ProjectRepository
	comments CommentCounter
	images   ImageStore
	validate *validator.Validate
	log      zerolog.Logger
}

// NewProjectService builds the service. images may be nil when no object
// storage is configured.
func NewProjectService(repo ProjectRepository, comments CommentCounter, images ImageStore, log zerolog.Logger) *ProjectService {
	return &ProjectService{
		repo:     repo,
		comments: comments,
		images:   images,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

func (s *ProjectService) List(ctx context.Context) ([]types.Project, error) {
	return s.repo.List(ctx)
}

// Summaries lists every project with its comment count.
func (s *ProjectService) Summaries(ctx context.Context) ([]ProjectSummary, error) {
	projects, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	counts, err := s.comments.CountByProject(ctx)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}

	summaries := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, ProjectSummary{Project: p, CommentCount: counts[p.ID]})
	}
	return summaries, nil
}

func (s *ProjectService) Get(ctx context.Context, id int) (types.Project, error) {
	project, err := s.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.Project{}, ErrProjectNotFound
	}
	return project, err
}

// Create validates and stores a project. When image is set it is uploaded
// first and the project references the stored key.
func (s *ProjectService) Create(ctx context.Context, project types.Project, image *ImageUpload) (types.Project, error) {
	project = normalizeProject(project)
	if image != nil && project.Image != nil {
		return types.Project{}, invalid("Provide either an image file or an image URL, not both.")
	}
	if err := s.validateProject(project); err != nil {
		return types.Project{}, err
	}

	var uploaded string
	if image != nil {
		if s.images == nil {
			return types.Project{}, invalid("Image storage is not configured.")
		}
		key, err := s.images.UploadImage(ctx, image.Filename, image.Body, image.Size)
		if err != nil {
			return types.Project{}, fmt.Errorf("upload image: %w", err)
		}
		uploaded = key
		project.Image = &uploaded
	}

	created, err := s.repo.Create(ctx, project)
	if err != nil {
		if uploaded != "" {
			s.discardImage(ctx, uploaded)
		}
		return types.Project{}, fmt.Errorf("create project: %w", err)
	}

	s.log.Info().Int("project_id", created.ID).Str("title", created.Title).Msg("project created")
	return created, nil
}

// Delete removes a project with all its comments and its stored image.
func (s *ProjectService) Delete(ctx context.Context, id int) error {
	project, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("delete project: %w", err)
	}
	if project.Image != nil && !project.ImageIsURL() {
		s.discardImage(ctx, *project.Image)
	}

	s.log.Info().Int("project_id", id).Msg("project deleted")
	return nil
}

// Seed inserts the sample projects into an empty catalogue and returns how
// many were added.
func (s *ProjectService) Seed(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	if count > 0 {
		s.log.Info().Int("existing", count).Msg("projects already present, skipping seed")
		return 0, nil
	}

	created, err := s.repo.CreateMany(ctx, SampleProjects())
	if err != nil {
		return 0, fmt.Errorf("seed projects: %w", err)
	}
	s.log.Info().Int("count", len(created)).Msg("sample projects added")
	return len(created), nil
}

// SampleProjects returns the catalogue installed by Seed.
func SampleProjects() []types.Project {
	link := func(s string) *string { return &s }
	return []types.Project{
		{
			Title:       "Dynamic Portfolio Website",
			Description: "A personal portfolio website showcasing skills and projects.",
			Link:        link("https://github.com/example-portfolio"),
		},
		{
			Title:       "Weather Forecast App",
			Description: "A web application that displays weather data for any city.",
			Link:        link("https://github.com/example-weather-app"),
		},
		{
			Title:       "E-commerce Website",
			Description: "An online platform for purchasing products.",
		},
	}
}

func (s *ProjectService) discardImage(ctx context.Context, key string) {
	if s.images == nil {
		return
	}
	if err := s.images.DeleteImage(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to delete project image")
	}
}

func (s *ProjectService) validateProject(project types.Project) error {
	err := s.validate.Struct(project)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return invalid(fmt.Sprintf("%s is required.", fe.Field()))
	case "max":
		return invalid(fmt.Sprintf("%s must be at most %s characters long.", fe.Field(), fe.Param()))
	case "url":
		return invalid(fmt.Sprintf("%s must be a valid URL.", fe.Field()))
	default:
		return invalid(fmt.Sprintf("%s is invalid.", fe.Field()))
	}
}

func normalizeProject(p types.Project) types.Project {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.Link = trimOptional(p.Link)
	p.Image = trimOptional(p.Image)
	return p
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
