package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/devfolio/portfolio/internal/services"
	"github.com/devfolio/portfolio/internal/session"
	"github.com/devfolio/portfolio/types"
)

type projectPage struct {
	Project  types.Project
	Comments []types.Comment
	// ViewerID is the signed-in user's id, or 0 when anonymous.
	ViewerID int
}

// PortfolioHandler serves the project listing, project pages and comments.
type PortfolioHandler struct {
	projectService *services.ProjectService
	commentService *services.CommentService
	views          *Views
	log            zerolog.Logger
}

func NewPortfolioHandler(projectService *services.ProjectService, commentService *services.CommentService, views *Views, log zerolog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		projectService: projectService,
		commentService: commentService,
		views:          views,
		log:            log,
	}
}

// PortfolioRouter registers portfolio routes on the given router.
func PortfolioRouter(
	r chi.Router,
	projectService *services.ProjectService,
	commentService *services.CommentService,
	sessions *session.Manager,
	views *Views,
	log zerolog.Logger,
) {
	handler := NewPortfolioHandler(projectService, commentService, views, log)

	r.Get("/portfolio", withSession(handler.List))
	r.Get("/project/{id}", withSession(handler.Get))
	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireIdentity)
		r.Post("/project/{id}", withSession(handler.Comment))
		r.Post("/delete-comment/{id}", withSession(handler.DeleteComment))
	})
}

func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	summaries, err := h.projectService.Summaries(r.Context())
	if err != nil {
		h.views.ServerError(w, r, sess, err)
		return
	}
	h.views.Render(w, r, sess, http.StatusOK, pagePortfolio, summaries)
}

func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, ok := pathID(r, "id")
	if !ok {
		h.views.NotFound(w, r, sess)
		return
	}

	project, err := h.projectService.Get(r.Context(), id)
	if errors.Is(err, services.ErrProjectNotFound) {
		h.views.NotFound(w, r, sess)
		return
	}
	if err != nil {
		h.views.ServerError(w, r, sess, err)
		return
	}

	comments, err := h.commentService.ListByProject(r.Context(), id)
	if err != nil {
		h.views.ServerError(w, r, sess, err)
		return
	}

	page := projectPage{Project: project, Comments: comments}
	if identity := sess.Identity(); identity != nil {
		page.ViewerID = identity.UserID
	}
	h.views.Render(w, r, sess, http.StatusOK, pageProject, page)
}

// Comment adds a comment by the signed-in user and always sends the user
// back to the project page.
func (h *PortfolioHandler) Comment(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, ok := pathID(r, "id")
	if !ok {
		h.views.NotFound(w, r, sess)
		return
	}
	identity := sess.Identity()

	_, err := h.commentService.Create(r.Context(), id, *identity, r.PostFormValue("content"))
	var verr *services.ValidationError
	switch {
	case err == nil:
		sess.AddFlash(session.LevelSuccess, "Your comment has been added!")
	case errors.Is(err, services.ErrProjectNotFound):
		h.views.NotFound(w, r, sess)
		return
	case errors.As(err, &verr):
		sess.AddFlash(session.LevelDanger, verr.Message)
	default:
		h.log.Error().Err(err).Int("project_id", id).Msg("create comment")
		sess.AddFlash(session.LevelDanger, "An error occurred while submitting your comment.")
	}
	redirect(w, r, projectPath(id))
}

// DeleteComment removes a comment written by the signed-in user.
func (h *PortfolioHandler) DeleteComment(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, ok := pathID(r, "id")
	if !ok {
		h.views.NotFound(w, r, sess)
		return
	}
	identity := sess.Identity()

	projectID, err := h.commentService.Delete(r.Context(), id, *identity)
	switch {
	case err == nil:
		sess.AddFlash(session.LevelSuccess, "Comment deleted successfully!")
	case errors.Is(err, services.ErrCommentNotFound):
		h.views.NotFound(w, r, sess)
		return
	case errors.Is(err, services.ErrForbidden):
		sess.AddFlash(session.LevelDanger, "You can only delete your own comments.")
	default:
		h.log.Error().Err(err).Int("comment_id", id).Msg("delete comment")
		sess.AddFlash(session.LevelDanger, "An error occurred while deleting the comment.")
	}

	if projectID == 0 {
		redirect(w, r, "/portfolio")
		return
	}
	redirect(w, r, projectPath(projectID))
}
