package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/devfolio/portfolio/config"
	"github.com/devfolio/portfolio/internal/db"
	"github.com/devfolio/portfolio/internal/handlers"
	mw "github.com/devfolio/portfolio/internal/middleware"
	"github.com/devfolio/portfolio/internal/security"
	"github.com/devfolio/portfolio/internal/services"
	"github.com/devfolio/portfolio/internal/session"
	"github.com/devfolio/portfolio/internal/storage"
	"github.com/devfolio/portfolio/internal/store"
)

const defaultSessionTTL = 24 * time.Hour

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	storage    *storage.Storage
	log        zerolog.Logger
}

// New opens the database and object storage and builds the router.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	images, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if images != nil {
		if err := images.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			_ = images.Close()
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		log.Info().Str("backend", cfg.Storage.Backend).Str("bucket", images.Bucket()).Msg("object storage ready")
	}

	router, err := NewRouter(cfg, dbConn, images, log)
	if err != nil {
		_ = dbConn.Close()
		if images != nil {
			_ = images.Close()
		}
		return nil, err
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		db:         dbConn,
		storage:    images,
		log:        log,
	}, nil
}

// NewRouter wires repositories, services and handlers onto a chi router.
// images may be nil.
func NewRouter(cfg config.Config, dbConn *sql.DB, images *storage.Storage, log zerolog.Logger) (*chi.Mux, error) {
	hasher, err := security.NewPasswordHasher(security.Options{Algorithm: cfg.Security.PasswordHasher})
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	projectRepo := store.NewProjectRepository(dbConn)
	commentRepo := store.NewCommentRepository(dbConn)

	var imageStore services.ImageStore
	if images != nil {
		imageStore = images
	}
	userService := services.NewUserService(userRepo, hasher, log)
	projectService := services.NewProjectService(projectRepo, commentRepo, imageStore, log)
	commentService := services.NewCommentService(commentRepo, log)
	contactService := services.NewContactService(log)

	sessionSecret, err := secretOrRandom(cfg.Session.Secret)
	if err != nil {
		return nil, err
	}
	if cfg.Session.Secret == "" {
		log.Warn().Msg("SESSION_SECRET not set, sessions will not survive a restart")
	}
	ttl := cfg.Session.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	sessions := session.NewManager(session.NewStore(ttl), sessionSecret, cfg.Session.SecureCookies, log)

	csrfKey, err := secretOrRandom(cfg.Security.CSRFKey)
	if err != nil {
		return nil, err
	}
	protect := csrf.Protect(
		csrfKey,
		csrf.Secure(cfg.Session.SecureCookies),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
	)

	authLimit, err := mw.NewIPRateLimiter(cfg.Security.AuthRateLimit)
	if err != nil {
		return nil, fmt.Errorf("auth rate limit: %w", err)
	}

	views, err := handlers.NewViews(log)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		mw.RequestLogger(log),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		mw.Prometheus,
		mw.SecureHeaders(cfg.IsDev()),
	)
	router.Get("/healthz", handlers.Healthz(dbConn))
	router.Handle("/metrics", promhttp.Handler())
	handlers.ImageRouter(router, images, log)

	router.Group(func(r chi.Router) {
		if !cfg.Session.SecureCookies {
			r.Use(plaintextHTTP)
		}
		r.Use(protect, sessions.Load)

		handlers.PageRouter(r, contactService, views)
		handlers.AuthRouter(r, userService, sessions, views, authLimit)
		handlers.PortfolioRouter(r, projectService, commentService, sessions, views, log)
	})
	router.NotFound(sessions.Load(handlers.NotFound(views)).ServeHTTP)

	return router, nil
}

// plaintextHTTP marks requests as served without TLS so CSRF checks skip
// the Referer requirement that only applies to HTTPS.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// secretOrRandom derives a 32-byte key from secret, or returns a random key
// when secret is empty.
func secretOrRandom(secret string) ([]byte, error) {
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		return sum[:], nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the database and
// object storage.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.storage != nil {
		_ = s.storage.Close()
	}
	return err
}
