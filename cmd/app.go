package cmd

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/devfolio/portfolio/config"
	"github.com/devfolio/portfolio/internal/db"
	"github.com/devfolio/portfolio/internal/security"
	"github.com/devfolio/portfolio/internal/services"
	"github.com/devfolio/portfolio/internal/storage"
	"github.com/devfolio/portfolio/internal/store"
)

// adminApp is the service set used by the admin commands.
type adminApp struct {
	log      zerolog.Logger
	db       *sql.DB
	images   *storage.Storage
	projects *services.ProjectService
	users    *services.UserService
}

func openAdminApp(ctx context.Context) (*adminApp, error) {
	cfg := config.LoadConfig()
	log := newLogger(cfg)

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	images, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	hasher, err := security.NewPasswordHasher(security.Options{Algorithm: cfg.Security.PasswordHasher})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	var imageStore services.ImageStore
	if images != nil {
		imageStore = images
	}
	commentRepo := store.NewCommentRepository(conn)
	return &adminApp{
		log:      log,
		db:       conn,
		images:   images,
		projects: services.NewProjectService(store.NewProjectRepository(conn), commentRepo, imageStore, log),
		users:    services.NewUserService(store.NewUserRepository(conn), hasher, log),
	}, nil
}

func (a *adminApp) Close() {
	_ = a.db.Close()
	if a.images != nil {
		_ = a.images.Close()
	}
}
