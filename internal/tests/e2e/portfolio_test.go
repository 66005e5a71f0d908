//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/devfolio/portfolio/config"
	"github.com/devfolio/portfolio/internal/db"
	"github.com/devfolio/portfolio/internal/server"
	"github.com/devfolio/portfolio/internal/services"
	"github.com/devfolio/portfolio/internal/storage"
	"github.com/devfolio/portfolio/internal/store"
	"github.com/devfolio/portfolio/types"
)

const (
	serverPort = 18080
)

var (
	baseURL          = fmt.Sprintf("http://localhost:%d", serverPort)
	csrfFieldPattern = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	setTestEnv()
	cfg := config.LoadConfig()

	if err := waitForPostgres(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := db.MigrateUp(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := server.New(ctx, cfg, zerolog.Nop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}
	go func() {
		_ = srv.Start()
	}()

	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestCommentLifecycle(t *testing.T) {
	project := createProject(t, nil)
	username := fmt.Sprintf("alice_%d", time.Now().UnixNano())
	c := newClient(t)

	status, location := c.post(t, "/register", url.Values{
		"username":         {username},
		"email":            {username + "@example.com"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
	})
	if status != http.StatusFound || location != "/" {
		t.Fatalf("register: status %d location %q", status, location)
	}

	status, _ = c.post(t, "/login", url.Values{"username": {username}, "password": {"wrongpw"}})
	if status != http.StatusUnauthorized {
		t.Fatalf("login with wrong password: status %d", status)
	}

	status, location = c.post(t, "/login", url.Values{"username": {username}, "password": {"secret1"}})
	if status != http.StatusFound || location != "/portfolio" {
		t.Fatalf("login: status %d location %q", status, location)
	}

	projectPath := fmt.Sprintf("/project/%d", project.ID)
	status, location = c.post(t, projectPath, url.Values{"content": {"nice work"}})
	if status != http.StatusFound || location != projectPath {
		t.Fatalf("comment: status %d location %q", status, location)
	}

	_, page := c.get(t, projectPath)
	if !strings.Contains(page, "nice work") {
		t.Fatalf("comment not listed on project page")
	}

	commentID := findDeletePath(t, page)
	status, location = c.post(t, commentID, nil)
	if status != http.StatusFound || location != projectPath {
		t.Fatalf("delete comment: status %d location %q", status, location)
	}

	_, page = c.get(t, projectPath)
	if strings.Contains(page, "nice work") {
		t.Fatalf("comment still listed after delete")
	}
}

func TestProjectImageRoundTrip(t *testing.T) {
	project := createProject(t, &services.ImageUpload{
		Filename: "shot.png",
		Body:     strings.NewReader("not-really-a-png"),
		Size:     int64(len("not-really-a-png")),
	})
	if project.Image == nil {
		t.Fatalf("expected image key to be stored")
	}

	c := newClient(t)
	status, body := c.get(t, "/images/"+*project.Image)
	if status != http.StatusOK {
		t.Fatalf("get image: status %d", status)
	}
	if body != "not-really-a-png" {
		t.Fatalf("unexpected image body %q", body)
	}
}

func TestAnonymousCommentIsRejected(t *testing.T) {
	project := createProject(t, nil)
	c := newClient(t)

	status, location := c.post(t, fmt.Sprintf("/project/%d", project.ID), url.Values{"content": {"drive-by"}})
	if status != http.StatusFound || location != "/login" {
		t.Fatalf("anonymous comment: status %d location %q", status, location)
	}
}

func createProject(t *testing.T, image *services.ImageUpload) types.Project {
	t.Helper()
	ctx := context.Background()
	cfg := config.LoadConfig()

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	images, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer images.Close()

	svc := services.NewProjectService(store.NewProjectRepository(conn), store.NewCommentRepository(conn), images, zerolog.Nop())
	project, err := svc.Create(ctx, types.Project{
		Title:       fmt.Sprintf("E2E project %d", time.Now().UnixNano()),
		Description: "Created by the e2e suite.",
	}, image)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

type client struct {
	http *http.Client
}

func newClient(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &client{http: &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (c *client) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := c.http.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp.StatusCode, string(body)
}

func (c *client) post(t *testing.T, path string, values url.Values) (int, string) {
	t.Helper()
	_, page := c.get(t, "/contact")
	match := csrfFieldPattern.FindStringSubmatch(page)
	if len(match) != 2 {
		t.Fatalf("csrf field missing from contact page")
	}
	if values == nil {
		values = url.Values{}
	}
	values.Set("gorilla.csrf.Token", match[1])

	resp, err := c.http.PostForm(baseURL+path, values)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, resp.Header.Get("Location")
}

func findDeletePath(t *testing.T, page string) string {
	t.Helper()
	match := regexp.MustCompile(`action="(/delete-comment/\d+)"`).FindStringSubmatch(page)
	if len(match) != 2 {
		t.Fatalf("delete form missing from project page")
	}
	return match[1]
}

func setTestEnv() {
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_DRIVER", "postgres")
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "portfolio")
	_ = os.Setenv("DB_PASSWORD", "portfolio")
	_ = os.Setenv("DB_NAME", "portfolio_db")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("SESSION_SECRET", "e2e-session-secret")
	_ = os.Setenv("CSRF_KEY", "e2e-csrf-key")
	_ = os.Setenv("AUTH_RATE_LIMIT", "")
	_ = os.Setenv("STORAGE_BACKEND", "minio")
	_ = os.Setenv("MINIO_ENDPOINT", "localhost:9000")
	_ = os.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	_ = os.Setenv("MINIO_SECRET_KEY", "minioadmin")
	_ = os.Setenv("MINIO_BUCKET", "portfolio-e2e")
}

func waitForPostgres(ctx context.Context, cfg config.Config) error {
	_, dsn, err := db.DSN(cfg)
	if err != nil {
		return err
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
