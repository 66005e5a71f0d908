package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/devfolio/portfolio/internal/db/dbtest"
	"github.com/devfolio/portfolio/internal/security"
	"github.com/devfolio/portfolio/internal/session"
	"github.com/devfolio/portfolio/internal/storage"
	"github.com/devfolio/portfolio/internal/store"
	"github.com/devfolio/portfolio/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	users    *UserService
	projects *ProjectService
	comments *CommentService
	images   *storage.MemoryStorage
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	sqlDB := dbtest.Open(t)
	hasher, err := security.NewPasswordHasher(security.Options{PBKDF2Iterations: 1000})
	require.NoError(t, err)

	commentRepo := store.NewCommentRepository(sqlDB)
	images := storage.NewMemoryStorage("test")
	log := zerolog.Nop()
	return fixture{
		users:    NewUserService(store.NewUserRepository(sqlDB), hasher, log),
		projects: NewProjectService(store.NewProjectRepository(sqlDB), commentRepo, storage.NewStorage(images), log),
		comments: NewCommentService(commentRepo, log),
		images:   images,
	}
}

func register(t *testing.T, f fixture, username, email, password string) types.User {
	t.Helper()
	user, err := f.users.Register(context.Background(), RegisterInput{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)
	return user
}

func identityOf(u types.User) session.Identity {
	return session.Identity{UserID: u.ID, Username: u.Username, Email: u.Email}
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	return verr.Message
}

func TestRegisterRules(t *testing.T) {
	f := newFixture(t)
	register(t, f, "alice", "a@x.com", "secret1")

	tests := []struct {
		name string
		in   RegisterInput
		want string
	}{
		{
			name: "password mismatch wins over every other rule",
			in:   RegisterInput{Username: "alice", Email: "a@x.com", Password: "abc", ConfirmPassword: "abd"},
			want: "Passwords do not match!",
		},
		{
			name: "duplicate username",
			in:   RegisterInput{Username: "alice", Email: "b@x.com", Password: "secret1", ConfirmPassword: "secret1"},
			want: "Username already exists!",
		},
		{
			name: "duplicate email",
			in:   RegisterInput{Username: "bob", Email: "a@x.com", Password: "secret1", ConfirmPassword: "secret1"},
			want: "Email already exists!",
		},
		{
			name: "short username",
			in:   RegisterInput{Username: "b", Email: "b", Password: "x", ConfirmPassword: "x"},
			want: "Username must be at least 2 characters long!",
		},
		{
			name: "short password",
			in:   RegisterInput{Username: "bob", Email: "b", Password: "12345", ConfirmPassword: "12345"},
			want: "Password must be at least 6 characters long!",
		},
		{
			name: "short password counts characters",
			in:   RegisterInput{Username: "bob", Email: "b", Password: "ééé", ConfirmPassword: "ééé"},
			want: "Password must be at least 6 characters long!",
		},
		{
			name: "short username counts characters",
			in:   RegisterInput{Username: "é", Email: "b", Password: "x", ConfirmPassword: "x"},
			want: "Username must be at least 2 characters long!",
		},
		{
			name: "short email",
			in:   RegisterInput{Username: "bob", Email: "b@x", Password: "123456", ConfirmPassword: "123456"},
			want: "Email must be at least 5 characters long!",
		},
		{
			name: "long username",
			in:   RegisterInput{Username: strings.Repeat("b", 51), Email: "b@x.com", Password: "123456", ConfirmPassword: "123456"},
			want: "Username must be at most 50 characters long!",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.Register(context.Background(), tt.in)
			assert.Equal(t, tt.want, validationMessage(t, err))
		})
	}

	users, err := f.users.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestRegisterStoresHashOnly(t *testing.T) {
	f := newFixture(t)
	user := register(t, f, "alice", "a@x.com", "secret1")

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "a@x.com", user.Email)
	assert.NotContains(t, user.PasswordHash, "secret1")
	assert.True(t, strings.HasPrefix(user.PasswordHash, "pbkdf2:sha256:1000$"))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := register(t, f, "alice", "a@x.com", "secret1")

	user, err := f.users.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = f.users.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.users.Authenticate(ctx, "Alice", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.users.Authenticate(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterKeepsUsernameAsSubmitted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := register(t, f, " carol", "c@x.com", "secret1")
	assert.Equal(t, " carol", created.Username)

	user, err := f.users.Authenticate(ctx, " carol", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = f.users.Authenticate(ctx, "carol", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// racingUsers reports every name as free but loses the insert to a
// concurrent registration.
type racingUsers struct {
	UserRepository
}

func (racingUsers) GetByUsername(context.Context, string) (types.User, error) {
	return types.User{}, store.ErrNotFound
}

func (racingUsers) GetByEmail(context.Context, string) (types.User, error) {
	return types.User{}, store.ErrNotFound
}

func (racingUsers) Create(context.Context, types.User) (types.User, error) {
	return types.User{}, store.ErrConflict
}

func TestRegisterInsertConflict(t *testing.T) {
	hasher, err := security.NewPasswordHasher(security.Options{PBKDF2Iterations: 1000})
	require.NoError(t, err)
	users := NewUserService(racingUsers{}, hasher, zerolog.Nop())

	_, err = users.Register(context.Background(), RegisterInput{
		Username:        "dave",
		Email:           "d@x.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	assert.Equal(t, "Username or email already exists!", validationMessage(t, err))
}

func TestGetUserByID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := register(t, f, "alice", "a@x.com", "secret1")

	user, err := f.users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = f.users.GetByID(ctx, created.ID+100)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUserKeepsComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := register(t, f, "alice", "a@x.com", "secret1")
	project, err := f.projects.Create(ctx, types.Project{Title: "P", Description: "D"}, nil)
	require.NoError(t, err)
	_, err = f.comments.Create(ctx, project.ID, identityOf(alice), "hello")
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(ctx, alice.ID))
	assert.ErrorIs(t, f.users.Delete(ctx, alice.ID), ErrUserNotFound)

	comments, err := f.comments.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Nil(t, comments[0].AuthorID)
	assert.Equal(t, "alice", comments[0].Username)
}

func TestProjectCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	badLink := "not a url"

	_, err := f.projects.Create(ctx, types.Project{Title: " ", Description: "D"}, nil)
	assert.Equal(t, "Title is required.", validationMessage(t, err))

	_, err = f.projects.Create(ctx, types.Project{Title: strings.Repeat("t", 101), Description: "D"}, nil)
	assert.Equal(t, "Title must be at most 100 characters long.", validationMessage(t, err))

	_, err = f.projects.Create(ctx, types.Project{Title: "T", Description: "D", Link: &badLink}, nil)
	assert.Equal(t, "Link must be a valid URL.", validationMessage(t, err))

	empty := "  "
	created, err := f.projects.Create(ctx, types.Project{Title: "T", Description: "D", Link: &empty}, nil)
	require.NoError(t, err)
	assert.Nil(t, created.Link)
}

func TestProjectCreateWithImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.projects.Create(ctx, types.Project{Title: "T", Description: "D"}, &ImageUpload{
		Filename: "shot.png",
		Body:     strings.NewReader("png"),
		Size:     3,
	})
	require.NoError(t, err)
	require.NotNil(t, created.Image)
	assert.False(t, created.ImageIsURL())
	assert.Equal(t, []string{*created.Image}, f.images.Keys())

	require.NoError(t, f.projects.Delete(ctx, created.ID))
	assert.Empty(t, f.images.Keys())
}

func TestProjectDeleteCascadesComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := register(t, f, "alice", "a@x.com", "secret1")
	project, err := f.projects.Create(ctx, types.Project{Title: "P", Description: "D"}, nil)
	require.NoError(t, err)
	_, err = f.comments.Create(ctx, project.ID, identityOf(alice), "first")
	require.NoError(t, err)

	require.NoError(t, f.projects.Delete(ctx, project.ID))

	_, err = f.projects.Get(ctx, project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
	comments, err := f.comments.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
	assert.ErrorIs(t, f.projects.Delete(ctx, project.ID), ErrProjectNotFound)
}

func TestProjectSeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	n, err := f.projects.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.projects.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	projects, err := f.projects.List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "Dynamic Portfolio Website", projects[0].Title)
	assert.Nil(t, projects[2].Link)
}

func TestProjectSummariesCountComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := register(t, f, "alice", "a@x.com", "secret1")
	_, err := f.projects.Seed(ctx)
	require.NoError(t, err)
	projects, err := f.projects.List(ctx)
	require.NoError(t, err)

	for _, content := range []string{"one", "two"} {
		_, err := f.comments.Create(ctx, projects[1].ID, identityOf(alice), content)
		require.NoError(t, err)
	}

	summaries, err := f.projects.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, 0, summaries[0].CommentCount)
	assert.Equal(t, 2, summaries[1].CommentCount)
}

func TestCommentCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := register(t, f, "alice", "a@x.com", "secret1")
	project, err := f.projects.Create(ctx, types.Project{Title: "P", Description: "D"}, nil)
	require.NoError(t, err)

	_, err = f.comments.Create(ctx, project.ID, identityOf(alice), "   ")
	assert.Equal(t, "Comment cannot be empty.", validationMessage(t, err))

	_, err = f.comments.Create(ctx, project.ID+100, identityOf(alice), "hello")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	first, err := f.comments.Create(ctx, project.ID, identityOf(alice), " first ")
	require.NoError(t, err)
	second, err := f.comments.Create(ctx, project.ID, identityOf(alice), "second")
	require.NoError(t, err)

	assert.Equal(t, "first", first.Content)
	assert.Equal(t, "a@x.com", first.Email)
	require.NotNil(t, first.AuthorID)
	assert.Equal(t, alice.ID, *first.AuthorID)

	comments, err := f.comments.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, first.ID, comments[0].ID)
	assert.Equal(t, second.ID, comments[1].ID)
}

func TestCommentDeleteOnlyByAuthor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := register(t, f, "alice", "a@x.com", "secret1")
	bob := register(t, f, "bob", "b@x.com", "secret2")
	project, err := f.projects.Create(ctx, types.Project{Title: "P", Description: "D"}, nil)
	require.NoError(t, err)
	comment, err := f.comments.Create(ctx, project.ID, identityOf(alice), "mine")
	require.NoError(t, err)

	projectID, err := f.comments.Delete(ctx, comment.ID, identityOf(bob))
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, project.ID, projectID)

	projectID, err = f.comments.Delete(ctx, comment.ID, identityOf(alice))
	require.NoError(t, err)
	assert.Equal(t, project.ID, projectID)

	_, err = f.comments.Delete(ctx, comment.ID, identityOf(alice))
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestContactSubmitLogsMessage(t *testing.T) {
	var buf strings.Builder
	svc := NewContactService(zerolog.New(&buf))

	require.NoError(t, svc.Submit(context.Background(), ContactMessage{
		Form:    FormSendMessage,
		Name:    "Ann",
		Email:   "ann@x.com",
		Message: "Hi there",
	}))

	out := buf.String()
	assert.Contains(t, out, `"form":"send-message"`)
	assert.Contains(t, out, `"name":"Ann"`)
	assert.Contains(t, out, `"message":"Hi there"`)
}
