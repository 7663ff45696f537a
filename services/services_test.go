package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/tms/database"
	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg"
	"github.com/akinalp/tms/pkg/blacklist"
	"github.com/akinalp/tms/pkg/token"
	"github.com/akinalp/tms/pkg/validator"
	"github.com/akinalp/tms/repository"
	"github.com/akinalp/tms/ws"
)

type recordedEvent struct {
	userID string
	event  ws.Event
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) BroadcastToUser(userID string, event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{userID: userID, event: event})
}

func (p *fakePublisher) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ops := make([]string, len(p.events))
	for i, e := range p.events {
		ops[i] = e.event.Op
	}
	return ops
}

type fakeMailer struct {
	sent chan string
}

func (m *fakeMailer) SendWelcome(_ context.Context, to, _ string) error {
	m.sent <- to
	return nil
}

type fixture struct {
	users  repository.UserRepository
	tasks  repository.TaskRepository
	tokens *token.Manager
	store  *blacklist.MemoryStore
	mailer *fakeMailer
	hub    *fakePublisher
	auth   AuthService
	task   TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "tms.db"), database.Migrations())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tm, err := token.NewManager(token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err)

	store := blacklist.NewMemoryStore()
	t.Cleanup(store.Close)

	f := &fixture{
		users:  repository.NewSQLiteUserRepo(db.Conn),
		tasks:  repository.NewSQLiteTaskRepo(db.Conn),
		tokens: tm,
		store:  store,
		mailer: &fakeMailer{sent: make(chan string, 10)},
		hub:    &fakePublisher{},
	}
	v := validator.New()
	f.auth = NewAuthService(f.users, tm, store, v, f.mailer)
	f.task = NewTaskService(f.tasks, f.users, f.hub, v)
	return f
}

func (f *fixture) register(t *testing.T, name, email string) *models.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), &models.CreateUserRequest{Name: name, Email: email, Password: "secret123"})
	require.NoError(t, err)
	return u
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.register(t, "Ada", "  Ada@Example.com ")
	require.Equal(t, models.RoleAdmin, first.Role)
	require.Equal(t, "ada@example.com", first.Email)
	require.NotEqual(t, "secret123", first.PasswordHash)

	second, err := f.auth.Register(ctx, &models.CreateUserRequest{
		Name: "Bob", Email: "bob@example.com", Password: "secret123", Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, second.Role)

	select {
	case to := <-f.mailer.sent:
		require.Contains(t, []string{"ada@example.com", "bob@example.com"}, to)
	case <-time.After(2 * time.Second):
		t.Fatal("welcome email was not sent")
	}

	_, err = f.auth.Register(ctx, &models.CreateUserRequest{Name: "Dup", Email: "ADA@example.com", Password: "secret123"})
	require.ErrorIs(t, err, pkg.ErrAlreadyExists)

	_, err = f.auth.Register(ctx, &models.CreateUserRequest{Name: "", Email: "not-an-email", Password: "1"})
	require.ErrorIs(t, err, pkg.ErrBadRequest)
	require.Contains(t, err.Error(), "name is required")
}

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "Ada", "ada@example.com")

	res, err := f.auth.Login(ctx, &models.LoginRequest{Email: "ADA@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, u.ID, res.User.ID)

	access := f.tokens.Verify(res.AccessToken, models.TokenKindAccess)
	require.True(t, access.Valid())
	require.Equal(t, models.Identity{ID: u.ID, Role: models.RoleAdmin}, access.Claims.Identity)
	require.True(t, f.tokens.Verify(res.RefreshToken, models.TokenKindRefresh).Valid())
	require.True(t, res.RefreshExpiresAt.After(res.AccessExpiresAt))

	for _, req := range []*models.LoginRequest{
		{Email: "ada@example.com", Password: "wrong-pass"},
		{Email: "nobody@example.com", Password: "secret123"},
	} {
		_, err := f.auth.Login(ctx, req)
		require.ErrorIs(t, err, pkg.ErrBadRequest)
		require.Contains(t, err.Error(), "Invalid email or password")
	}
}

func TestRefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "Ada", "ada@example.com")

	login, err := f.auth.Login(ctx, &models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := f.auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, login.User.ID, refreshed.Identity.ID)
	require.True(t, f.tokens.Verify(refreshed.AccessToken, models.TokenKindAccess).Valid())

	// Access token refresh olarak kabul edilmez.
	_, err = f.auth.Refresh(ctx, login.AccessToken)
	require.ErrorIs(t, err, pkg.ErrForbidden)

	_, err = f.auth.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, pkg.ErrForbidden)

	require.NoError(t, f.auth.Logout(ctx, login.RefreshToken))
	require.NoError(t, f.auth.Logout(ctx, login.RefreshToken))
	require.NoError(t, f.auth.Logout(ctx, ""))
	require.NoError(t, f.auth.Logout(ctx, "garbage"))

	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, pkg.ErrForbidden)
}

func TestGetAndUpdateUserAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "Admin", "admin@example.com")
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")

	aliceID := models.Identity{ID: alice.ID, Role: alice.Role}
	adminID := models.Identity{ID: admin.ID, Role: admin.Role}

	got, err := f.auth.GetUser(ctx, aliceID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice", got.Name)

	_, err = f.auth.GetUser(ctx, aliceID, bob.ID)
	require.ErrorIs(t, err, pkg.ErrForbidden)

	_, err = f.auth.GetUser(ctx, adminID, bob.ID)
	require.NoError(t, err)

	_, err = f.auth.GetUser(ctx, adminID, "missing")
	require.ErrorIs(t, err, pkg.ErrNotFound)

	name := "Alice Liddell"
	updated, err := f.auth.UpdateUser(ctx, aliceID, alice.ID, &models.UpdateUserRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)

	promote := models.RoleAdmin
	_, err = f.auth.UpdateUser(ctx, aliceID, alice.ID, &models.UpdateUserRequest{Role: &promote})
	require.ErrorIs(t, err, pkg.ErrForbidden)

	updated, err = f.auth.UpdateUser(ctx, adminID, bob.ID, &models.UpdateUserRequest{Role: &promote})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, updated.Role)

	taken := "admin@example.com"
	_, err = f.auth.UpdateUser(ctx, aliceID, alice.ID, &models.UpdateUserRequest{Email: &taken})
	require.ErrorIs(t, err, pkg.ErrAlreadyExists)
}

func TestTaskLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")

	task, err := f.task.Create(ctx, alice.ID, &models.CreateTaskRequest{Title: " Write ", Description: "docs", DueDate: "2026-03-15"})
	require.NoError(t, err)
	require.Equal(t, "Write", task.Title)
	require.Equal(t, models.TaskStatusPending, task.Status)
	require.Equal(t, alice.ID, task.UserID)

	_, err = f.task.Create(ctx, alice.ID, &models.CreateTaskRequest{Title: "x", Description: "y", DueDate: "15/03/2026"})
	require.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = f.task.Create(ctx, alice.ID, &models.CreateTaskRequest{Title: "x", Description: "y", DueDate: "2026-03-16T10:00:00Z", Status: "Done"})
	require.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = f.task.Create(ctx, bob.ID, &models.CreateTaskRequest{Title: "Bob's", Description: "z", DueDate: "2026-03-16T10:00:00+02:00"})
	require.NoError(t, err)

	own, err := f.task.ListOwn(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)

	status := models.TaskStatusCompleted
	updated, err := f.task.Update(ctx, alice.ID, task.ID, &models.UpdateTaskRequest{Status: &status})
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusCompleted, updated.Status)

	_, err = f.task.Update(ctx, bob.ID, task.ID, &models.UpdateTaskRequest{Status: &status})
	require.ErrorIs(t, err, pkg.ErrNotFound)

	all, err := f.task.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, row := range all {
		require.NotNil(t, row.User)
	}
	require.Equal(t, "Alice", all[0].User.Name)
	require.Equal(t, "bob@example.com", all[1].User.Email)

	require.ErrorIs(t, f.task.Delete(ctx, bob.ID, task.ID), pkg.ErrNotFound)
	require.NoError(t, f.task.Delete(ctx, alice.ID, task.ID))

	require.Equal(t, []string{ws.OpTaskCreate, ws.OpTaskCreate, ws.OpTaskUpdate, ws.OpTaskDelete}, f.hub.ops())
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "Alice", "alice@example.com")

	mk := func(title, due string, status models.TaskStatus) {
		_, err := f.task.Create(ctx, u.ID, &models.CreateTaskRequest{Title: title, Description: "d", DueDate: due, Status: status})
		require.NoError(t, err)
	}
	mk("a", "2026-03-15T08:00:00Z", models.TaskStatusPending)
	mk("b", "2026-03-15T23:59:00Z", models.TaskStatusCompleted)
	mk("c", "2026-03-16T00:00:00Z", models.TaskStatusPending)

	byDay, err := f.task.Search(ctx, u.ID, "", "15-03-2026")
	require.NoError(t, err)
	require.Len(t, byDay, 2)

	both, err := f.task.Search(ctx, u.ID, "Pending", "15-03-2026")
	require.NoError(t, err)
	require.Len(t, both, 1)
	require.Equal(t, "a", both[0].Title)

	pending, err := f.task.Search(ctx, u.ID, "Pending", "")
	require.NoError(t, err)
	require.Len(t, pending, 2)

	_, err = f.task.Search(ctx, u.ID, "", "2026-03-15")
	require.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = f.task.Search(ctx, u.ID, "Done", "")
	require.ErrorIs(t, err, pkg.ErrBadRequest)
}
