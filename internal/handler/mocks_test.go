package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/startupnetwork/internal/middleware"
	"github.com/hitoshi/startupnetwork/internal/model"
	"github.com/hitoshi/startupnetwork/internal/startup"
)

// --- AuthServiceInterface ---

type mockAuthService struct {
	loginFn        func(ctx context.Context, username, password string) (*model.Session, error)
	startSessionFn func(username string) (*model.Session, error)
	logoutFn       func(ctx context.Context, sessionID string) error
	currentUserFn  func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.Session, error) {
	return m.loginFn(ctx, username, password)
}

func (m *mockAuthService) StartSession(username string) (*model.Session, error) {
	return m.startSessionFn(username)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	return m.logoutFn(ctx, sessionID)
}

func (m *mockAuthService) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	return m.currentUserFn(ctx, sessionID)
}

// --- SignupServiceInterface ---

type mockSignupService struct {
	signupFn func(ctx context.Context, username, password, email string) (*model.User, error)
}

func (m *mockSignupService) Signup(ctx context.Context, username, password, email string) (*model.User, error) {
	return m.signupFn(ctx, username, password, email)
}

// --- StartupServiceInterface ---

type mockStartupService struct {
	listFn           func(ctx context.Context, filter startup.Filter) ([]model.Startup, error)
	getFn            func(ctx context.Context, id string) (*model.Startup, error)
	createFn         func(ctx context.Context, actor model.Actor, in startup.Input, upload *startup.Upload) (*model.Startup, error)
	updateFn         func(ctx context.Context, actor model.Actor, id string, in startup.Input, upload *startup.Upload) (*model.Startup, error)
	deleteFn         func(ctx context.Context, actor model.Actor, id string) error
	updatePositionFn func(ctx context.Context, actor model.Actor, id string, pos model.Position) error
}

func (m *mockStartupService) List(ctx context.Context, filter startup.Filter) ([]model.Startup, error) {
	return m.listFn(ctx, filter)
}

func (m *mockStartupService) Get(ctx context.Context, id string) (*model.Startup, error) {
	return m.getFn(ctx, id)
}

func (m *mockStartupService) Create(ctx context.Context, actor model.Actor, in startup.Input, upload *startup.Upload) (*model.Startup, error) {
	return m.createFn(ctx, actor, in, upload)
}

func (m *mockStartupService) Update(ctx context.Context, actor model.Actor, id string, in startup.Input, upload *startup.Upload) (*model.Startup, error) {
	return m.updateFn(ctx, actor, id, in, upload)
}

func (m *mockStartupService) Delete(ctx context.Context, actor model.Actor, id string) error {
	return m.deleteFn(ctx, actor, id)
}

func (m *mockStartupService) UpdatePosition(ctx context.Context, actor model.Actor, id string, pos model.Position) error {
	return m.updatePositionFn(ctx, actor, id, pos)
}

// --- FieldServiceInterface ---

type mockFieldService struct {
	listFn           func(ctx context.Context) ([]model.Field, error)
	updatePositionFn func(ctx context.Context, actor model.Actor, name string, pos model.Position) error
}

func (m *mockFieldService) List(ctx context.Context) ([]model.Field, error) {
	return m.listFn(ctx)
}

func (m *mockFieldService) UpdatePosition(ctx context.Context, actor model.Actor, name string, pos model.Position) error {
	return m.updatePositionFn(ctx, actor, name, pos)
}

// --- ヘルパー ---

// withActor はリクエストに操作者を注入する。
func withActor(r *http.Request, actor model.Actor) *http.Request {
	return r.WithContext(middleware.ContextWithActor(r.Context(), actor))
}

// withURLParams はchiのURLパラメータをリクエストに設定する。
func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeError はエラーレスポンスのボディを読み取る。
func decodeError(t *testing.T, body []byte) middleware.ErrorResponseBody {
	t.Helper()
	var resp middleware.ErrorResponseBody
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("failed to decode error body %q: %v", string(body), err)
	}
	return resp
}
