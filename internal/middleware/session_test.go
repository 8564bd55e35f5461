package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/startupnetwork/internal/model"
)

// --- モック定義 ---

type mockSessionResolver struct {
	currentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockSessionResolver) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, sessionID)
	}
	return nil, nil
}

func resolverFor(sessionID string, user model.User) *mockSessionResolver {
	return &mockSessionResolver{
		currentUserFn: func(_ context.Context, id string) (*model.User, error) {
			if id == sessionID {
				return &user, nil
			}
			return nil, nil
		},
	}
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsActor(t *testing.T) {
	mw := NewSessionMiddleware(resolverFor("valid-session-id", model.User{Username: "alice", IsAdmin: true}))

	var captured model.Actor
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			t.Error("expected actor in context")
		}
		captured = actor
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-session-id"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured != (model.Actor{Username: "alice", IsAdmin: true}) {
		t.Errorf("actor = %+v, want admin alice", captured)
	}
}

func TestSessionMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		cookie     *http.Cookie
		resolver   *mockSessionResolver
		wantStatus int
	}{
		{
			name:       "Cookieなし",
			resolver:   &mockSessionResolver{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "空のCookie",
			cookie:     &http.Cookie{Name: SessionCookieName, Value: ""},
			resolver:   &mockSessionResolver{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "無効なセッション",
			cookie:     &http.Cookie{Name: SessionCookieName, Value: "expired"},
			resolver:   resolverFor("other", model.User{Username: "alice"}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "解決時のエラー",
			cookie: &http.Cookie{Name: SessionCookieName, Value: "any"},
			resolver: &mockSessionResolver{
				currentUserFn: func(context.Context, string) (*model.User, error) {
					return nil, errors.New("store unavailable")
				},
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSessionMiddleware(tt.resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/startups", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

func TestActorFromContext_Empty(t *testing.T) {
	if _, ok := ActorFromContext(context.Background()); ok {
		t.Error("ActorFromContext() ok = true on empty context")
	}
	ctx := ContextWithActor(context.Background(), model.Actor{})
	if _, ok := ActorFromContext(ctx); ok {
		t.Error("ActorFromContext() ok = true for anonymous actor")
	}
}
