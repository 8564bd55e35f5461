package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/startupnetwork/internal/model"
)

func TestFieldHandler_ListFields(t *testing.T) {
	svc := &mockFieldService{
		listFn: func(ctx context.Context) ([]model.Field, error) {
			return []model.Field{{Name: "Data", Color: "#06B6D4", X: 50, Y: 50}}, nil
		},
	}
	h := NewFieldHandler(svc)

	w := httptest.NewRecorder()
	h.ListFields(w, httptest.NewRequest(http.MethodGet, "/api/fields", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var fields []model.Field
	json.NewDecoder(w.Body).Decode(&fields)
	if len(fields) != 1 || fields[0].Name != "Data" {
		t.Errorf("fields = %+v", fields)
	}
}

func TestFieldHandler_ListFields_StorageError(t *testing.T) {
	svc := &mockFieldService{
		listFn: func(ctx context.Context) ([]model.Field, error) {
			return nil, errors.New("corrupt")
		},
	}
	h := NewFieldHandler(svc)

	w := httptest.NewRecorder()
	h.ListFields(w, httptest.NewRequest(http.MethodGet, "/api/fields", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestFieldHandler_UpdatePosition(t *testing.T) {
	tests := []struct {
		name       string
		actor      model.Actor
		field      string
		wantStatus int
	}{
		{name: "管理者", actor: model.Actor{Username: "admin", IsAdmin: true}, field: "Data", wantStatus: http.StatusOK},
		{name: "一般ユーザー", actor: model.Actor{Username: "alice"}, field: "Data", wantStatus: http.StatusForbidden},
		{name: "存在しない分野", actor: model.Actor{Username: "admin", IsAdmin: true}, field: "Space", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPos model.Position
			svc := &mockFieldService{
				updatePositionFn: func(ctx context.Context, actor model.Actor, name string, pos model.Position) error {
					if !actor.IsAdmin {
						return model.NewForbiddenError("Admin access required")
					}
					if name != "Data" {
						return model.NewFieldNotFoundError(name)
					}
					gotPos = pos
					return nil
				},
			}
			h := NewFieldHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/fields/"+tt.field+"/position", strings.NewReader(`{"x":30,"y":40}`))
			w := httptest.NewRecorder()
			h.UpdatePosition(w, withURLParams(withActor(req, tt.actor), "name", tt.field))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && gotPos != (model.Position{X: 30, Y: 40}) {
				t.Errorf("pos = %+v", gotPos)
			}
		})
	}
}

func TestFieldHandler_UpdatePosition_Unauthenticated(t *testing.T) {
	h := NewFieldHandler(&mockFieldService{})

	req := httptest.NewRequest(http.MethodPost, "/api/fields/Data/position", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.UpdatePosition(w, withURLParams(req, "name", "Data"))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
