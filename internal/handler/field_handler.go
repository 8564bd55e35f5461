package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/startupnetwork/internal/model"
)

// FieldServiceInterface は分野ハンドラーが必要とするサービスインターフェース。
type FieldServiceInterface interface {
	List(ctx context.Context) ([]model.Field, error)
	UpdatePosition(ctx context.Context, actor model.Actor, name string, pos model.Position) error
}

// FieldHandler は分野（タクソノミー）のHTTPハンドラー。
type FieldHandler struct {
	service FieldServiceInterface
}

// NewFieldHandler はFieldHandlerを生成する。
func NewFieldHandler(service FieldServiceInterface) *FieldHandler {
	return &FieldHandler{service: service}
}

// ListFields は分野一覧を返す。
// GET /api/fields
func (h *FieldHandler) ListFields(w http.ResponseWriter, r *http.Request) {
	fields, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if fields == nil {
		fields = []model.Field{}
	}
	writeJSON(w, http.StatusOK, fields)
}

// UpdatePosition は分野の重心を移動する。管理者のみ。
// POST /api/fields/{name}/position
func (h *FieldHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	pos, ok := decodePosition(w, r)
	if !ok {
		return
	}

	if err := h.service.UpdatePosition(r.Context(), actor, chi.URLParam(r, "name"), pos); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOK)
}
