package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/startupnetwork/internal/middleware"
	"github.com/hitoshi/startupnetwork/internal/model"
	"github.com/hitoshi/startupnetwork/internal/startup"
)

// multipartMaxMemory を超えるアップロードは一時ファイルに退避される。
const multipartMaxMemory = 8 << 20

// StartupServiceInterface はスタートアップハンドラーが必要とするサービスインターフェース。
type StartupServiceInterface interface {
	List(ctx context.Context, filter startup.Filter) ([]model.Startup, error)
	Get(ctx context.Context, id string) (*model.Startup, error)
	Create(ctx context.Context, actor model.Actor, in startup.Input, upload *startup.Upload) (*model.Startup, error)
	Update(ctx context.Context, actor model.Actor, id string, in startup.Input, upload *startup.Upload) (*model.Startup, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
	UpdatePosition(ctx context.Context, actor model.Actor, id string, pos model.Position) error
}

// StartupHandler はスタートアップ管理のHTTPハンドラー。
type StartupHandler struct {
	service StartupServiceInterface
}

// NewStartupHandler はStartupHandlerを生成する。
func NewStartupHandler(service StartupServiceInterface) *StartupHandler {
	return &StartupHandler{service: service}
}

// positionRequest は位置更新リクエストのボディ。
// 省略された座標は0として扱う。
type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ListStartups はスタートアップ一覧を返す。
// GET /api/startups?search=&field=
func (h *StartupHandler) ListStartups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	startups, err := h.service.List(r.Context(), startup.Filter{
		Search: q.Get("search"),
		Field:  q.Get("field"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if startups == nil {
		startups = []model.Startup{}
	}
	writeJSON(w, http.StatusOK, startups)
}

// GetStartup はスタートアップ詳細を返す。
// GET /api/startups/{id}
func (h *StartupHandler) GetStartup(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CreateStartup はmultipartフォームからスタートアップを登録する。
// POST /api/startups
func (h *StartupHandler) CreateStartup(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	in, upload, closeUpload, ok := parseStartupForm(w, r)
	if !ok {
		return
	}
	defer closeUpload()

	st, err := h.service.Create(r.Context(), actor, in, upload)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// UpdateStartup はスタートアップを更新する。所有者または管理者のみ。
// PUT /api/startups/{id}
func (h *StartupHandler) UpdateStartup(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	in, upload, closeUpload, ok := parseStartupForm(w, r)
	if !ok {
		return
	}
	defer closeUpload()

	st, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), in, upload)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeleteStartup はスタートアップを削除する。管理者のみ。
// DELETE /api/startups/{id}
func (h *StartupHandler) DeleteStartup(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdatePosition はマップ上の位置を更新する。所有者または管理者のみ。
// POST /api/startups/{id}/position
func (h *StartupHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}

	pos, ok := decodePosition(w, r)
	if !ok {
		return
	}

	if err := h.service.UpdatePosition(r.Context(), actor, chi.URLParam(r, "id"), pos); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOK)
}

// parseStartupForm はフォーム値とロゴファイルを読み取る。
// 失敗した場合はエラーレスポンスを書き込みokにfalseを返す。
// 戻り値のcloseはロゴファイルを閉じる関数で、常に呼び出してよい。
func parseStartupForm(w http.ResponseWriter, r *http.Request) (in startup.Input, upload *startup.Upload, closeFn func(), ok bool) {
	closeFn = func() {}

	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			writeFormError(w, r, err)
			return in, nil, closeFn, false
		}
		// multipart以外（application/x-www-form-urlencoded）も受け付ける
		if err := r.ParseForm(); err != nil {
			writeFormError(w, r, err)
			return in, nil, closeFn, false
		}
	}

	in = startup.Input{
		StartupName:           r.PostFormValue("startupName"),
		GoalOneSentence:       r.PostFormValue("goalOneSentence"),
		WebsiteURL:            r.PostFormValue("websiteUrl"),
		CanvasIdeaDescription: r.PostFormValue("canvasIdeaDescription"),
		Fields:                r.PostForm["fields"],
		FounderName:           r.PostFormValue("founder_name"),
		FounderLinkedin:       r.PostFormValue("founder_linkedin"),
		CofounderName:         r.PostFormValue("cofounder_name"),
		CofounderLinkedin:     r.PostFormValue("cofounder_linkedin"),
	}

	file, header, err := r.FormFile("logo")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, nil, closeFn, true
	case err != nil:
		writeFormError(w, r, err)
		return in, nil, closeFn, false
	}

	if isEmptyFilePart(header) {
		file.Close()
		return in, nil, closeFn, true
	}

	upload = &startup.Upload{
		Reader:      file,
		ContentType: header.Header.Get("Content-Type"),
	}
	return in, upload, func() { file.Close() }, true
}

// isEmptyFilePart はファイル未選択で送信されたフォームの空パートかを判定する。
func isEmptyFilePart(header *multipart.FileHeader) bool {
	return header.Filename == "" && header.Size == 0
}

// writeFormError はフォーム解析エラーを書き込む。
func writeFormError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewInvalidRequestError("request body too large"))
		return
	}
	handleServiceError(w, r, model.NewInvalidRequestError("malformed form data"))
}

// decodePosition は位置更新リクエストのJSONを読み取る。
func decodePosition(w http.ResponseWriter, r *http.Request) (model.Position, bool) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		handleServiceError(w, r, model.NewInvalidRequestError("position must be a JSON object with numeric x and y"))
		return model.Position{}, false
	}
	return model.Position{X: req.X, Y: req.Y}, true
}
