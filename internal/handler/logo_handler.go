package handler

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/startupnetwork/internal/middleware"
	"github.com/hitoshi/startupnetwork/internal/model"
)

// logoCacheControl はロゴ配信のキャッシュ指定。
// ファイル名は保存ごとにランダムに決まるため、内容が変わることはない。
const logoCacheControl = "public, max-age=31536000, immutable"

// LogoLocator はロゴファイル名を配信用の絶対パスに解決するインターフェース。
// logo.Storageが実装する。
type LogoLocator interface {
	Path(name string) (string, error)
}

// LogoHandler は正規化済みロゴ画像を配信するHTTPハンドラー。
type LogoHandler struct {
	logos LogoLocator
}

// NewLogoHandler はLogoHandlerを生成する。
func NewLogoHandler(logos LogoLocator) *LogoHandler {
	return &LogoHandler{logos: logos}
}

// ServeLogo はロゴ画像を返す。
// GET /data/logos/{file}
func (h *LogoHandler) ServeLogo(w http.ResponseWriter, r *http.Request) {
	path, err := h.logos.Path(chi.URLParam(r, "file"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewLogoNotFoundError())
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewLogoNotFoundError())
			return
		}
		handleServiceError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", logoCacheControl)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
