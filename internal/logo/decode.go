package logo

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime"
	"strings"

	// PNG以外のデコーダを登録する（PNGはimage/pngのimportで登録される）
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedType はContent-Typeが許可リストに含まれない場合に返される。
	ErrUnsupportedType = errors.New("logo must be PNG, JPG, or WebP")
	// ErrInvalidImage は画像のデコードに失敗した場合やサイズ上限を超えた場合に返される。
	ErrInvalidImage = errors.New("invalid logo image")
)

// allowedContentTypes はアップロードを受け付けるMIMEタイプ。
var allowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
}

// AllowedContentType はContent-Typeがロゴとして受け付け可能かを判定する。
// パラメータ（charset等）は無視し、大文字小文字を区別しない。
func AllowedContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return allowedContentTypes[strings.ToLower(mediaType)]
}

// Decode はContent-Typeを検証したうえで画像をデコードする。
func Decode(r io.Reader, contentType string) (image.Image, error) {
	if !AllowedContentType(contentType) {
		return nil, ErrUnsupportedType
	}

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// EncodePNG は画像をPNG形式で書き出す。
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	return enc.Encode(w, img)
}
