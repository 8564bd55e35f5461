package logo

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"
)

// DefaultMaxBytes はアップロードされるロゴの最大バイト数（5MB）。
const DefaultMaxBytes = 5 * 1024 * 1024

// DefaultMaxPixels はデコードを許可する最大ピクセル数（約89Mピクセル）。
const DefaultMaxPixels = 1024 * 1024 * 1024 / 4 / 3

// Recorder はロゴ処理のメトリクス記録インターフェース。
type Recorder interface {
	RecordLogoProcessed(duration time.Duration)
	RecordLogoRejected(reason string)
}

// Processor はアップロードされたロゴのデコード・正規化・保存をまとめて行う。
type Processor struct {
	storage   *Storage
	size      int
	maxBytes  int64
	maxPixels int64
	recorder  Recorder
}

// ProcessorConfig はProcessorの設定。
type ProcessorConfig struct {
	Size      int   // 正規化後の一辺のピクセル数（0以下はDefaultSize）
	MaxBytes  int64 // 受け付ける最大バイト数（0以下はDefaultMaxBytes）
	MaxPixels int64 // 幅×高さの上限（0以下はDefaultMaxPixels）
}

// NewProcessor はProcessorを生成する。recorderはnilでもよい。
func NewProcessor(storage *Storage, config ProcessorConfig, recorder Recorder) *Processor {
	if config.Size <= 0 {
		config.Size = DefaultSize
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultMaxBytes
	}
	if config.MaxPixels <= 0 {
		config.MaxPixels = DefaultMaxPixels
	}
	return &Processor{
		storage:   storage,
		size:      config.Size,
		maxBytes:  config.MaxBytes,
		maxPixels: config.MaxPixels,
		recorder:  recorder,
	}
}

// Process はアップロードされた画像を正規化して保存し、保存したファイル名を返す。
// Content-Typeが許可されていない場合はErrUnsupportedType、
// デコード不能、バイト数超過またはピクセル数超過の場合はErrInvalidImageをラップしたエラーを返す。
// ピクセル数はヘッダーだけを読んで検証し、本体のデコード前に拒否する。
// それ以外のエラーはロゴディレクトリへの書き込み失敗を表す。
func (p *Processor) Process(r io.Reader, contentType string) (string, error) {
	start := time.Now()

	if !AllowedContentType(contentType) {
		p.reject("content_type")
		return "", ErrUnsupportedType
	}

	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		p.reject("read")
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if int64(len(data)) > p.maxBytes {
		p.reject("too_large")
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidImage, p.maxBytes)
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		p.reject("decode")
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if pixels := int64(header.Width) * int64(header.Height); pixels > p.maxPixels {
		p.reject("too_many_pixels")
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, header.Width, header.Height, p.maxPixels)
	}

	src, err := Decode(bytes.NewReader(data), contentType)
	if err != nil {
		p.reject("decode")
		return "", err
	}

	name, err := p.storage.Save(Normalize(src, p.size))
	if err != nil {
		return "", err
	}

	if p.recorder != nil {
		p.recorder.RecordLogoProcessed(time.Since(start))
	}
	slog.Info("logo processed",
		slog.String("filename", name),
		slog.Int("source_width", src.Bounds().Dx()),
		slog.Int("source_height", src.Bounds().Dy()),
	)

	return name, nil
}

// Remove は保存済みのロゴを削除する。
func (p *Processor) Remove(name string) error {
	return p.storage.Remove(name)
}

func (p *Processor) reject(reason string) {
	if p.recorder != nil {
		p.recorder.RecordLogoRejected(reason)
	}
}
