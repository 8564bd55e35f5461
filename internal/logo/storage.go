package logo

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hitoshi/startupnetwork/internal/idgen"
)

// fileExt は保存するロゴファイルの拡張子。
const fileExt = ".png"

// ErrInvalidFilename はロゴディレクトリ外を指すファイル名や、
// 保存済みロゴ以外（書き込み中の一時ファイル等）の名前が渡された場合に返される。
var ErrInvalidFilename = errors.New("invalid logo filename")

// FileInfo はロゴディレクトリ内のファイル情報。
type FileInfo struct {
	Name    string
	ModTime time.Time
}

// Storage はロゴ画像を保存するディレクトリを管理する。
// ファイル名はランダムに生成するため、同時書き込みに排他制御は不要。
type Storage struct {
	dir string
}

// NewStorage はロゴディレクトリを作成し、Storageを返す。
func NewStorage(dir string) (*Storage, error) {
	if dir == "" {
		return nil, fmt.Errorf("logo directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logo directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir はロゴディレクトリのパスを返す。
func (s *Storage) Dir() string {
	return s.dir
}

// Save は画像をPNGとして新しいランダムなファイル名で保存し、ファイル名を返す。
// 一時ファイルに書き出してからrenameするため、読み手が書きかけのファイルを見ることはない。
func (s *Storage) Save(img image.Image) (string, error) {
	id, err := idgen.NewID(idgen.LogoNameBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate logo filename: %w", err)
	}
	name := id + fileExt

	tmp, err := os.CreateTemp(s.dir, id+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp logo file: %w", err)
	}
	tmpName := tmp.Name()

	if err := EncodePNG(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to encode logo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close temp logo file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to store logo: %w", err)
	}

	return name, nil
}

// Remove はロゴファイルを削除する。ファイルが存在しない場合はエラーにしない。
func (s *Storage) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove logo %s: %w", name, err)
	}
	return nil
}

// Path はファイル名からロゴファイルのパスを返す。
// ディレクトリ区切りや".."を含む名前と、拡張子が.pngでない名前は拒否する。
func (s *Storage) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return filepath.Join(s.dir, name), nil
}

// List はロゴディレクトリ内の保存済みロゴファイルを返す。
// 一時ファイルやサブディレクトリは含まない。
func (s *Storage) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read logo directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// 列挙中に削除されたファイルは無視する
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), ModTime: info.ModTime()})
	}
	return files, nil
}
