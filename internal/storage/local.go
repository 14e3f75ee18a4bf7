// Package storage は商品画像のファイル保存を提供する。
package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hitoshi/bakery/internal/model"
)

// DefaultMaxSize は画像の最大サイズ（5MB）。
const DefaultMaxSize = 5 * 1024 * 1024

// productsPrefix は商品画像の保存先プレフィックス。
const productsPrefix = "products"

// imageExtensions は許可する画像のMIMEタイプと拡張子。
var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ImageStore は画像保存のインターフェース。
type ImageStore interface {
	// Save は画像を保存し、公開URLを返す。
	Save(ctx context.Context, r io.Reader) (string, error)
}

// LocalStore はローカルディレクトリに画像を保存するImageStoreの実装。
type LocalStore struct {
	dir     string
	baseURL string
	maxSize int64
	now     func() time.Time
}

// NewLocalStore はLocalStoreを生成する。dir配下にproductsディレクトリを作成する。
func NewLocalStore(dir, baseURL string, maxSize int64) (*LocalStore, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(filepath.Join(dir, productsPrefix), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		now:     time.Now,
	}, nil
}

// Dir は保存先のルートディレクトリを返す。
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save は画像を products/<unixミリ秒>-<ランダム>.<拡張子> として保存する。
// 形式は内容から判定し、既存ファイルは上書きしない。
func (s *LocalStore) Save(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return "", model.NewInvalidImageError("archivo vacío")
	}
	if int64(len(data)) > s.maxSize {
		return "", model.NewInvalidImageError("supera el tamaño máximo")
	}

	ext, ok := DetectImageExt(data)
	if !ok {
		return "", model.NewInvalidImageError("formato no soportado")
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := s.objectName(ext)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(filepath.Join(s.dir, filepath.FromSlash(name)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("image already exists: %s", name)
		}
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close image file: %w", err)
	}

	slog.Info("product image stored", slog.String("object", name), slog.Int("size", len(data)))
	return s.baseURL + "/" + name, nil
}

func (s *LocalStore) objectName(ext string) (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate image name: %w", err)
	}
	return path.Join(productsPrefix, fmt.Sprintf("%d-%s.%s", s.now().UnixMilli(), hex.EncodeToString(b), ext)), nil
}

// DetectImageExt は内容から画像形式を判定し、拡張子を返す。
func DetectImageExt(data []byte) (string, bool) {
	mime := http.DetectContentType(data)
	ext, ok := imageExtensions[mime]
	return ext, ok
}

// compile-time interface check
var _ ImageStore = (*LocalStore)(nil)
