package document

import (
	"context"
	"encoding/base64"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gwh-ap/invoice-agent/internal/common"
)

// ImageStore treats a single image file as a one-page document. Text is not
// available; callers fall through to the vision path.
type ImageStore struct{}

func NewImageStore() *ImageStore {
	return &ImageStore{}
}

func (s *ImageStore) PageCount(ctx context.Context, path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, common.WrapError(err, "stat image")
	}
	return 1, nil
}

func (s *ImageStore) PageText(ctx context.Context, path string, page int) (string, error) {
	return "", common.NewAppError("NO_TEXT_LAYER",
		"image documents have no text layer", common.ErrDocument)
}

func (s *ImageStore) PageImage(ctx context.Context, path string, page int) (string, error) {
	if page != 1 {
		return "", common.InvalidArgumentErrorf("image documents have a single page, got %d", page)
	}
	dataURL, _, err := readAsDataURL(path)
	if err != nil {
		return "", common.WrapError(err, "encode image")
	}
	return dataURL, nil
}

func readAsDataURL(path string) (string, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		// fallbacks
		switch ext {
		case "jpg", "jpeg":
			mt = "image/jpeg"
		case "png":
			mt = "image/png"
		default:
			mt = "application/octet-stream"
		}
	}
	data := base64.StdEncoding.EncodeToString(b)
	return "data:" + mt + ";base64," + data, mt, nil
}
