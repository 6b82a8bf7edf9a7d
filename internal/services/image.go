package services

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"
	"time"

	"pbrt-iile/internal/logger"

	"github.com/disintegration/imaging"
)

// PreviewImage is a decoded tonemapped buffer ready for display
type PreviewImage struct {
	Image    image.Image
	Path     string
	Width    int
	Height   int
	FileSize int64
	LoadTime time.Time
}

// ImageService loads tonemapped previews and exports them
type ImageService struct {
	logger logger.Logger
}

// NewImageService creates a new image service
func NewImageService(log logger.Logger) *ImageService {
	return &ImageService{logger: log}
}

// LoadPreview decodes the PNG at path
func (is *ImageService) LoadPreview(path string) (*PreviewImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preview: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat preview: %w", err)
	}

	img, err := png.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to decode preview %s: %w", path, err)
	}

	bounds := img.Bounds()
	return &PreviewImage{
		Image:    img,
		Path:     path,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		FileSize: info.Size(),
		LoadTime: time.Now(),
	}, nil
}

// Export writes the preview PNG at src to dst. PNG destinations receive the
// file unchanged; other supported extensions are re-encoded.
func (is *ImageService) Export(ctx context.Context, src string, dst io.Writer, ext string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	ext = strings.ToLower(ext)
	if ext == "" || ext == ".png" {
		return is.copyFile(src, dst)
	}

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return fmt.Errorf("unsupported export format %q: %w", ext, err)
	}

	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open preview: %w", err)
	}

	if err := imaging.Encode(dst, img, format, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}

	is.logger.Info("ImageService", "preview exported", map[string]interface{}{
		"source": src,
		"format": format.String(),
	})
	return nil
}

func (is *ImageService) copyFile(src string, dst io.Writer) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open preview: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(dst, f)
	if err != nil {
		return fmt.Errorf("failed to copy preview: %w", err)
	}

	is.logger.Info("ImageService", "preview exported", map[string]interface{}{
		"source": src,
		"bytes":  n,
		"format": "PNG",
	})
	return nil
}
