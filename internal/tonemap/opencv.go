package tonemap

import (
	"context"
	"fmt"
	"time"

	"pbrt-iile/internal/logger"
	"pbrt-iile/internal/opencv"
	"pbrt-iile/internal/pfm"
)

// OpenCV tonemaps in process with gocv
type OpenCV struct {
	logger logger.Logger
}

func NewOpenCV(log logger.Logger) *OpenCV {
	return &OpenCV{logger: log}
}

func (o *OpenCV) Tonemap(ctx context.Context, job Job) (Result, error) {
	if err := job.validate(); err != nil {
		return Result{}, err
	}

	start := time.Now()

	img, err := pfm.ReadFile(job.Source)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load float buffer: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	result := Result{
		Destination: job.Destination,
		Width:       img.Width,
		Height:      img.Height,
	}
	if job.Exposure == nil {
		result.Auto = true
		result.Exposure = AutoExposure(img)
	} else {
		result.Exposure = *job.Exposure
	}

	mat, err := opencv.FloatImageToMat(img)
	if err != nil {
		return Result{}, err
	}
	defer mat.Close()

	ldr, err := opencv.ToneMap(mat, result.Exposure, job.Gamma)
	if err != nil {
		return Result{}, err
	}
	defer ldr.Close()

	data, err := opencv.EncodePNG(ldr)
	if err != nil {
		return Result{}, err
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if err := writeFileAtomic(job.Destination, data); err != nil {
		return Result{}, err
	}

	result.Duration = time.Since(start)

	o.logger.Debug("Tonemapper", "tonemap completed", map[string]interface{}{
		"source":      job.Source,
		"exposure":    result.Exposure,
		"auto":        result.Auto,
		"duration_ms": result.Duration.Milliseconds(),
	})

	return result, nil
}
