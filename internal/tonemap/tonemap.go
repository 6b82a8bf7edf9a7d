package tonemap

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"pbrt-iile/internal/pfm"
)

const (
	DefaultGamma = 2.2
	// KeyValue is the middle grey target for automatic exposure
	KeyValue = 0.18
)

// Job describes one conversion of a float buffer into a displayable PNG
type Job struct {
	Source      string
	Destination string
	// Exposure in stops; nil selects automatic exposure
	Exposure *float64
	Gamma    float64
}

// Result reports what a tonemap run produced
type Result struct {
	Destination string
	Exposure    float64
	Auto        bool
	Width       int
	Height      int
	Duration    time.Duration
}

// Tonemapper converts float buffers into PNG files
type Tonemapper interface {
	Tonemap(ctx context.Context, job Job) (Result, error)
}

func (j Job) validate() error {
	if j.Source == "" {
		return fmt.Errorf("tonemap job has no source")
	}
	if j.Destination == "" {
		return fmt.Errorf("tonemap job has no destination")
	}
	if j.Gamma <= 0 {
		return fmt.Errorf("gamma must be positive, got %g", j.Gamma)
	}
	return nil
}

// AutoExposure returns the exposure in stops that maps the log-average
// luminance of img onto KeyValue. Images without positive finite pixels get 0.
func AutoExposure(img *pfm.Image) float64 {
	const delta = 1e-4

	var sum float64
	var count int
	lit := false
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			l := img.Luminance(x, y)
			if math.IsNaN(l) || math.IsInf(l, 0) || l < 0 {
				continue
			}
			if l > 0 {
				lit = true
			}
			sum += math.Log(delta + l)
			count++
		}
	}
	// exp(log(delta)) need not round back to delta, so a black frame is
	// detected from the pixels rather than from the average
	if !lit {
		return 0
	}

	logAverage := math.Exp(sum / float64(count))
	return math.Log2(KeyValue / logAverage)
}

// writeFileAtomic replaces path so readers never observe a partial PNG
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
