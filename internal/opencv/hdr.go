// Package opencv holds the gocv backed image operations: tonemapping float
// radiance buffers into 8-bit images and resampling previews for zoom.
package opencv

import (
	"encoding/binary"
	"fmt"
	"math"

	"pbrt-iile/internal/pfm"

	"gocv.io/x/gocv"
)

// FloatImageToMat copies a PFM raster into a 32-bit float BGR Mat.
// Single channel rasters are expanded to three identical channels.
func FloatImageToMat(img *pfm.Image) (gocv.Mat, error) {
	if img == nil {
		return gocv.NewMat(), fmt.Errorf("input image is nil")
	}

	data := make([]byte, len(img.Pix)*4)
	for i, v := range img.Pix {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}

	matType := gocv.MatTypeCV32FC3
	if img.Channels == 1 {
		matType = gocv.MatTypeCV32FC1
	}

	src, err := gocv.NewMatFromBytes(img.Height, img.Width, matType, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("float Mat creation failed: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	switch img.Channels {
	case 1:
		gocv.CvtColor(src, &dst, gocv.ColorGrayToBGR)
	case 3:
		gocv.CvtColor(src, &dst, gocv.ColorRGBToBGR)
	default:
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("unsupported channel count: %d", img.Channels)
	}

	if dst.Empty() {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("color conversion produced an empty Mat")
	}
	return dst, nil
}

// ToneMap scales radiance by 2^exposure, clamps to [0, 1], applies the
// 1/gamma curve and quantizes to an 8-bit BGR Mat. The caller owns the result.
func ToneMap(src gocv.Mat, exposure, gamma float64) (gocv.Mat, error) {
	if err := validateMat(src, "ToneMap"); err != nil {
		return gocv.NewMat(), err
	}
	if src.Type() != gocv.MatTypeCV32FC3 {
		return gocv.NewMat(), fmt.Errorf("ToneMap requires a 32-bit float BGR Mat, got type %v", src.Type())
	}
	if gamma <= 0 {
		return gocv.NewMat(), fmt.Errorf("gamma must be positive, got %g", gamma)
	}

	work := src.Clone()
	defer work.Close()

	work.MultiplyFloat(float32(math.Exp2(exposure)))

	clampedHigh := gocv.NewMat()
	defer clampedHigh.Close()
	gocv.Threshold(work, &clampedHigh, 1.0, 1.0, gocv.ThresholdTrunc)

	clamped := gocv.NewMat()
	defer clamped.Close()
	gocv.Threshold(clampedHigh, &clamped, 0.0, 1.0, gocv.ThresholdToZero)

	corrected := gocv.NewMat()
	defer corrected.Close()
	gocv.Pow(clamped, 1.0/gamma, &corrected)

	dst := gocv.NewMat()
	corrected.ConvertToWithParams(&dst, gocv.MatTypeCV8UC3, 255.0, 0.0)
	if dst.Empty() {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("8-bit conversion produced an empty Mat")
	}

	return dst, nil
}

// EncodePNG compresses an 8-bit Mat into PNG bytes
func EncodePNG(mat gocv.Mat) ([]byte, error) {
	if err := validateMat(mat, "EncodePNG"); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("PNG encoding failed: %w", err)
	}
	defer buf.Close()

	encoded := buf.GetBytes()
	out := make([]byte, len(encoded))
	copy(out, encoded)
	return out, nil
}

func validateMat(mat gocv.Mat, operation string) error {
	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}
	if mat.Rows() <= 0 || mat.Cols() <= 0 {
		return fmt.Errorf("Mat has invalid dimensions %dx%d for operation: %s",
			mat.Cols(), mat.Rows(), operation)
	}
	return nil
}
