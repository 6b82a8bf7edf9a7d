package tonemap

import (
	"context"
	"fmt"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"pbrt-iile/internal/logger"
	"pbrt-iile/internal/pfm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformImage(t *testing.T, value float32) *pfm.Image {
	t.Helper()
	img, err := pfm.New(4, 4, 3)
	require.NoError(t, err)
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return img
}

func TestAutoExposureMapsToKeyValue(t *testing.T) {
	img := uniformImage(t, 0.72)
	exposure := AutoExposure(img)

	// 0.72 * 2^-2 == 0.18
	assert.InDelta(t, -2.0, exposure, 1e-3)
}

func TestAutoExposureIgnoresInvalidPixels(t *testing.T) {
	img := uniformImage(t, 0.09)
	img.Set(0, 0, 0, float32(math.NaN()))
	img.Set(1, 0, 1, float32(math.Inf(1)))

	assert.InDelta(t, 1.0, AutoExposure(img), 1e-2)
}

func TestAutoExposureBlackImage(t *testing.T) {
	assert.Zero(t, AutoExposure(uniformImage(t, 0)))

	for _, size := range []int{1, 3, 7, 64, 333} {
		img, err := pfm.New(size, size, 3)
		require.NoError(t, err)
		assert.Zero(t, AutoExposure(img), "black %dx%d", size, size)
	}

	gray, err := pfm.New(5, 5, 1)
	require.NoError(t, err)
	assert.Zero(t, AutoExposure(gray))
}

func TestAutoExposureOnlyInvalidPixels(t *testing.T) {
	img := uniformImage(t, float32(math.NaN()))
	img.Set(0, 0, 0, -1)
	assert.Zero(t, AutoExposure(img))
}

func TestAutoExposureDarkImageIsFinite(t *testing.T) {
	exposure := AutoExposure(uniformImage(t, 1e-6))
	assert.False(t, math.IsInf(exposure, 0) || math.IsNaN(exposure))
	assert.Greater(t, exposure, 0.0)
}

func TestJobValidate(t *testing.T) {
	ok := Job{Source: "a.pfm", Destination: "a.png", Gamma: DefaultGamma}
	assert.NoError(t, ok.validate())

	noSource := ok
	noSource.Source = ""
	assert.Error(t, noSource.validate())

	noDest := ok
	noDest.Destination = ""
	assert.Error(t, noDest.validate())

	badGamma := ok
	badGamma.Gamma = 0
	assert.Error(t, badGamma.validate())
}

func TestCommandExpand(t *testing.T) {
	cmd, err := NewCommand(`python3 "tone map.py" {input} --out={output} -e {exposure} -g {gamma}`, logger.NewNop())
	require.NoError(t, err)

	job := Job{Source: "/c/out_direct.pfm", Destination: "/c/out_direct.png", Gamma: 2.2}
	assert.Equal(t, []string{
		"python3", "tone map.py", "/c/out_direct.pfm", "--out=/c/out_direct.png", "-e", "auto", "-g", "2.2",
	}, cmd.Expand(job))

	exposure := -1.5
	job.Exposure = &exposure
	assert.Equal(t, "-1.5", cmd.Expand(job)[5])
}

func TestNewCommandRejectsEmptyTemplate(t *testing.T) {
	_, err := NewCommand("   ", logger.NewNop())
	assert.Error(t, err)

	_, err = NewCommand(`python3 "unterminated`, logger.NewNop())
	assert.Error(t, err)
}

func TestCommandRunsHelper(t *testing.T) {
	t.Setenv("GO_WANT_TONEMAP_HELPER", "1")

	dir := t.TempDir()
	src := filepath.Join(dir, "out_combined.pfm")
	dst := filepath.Join(dir, "out_combined.png")
	require.NoError(t, pfm.WriteFile(src, uniformImage(t, 1)))

	template := fmt.Sprintf("%s -test.run=TestTonemapHelperProcess -- {input} {output} {exposure}", strconv.Quote(os.Args[0]))
	cmd, err := NewCommand(template, logger.NewNop())
	require.NoError(t, err)

	exposure := 0.5
	result, err := cmd.Tonemap(context.Background(), Job{Source: src, Destination: dst, Exposure: &exposure, Gamma: 2.2})
	require.NoError(t, err)
	assert.False(t, result.Auto)
	assert.Equal(t, 0.5, result.Exposure)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "tonemapped "+src+" 0.5", string(data))
}

func TestCommandReportsFailure(t *testing.T) {
	t.Setenv("GO_WANT_TONEMAP_HELPER", "1")

	template := fmt.Sprintf("%s -test.run=TestTonemapHelperProcess -- fail", strconv.Quote(os.Args[0]))
	cmd, err := NewCommand(template, logger.NewNop())
	require.NoError(t, err)

	_, err = cmd.Tonemap(context.Background(), Job{Source: "a.pfm", Destination: "a.png", Gamma: 2.2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "helper asked to fail")
}

// TestTonemapHelperProcess stands in for an external tonemapping program
func TestTonemapHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_TONEMAP_HELPER") != "1" {
		return
	}

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}

	if len(args) == 1 && args[0] == "fail" {
		fmt.Fprint(os.Stderr, "helper asked to fail")
		os.Exit(3)
	}
	if len(args) != 3 {
		os.Exit(2)
	}

	if err := os.WriteFile(args[1], []byte("tonemapped "+args[0]+" "+args[2]), 0o644); err != nil {
		os.Exit(4)
	}
	os.Exit(0)
}

func TestOpenCVTonemapWritesPNG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "out_indirect.pfm")
	dst := filepath.Join(dir, "out_indirect.png")
	require.NoError(t, pfm.WriteFile(src, uniformImage(t, 0.72)))

	tm := NewOpenCV(logger.NewNop())
	result, err := tm.Tonemap(context.Background(), Job{Source: src, Destination: dst, Gamma: DefaultGamma})
	require.NoError(t, err)

	assert.True(t, result.Auto)
	assert.InDelta(t, -2.0, result.Exposure, 1e-3)
	assert.Equal(t, 4, result.Width)
	assert.Equal(t, 4, result.Height)

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestOpenCVTonemapMissingSource(t *testing.T) {
	dir := t.TempDir()
	tm := NewOpenCV(logger.NewNop())

	_, err := tm.Tonemap(context.Background(), Job{
		Source:      filepath.Join(dir, "out_combined.pfm"),
		Destination: filepath.Join(dir, "out_combined.png"),
		Gamma:       DefaultGamma,
	})
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "out_combined.png"))
}
