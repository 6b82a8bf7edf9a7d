package pfm

import (
	"bytes"
	"encoding/binary"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFlipsRowsAndHonoursEndianness(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("Pf\n2 2\n1.0\n")
	// Big endian, bottom row first
	for _, v := range []float32{3, 4, 1, 2} {
		require.NoError(t, binary.Write(&buf, binary.BigEndian, v))
	}

	img, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, 1, img.Channels)
	assert.Equal(t, float32(1), img.At(0, 0, 0))
	assert.Equal(t, float32(2), img.At(1, 0, 0))
	assert.Equal(t, float32(3), img.At(0, 1, 0))
	assert.Equal(t, float32(4), img.At(1, 1, 0))
}

func TestEncodeDecodeRGB(t *testing.T) {
	img, err := New(3, 2, 3)
	require.NoError(t, err)
	for i := range img.Pix {
		img.Pix[i] = float32(i) * 0.5
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))
	assert.True(t, strings.HasPrefix(buf.String(), "PF\n3 2\n-1\n"))

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img, decoded)
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"identifier": "P6\n1 1\n-1\n",
		"dimensions": "PF\n1\n-1\n",
		"width":      "PF\nx 1\n-1\n",
		"scale":      "PF\n1 1\nzero\n",
		"truncated":  "PF\n2 2\n-1\n\x00\x00",
		"empty":      "",
		"overflow":   "PF\n2147483648 2147483648\n-1\n\x00\x00\x00\x00",
		"negative":   "Pf\n-4 4\n-1\n",
		"oversized":  "Pf\n65536 65536\n-1\n\x00\x00\x00\x00",
		"short body": "PF\n4096 4096\n-1\n\x00\x00\x00\x00",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(input))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestLuminanceAndRGB(t *testing.T) {
	img, err := New(1, 1, 3)
	require.NoError(t, err)
	img.Set(0, 0, 0, 1)
	img.Set(0, 0, 1, 1)
	img.Set(0, 0, 2, 1)
	assert.InDelta(t, 1.0, img.Luminance(0, 0), 1e-9)

	gray, err := New(1, 1, 1)
	require.NoError(t, err)
	gray.Set(0, 0, 0, 0.25)
	r, g, b := gray.RGB(0, 0)
	assert.Equal(t, []float32{0.25, 0.25, 0.25}, []float32{r, g, b})
}

func TestNewRejectsBadShapes(t *testing.T) {
	_, err := New(0, 4, 3)
	assert.ErrorIs(t, err, ErrFormat)
	_, err = New(4, 4, 2)
	assert.ErrorIs(t, err, ErrFormat)
	_, err = New(1<<16, 1<<16, 3)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out_combined.pfm")
	img, err := New(2, 1, 3)
	require.NoError(t, err)
	img.Pix[0] = float32(math.Pi)

	require.NoError(t, WriteFile(path, img))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, got.Pix)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.pfm"))
	assert.Error(t, err)
}
