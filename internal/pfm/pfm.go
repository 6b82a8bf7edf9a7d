// Package pfm reads and writes Portable Float Map images, the format pbrt
// uses for its intermediate radiance buffers.
package pfm

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrFormat is returned for input that is not a valid PFM stream
var ErrFormat = errors.New("pfm: invalid format")

// MaxSamples caps width*height*channels, 1 GiB of float32 samples
const MaxSamples = 1 << 28

// Image is a floating point raster with rows stored top to bottom
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []float32
}

// New allocates a zeroed image with 1 or 3 channels
func New(width, height, channels int) (*Image, error) {
	if err := checkShape(width, height, channels); err != nil {
		return nil, err
	}

	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float32, width*height*channels),
	}, nil
}

func checkShape(width, height, channels int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrFormat, width, height)
	}
	if channels != 1 && channels != 3 {
		return fmt.Errorf("%w: unsupported channel count %d", ErrFormat, channels)
	}
	if width > MaxSamples/channels/height {
		return fmt.Errorf("%w: dimensions %dx%d exceed %d samples", ErrFormat, width, height, MaxSamples)
	}
	return nil
}

func (im *Image) offset(x, y int) int {
	return (y*im.Width + x) * im.Channels
}

// At returns channel c of the pixel at (x, y)
func (im *Image) At(x, y, c int) float32 {
	return im.Pix[im.offset(x, y)+c]
}

func (im *Image) Set(x, y, c int, v float32) {
	im.Pix[im.offset(x, y)+c] = v
}

// RGB returns the pixel as three channels, replicating single channel images
func (im *Image) RGB(x, y int) (r, g, b float32) {
	i := im.offset(x, y)
	if im.Channels == 1 {
		v := im.Pix[i]
		return v, v, v
	}
	return im.Pix[i], im.Pix[i+1], im.Pix[i+2]
}

// Luminance returns the Rec. 709 luminance of the pixel at (x, y)
func (im *Image) Luminance(x, y int) float64 {
	r, g, b := im.RGB(x, y)
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

// Decode reads a PFM stream
func Decode(r io.Reader) (*Image, error) {
	br := bufio.NewReaderSize(r, 10000)

	identifier, err := readLine(br)
	if err != nil {
		return nil, err
	}

	var channels int
	switch identifier {
	case "PF":
		channels = 3
	case "Pf":
		channels = 1
	default:
		return nil, fmt.Errorf("%w: unrecognized identifier line %q", ErrFormat, identifier)
	}

	dimensions, err := readLine(br)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(dimensions)
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: could not recognize dimensions line %q", ErrFormat, dimensions)
	}
	width, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: bad width %q", ErrFormat, fields[0])
	}
	height, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad height %q", ErrFormat, fields[1])
	}

	scaleLine, err := readLine(br)
	if err != nil {
		return nil, err
	}
	scale, err := strconv.ParseFloat(strings.TrimSpace(scaleLine), 64)
	if err != nil || scale == 0 {
		return nil, fmt.Errorf("%w: bad scale line %q", ErrFormat, scaleLine)
	}

	var order binary.ByteOrder = binary.BigEndian
	if scale < 0 {
		order = binary.LittleEndian
	}

	if err := checkShape(width, height, channels); err != nil {
		return nil, err
	}

	// Grow with the data actually read so a header claiming a large
	// raster over a short file fails before allocating the whole image.
	rowLen := width * channels
	total := rowLen * height
	pix := make([]float32, 0, min(total, 1<<20))
	chunk := make([]byte, 64*1024)
	for len(pix) < total {
		n := min(len(chunk), (total-len(pix))*4)
		if _, err := io.ReadFull(br, chunk[:n]); err != nil {
			return nil, fmt.Errorf("%w: truncated pixel data after %d of %d samples: %v", ErrFormat, len(pix), total, err)
		}
		for i := 0; i < n; i += 4 {
			pix = append(pix, math.Float32frombits(order.Uint32(chunk[i:])))
		}
	}

	// PFM stores the bottom row first
	tmp := make([]float32, rowLen)
	for top, bottom := 0, height-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pix[top*rowLen : (top+1)*rowLen]
		b := pix[bottom*rowLen : (bottom+1)*rowLen]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}

	return &Image{Width: width, Height: height, Channels: channels, Pix: pix}, nil
}

// Encode writes img as a little endian PFM stream
func Encode(w io.Writer, img *Image) error {
	if img == nil || len(img.Pix) != img.Width*img.Height*img.Channels {
		return fmt.Errorf("%w: inconsistent image buffer", ErrFormat)
	}

	identifier := "PF"
	if img.Channels == 1 {
		identifier = "Pf"
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n-1\n", identifier, img.Width, img.Height); err != nil {
		return err
	}

	rowLen := img.Width * img.Channels
	row := make([]byte, rowLen*4)
	for y := img.Height - 1; y >= 0; y-- {
		src := img.Pix[y*rowLen : (y+1)*rowLen]
		for i, v := range src {
			binary.LittleEndian.PutUint32(row[i*4:], math.Float32bits(v))
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadFile decodes the PFM file at path
func ReadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// WriteFile encodes img to path
func WriteFile(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: unexpected end of file", ErrFormat)
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
