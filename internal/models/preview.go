package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PreviewBuffer identifies one of the image buffers pbrt writes into the control directory
type PreviewBuffer string

const (
	PreviewCombined PreviewBuffer = "out_combined"
	PreviewIndirect PreviewBuffer = "out_indirect"
	PreviewDirect   PreviewBuffer = "out_direct"
)

// PreviewBuffers lists the buffers in toolbar order
var PreviewBuffers = []PreviewBuffer{PreviewCombined, PreviewIndirect, PreviewDirect}

// ParsePreviewBuffer accepts either the file stem or the short label
func ParsePreviewBuffer(name string) (PreviewBuffer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "out_combined", "combined":
		return PreviewCombined, nil
	case "out_indirect", "indirect":
		return PreviewIndirect, nil
	case "out_direct", "direct":
		return PreviewDirect, nil
	}
	return "", fmt.Errorf("unknown preview buffer %q", name)
}

// BufferForFile maps a control file path back to its buffer.
// The second return value is false for unrelated files.
func BufferForFile(path string) (PreviewBuffer, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, b := range PreviewBuffers {
		if string(b) == stem {
			return b, true
		}
	}
	return "", false
}

// Label returns the human readable name used on buttons and in the status bar
func (b PreviewBuffer) Label() string {
	switch b {
	case PreviewCombined:
		return "Combined"
	case PreviewIndirect:
		return "Indirect"
	case PreviewDirect:
		return "Direct"
	default:
		return string(b)
	}
}

// FloatFile is the name of the floating point buffer written by the renderer
func (b PreviewBuffer) FloatFile() string {
	return string(b) + ".pfm"
}

// ImageFile is the name of the tonemapped PNG produced from FloatFile
func (b PreviewBuffer) ImageFile() string {
	return string(b) + ".png"
}
