package components

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
)

const (
	ImageAreaWidth  = 800
	ImageAreaHeight = 600
)

// ImageDisplay shows the tonemapped preview inside a scroll container.
// The pixels are never resampled; zoom only changes the size the canvas
// image is laid out at.
type ImageDisplay struct {
	container  *fyne.Container
	scroll     *container.Scroll
	image      *canvas.Image
	background *canvas.Rectangle

	hasImage bool
	scale    float64
}

// NewImageDisplay creates a new image display component
func NewImageDisplay() *ImageDisplay {
	display := &ImageDisplay{scale: 1}
	display.createComponents()
	display.setupLayout()
	return display
}

func (id *ImageDisplay) createComponents() {
	id.image = canvas.NewImageFromImage(placeholderImage())
	id.image.FillMode = canvas.ImageFillStretch
	id.image.ScaleMode = canvas.ImageScaleFastest

	id.background = canvas.NewRectangle(color.NRGBA{R: 32, G: 32, B: 32, A: 255})
}

func (id *ImageDisplay) setupLayout() {
	id.scroll = container.NewScroll(container.NewCenter(id.image))
	id.scroll.SetMinSize(fyne.NewSize(ImageAreaWidth, ImageAreaHeight))

	id.container = container.NewStack(id.background, id.scroll)
}

// SetImage replaces the displayed preview. A nil image restores the placeholder.
func (id *ImageDisplay) SetImage(img image.Image) {
	if img == nil {
		id.image.Image = placeholderImage()
		id.hasImage = false
	} else {
		id.image.Image = img
		id.hasImage = true
	}
	id.layoutImage()
}

// SetScale changes the zoom factor the preview is laid out at
func (id *ImageDisplay) SetScale(scale float64) {
	if scale <= 0 {
		return
	}
	id.scale = scale
	id.layoutImage()
}

func (id *ImageDisplay) Scale() float64 {
	return id.scale
}

func (id *ImageDisplay) layoutImage() {
	bounds := id.image.Image.Bounds()
	id.image.SetMinSize(fyne.NewSize(
		float32(float64(bounds.Dx())*id.scale),
		float32(float64(bounds.Dy())*id.scale),
	))
	id.image.Refresh()
	id.scroll.Refresh()
}

// DisplaySize is the laid out size of the preview at the current zoom
func (id *ImageDisplay) DisplaySize() fyne.Size {
	return id.image.MinSize()
}

func (id *ImageDisplay) HasImage() bool {
	return id.hasImage
}

// ImageSize returns the pixel size of the displayed preview
func (id *ImageDisplay) ImageSize() (int, int) {
	if !id.hasImage {
		return 0, 0
	}
	bounds := id.image.Image.Bounds()
	return bounds.Dx(), bounds.Dy()
}

func (id *ImageDisplay) GetContainer() *fyne.Container {
	return id.container
}

func placeholderImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{A: 0})
	return img
}
