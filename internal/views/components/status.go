package components

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// StatusBar displays the status message, active buffer and exposure mode
type StatusBar struct {
	container    *fyne.Container
	statusLabel  *widget.Label
	bufferLabel  *widget.Label
	exposureInfo *widget.Label
}

// NewStatusBar creates a new status bar component
func NewStatusBar() *StatusBar {
	sb := &StatusBar{}
	sb.createComponents()
	sb.buildLayout()
	return sb
}

func (sb *StatusBar) createComponents() {
	sb.statusLabel = widget.NewLabel("Ready")
	sb.statusLabel.Truncation = fyne.TextTruncateEllipsis
	sb.bufferLabel = widget.NewLabel("Buffer: --")
	sb.exposureInfo = widget.NewLabel("Exposure: auto")
}

func (sb *StatusBar) buildLayout() {
	sb.container = container.NewBorder(nil, nil, nil,
		container.NewHBox(
			widget.NewSeparator(),
			sb.bufferLabel,
			widget.NewSeparator(),
			sb.exposureInfo,
		),
		sb.statusLabel,
	)
}

func (sb *StatusBar) SetStatus(status string) {
	sb.statusLabel.SetText(status)
}

func (sb *StatusBar) GetStatus() string {
	return sb.statusLabel.Text
}

func (sb *StatusBar) SetBuffer(label string) {
	sb.bufferLabel.SetText("Buffer: " + label)
}

func (sb *StatusBar) GetBuffer() string {
	return sb.bufferLabel.Text
}

// SetExposure shows "auto" or the manual EV value
func (sb *StatusBar) SetExposure(auto bool, value float64) {
	if auto {
		sb.exposureInfo.SetText("Exposure: auto")
		return
	}
	sb.exposureInfo.SetText(fmt.Sprintf("Exposure: %+.2f EV", value))
}

func (sb *StatusBar) GetExposure() string {
	return sb.exposureInfo.Text
}

func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}

// ProgressPanel shows the direct and indirect render progress side by side
type ProgressPanel struct {
	container *fyne.Container
	direct    *widget.ProgressBar
	indirect  *widget.ProgressBar
}

// NewProgressPanel creates the two progress bars, both fed in percent
func NewProgressPanel() *ProgressPanel {
	pp := &ProgressPanel{
		direct:   widget.NewProgressBar(),
		indirect: widget.NewProgressBar(),
	}
	for _, bar := range []*widget.ProgressBar{pp.direct, pp.indirect} {
		bar.Min = 0
		bar.Max = 100
	}

	pp.container = container.New(layout.NewGridLayout(2),
		container.NewBorder(nil, nil, widget.NewLabel("Direct"), nil, pp.direct),
		container.NewBorder(nil, nil, widget.NewLabel("Indirect"), nil, pp.indirect),
	)
	return pp
}

// SetProgress updates both bars, values in percent
func (pp *ProgressPanel) SetProgress(direct, indirect float64) {
	pp.direct.SetValue(clampPercent(direct))
	pp.indirect.SetValue(clampPercent(indirect))
}

func (pp *ProgressPanel) Progress() (direct, indirect float64) {
	return pp.direct.Value, pp.indirect.Value
}

func (pp *ProgressPanel) GetContainer() *fyne.Container {
	return pp.container
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
