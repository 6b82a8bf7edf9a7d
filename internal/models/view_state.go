package models

import (
	"fmt"
	"sync"
)

const (
	DefaultZoomScale = 1.0
	MinZoomScale     = 0.05
	ZoomOutFactor    = 0.85
	ZoomInFactor     = 1.2
)

// ExposureSettings holds the exposure mode handed to the tonemapper
type ExposureSettings struct {
	Auto  bool
	Value float64
}

// ProgressState holds render progress in percent
type ProgressState struct {
	Finish   bool
	Direct   float64
	Indirect float64
}

// ViewStateSnapshot is an immutable copy of ViewState for rendering
type ViewStateSnapshot struct {
	ActivePreview     PreviewBuffer
	Exposure          ExposureSettings
	ZoomScale         float64
	Progress          ProgressState
	ReloadInProgress  bool
	AutoupdateEnabled bool
	AutoupdateRunning bool
}

// ViewState is the thread-safe view model behind the main window
type ViewState struct {
	mu sync.RWMutex

	activePreview PreviewBuffer
	exposure      ExposureSettings
	zoomScale     float64
	progress      ProgressState

	reloadWIP         bool
	autoupdateEnabled bool
	autoupdateRunning bool
}

// NewViewState creates the state shown at startup
func NewViewState() *ViewState {
	return &ViewState{
		activePreview:     PreviewCombined,
		exposure:          ExposureSettings{Auto: true, Value: 0},
		zoomScale:         DefaultZoomScale,
		autoupdateEnabled: true,
	}
}

// Snapshot returns a copy of the current state
func (vs *ViewState) Snapshot() ViewStateSnapshot {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	return ViewStateSnapshot{
		ActivePreview:     vs.activePreview,
		Exposure:          vs.exposure,
		ZoomScale:         vs.zoomScale,
		Progress:          vs.progress,
		ReloadInProgress:  vs.reloadWIP,
		AutoupdateEnabled: vs.autoupdateEnabled,
		AutoupdateRunning: vs.autoupdateRunning,
	}
}

func (vs *ViewState) ActivePreview() PreviewBuffer {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.activePreview
}

func (vs *ViewState) SetActivePreview(buffer PreviewBuffer) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.activePreview = buffer
}

// Exposure returns the exposure the tonemapper should use.
// A nil result means automatic exposure.
func (vs *ViewState) Exposure() *float64 {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	if vs.exposure.Auto {
		return nil
	}
	value := vs.exposure.Value
	return &value
}

func (vs *ViewState) SetExposureManual(value float64) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.exposure.Auto = false
	vs.exposure.Value = value
}

// SetExposureAuto enables auto exposure; the manual value is kept for the entry field
func (vs *ViewState) SetExposureAuto() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.exposure.Auto = true
}

// Zoom

func (vs *ViewState) ZoomScale() float64 {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.zoomScale
}

func (vs *ViewState) ZoomOut() float64 {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	vs.zoomScale *= ZoomOutFactor
	if vs.zoomScale < MinZoomScale {
		vs.zoomScale = MinZoomScale
	}
	return vs.zoomScale
}

func (vs *ViewState) ZoomIn() float64 {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	vs.zoomScale *= ZoomInFactor
	return vs.zoomScale
}

func (vs *ViewState) ZoomReset() float64 {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	vs.zoomScale = DefaultZoomScale
	return vs.zoomScale
}

// ZoomPercentage formats the zoom scale as a percentage with two decimals
func (vs *ViewState) ZoomPercentage() string {
	return FormatZoomPercentage(vs.ZoomScale())
}

func FormatZoomPercentage(scale float64) string {
	return fmt.Sprintf("%.2f", 100*scale)
}

// Progress

func (vs *ViewState) Progress() ProgressState {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.progress
}

// UpdateIndirectProgress stores 100*fraction if it exceeds the current value.
// It reports whether the stored value changed.
func (vs *ViewState) UpdateIndirectProgress(fraction float64) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	newVal := 100 * fraction
	if newVal > vs.progress.Indirect {
		vs.progress.Indirect = newVal
		return true
	}
	return false
}

// UpdateDirectProgress stores 100*fraction if it exceeds the current value.
// It reports whether the stored value changed.
func (vs *ViewState) UpdateDirectProgress(fraction float64) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	newVal := 100 * fraction
	if newVal > vs.progress.Direct {
		vs.progress.Direct = newVal
		return true
	}
	return false
}

func (vs *ViewState) FinishRender() {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	vs.progress.Finish = true
	vs.progress.Direct = 100
	vs.progress.Indirect = 100
}

// Reload guard

// TryBeginReload marks a reload as in progress.
// It returns false when another reload already holds the flag.
func (vs *ViewState) TryBeginReload() bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.reloadWIP {
		return false
	}
	vs.reloadWIP = true
	return true
}

func (vs *ViewState) EndReload() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.reloadWIP = false
}

// Autoupdate

func (vs *ViewState) TryBeginAutoupdate() bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.autoupdateRunning {
		return false
	}
	vs.autoupdateRunning = true
	return true
}

// EndAutoupdate clears the running flag and reports whether another cycle should be scheduled
func (vs *ViewState) EndAutoupdate() bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	vs.autoupdateRunning = false
	return vs.autoupdateEnabled
}

func (vs *ViewState) SetAutoupdateEnabled(enabled bool) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.autoupdateEnabled = enabled
}

func (vs *ViewState) AutoupdateEnabled() bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.autoupdateEnabled
}
