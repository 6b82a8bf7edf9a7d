package renderer

import (
	"strconv"
	"strings"
)

// Progress protocol lines printed by the IILE integrator on stdout
const (
	progressPrefix = "IISPT_PROGRESS"
	finishedMarker = "IISPT_RENDER_FINISHED"
)

// EventKind classifies a line of renderer output
type EventKind int

const (
	EventLog EventKind = iota
	EventIndirectProgress
	EventDirectProgress
	EventRenderFinished
)

// Event is one parsed line of renderer output
type Event struct {
	Kind     EventKind
	Progress float64
	Line     string
}

// ParseLine classifies a single stdout line. Malformed progress lines are
// reported as plain log output.
func ParseLine(line string) Event {
	trimmed := strings.TrimSpace(line)
	if trimmed == finishedMarker {
		return Event{Kind: EventRenderFinished, Line: line}
	}

	fields := strings.Fields(trimmed)
	if len(fields) != 3 || fields[0] != progressPrefix {
		return Event{Kind: EventLog, Line: line}
	}

	value, err := strconv.ParseFloat(fields[2], 64)
	if err != nil || value < 0 {
		return Event{Kind: EventLog, Line: line}
	}
	if value > 1 {
		value = 1
	}

	switch fields[1] {
	case "indirect":
		return Event{Kind: EventIndirectProgress, Progress: value, Line: line}
	case "direct":
		return Event{Kind: EventDirectProgress, Progress: value, Line: line}
	default:
		return Event{Kind: EventLog, Line: line}
	}
}
