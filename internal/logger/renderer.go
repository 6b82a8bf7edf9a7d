package logger

import (
	"errors"
	"strings"
)

// RendererComponent tags every line the pbrt process writes
const RendererComponent = "pbrt"

// Output streams of the renderer process
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// RendererLine logs one line of pbrt output. Lines pbrt marks as
// "Error:" or "Warning:" are raised to that level so they show with the
// default configuration; the rest is debug chatter.
func RendererLine(log Logger, stream, line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}

	fields := map[string]interface{}{"stream": stream}
	switch {
	case strings.Contains(line, "Error:"):
		log.Error(RendererComponent, errors.New(line), fields)
	case strings.Contains(line, "Warning:"):
		log.Warning(RendererComponent, line, fields)
	default:
		log.Debug(RendererComponent, line, fields)
	}
}
