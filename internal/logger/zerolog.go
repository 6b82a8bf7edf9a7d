package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ComponentFieldName carries the component every entry is tagged with
const ComponentFieldName = "component"

type ZerologAdapter struct {
	logger zerolog.Logger
}

func NewZerolog(writer io.Writer, level zerolog.Level) *ZerologAdapter {
	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &ZerologAdapter{logger: logger}
}

// NewConsoleLogger writes human readable lines to stderr, colored when
// stderr is a terminal
func NewConsoleLogger(level zerolog.Level) *ZerologAdapter {
	return NewZerolog(consoleWriter(os.Stderr, false), level)
}

// consoleWriter prints the component as a bracketed prefix right after
// the level: "15:04:05 INF [pbrt] message stream=stderr"
func consoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: time.TimeOnly,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			ComponentFieldName,
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{ComponentFieldName},
		FormatPrepare: func(evt map[string]interface{}) error {
			if c, ok := evt[ComponentFieldName].(string); ok && c != "" {
				evt[ComponentFieldName] = "[" + c + "]"
			}
			return nil
		},
	}
}

// NewNop returns a logger that discards everything, for tests
func NewNop() *ZerologAdapter {
	return &ZerologAdapter{logger: zerolog.Nop()}
}

func (z *ZerologAdapter) Info(component, message string, fields map[string]interface{}) {
	send(z.logger.Info(), component, fields, message)
}

func (z *ZerologAdapter) Error(component string, err error, fields map[string]interface{}) {
	send(z.logger.Error().Err(err), component, fields, "operation failed")
}

func (z *ZerologAdapter) Warning(component, message string, fields map[string]interface{}) {
	send(z.logger.Warn(), component, fields, message)
}

func (z *ZerologAdapter) Debug(component, message string, fields map[string]interface{}) {
	send(z.logger.Debug(), component, fields, message)
}

func send(event *zerolog.Event, component string, fields map[string]interface{}, message string) {
	// Disabled levels hand back a nil event
	if event == nil {
		return
	}
	event = event.Str(ComponentFieldName, component)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(message)
}
