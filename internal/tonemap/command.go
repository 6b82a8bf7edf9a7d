package tonemap

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"pbrt-iile/internal/logger"

	"github.com/mattn/go-shellwords"
)

// Command runs an external tonemapping program. The template may use
// {input}, {output}, {exposure} and {gamma}; {exposure} expands to "auto"
// when automatic exposure is requested.
type Command struct {
	argv   []string
	logger logger.Logger
}

func NewCommand(template string, log logger.Logger) (*Command, error) {
	argv, err := shellwords.Parse(template)
	if err != nil {
		return nil, fmt.Errorf("invalid tonemap command %q: %w", template, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("tonemap command is empty")
	}

	return &Command{argv: argv, logger: log}, nil
}

// Expand substitutes the placeholders of the command template for job
func (c *Command) Expand(job Job) []string {
	exposure := "auto"
	if job.Exposure != nil {
		exposure = strconv.FormatFloat(*job.Exposure, 'f', -1, 64)
	}

	replacer := strings.NewReplacer(
		"{input}", job.Source,
		"{output}", job.Destination,
		"{exposure}", exposure,
		"{gamma}", strconv.FormatFloat(job.Gamma, 'f', -1, 64),
	)

	args := make([]string, len(c.argv))
	for i, a := range c.argv {
		args[i] = replacer.Replace(a)
	}
	return args
}

func (c *Command) Tonemap(ctx context.Context, job Job) (Result, error) {
	if err := job.validate(); err != nil {
		return Result{}, err
	}

	args := c.Expand(job)
	start := time.Now()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("tonemap command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	result := Result{
		Destination: job.Destination,
		Auto:        job.Exposure == nil,
		Duration:    time.Since(start),
	}
	if job.Exposure != nil {
		result.Exposure = *job.Exposure
	}

	c.logger.Debug("Tonemapper", "tonemap command completed", map[string]interface{}{
		"command":     args[0],
		"duration_ms": result.Duration.Milliseconds(),
	})

	return result, nil
}
