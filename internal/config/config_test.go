package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pbrt-iile/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3*time.Second, cfg.Preview.AutoupdateInterval.Duration)
	assert.Equal(t, 10*time.Second, cfg.Preview.FinishGrace.Duration)
	assert.Equal(t, 2.2, cfg.Tonemap.Gamma)
	assert.Equal(t, EngineOpenCV, cfg.Tonemap.Engine)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pbrt-iile.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[renderer]
binary = "/opt/pbrt/bin/pbrt"
scene = "scenes/pavilion.pbrt"
args = "--nthreads 8"

[tonemap]
engine = "command"
command = "python3 tonemap.py {input} {output} {exposure}"

[preview]
autoupdate_interval = "1500ms"
watch = false

[log]
level = "debug"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/pbrt/bin/pbrt", cfg.Renderer.Binary)
	assert.Equal(t, "--nthreads 8", cfg.Renderer.Args)
	assert.Equal(t, EngineCommand, cfg.Tonemap.Engine)
	assert.Equal(t, 2.2, cfg.Tonemap.Gamma)
	assert.Equal(t, 1500*time.Millisecond, cfg.Preview.AutoupdateInterval.Duration)
	assert.Equal(t, 10*time.Second, cfg.Preview.FinishGrace.Duration)
	assert.False(t, cfg.Preview.Watch)
	assert.True(t, cfg.Renderer.Autostart)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[preview]\nautoupdate_interval = \"soon\"\n"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestLoadWithoutPathFallsBackToDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Tonemap.Engine = EngineCommand
	cfg.Tonemap.Gamma = 0
	cfg.Preview.AutoupdateInterval = Duration{}
	cfg.Renderer.ControlDir = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tonemap.command")
	assert.Contains(t, err.Error(), "tonemap.gamma")
	assert.Contains(t, err.Error(), "autoupdate_interval")
	assert.Contains(t, err.Error(), "control_dir")

	cfg = Default()
	cfg.Tonemap.Engine = "reinhard"
	assert.Error(t, cfg.Validate())
}

func TestInitialBuffer(t *testing.T) {
	cfg := Default()
	buffer, err := cfg.InitialBuffer()
	require.NoError(t, err)
	assert.Equal(t, models.PreviewCombined, buffer)

	cfg.Preview.Buffer = "Indirect"
	buffer, err = cfg.InitialBuffer()
	require.NoError(t, err)
	assert.Equal(t, models.PreviewIndirect, buffer)

	cfg.Preview.Buffer = ""
	buffer, err = cfg.InitialBuffer()
	require.NoError(t, err)
	assert.Equal(t, models.PreviewCombined, buffer)

	cfg.Preview.Buffer = "albedo"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preview.buffer")
}

func TestResolveMakesPathsAbsolute(t *testing.T) {
	cfg := Default()
	cfg.Renderer.ControlDir = "control"
	cfg.Renderer.Scene = "scene.pbrt"

	require.NoError(t, cfg.Resolve())
	assert.True(t, filepath.IsAbs(cfg.Renderer.ControlDir))
	assert.True(t, filepath.IsAbs(cfg.Renderer.Scene))
	assert.Equal(t, "pbrt", cfg.Renderer.Binary)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("2s")))
	assert.Equal(t, 2*time.Second, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("two")))
}
