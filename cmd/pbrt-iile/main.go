package main

import (
	"fmt"
	"os"

	"pbrt-iile/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	AppName    = "pbrt v3 IILE"
	AppID      = "org.iispt.pbrt-iile"
	AppVersion = "1.0.0"
)

// flags holds the command line overrides for the configuration file
type flags struct {
	configPath string
	binary     string
	controlDir string
	args       string
	logLevel   string
	buffer     string
	noWatch    bool
	noRender   bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:     "pbrt-iile [scene.pbrt]",
		Short:   "Interactive preview window for the IILE pbrt renderer",
		Version: AppVersion,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f, args)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			application, err := NewApplication(cfg)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}

	f.register(cmd.Flags())

	return cmd
}

func (f *flags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "path to the TOML configuration file")
	fs.StringVar(&f.binary, "pbrt", "", "renderer executable")
	fs.StringVarP(&f.controlDir, "control-dir", "d", "", "directory the renderer writes its buffers into")
	fs.StringVar(&f.args, "args", "", "extra renderer arguments, shell quoted")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVarP(&f.buffer, "buffer", "b", "", "buffer shown at startup: combined, indirect or direct")
	fs.BoolVar(&f.noWatch, "no-watch", false, "do not watch the control directory for new buffers")
	fs.BoolVar(&f.noRender, "no-render", false, "only preview existing buffers, do not launch the renderer")
}

// loadConfig reads the configuration file and applies the flags the user set
func loadConfig(cmd *cobra.Command, f *flags, args []string) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("pbrt") {
		cfg.Renderer.Binary = f.binary
	}
	if fs.Changed("control-dir") {
		cfg.Renderer.ControlDir = f.controlDir
	}
	if fs.Changed("args") {
		cfg.Renderer.Args = f.args
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("buffer") {
		cfg.Preview.Buffer = f.buffer
	}
	if f.noWatch {
		cfg.Preview.Watch = false
	}
	if f.noRender {
		cfg.Renderer.Autostart = false
	}
	if len(args) > 0 {
		cfg.Renderer.Scene = args[0]
	}

	if err := cfg.Resolve(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
