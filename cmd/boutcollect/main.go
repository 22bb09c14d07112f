// Command boutcollect reads variables out of BOUT++ dump files.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/robert-malhotra/go-boutdata/collect"
)

// app carries the settings shared by every subcommand.
type app struct {
	cfg       config
	cfgPath   string
	colorMode string
	log       zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: defaultConfig(), log: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "boutcollect",
		Short:         "Collect BOUT++ variables from dump files",
		Version:       collect.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "TOML file with default settings")
	pf.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug|info|warn|error)")
	pf.StringVar(&a.colorMode, "color", "auto", "colorize output (auto|always|never)")
	pf.StringVar(&a.cfg.Path, "path", a.cfg.Path, "directory holding the dump files")
	pf.StringVar(&a.cfg.Prefix, "prefix", a.cfg.Prefix, "dump file prefix")

	root.AddCommand(
		a.collectCmd(),
		a.dimsCmd(),
		a.attrsCmd(),
		a.lsCmd(),
		a.scanCmd(),
		versionCmd(),
	)
	return root
}

// setup merges the config file under the flags and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if a.cfgPath != "" {
		if err := a.cfg.load(a.cfgPath, cmd.Flags()); err != nil {
			return err
		}
	}

	switch a.colorMode {
	case "auto":
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		return fmt.Errorf("--color: unknown mode %q", a.colorMode)
	}

	log, err := newLogger(cmd.ErrOrStderr(), a.cfg.LogLevel)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

// newLogger writes human-readable lines to a terminal and JSON otherwise.
func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("--log-level: %w", err)
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}
