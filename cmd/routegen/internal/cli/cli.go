// Package cli holds what the routegen subcommands share: global flags, the
// project config, logging and the report printed after a run.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/broady/routegen/internal/config"
	"github.com/broady/routegen/internal/generate"
	"github.com/broady/routegen/internal/logging"
)

// Globals are flags accepted by every subcommand.
type Globals struct {
	Config    string `help:"Path to routegen.yaml (default: nearest one above --dir)." type:"path" env:"ROUTEGEN_CONFIG"`
	LogLevel  string `help:"Log level: debug, info, warn or error (default: info)." env:"ROUTEGEN_LOG_LEVEL"`
	LogFormat string `help:"Log format: console or json (default: console)." env:"ROUTEGEN_LOG_FORMAT"`
}

// Env is what a subcommand runs with.
type Env struct {
	Logger     *slog.Logger
	Config     *config.Config
	ConfigPath string
	Stdout     io.Writer
	Stderr     io.Writer

	flush func()
}

// Setup reads the config for dir and builds the logger. Flags win over the
// config file.
func (g *Globals) Setup(dir string) (*Env, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if g.Config != "" {
		path = g.Config
		cfg, err = config.Load(path)
	} else {
		cfg, path, err = config.Find(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	level := first(g.LogLevel, cfg.Log.Level, "info")
	format := first(g.LogFormat, cfg.Log.Format, logging.FormatConsole)
	logger, flush, err := logging.New(level, format)
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Debug("config loaded", "path", path)
	}
	return &Env{
		Logger:     logger,
		Config:     cfg,
		ConfigPath: path,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		flush:      flush,
	}, nil
}

// Close flushes the logger.
func (e *Env) Close() {
	if e.flush != nil {
		e.flush()
	}
}

// Options merges command line values with the config file. Patterns in the
// config are relative to the directory holding it.
func (e *Env) Options(dir string, patterns []string, workers int, tags []string) generate.Options {
	opts := generate.Options{
		Dir:      dir,
		Patterns: patterns,
		Workers:  workers,
		Tags:     tags,
		FileName: e.Config.Output,
		Logger:   e.Logger,
	}
	if len(opts.Patterns) == 0 && len(e.Config.Patterns) > 0 {
		opts.Patterns = e.Config.Patterns
		if e.ConfigPath != "" {
			opts.Dir = filepath.Dir(e.ConfigPath)
		}
	}
	if opts.Workers == 0 {
		opts.Workers = e.Config.Workers
	}
	if len(opts.Tags) == 0 {
		opts.Tags = e.Config.Tags
	}
	return opts
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Report prints every diagnostic and every registration left to reflection
// to w, followed by one line per generated file when verbose is set.
// It returns the number of warnings printed.
func Report(w io.Writer, results []*generate.Result, verbose bool) int {
	n := 0
	for _, d := range generate.Diagnostics(results) {
		fmt.Fprintln(w, d)
		n++
	}
	for _, r := range results {
		if r.Output == nil {
			continue
		}
		for _, s := range r.Output.Skipped {
			// Diagnosed models were already printed above.
			if !s.Diagnosed {
				fmt.Fprintf(w, "%s:%d: warning: served by reflection: %s\n", s.Site.File, s.Site.Line, s.Reason)
				n++
			}
		}
	}
	if verbose {
		for _, r := range results {
			if r.Output == nil {
				continue
			}
			fmt.Fprintf(w, "%s: %d generated, %d reflective\n", r.File, r.Output.Dispatchers, len(r.Output.Skipped))
		}
	}
	return n
}
