package check

import (
	"context"
	"errors"
	"fmt"

	"github.com/broady/routegen/cmd/routegen/internal/cli"
	"github.com/broady/routegen/internal/generate"
	"github.com/broady/routegen/internal/sink"
)

// ErrStale is returned by --verify when generated files are out of date.
var ErrStale = errors.New("generated files are out of date; run routegen gen")

type Cmd struct {
	Patterns []string `arg:"" optional:"" help:"Packages to check (default: ./..., or patterns from routegen.yaml)."`
	Dir      string   `help:"Directory patterns are resolved in." short:"C" default:"." type:"existingdir"`
	Workers  int      `help:"Concurrent analysis workers (default: one per CPU)." short:"j" env:"ROUTEGEN_WORKERS"`
	Tags     []string `help:"Extra build tags." env:"ROUTEGEN_TAGS"`
	Verify   bool     `help:"Fail when a generated file is missing or out of date."`
}

func (c *Cmd) Run(ctx context.Context, g *cli.Globals) error {
	env, err := g.Setup(c.Dir)
	if err != nil {
		return err
	}
	defer env.Close()
	return c.Exec(ctx, env)
}

// Exec analyzes without writing. Diagnostics are warnings: they never fail
// the command.
func (c *Cmd) Exec(ctx context.Context, env *cli.Env) error {
	opts := env.Options(c.Dir, c.Patterns, c.Workers, c.Tags)
	s := &sink.CheckSink{Root: opts.Dir}
	results, err := generate.Run(ctx, opts, s)
	warnings := cli.Report(env.Stderr, results, false)
	if err != nil {
		return err
	}

	sites, generated := 0, 0
	for _, r := range results {
		sites += len(r.Models)
		if r.Output != nil {
			generated += r.Output.Dispatchers
		}
	}
	fmt.Fprintf(env.Stdout, "✓ %d registrations, %d generated, %d warnings\n", sites, generated, warnings)

	stale := s.Stale()
	for _, p := range stale {
		fmt.Fprintf(env.Stdout, "✗ %s is out of date\n", p)
	}
	if c.Verify && len(stale) > 0 {
		return ErrStale
	}
	return nil
}
