package gen

import (
	"context"
	"fmt"

	"github.com/broady/routegen/cmd/routegen/internal/cli"
	"github.com/broady/routegen/internal/emit"
	"github.com/broady/routegen/internal/generate"
	"github.com/broady/routegen/internal/sink"
)

type Cmd struct {
	Patterns []string `arg:"" optional:"" help:"Packages to generate for (default: ./..., or patterns from routegen.yaml)."`
	Dir      string   `help:"Directory patterns are resolved in." short:"C" default:"." type:"existingdir"`
	Workers  int      `help:"Concurrent analysis workers (default: one per CPU)." short:"j" env:"ROUTEGEN_WORKERS"`
	Tags     []string `help:"Extra build tags." env:"ROUTEGEN_TAGS"`
	DryRun   bool     `help:"List the files that would change without writing them." short:"n"`
	Verbose  bool     `help:"Print a line per generated file." short:"v"`
}

func (c *Cmd) Run(ctx context.Context, g *cli.Globals) error {
	env, err := g.Setup(c.Dir)
	if err != nil {
		return err
	}
	defer env.Close()
	return c.Exec(ctx, env)
}

// Exec runs the command in env.
func (c *Cmd) Exec(ctx context.Context, env *cli.Env) error {
	opts := env.Options(c.Dir, c.Patterns, c.Workers, c.Tags)

	var (
		s     sink.Sink
		check *sink.CheckSink
		fs    *sink.FilesystemSink
	)
	if c.DryRun {
		check = &sink.CheckSink{Root: opts.Dir}
		s = check
	} else {
		fs = sink.NewFilesystemSink(opts.Dir, emit.Header)
		s = fs
	}

	results, err := generate.Run(ctx, opts, s)
	cli.Report(env.Stderr, results, c.Verbose)
	if err != nil {
		return err
	}

	if c.DryRun {
		for _, p := range check.Stale() {
			fmt.Fprintf(env.Stdout, "would write %s\n", p)
		}
		return nil
	}
	written := fs.Written()
	for _, p := range written {
		fmt.Fprintf(env.Stdout, "wrote %s\n", p)
	}
	env.Logger.Info("generation finished", "packages", len(results), "written", len(written))
	return nil
}
