package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/broady/routegen/cmd/routegen/internal/check"
	"github.com/broady/routegen/cmd/routegen/internal/cli"
	"github.com/broady/routegen/cmd/routegen/internal/gen"
)

type CLI struct {
	cli.Globals `embed:""`

	Gen     gen.Cmd    `cmd:"" help:"Generate dispatchers for handler registrations."`
	Check   check.Cmd  `cmd:"" help:"Report registrations that cannot be generated, without writing files."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &CLI{}
	k := kong.Parse(c,
		kong.Name("routegen"),
		kong.Description("Generate reflection-free dispatchers for routegen handler registrations."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(&c.Globals),
	)
	err := k.Run()
	k.FatalIfErrorf(err)
}
