package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/snapbridge/cmd/snapbridge/commands"
	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("snapbridge"),
		kong.Description("Run a snap host and drive its state and encrypt snaps from the command line."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: slog.Default()}
	if err := ctx.Run(global, &cli); err != nil {
		foundationerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
