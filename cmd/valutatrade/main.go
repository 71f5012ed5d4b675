// Command valutatrade is the one-shot CLI over the rate cache and user portfolios.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	env := newEnvironment(os.Stdout, os.Stderr)
	flag.StringVar(&env.configPath, "config", "", "path to config file")
	flag.BoolVar(&env.verbose, "v", false, "log at debug level to stderr")

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	env.register(commander)

	flag.Parse()
	status := commander.Execute(context.Background())
	env.close()
	os.Exit(int(status))
}
