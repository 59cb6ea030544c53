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
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&shellCmd{}, "")
	commander.Register(&balanceCmd{}, "")
	commander.Register(&exportCmd{}, "")
	commander.Register(&passwdCmd{}, "")

	flag.StringVar(&globals.configPath, "config", "", "YAML configuration file (default: <user config dir>/portfolio_tracker/config.yml)")
	flag.StringVar(&globals.dataPath, "data", "", "data file, overrides store.path")
	flag.StringVar(&globals.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	ctx := context.Background()
	// без подкоманды запускаем интерактивную сессию
	if flag.NArg() == 0 {
		os.Exit(int((&shellCmd{}).Execute(ctx, flag.CommandLine)))
	}
	os.Exit(int(commander.Execute(ctx)))
}
