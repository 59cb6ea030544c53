package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

type shellCmd struct{}

func (*shellCmd) Name() string     { return "shell" }
func (*shellCmd) Synopsis() string { return "start the interactive session (default)" }
func (*shellCmd) Usage() string {
	return `shell

  Opens the data file, creating it on first run, and reads commands until exit.
  Enter ? inside the session for the list of commands.
`
}
func (*shellCmd) SetFlags(*flag.FlagSet) {}

func (*shellCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := setup()
	if err != nil {
		return fail(err)
	}
	defer a.close()

	if err := a.session.Open(true); err != nil {
		return fail(err)
	}
	stop := a.serveStatus(ctx)
	defer stop()

	if err := a.session.Run(ctx); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type balanceCmd struct{}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "print the portfolio balance once and exit" }
func (*balanceCmd) Usage() string {
	return `balance

  Loads the data file, fetches every balance and price, prints the table.
  The password is read from $BOP_PASSWORD (store.passwordEnv) or prompted for.
  Network failures are reported in the output; only data file errors fail the command.
`
}
func (*balanceCmd) SetFlags(*flag.FlagSet) {}

func (*balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runOnce(ctx, "balance")
}

type exportCmd struct{}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "print the data file contents in plain text" }
func (*exportCmd) Usage() string {
	return `export

  Prints the decrypted state as JSON.
`
}
func (*exportCmd) SetFlags(*flag.FlagSet) {}

func (*exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runOnce(ctx, "export")
}

func runOnce(ctx context.Context, command string) subcommands.ExitStatus {
	a, err := setup()
	if err != nil {
		return fail(err)
	}
	defer a.close()

	if err := a.session.Open(false); err != nil {
		return fail(err)
	}
	if _, err := a.session.Execute(ctx, command); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type passwdCmd struct{}

func (*passwdCmd) Name() string     { return "passwd" }
func (*passwdCmd) Synopsis() string { return "set, change or remove the data file password" }
func (*passwdCmd) Usage() string {
	return `passwd

  Opens the data file with the current password, asks for the new one twice and
  rewrites the file. An empty new password stores the data unencrypted.
`
}
func (*passwdCmd) SetFlags(*flag.FlagSet) {}

func (*passwdCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := setup()
	if err != nil {
		return fail(err)
	}
	defer a.close()

	if err := a.session.Open(false); err != nil {
		return fail(err)
	}
	if _, err := a.session.Execute(ctx, "password"); err != nil {
		return fail(err)
	}
	// новый пароль уже подтвержден дважды
	if err := a.session.Save(false); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
