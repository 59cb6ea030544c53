package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
)

const maxUnlockAttempts = 3

// PasswordSource supplies store passwords.
type PasswordSource interface {
	// Get may answer from the environment.
	Get(prompt string) (string, error)
	// Prompt always asks the user.
	Prompt(prompt string) (string, error)
	// NewPassword asks twice; an empty answer means "no password" when allowEmpty is set.
	NewPassword(allowEmpty bool) (string, error)
}

// TokenImporter reads token lists for `token import`.
type TokenImporter interface {
	LoadTokens(path string, chain entity.Chain, adapter port.ChainAdapter) ([]entity.Token, int, error)
}

// AccountImporter reads address lists for `account import`.
type AccountImporter interface {
	LoadAccounts(path string, family entity.ChainFamily, adapter port.ChainAdapter) ([]entity.Account, int, error)
}

// Deps are the collaborators of a session.
type Deps struct {
	Console   port.Console
	Store     port.StateStore
	Engine    port.Aggregator
	Adapters  port.AdapterRegistry
	Prices    port.PriceLookup
	Passwords PasswordSource
	Tokens    TokenImporter
	Accounts  AccountImporter
	Logger    port.Logger
	// Catalog is the built-in chain list, used for new stores and `chain reset-rpc`.
	Catalog []entity.Chain
	Config  configloader.SessionConfig
	// Path of the store file.
	Path string
}

// Session owns the decrypted state between load and save. Commands run one at a time,
// so the state needs no locking; the engine only ever gets a read-only view.
type Session struct {
	Deps

	state *entity.State
	dirty bool
	// password encrypts the next save; filePassword opened the file on disk.
	password     string
	filePassword string
	lastCommand  string
	commands     map[string]handler
}

type handler func(ctx context.Context, args []string) error

// New creates a session. Open must be called before commands are executed.
func New(deps Deps) *Session {
	s := &Session{Deps: deps}
	s.commands = map[string]handler{
		"help":     s.help,
		"?":        s.help,
		"chain":    s.chain,
		"account":  s.account,
		"token":    s.token,
		"balance":  s.balance,
		"export":   s.export,
		"config":   s.export,
		"save":     s.save,
		"reload":   s.reload,
		"password": s.changePassword,
		"status":   s.status,
	}
	return s
}

func (s *Session) out() io.Writer { return s.Console.Writer() }

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out(), format, args...)
}

// State exposes the in-memory state for inspection.
func (s *Session) State() *entity.State { return s.state }

// Dirty reports unsaved changes.
func (s *Session) Dirty() bool { return s.dirty }

// Open loads the store file. When none exists and create is set, a new store is
// created with a freshly chosen password and written right away.
func (s *Session) Open(create bool) error {
	info, err := s.Store.Inspect(s.Path)
	switch {
	case errors.Is(err, entity.ErrNotFound):
		if !create {
			return fmt.Errorf("no data file at %s; run the interactive shell first: %w", s.Path, err)
		}
		return s.create()
	case err != nil:
		return err
	}
	return s.unlock(info.Encrypted)
}

func (s *Session) create() error {
	s.printf("No data file found at %s, creating a new one.\n", s.Path)
	s.printf("Choose a password, or leave it empty to store the data unencrypted.\n")
	pw, err := s.Passwords.NewPassword(true)
	if err != nil {
		return err
	}

	st := entity.NewState(s.Catalog)
	st.Settings.PasswordEnabled = pw != ""
	if err := s.Store.Persist(st, s.Path, pw); err != nil {
		return err
	}
	s.state, s.password, s.filePassword, s.dirty = st, pw, pw, false
	s.Logger.Info("Created data file", "path", s.Path, "encrypted", pw != "")
	return nil
}

// unlock loads the file, prompting again after a wrong password.
func (s *Session) unlock(encrypted bool) error {
	for attempt := 1; ; attempt++ {
		pw := ""
		if encrypted {
			var err error
			if attempt == 1 {
				pw, err = s.Passwords.Get("Password: ")
			} else {
				pw, err = s.Passwords.Prompt("Password: ")
			}
			if err != nil {
				return err
			}
		}

		st, err := s.Store.Load(s.Path, pw)
		if errors.Is(err, entity.ErrAuth) && attempt < maxUnlockAttempts {
			s.printf("Bad password, try again.\n")
			continue
		}
		if err != nil {
			return err
		}

		st.MergeCatalog(s.Catalog)
		s.state, s.password, s.filePassword, s.dirty = st, pw, pw, false
		s.Logger.Info("Data file loaded", "path", s.Path, "encrypted", encrypted,
			"accounts", len(st.Accounts), "tokens", len(st.Tokens))
		return nil
	}
}

// Run reads and executes commands until exit or end of input.
func (s *Session) Run(ctx context.Context) error {
	s.printf("Welcome to the portfolio tracker! Enter ? for available commands.\n")
	s.Console.SetPrompt(s.Config.Prompt)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := s.Console.ReadLine()
		if errors.Is(err, io.EOF) {
			if s.dirty {
				s.printf("\nUnsaved changes were discarded.\n")
			}
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "!!" {
			if s.lastCommand == "" {
				s.printf("No previous command.\n")
				continue
			}
			line = s.lastCommand
			s.printf("%s\n", line)
		} else {
			s.lastCommand = line
		}

		quit, err := s.Execute(ctx, line)
		if err != nil {
			s.printf("Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Execute runs one command line and reports whether the session should end.
func (s *Session) Execute(ctx context.Context, line string) (bool, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, nil
	}
	name, args := strings.ToLower(parts[0]), parts[1:]

	switch name {
	case "exit", "quit":
		return s.exit()
	case "exit!", "quit!":
		return true, nil
	}

	cmd, ok := s.commands[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q, enter ? for help", parts[0])
	}
	return false, cmd(ctx, args)
}

func (s *Session) exit() (bool, error) {
	if !s.dirty {
		return true, nil
	}
	s.Console.SetPrompt("You have unsaved changes. Save before exit? [y/n/cancel] ")
	answer, err := s.Console.ReadLine()
	s.Console.SetPrompt(s.Config.Prompt)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		if err := s.Save(!s.Config.SkipPasswordConfirm); err != nil {
			return false, err
		}
		return true, nil
	case "n", "no":
		return true, nil
	}
	s.printf("Exit cancelled.\n")
	return false, nil
}

func (s *Session) markDirty() { s.dirty = true }

func (s *Session) save(_ context.Context, args []string) error {
	if len(args) != 0 {
		return usage("save")
	}
	return s.Save(!s.Config.SkipPasswordConfirm)
}

// Save writes the state. With confirm set, a protected store asks for the password
// again and nothing is written when it does not match.
func (s *Session) Save(confirm bool) error {
	if s.password != "" && confirm {
		confirm, err := s.Passwords.Get("Password: ")
		if err != nil {
			return err
		}
		if confirm != s.password {
			return fmt.Errorf("password does not match, nothing was saved: %w", entity.ErrAuth)
		}
	}

	s.state.Settings.PasswordEnabled = s.password != ""
	if err := s.Store.Persist(s.state, s.Path, s.password); err != nil {
		var ioErr *entity.IOError
		if errors.As(err, &ioErr) {
			return fmt.Errorf("%w; your changes are still in memory, retry with save", err)
		}
		return err
	}
	s.filePassword = s.password
	s.dirty = false
	s.Logger.Info("State saved", "path", s.Path, "encrypted", s.password != "")
	s.printf("Saved to %s.\n", s.Path)
	return nil
}

func (s *Session) reload(_ context.Context, args []string) error {
	if len(args) != 0 {
		return usage("reload")
	}
	info, err := s.Store.Inspect(s.Path)
	if err != nil {
		return err
	}
	st, err := s.Store.Load(s.Path, s.filePassword)
	if errors.Is(err, entity.ErrAuth) && info.Encrypted {
		pw, perr := s.Passwords.Prompt("Password: ")
		if perr != nil {
			return perr
		}
		st, err = s.Store.Load(s.Path, pw)
		if err == nil {
			s.filePassword = pw
		}
	}
	if err != nil {
		return err
	}
	st.MergeCatalog(s.Catalog)
	s.state, s.password, s.dirty = st, s.filePassword, false
	s.printf("Reloaded %s, unsaved changes discarded.\n", s.Path)
	return nil
}

func (s *Session) changePassword(_ context.Context, args []string) error {
	if len(args) != 0 {
		return usage("password")
	}
	s.printf("Leave the password empty to store the data unencrypted.\n")
	pw, err := s.Passwords.NewPassword(true)
	if err != nil {
		return err
	}
	s.password = pw
	s.state.Settings.PasswordEnabled = pw != ""
	s.markDirty()
	if pw == "" {
		s.printf("Password removed. Run save to write the data unencrypted.\n")
	} else {
		s.printf("Password set. Run save to re-encrypt the data file.\n")
	}
	return nil
}

func (s *Session) export(_ context.Context, args []string) error {
	if len(args) == 1 && (args[0] == "password" || args[0] == "passwd") {
		return s.changePassword(context.Background(), nil)
	}
	if len(args) != 0 {
		return usage("export")
	}
	raw, err := s.Store.ExportRaw(s.state)
	if err != nil {
		return err
	}
	s.printf("Warning: the following contains your data in plain text.\n%s\n", raw)
	return nil
}

func (s *Session) status(_ context.Context, args []string) error {
	if len(args) != 0 {
		return usage("status")
	}
	changes := "no unsaved changes"
	if s.dirty {
		changes = "unsaved changes"
	}
	encryption := "unencrypted"
	if s.password != "" {
		encryption = "encrypted"
	}
	s.printf("Data file: %s (%s)\nState: %s\nChains enabled: %d/%d, accounts: %d, tokens: %d\n",
		s.Path, encryption, changes, len(s.state.EnabledChains()), len(s.state.Chains),
		len(s.state.Accounts), len(s.state.Tokens))
	return nil
}

func (s *Session) balance(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return usage("balance")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	s.printf("Fetching balances on %d chains...\n", len(s.state.EnabledChains()))
	snap := s.Engine.Aggregate(ctx, s.state)
	if ctx.Err() != nil {
		s.printf("Interrupted, showing what was fetched.\n")
	}
	renderSnapshot(s.out(), snap, s.Config.MinDisplayValue)
	return nil
}

func usage(text string) error {
	return &entity.ValidationError{Field: "arguments", Reason: "usage: " + text}
}
