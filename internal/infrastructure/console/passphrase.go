package console

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"portfolio_tracker/internal/app/port"
)

// ErrEmptyPassword is returned when a confirmed new password is required but none was typed.
var ErrEmptyPassword = errors.New("password cannot be empty")

// PasswordSource resolves the store password from an environment variable or by prompting.
type PasswordSource struct {
	envVar  string
	console port.Console
}

// NewPasswordSource checks envVar before prompting on c. c may be nil for non-interactive use.
func NewPasswordSource(envVar string, c port.Console) *PasswordSource {
	return &PasswordSource{envVar: strings.TrimSpace(envVar), console: c}
}

// FromEnv returns the password set in the environment, if any.
func (s *PasswordSource) FromEnv() (string, bool) {
	if s.envVar == "" {
		return "", false
	}
	value, ok := os.LookupEnv(s.envVar)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// Get returns the environment password or prompts for one.
func (s *PasswordSource) Get(prompt string) (string, error) {
	if value, ok := s.FromEnv(); ok {
		return value, nil
	}
	return s.Prompt(prompt)
}

// Prompt always asks on the console, ignoring the environment.
func (s *PasswordSource) Prompt(prompt string) (string, error) {
	if s.console == nil {
		if s.envVar != "" {
			return "", fmt.Errorf("store password required; set %s or run interactively", s.envVar)
		}
		return "", errors.New("store password required and no terminal available")
	}
	return s.console.ReadPassword(prompt)
}

// NewPassword prompts twice and returns the password when both entries match.
// An empty first entry is returned as is, meaning "no password", unless allowEmpty is false.
func (s *PasswordSource) NewPassword(allowEmpty bool) (string, error) {
	first, err := s.Prompt("New password: ")
	if err != nil {
		return "", err
	}
	if first == "" {
		if allowEmpty {
			return "", nil
		}
		return "", ErrEmptyPassword
	}
	second, err := s.Prompt("Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}
