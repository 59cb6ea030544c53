package port

import "io"

// Console is the interactive terminal of the session.
type Console interface {
	// ReadLine returns io.EOF when input ends.
	ReadLine() (string, error)
	ReadPassword(prompt string) (string, error)
	SetPrompt(prompt string)
	Writer() io.Writer
}
