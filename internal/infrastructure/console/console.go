package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"portfolio_tracker/internal/app/port"
)

// New returns a line-editing terminal when both ends are a TTY and a plain stream otherwise.
func New(in, out *os.File, prompt string) port.Console {
	if term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd())) {
		return NewTerminal(in, out, prompt)
	}
	return NewStream(in, out, prompt)
}

// Terminal is an interactive console with history and line editing.
// Raw mode is held only while a line is being read, so output between reads is cooked.
type Terminal struct {
	in  *os.File
	out *os.File
	t   *term.Terminal
}

// NewTerminal wraps in/out with golang.org/x/term.
func NewTerminal(in, out *os.File, prompt string) *Terminal {
	rw := struct {
		io.Reader
		io.Writer
	}{in, out}
	return &Terminal{in: in, out: out, t: term.NewTerminal(rw, prompt)}
}

var _ port.Console = (*Terminal)(nil)

// ReadLine implements port.Console.
func (c *Terminal) ReadLine() (string, error) {
	fd := int(c.in.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return "", fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer term.Restore(fd, state)

	line, err := c.t.ReadLine()
	if err != nil {
		return "", err
	}
	return line, nil
}

// ReadPassword implements port.Console. Input is not echoed.
func (c *Terminal) ReadPassword(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	b, err := term.ReadPassword(int(c.in.Fd()))
	fmt.Fprintln(c.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// SetPrompt implements port.Console.
func (c *Terminal) SetPrompt(prompt string) { c.t.SetPrompt(prompt) }

// Writer implements port.Console.
func (c *Terminal) Writer() io.Writer { return c.out }

// Stream reads commands from a pipe or file. Passwords are read as plain lines.
type Stream struct {
	mu     sync.Mutex
	r      *bufio.Reader
	w      io.Writer
	prompt string
}

// NewStream creates a console over arbitrary reader and writer.
func NewStream(r io.Reader, w io.Writer, prompt string) *Stream {
	return &Stream{r: bufio.NewReader(r), w: w, prompt: prompt}
}

var _ port.Console = (*Stream)(nil)

// ReadLine implements port.Console. A last line without a newline is returned before io.EOF.
func (c *Stream) ReadLine() (string, error) {
	c.mu.Lock()
	prompt := c.prompt
	c.mu.Unlock()
	fmt.Fprint(c.w, prompt)
	return c.readLine()
}

// ReadPassword implements port.Console.
func (c *Stream) ReadPassword(prompt string) (string, error) {
	fmt.Fprint(c.w, prompt)
	line, err := c.readLine()
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", io.ErrUnexpectedEOF)
	}
	return line, err
}

func (c *Stream) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// SetPrompt implements port.Console.
func (c *Stream) SetPrompt(prompt string) {
	c.mu.Lock()
	c.prompt = prompt
	c.mu.Unlock()
}

// Writer implements port.Console.
func (c *Stream) Writer() io.Writer { return c.w }
