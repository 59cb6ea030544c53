package console

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamReadLine(t *testing.T) {
	var out bytes.Buffer
	c := NewStream(strings.NewReader("account list\r\n\nbalance"), &out, "> ")

	line, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "account list", line)

	line, err = c.ReadLine()
	require.NoError(t, err)
	assert.Empty(t, line)

	c.SetPrompt("* ")
	line, err = c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "balance", line)

	_, err = c.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > * * ", out.String())
}

func TestStreamReadPassword(t *testing.T) {
	var out bytes.Buffer
	c := NewStream(strings.NewReader("s3cret\n"), &out, "> ")

	pw, err := c.ReadPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)

	_, err = c.ReadPassword("Password: ")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPasswordSource(t *testing.T) {
	t.Setenv("BOP_TEST_PASSWORD", "from-env")
	c := NewStream(strings.NewReader("typed\nnew\nnew\nnew\nother\n\n"), io.Discard, "")
	s := NewPasswordSource("BOP_TEST_PASSWORD", c)

	pw, err := s.Get("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw)

	pw, err = s.Prompt("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "typed", pw)

	pw, err = s.NewPassword(false)
	require.NoError(t, err)
	assert.Equal(t, "new", pw)

	_, err = s.NewPassword(false)
	assert.EqualError(t, err, "passwords do not match")

	pw, err = s.NewPassword(true)
	require.NoError(t, err)
	assert.Empty(t, pw)
}

func TestPasswordSourceWithoutConsole(t *testing.T) {
	t.Setenv("BOP_TEST_PASSWORD", "")
	s := NewPasswordSource("BOP_TEST_PASSWORD", nil)
	_, ok := s.FromEnv()
	assert.False(t, ok)

	_, err := s.Get("Password: ")
	assert.ErrorContains(t, err, "BOP_TEST_PASSWORD")
}
