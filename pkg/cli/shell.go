// pkg/cli/shell.go
package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// lineReader abstracts over interactive (readline) and scripted (plain
// reader) input.
type lineReader interface {
	// ReadLine shows prompt and returns one line without its trailing
	// newline. Returns io.EOF when input is exhausted.
	ReadLine(prompt string) (string, error)
	Close() error
}

// scriptReader reads lines from a plain io.Reader, echoing prompts to
// out when out is non-nil. Used for tests and piped input.
type scriptReader struct {
	r   *bufio.Reader
	out io.Writer
}

func newScriptReader(in io.Reader, out io.Writer) *scriptReader {
	return &scriptReader{r: bufio.NewReader(in), out: out}
}

func (s *scriptReader) ReadLine(prompt string) (string, error) {
	if s.out != nil {
		io.WriteString(s.out, prompt)
	}
	line, err := s.r.ReadString('\n')
	line = strings.TrimRight(line, " \t\r\n")
	if err != nil {
		if err == io.EOF && line != "" {
			return line, nil
		}
		return "", io.EOF
	}
	return line, nil
}

func (s *scriptReader) Close() error { return nil }

// terminalReader wraps readline for interactive sessions: line editing
// and history.
type terminalReader struct {
	rl *readline.Instance
}

func newTerminalReader() (*terminalReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "garner> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return nil, err
	}
	return &terminalReader{rl: rl}, nil
}

func (t *terminalReader) ReadLine(prompt string) (string, error) {
	t.rl.SetPrompt(prompt)
	line, err := t.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt {
			return "", io.EOF
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (t *terminalReader) Close() error { return t.rl.Close() }
