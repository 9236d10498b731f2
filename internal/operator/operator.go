// Package operator handles the human at the terminal: yes/no prompts,
// hidden password entry and the live status line.
package operator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// stdin is shared so that buffered lines are not lost between prompts when
// input is piped.
var stdin = bufio.NewReader(os.Stdin)

// IsTerminal reports whether f is attached to a TTY.
func IsTerminal(f any) bool {
	if fder, ok := f.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(fder.Fd()))
	}
	return false
}

// Terminal asks questions on Out and reads answers from In. An empty
// answer means yes.
type Terminal struct {
	In  io.Reader
	Out io.Writer

	once  sync.Once
	lines chan string
}

func NewTerminal() *Terminal {
	return &Terminal{In: stdin, Out: os.Stderr}
}

// answers starts a single reader so an abandoned prompt does not leak a
// goroutine per question.
func (t *Terminal) answers() <-chan string {
	t.once.Do(func() {
		t.lines = make(chan string)
		go func() {
			defer close(t.lines)
			sc := bufio.NewScanner(t.In)
			for sc.Scan() {
				t.lines <- sc.Text()
			}
		}()
	})
	return t.lines
}

func (t *Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	fmt.Fprintf(t.Out, "%s [Y/n] ", question)
	select {
	case <-ctx.Done():
		fmt.Fprintln(t.Out)
		return false, ctx.Err()
	case line, ok := <-t.answers():
		if !ok {
			return false, io.EOF
		}
		return parseAnswer(line), nil
	}
}

func parseAnswer(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "y", "yes":
		return true
	}
	return false
}

// Auto answers every question the same way. Used when stdin is not a
// terminal.
type Auto bool

func (a Auto) Confirm(context.Context, string) (bool, error) { return bool(a), nil }

// ReadPassword prompts on stderr and reads a line from stdin without echo.
// When stdin is not a terminal the line is read as is.
func ReadPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)
	if !IsTerminal(os.Stdin) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadLine prompts on stderr and reads one visible line. def is returned
// for an empty answer.
func ReadLine(prompt, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(os.Stderr, "%s [%s]: ", prompt, def)
	} else {
		fmt.Fprintf(os.Stderr, "%s: ", prompt)
	}
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}
