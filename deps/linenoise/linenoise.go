// Package linenoise wraps liner with the history and screen helpers the
// interactive client needs.
package linenoise

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"
)

// ErrAborted is returned by Prompt when the user presses Ctrl-C.
var ErrAborted = liner.ErrPromptAborted

type LineNoise struct {
	*liner.State
}

// New puts the terminal in raw mode. Close must be called to restore it.
func New() *LineNoise {
	ln := &LineNoise{liner.NewLiner()}
	ln.SetCtrlCAborts(true)
	return ln
}

// SetCompletions completes the first word from words, ignoring case.
func (ln *LineNoise) SetCompletions(words []string) {
	ln.SetCompleter(func(line string) []string {
		return Complete(words, line)
	})
}

func (ln *LineNoise) HistoryLoad(filepath string) error {
	content, err := os.ReadFile(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	_, err = ln.ReadHistory(bytes.NewReader(content))
	return err
}

func (ln *LineNoise) HistorySave(filepath string) error {
	var buf bytes.Buffer
	if _, err := ln.WriteHistory(&buf); err != nil {
		return err
	}
	return os.WriteFile(filepath, buf.Bytes(), 0o644)
}

func (ln *LineNoise) ClearScreen() error {
	return ClearScreen(os.Stdout)
}

// ClearScreen writes the ANSI home and erase sequence to w.
func ClearScreen(w io.Writer) error {
	_, err := fmt.Fprint(w, "\x1b[H\x1b[2J")
	return err
}

// Complete returns the words that start with line, matched case
// insensitively and returned in the case the user typed.
func Complete(words []string, line string) []string {
	if line == "" {
		return nil
	}
	var out []string
	for _, w := range words {
		if len(w) >= len(line) && equalFold(w[:len(line)], line) {
			out = append(out, line+w[len(line):])
		}
	}
	return out
}

func equalFold(a, b string) bool {
	return bytes.EqualFold([]byte(a), []byte(b))
}
