package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/geopost/geopost-cli/internal/iocontext"
)

var errNoInput = errors.New("input required but prompting is disabled (--no-input)")

var (
	promptReaderMu     sync.Mutex
	promptReader       *bufio.Reader
	promptReaderSource io.Reader
)

// getPromptReader keeps one buffered reader per input so that consecutive
// prompts do not lose buffered bytes.
func getPromptReader(in io.Reader) *bufio.Reader {
	promptReaderMu.Lock()
	defer promptReaderMu.Unlock()
	if promptReader == nil || promptReaderSource != in {
		promptReader = bufio.NewReader(in)
		promptReaderSource = in
	}
	return promptReader
}

func readLine(in io.Reader) (string, error) {
	line, err := getPromptReader(in).ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptLine asks for a visible value on stderr.
func promptLine(ctx context.Context, label string) (string, error) {
	if flags.NoInput {
		return "", errNoInput
	}
	streams := iocontext.GetIO(ctx)
	_, _ = fmt.Fprintf(streams.ErrOut, "%s: ", label)
	value, err := readLine(streams.In)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(value), nil
}

// promptPassword reads a secret without echo when stdin is a terminal, and
// a plain line otherwise (pipes, tests).
func promptPassword(ctx context.Context, label string) (string, error) {
	if flags.NoInput {
		return "", errNoInput
	}
	streams := iocontext.GetIO(ctx)
	_, _ = fmt.Fprintf(streams.ErrOut, "%s: ", label)

	if streams.InIsTerminal() {
		raw, err := term.ReadPassword(streams.InFd())
		_, _ = fmt.Fprintln(streams.ErrOut)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
		}
		return string(raw), nil
	}
	value, err := readLine(streams.In)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return value, nil
}

// confirm asks a yes/no question; --yes style callers pass force.
func confirm(ctx context.Context, question string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	answer, err := promptLine(ctx, question+" [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
