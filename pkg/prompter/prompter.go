package prompter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"
)

var (
	mu     sync.Mutex
	reader = bufio.NewReader(os.Stdin)
	prompt io.Writer = os.Stderr
	stdin            = os.Stdin
)

// SetIO replaces the prompt input and output. Hidden input falls back to a
// plain line read when in is not a terminal.
func SetIO(in io.Reader, out io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	reader = bufio.NewReader(in)
	prompt = out
	if f, ok := in.(*os.File); ok {
		stdin = f
	} else {
		stdin = nil
	}
}

func readLine() (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PromptString prompts user for a string input
func PromptString(label string) (string, error) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprint(prompt, label)
	line, err := readLine()
	return strings.TrimSpace(line), err
}

// PromptDefault prompts for a string, returning def on an empty answer
func PromptDefault(label, def string) (string, error) {
	if def != "" {
		label = fmt.Sprintf("%s [%s]: ", strings.TrimRight(label, ": "), def)
	}
	s, err := PromptString(label)
	if err != nil {
		return "", err
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

// PromptPassword prompts user for a password (hidden input)
func PromptPassword(label string) (string, error) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprint(prompt, label)

	if stdin != nil && term.IsTerminal(int(stdin.Fd())) {
		pw, err := term.ReadPassword(int(stdin.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	return readLine()
}

// PromptConfirm prompts user for yes/no confirmation
func PromptConfirm(label string) (bool, error) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprint(prompt, label+" (y/n) ")
	line, err := readLine()
	if err != nil {
		return false, err
	}

	response := strings.TrimSpace(strings.ToLower(line))
	return response == "y" || response == "yes", nil
}

// PromptSelect prompts user to select from options
func PromptSelect(label string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errors.New("nothing to select")
	}

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(prompt, label)
	for i, opt := range options {
		fmt.Fprintf(prompt, "%d) %s\n", i+1, opt)
	}
	fmt.Fprint(prompt, "Select option: ")

	line, err := readLine()
	if err != nil {
		return -1, err
	}
	selection, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return -1, fmt.Errorf("invalid selection %q", strings.TrimSpace(line))
	}
	if selection < 1 || selection > len(options) {
		return -1, fmt.Errorf("invalid selection")
	}
	return selection - 1, nil
}

// PromptMultilineString reads lines until an empty line or maxLines
func PromptMultilineString(label string, maxLines int) (string, error) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(prompt, "%s (empty line to finish):\n", label)

	var lines []string
	for i := 0; i < maxLines; i++ {
		line, err := readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
