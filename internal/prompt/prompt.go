// Package prompt implements the interactive questions asked by tt: yes/no
// confirmation, a file path with tab completion, and selection from a
// list of options. Prompts are written to stderr so stdout stays clean.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
)

// ErrAborted is returned when the user interrupts a prompt with Ctrl+C or
// closes input.
var ErrAborted = errors.New("prompt aborted")

// Readline asks questions on a terminal.
type Readline struct {
	stdin  io.ReadCloser
	output io.Writer
}

// New returns a Readline prompter reading stdin and writing to stderr.
func New() *Readline {
	return &Readline{output: os.Stderr}
}

// NewWithIO returns a prompter bound to the given streams.
func NewWithIO(in io.ReadCloser, out io.Writer) *Readline {
	return &Readline{stdin: in, output: out}
}

func (p *Readline) readLine(prompt string, completer readline.AutoCompleter) (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		Stdin:           p.stdin,
		Stdout:          p.output,
		Stderr:          p.output,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return "", fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", ErrAborted
	}
	if err != nil {
		return "", fmt.Errorf("readline error: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Interactive reports whether stdin is a terminal a user can answer on.
func Interactive() bool {
	return readline.IsTerminal(int(os.Stdin.Fd()))
}

// Confirm asks a yes/no question. An empty answer selects def.
func (p *Readline) Confirm(question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for {
		answer, err := p.readLine(fmt.Sprintf("? %s %s ", question, hint), nil)
		if err != nil {
			return false, err
		}
		if v, ok := parseConfirm(answer, def); ok {
			return v, nil
		}
		fmt.Fprintln(p.output, "Please answer y or n.")
	}
}

// Path asks for a file system path, completing names with Tab.
func (p *Readline) Path(question string) (string, error) {
	return p.readLine(fmt.Sprintf("? %s ", question), PathCompleter{})
}

// Select asks for one of options, by number or by name.
func (p *Readline) Select(question string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("no options to select from")
	}
	p.printOptions(question, options)
	for {
		answer, err := p.readLine("> ", readline.NewPrefixCompleter(items(options)...))
		if err != nil {
			return "", err
		}
		choice, err := matchOption(answer, options)
		if err == nil {
			return choice, nil
		}
		fmt.Fprintln(p.output, err)
	}
}

// MultiSelect asks for a comma separated list of options by number or name.
// "all" selects every option.
func (p *Readline) MultiSelect(question string, options []string) ([]string, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("no options to select from")
	}
	p.printOptions(question, options)
	for {
		answer, err := p.readLine("> ", nil)
		if err != nil {
			return nil, err
		}
		choices, err := parseSelection(answer, options)
		if err == nil {
			return choices, nil
		}
		fmt.Fprintln(p.output, err)
	}
}

func (p *Readline) printOptions(question string, options []string) {
	fmt.Fprintf(p.output, "? %s\n", question)
	width := len(strconv.Itoa(len(options)))
	for i, opt := range options {
		fmt.Fprintf(p.output, "  %*d) %s\n", width, i+1, opt)
	}
}

func items(options []string) []readline.PrefixCompleterInterface {
	out := make([]readline.PrefixCompleterInterface, len(options))
	for i, opt := range options {
		out[i] = readline.PcItem(opt)
	}
	return out
}

func parseConfirm(answer string, def bool) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "":
		return def, true
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	default:
		return false, false
	}
}

func matchOption(answer string, options []string) (string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("please choose an option")
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n < 1 || n > len(options) {
			return "", fmt.Errorf("choose a number between 1 and %d", len(options))
		}
		return options[n-1], nil
	}
	for _, opt := range options {
		if opt == answer {
			return opt, nil
		}
	}

	var matches []string
	for _, opt := range options {
		if strings.Contains(opt, answer) {
			matches = append(matches, opt)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no option matches %q", answer)
	default:
		return "", fmt.Errorf("%q matches %d options, be more specific", answer, len(matches))
	}
}

func parseSelection(answer string, options []string) ([]string, error) {
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, "all") {
		return append([]string(nil), options...), nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(answer, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		choice, err := matchOption(part, options)
		if err != nil {
			return nil, err
		}
		if !seen[choice] {
			seen[choice] = true
			out = append(out, choice)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("please choose at least one option")
	}
	return out, nil
}
