package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// confirm asks before a destructive action. --force skips the prompt and
// --no-input (or a non-interactive stdin) turns it into an error.
func confirm(flags *rootFlags, question string) error {
	if flags.Force {
		return nil
	}
	if flags.NoInput || !stdinIsTerminal() {
		return usage("refusing to proceed without confirmation (pass --force)")
	}
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	default:
		return &ExitError{Code: 1, Err: fmt.Errorf("cancelled")}
	}
}
