package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
)

func TestMainHelpDoesNotExit(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	for _, args := range [][]string{{"gmailbot", "--help"}, {"gmailbot", "--version"}} {
		os.Args = args
		main()
	}
}

func TestMainExitCodes(t *testing.T) {
	if args := os.Getenv("GMAILBOT_TEST_CHILD"); args != "" {
		os.Args = []string{"gmailbot", args}
		main()
		return
	}

	for _, tc := range []struct {
		arg  string
		want int
	}{
		{arg: "nope-nope-nope", want: 2},
		{arg: "--definitely-not-a-flag", want: 2},
	} {
		cmd := exec.CommandContext(context.Background(), os.Args[0], "-test.run", "^TestMainExitCodes$")
		cmd.Env = append(os.Environ(), "GMAILBOT_TEST_CHILD="+tc.arg)
		err := cmd.Run()
		if err == nil {
			t.Fatalf("%s: expected exit error", tc.arg)
		}
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			t.Fatalf("%s: unexpected err: %v", tc.arg, err)
		}
		if ee.ExitCode() != tc.want {
			t.Fatalf("%s: exit=%d want %d", tc.arg, ee.ExitCode(), tc.want)
		}
	}
}
