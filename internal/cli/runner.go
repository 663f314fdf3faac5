package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/idilsaglam/tada/internal/ui"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// exitError carries the message and exit code for a failed command.
type exitError struct {
	code int
	msg  string
	hint string
}

func (e *exitError) Error() string { return e.msg }

func usageErr(format string, a ...any) error {
	return &exitError{code: ExitUsage, msg: fmt.Sprintf(format, a...)}
}

func runtimeErr(format string, a ...any) error {
	return &exitError{code: ExitError, msg: fmt.Sprintf(format, a...)}
}

// Run executes the command line and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	if len(args) == 0 {
		_ = root.Help()
		return ExitUsage
	}
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		ui.Fail(stderr, ee.msg)
		if ee.hint != "" {
			ui.Hint(stderr, ee.hint)
		}
		return ee.code
	}

	// Flag and unknown-command errors from cobra.
	ui.Fail(stderr, err.Error())
	fmt.Fprintln(stderr)
	root.SetOut(stderr)
	_ = root.Usage()
	return ExitUsage
}
