package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Warning prints a warning message to standard error.
func Warning(message string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), message)
}

// Error prints an error message to standard error.
func Error(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
}

// Fatal prints an error message to standard error and then terminates the
// process with the given exit code. The code is a parameter, rather than a
// fixed value, because callers built around the rsync engine's Code need to
// preserve the specific reason a job failed (bad magic, corruption, a
// missing basis) through to the process's exit status rather than
// collapsing every failure to a generic 1.
func Fatal(err error, code int) {
	Error(err)
	os.Exit(code)
}
