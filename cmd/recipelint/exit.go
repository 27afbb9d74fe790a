package main

import (
	"errors"
	"fmt"
	"io"
)

// Exit codes.
const (
	exitValid   = 0
	exitInvalid = 1
	exitFailure = 2 // usage, configuration or I/O problem
)

// exitError is an error that carries an exit code. An exitError without a
// message is silent: the command already reported what went wrong.
type exitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *exitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *exitError) Unwrap() error {
	return e.Cause
}

func failure(msg string, cause error) *exitError {
	return &exitError{Code: exitFailure, Message: msg, Cause: cause}
}

// exitCode reports err on stderr and maps it to a process exit code.
// Errors that are not exitErrors come from cobra argument parsing.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitValid
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.Message != "" {
			fmt.Fprintln(stderr, renderError(ee.Error()))
		}
		return ee.Code
	}
	fmt.Fprintln(stderr, renderError(err.Error()))
	return exitFailure
}
