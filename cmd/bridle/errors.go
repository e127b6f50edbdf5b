package main

import (
	"fmt"

	"bridle/internal/protocol"
)

// Exit codes for CLI commands.
const (
	exitSuccess          = 0
	exitError            = 1
	exitDaemonNotRunning = 2
	exitStaleRef         = 3
	exitUnsupported      = 4
	exitTimeout          = 5
)

// ExitError represents an error that should cause the process to exit with a specific code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func errDaemonNotRunning(session string) *ExitError {
	return &ExitError{
		Code:    exitDaemonNotRunning,
		Message: fmt.Sprintf("No daemon is running for session '%s'.\nRun: bridle start", session),
	}
}

// errFromResponse maps a structured daemon error onto an exit code.
func errFromResponse(respErr *protocol.Error) *ExitError {
	if respErr == nil {
		return &ExitError{Code: exitError, Message: "daemon reported failure without details"}
	}
	code := exitError
	switch respErr.Kind {
	case protocol.KindStaleRef:
		code = exitStaleRef
	case protocol.KindUnsupported:
		code = exitUnsupported
	case protocol.KindTimeout:
		code = exitTimeout
	}
	return &ExitError{Code: code, Message: respErr.Message}
}
