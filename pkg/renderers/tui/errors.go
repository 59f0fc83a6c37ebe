package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrCanceled is returned when the user picks "Cancel" from the
	// navigation menu.
	ErrCanceled = errors.New("tui: canceled")
)
