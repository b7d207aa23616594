package errors

import (
	"fmt"
)

// InvalidChangeError indicates that a change does not fit the document it was applied to.
type InvalidChangeError struct {
	From    int
	To      int
	Length  int
	Overlap bool
}

// Error is an implementation of the error interface.
func (n *InvalidChangeError) Error() string {
	if n.Overlap {
		return fmt.Sprintf("change [%d, %d) overlaps a previous change", n.From, n.To)
	}
	return fmt.Sprintf("change [%d, %d) is outside document of length %d", n.From, n.To, n.Length)
}

// NilDocumentError indicates that an operation requiring a live document received none.
type NilDocumentError struct{}

// Error is an implementation of the error interface.
func (n *NilDocumentError) Error() string {
	return "no live document provided"
}

// CheckerError indicates that the external checker could not be run.
type CheckerError struct {
	Command  []string
	ExitCode int
	Stderr   string
}

// Error is an implementation of the error interface.
func (n *CheckerError) Error() string {
	return fmt.Sprintf("checker %q exited with code %d: %s", n.Command, n.ExitCode, n.Stderr)
}
