// Package entity contains the domain types for the playground service.
package entity

import (
	"fmt"
)

// Severity is the severity reported by the checker for a diagnostic.
type Severity string

const (
	// SeverityError marks a diagnostic that prevents the model from running.
	SeverityError Severity = "error"
	// SeverityWarning marks an advisory diagnostic.
	SeverityWarning Severity = "warning"
)

// Label returns the capitalised name used in display text.
func (s Severity) Label() string {
	if s == SeverityError {
		return "Error"
	}
	return "Warning"
}

// Class returns the decoration class used to render the severity.
func (s Severity) Class() string {
	if s == SeverityError {
		return "cm-mzn-underline-error"
	}
	return "cm-mzn-underline-warning"
}

// Location is a 1-based, inclusive range reported by the checker.
type Location struct {
	Filename    string `json:"filename,omitempty" zap:"filename"`
	FirstLine   int    `json:"firstLine" zap:"firstLine"`
	FirstColumn int    `json:"firstColumn" zap:"firstColumn"`
	LastLine    int    `json:"lastLine" zap:"lastLine"`
	LastColumn  int    `json:"lastColumn" zap:"lastColumn"`
}

// Diagnostic is an error or warning produced by the checker for one text snapshot.
type Diagnostic struct {
	Severity Severity `json:"type" zap:"type"`
	Location Location `json:"location" zap:"location"`
	What     string   `json:"what" zap:"what"`
	Message  string   `json:"message" zap:"message"`
}

// DisplayText returns the text shown for the diagnostic, e.g. "Error: type error: undefined identifier".
func (d Diagnostic) DisplayText() string {
	return fmt.Sprintf("%s: %s: %s", d.Severity.Label(), d.What, d.Message)
}

// Decoration is the rendered form of an annotation.
type Decoration struct {
	From  int    `json:"from" zap:"from"`
	To    int    `json:"to" zap:"to"`
	Class string `json:"class" zap:"class"`
	Title string `json:"title" zap:"title"`
}
