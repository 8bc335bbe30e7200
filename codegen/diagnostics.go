// Copyright 2025 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package codegen

import (
	"fmt"

	"github.com/ethereum/go-evmasm/asm"
)

// Severity grades a diagnostic. Warnings never abort compilation; errors are
// surfaced to the user but generation of the current unit still runs to
// completion so that all problems are reported in one pass.
type Severity byte

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one user-facing finding, attached to the source location the
// code generator was working on when it was raised. Codes are stable across
// releases so tooling can filter on them.
type Diagnostic struct {
	Code     uint64
	Severity Severity
	Location asm.SourceLocation
	Message  string
}

func (d Diagnostic) String() string {
	if d.Location.IsValid() {
		return fmt.Sprintf("%s %d: %s (%s [%d:%d])",
			d.Severity, d.Code, d.Message, d.Location.Source, d.Location.Start, d.Location.End)
	}
	return fmt.Sprintf("%s %d: %s", d.Severity, d.Code, d.Message)
}

// ErrorReporter collects diagnostics during code generation.
type ErrorReporter struct {
	diags     []Diagnostic
	hasErrors bool
}

func NewErrorReporter() *ErrorReporter {
	return &ErrorReporter{}
}

// Warning records a non-fatal finding.
func (r *ErrorReporter) Warning(code uint64, loc asm.SourceLocation, message string) {
	r.diags = append(r.diags, Diagnostic{Code: code, Severity: SeverityWarning, Location: loc, Message: message})
}

// Error records a user error. Compilation of the unit continues so further
// problems are still reported.
func (r *ErrorReporter) Error(code uint64, loc asm.SourceLocation, message string) {
	r.diags = append(r.diags, Diagnostic{Code: code, Severity: SeverityError, Location: loc, Message: message})
	r.hasErrors = true
}

// Diagnostics returns everything recorded so far, in emission order.
func (r *ErrorReporter) Diagnostics() []Diagnostic {
	return r.diags
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (r *ErrorReporter) HasErrors() bool {
	return r.hasErrors
}
