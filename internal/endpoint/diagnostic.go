package endpoint

import (
	"fmt"
	"go/token"
)

// DiagnosticKind identifies a recoverable analysis failure. Both kinds
// exclude the call site from generated dispatch; the route is then served by
// the reflective path at run time.
type DiagnosticKind int

const (
	// UnableToResolveRoutePattern: the route argument is not a constant
	// string.
	UnableToResolveRoutePattern DiagnosticKind = iota + 1
	// UnableToResolveMethod: the handler argument could not be traced to a
	// function.
	UnableToResolveMethod
)

// Code is the stable identifier printed with the diagnostic.
func (k DiagnosticKind) Code() string {
	switch k {
	case UnableToResolveRoutePattern:
		return "RG001"
	case UnableToResolveMethod:
		return "RG002"
	default:
		return "RG000"
	}
}

func (k DiagnosticKind) String() string {
	switch k {
	case UnableToResolveRoutePattern:
		return "UnableToResolveRoutePattern"
	case UnableToResolveMethod:
		return "UnableToResolveMethod"
	default:
		return fmt.Sprintf("DiagnosticKind(%d)", int(k))
	}
}

// Severity of a diagnostic. Only warnings exist today.
type Severity int

const (
	SeverityWarning Severity = iota
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "unknown"
}

// Diagnostic is one analysis failure recorded on a model.
type Diagnostic struct {
	Kind     DiagnosticKind
	Severity Severity

	// At is the offending syntax: the argument, or the call when the
	// argument is missing.
	At token.Pos

	// File and Line name the call site: its file and the 1-based line the
	// call ends on.
	File string
	Line int

	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s: %s %s", d.File, d.Line, d.Severity, d.Kind.Code(), d.Message)
}

func newDiagnostic(site CallSite, kind DiagnosticKind, at token.Pos, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:     kind,
		Severity: SeverityWarning,
		At:       at,
		File:     site.File,
		Line:     site.EndLine,
		Message:  fmt.Sprintf(format, args...),
	}
}
