package diagnostic

import (
	"errors"
	"slices"
	"strings"

	"composition-cache/internal/common"
)

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// Diagnostic is one finding about a catalog.
type Diagnostic struct {
	Severity Severity
	Code     string // kind of finding, e.g. "unresolved-member"
	Message  string
	Part     string // part type; empty for catalog-wide notes
	Token    string // token at fault, if any

	// Suggestions are close names still present in the loaded packages.
	Suggestions []string
}

// String formats the diagnostic as "[part] token: [code] message", leaving
// out whatever is empty.
func (d Diagnostic) String() string {
	var sb strings.Builder

	if d.Part != "" {
		sb.WriteString("[" + d.Part + "]")
	}

	if d.Token != "" {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(d.Token)
	}

	if sb.Len() > 0 {
		sb.WriteString(": ")
	}

	if d.Code != "" {
		sb.WriteString("[" + d.Code + "] ")
	}

	sb.WriteString(d.Message)

	return sb.String()
}

// Diagnostics groups findings by severity, each group in the order added.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Infos    []Diagnostic
}

// Add appends diag to the group of its severity.
func (d *Diagnostics) Add(diag Diagnostic) {
	switch diag.Severity {
	case SeverityError:
		d.Errors = append(d.Errors, diag)
	case SeverityWarning:
		d.Warnings = append(d.Warnings, diag)
	default:
		d.Infos = append(d.Infos, diag)
	}
}

// AddError records a token that no longer resolves.
func (d *Diagnostics) AddError(code, message, part, token string, suggestions ...string) {
	d.Add(Diagnostic{
		Severity:    SeverityError,
		Code:        code,
		Message:     message,
		Part:        part,
		Token:       token,
		Suggestions: suggestions,
	})
}

// AddWarning records a finding that does not invalidate the catalog.
func (d *Diagnostics) AddWarning(code, message, part, token string) {
	d.Add(Diagnostic{Severity: SeverityWarning, Code: code, Message: message, Part: part, Token: token})
}

// AddInfo records a note.
func (d *Diagnostics) AddInfo(code, message, part, token string) {
	d.Add(Diagnostic{Severity: SeverityInfo, Code: code, Message: message, Part: part, Token: token})
}

// Merge appends every group of other to d.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}

// HasErrors reports whether any error was recorded.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// IsValid is the negation of HasErrors.
func (d *Diagnostics) IsValid() bool {
	return !d.HasErrors()
}

// Len returns the number of findings of every severity.
func (d *Diagnostics) Len() int {
	return len(d.Errors) + len(d.Warnings) + len(d.Infos)
}

// All returns errors, then warnings, then infos.
func (d *Diagnostics) All() []Diagnostic {
	return slices.Concat(d.Errors, d.Warnings, d.Infos)
}

// Error joins the error findings into one error, or returns nil.
func (d *Diagnostics) Error() error {
	if d.IsValid() {
		return nil
	}

	errs := make([]error, 0, len(d.Errors))
	for _, e := range d.Errors {
		errs = append(errs, errors.New(e.String()))
	}

	return errors.Join(errs...)
}
