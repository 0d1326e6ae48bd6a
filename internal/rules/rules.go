// Package rules implements the deterministic rule engine: a static registry
// of named checks evaluated against a document, producing a pass/fail verdict
// per check and an aggregate report.
package rules

import (
	"fmt"
	"io"

	"github.com/harrison/specgate/internal/document"
)

// Severity classifies a check. Blocking failures flip the overall verdict;
// warning failures are reported but never block.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityWarning  Severity = "warning"
)

// Check is a named, pure predicate over a document. Checks are data records
// registered in a list; adding a check never touches engine control flow.
type Check struct {
	Name      string
	Severity  Severity
	FixHint   string
	Predicate func(*document.Document) bool // true = pass
}

// CheckResult is the outcome of one check for one document.
type CheckResult struct {
	Check    string   `json:"check"`
	Passed   bool     `json:"passed"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Report aggregates all check results for one document at one point in time.
// OverallPass is true iff Violations is empty; warnings never block.
type Report struct {
	Violations  []CheckResult `json:"violations"`
	Warnings    []CheckResult `json:"warnings"`
	OverallPass bool          `json:"overall_pass"`
}

// ViolationNames returns the names of failed blocking checks in check order.
func (r *Report) ViolationNames() []string {
	return resultNames(r.Violations)
}

// WarningNames returns the names of failed warning checks in check order.
func (r *Report) WarningNames() []string {
	return resultNames(r.Warnings)
}

func resultNames(results []CheckResult) []string {
	names := make([]string, 0, len(results))
	for _, res := range results {
		names = append(names, res.Check)
	}
	return names
}

// Engine evaluates a fixed, ordered list of checks against documents.
// Engines are immutable after construction and safe for concurrent use.
type Engine struct {
	checks []Check
}

// NewEngine creates an engine over the given checks. Check order is the
// trace order; it has no semantic effect.
func NewEngine(checks []Check) *Engine {
	return &Engine{checks: checks}
}

// Checks returns the registered checks.
func (e *Engine) Checks() []Check {
	return e.checks
}

// Evaluate runs every registered check against the document and returns the
// aggregate report. A ✓/✗ line per check is written to output as each check
// runs; failures include the fix hint. Evaluate is pure with respect to the
// report: the same document text always yields the same Report.
func (e *Engine) Evaluate(doc *document.Document, output io.Writer) *Report {
	report := &Report{}

	for _, check := range e.checks {
		passed := check.Predicate(doc)
		result := CheckResult{
			Check:    check.Name,
			Passed:   passed,
			Severity: check.Severity,
			Message:  check.FixHint,
		}

		if passed {
			fmt.Fprintf(output, "\x1b[32m✓\x1b[0m %s\n", check.Name)
			continue
		}

		switch check.Severity {
		case SeverityBlocking:
			fmt.Fprintf(output, "\x1b[31m✗\x1b[0m %s\n    Fix: %s\n", check.Name, check.FixHint)
			report.Violations = append(report.Violations, result)
		case SeverityWarning:
			fmt.Fprintf(output, "\x1b[33m⚠\x1b[0m %s\n    Fix: %s\n", check.Name, check.FixHint)
			report.Warnings = append(report.Warnings, result)
		}
	}

	report.OverallPass = len(report.Violations) == 0
	return report
}
