package rules

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/harrison/specgate/internal/document"
)

// StressReport is the outcome of the structural stress-test pass. Unlike the
// rule-engine checks, the probes here walk the Markdown heading structure:
// a section must actually exist as a heading and carry content, not merely be
// mentioned somewhere in the text.
type StressReport struct {
	InvariantViolations []string `json:"invariant_violations"`
	CriticalBlockers    []string `json:"critical_blockers"`
}

// Pass reports whether the stress test found nothing.
func (r *StressReport) Pass() bool {
	return len(r.InvariantViolations) == 0 && len(r.CriticalBlockers) == 0
}

// requiredSections must exist as headings with non-empty bodies.
var requiredSections = []string{
	"problem statement",
	"success criteria",
}

var unresolvedMarker = regexp.MustCompile(`\b(TODO|TBD|FIXME|XXX)\b`)

// StressTest runs the structural probes against a document, tracing each
// probe to output. Deterministic, like Evaluate.
func StressTest(doc *document.Document, output io.Writer) *StressReport {
	report := &StressReport{}

	for _, section := range requiredSections {
		if !doc.HasHeading(section) {
			msg := fmt.Sprintf("missing required section heading: %s", section)
			report.InvariantViolations = append(report.InvariantViolations, msg)
			fmt.Fprintf(output, "\x1b[31m✗\x1b[0m section %q missing\n", section)
			continue
		}

		body, _ := doc.SectionBody(section)
		if strings.TrimSpace(body) == "" {
			msg := fmt.Sprintf("required section is empty: %s", section)
			report.CriticalBlockers = append(report.CriticalBlockers, msg)
			fmt.Fprintf(output, "\x1b[31m✗\x1b[0m section %q is empty\n", section)
			continue
		}

		fmt.Fprintf(output, "\x1b[32m✓\x1b[0m section %q present\n", section)
	}

	markers := unresolvedMarker.FindAllString(doc.Text, -1)
	if len(markers) > 0 {
		counts := map[string]int{}
		order := []string{}
		for _, m := range markers {
			if counts[m] == 0 {
				order = append(order, m)
			}
			counts[m]++
		}
		for _, m := range order {
			msg := fmt.Sprintf("unresolved %s marker (%d occurrence(s))", m, counts[m])
			report.CriticalBlockers = append(report.CriticalBlockers, msg)
		}
		fmt.Fprintf(output, "\x1b[31m✗\x1b[0m %d unresolved marker(s) found\n", len(markers))
	} else {
		fmt.Fprintf(output, "\x1b[32m✓\x1b[0m no unresolved markers\n")
	}

	return report
}
