package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/harrison/specgate/internal/document"
)

// CheckOptions holds the tunable thresholds for the built-in checks.
// Zero values fall back to the defaults observed in practice.
type CheckOptions struct {
	// MinWords is the minimum word count for MinimumLength.
	MinWords int
	// VagueTermThreshold is the number of vague-term occurrences above which
	// VagueTermDensity fails.
	VagueTermThreshold int
	// ExtraVagueTerms are appended to the built-in vague-term list.
	ExtraVagueTerms []string
}

// DefaultCheckOptions returns the standard thresholds.
func DefaultCheckOptions() CheckOptions {
	return CheckOptions{
		MinWords:           100,
		VagueTermThreshold: 3,
	}
}

// defaultVagueTerms are words that signal an underspecified requirement.
var defaultVagueTerms = []string{
	"properly",
	"efficiently",
	"adequate",
	"appropriate",
	"robust",
	"seamless",
	"flexible",
	"optimal",
	"user-friendly",
	"as needed",
}

// Patterns are matched against the raw document text, including code fences
// and comments. False positives from markup are an accepted limitation.
var (
	problemStatementPattern = regexp.MustCompile(`(?i)problem\s+statement`)
	successCriteriaPattern  = regexp.MustCompile(`(?i)(success|acceptance)\s+criteria`)
	scopeBoundaryPattern    = regexp.MustCompile(`(?i)(scope|boundar|non-goal)`)
	testingPattern          = regexp.MustCompile(`(?i)(test|verif|validat)`)
)

// BuiltinChecks returns the standard structural checks for specification
// documents, in trace order.
func BuiltinChecks(opts CheckOptions) []Check {
	if opts.MinWords == 0 {
		opts.MinWords = 100
	}
	if opts.VagueTermThreshold == 0 {
		opts.VagueTermThreshold = 3
	}
	vagueTerms := append(append([]string{}, defaultVagueTerms...), opts.ExtraVagueTerms...)

	return []Check{
		{
			Name:     "ProblemStatementPresent",
			Severity: SeverityBlocking,
			FixHint:  "Add a '## Problem Statement' section describing what problem this solves",
			Predicate: func(doc *document.Document) bool {
				return problemStatementPattern.MatchString(doc.Text)
			},
		},
		{
			Name:     "SuccessCriteriaPresent",
			Severity: SeverityBlocking,
			FixHint:  "Add a '## Success Criteria' section with measurable acceptance criteria",
			Predicate: func(doc *document.Document) bool {
				return successCriteriaPattern.MatchString(doc.Text)
			},
		},
		{
			Name:     "MinimumLength",
			Severity: SeverityBlocking,
			FixHint:  fmt.Sprintf("Expand the spec to at least %d words", opts.MinWords),
			Predicate: func(doc *document.Document) bool {
				return doc.WordCount() >= opts.MinWords
			},
		},
		{
			Name:     "ScopeBoundariesPresent",
			Severity: SeverityWarning,
			FixHint:  "State what is out of scope (a 'Scope' or 'Non-goals' section)",
			Predicate: func(doc *document.Document) bool {
				return scopeBoundaryPattern.MatchString(doc.Text)
			},
		},
		{
			Name:     "TestingMentioned",
			Severity: SeverityWarning,
			FixHint:  "Describe how the result will be tested or verified",
			Predicate: func(doc *document.Document) bool {
				return testingPattern.MatchString(doc.Text)
			},
		},
		{
			Name:     "VagueTermDensity",
			Severity: SeverityWarning,
			FixHint:  fmt.Sprintf("Replace vague terms (%s, ...) with concrete requirements", strings.Join(vagueTerms[:3], ", ")),
			Predicate: func(doc *document.Document) bool {
				return CountVagueTerms(doc.Text, vagueTerms) <= opts.VagueTermThreshold
			},
		},
	}
}

// CountVagueTerms counts case-insensitive substring occurrences of the given
// terms in the text. Substring matching means "adequate" also counts
// "adequately"; that over-count is intentional.
func CountVagueTerms(text string, terms []string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, term := range terms {
		count += strings.Count(lower, strings.ToLower(term))
	}
	return count
}
