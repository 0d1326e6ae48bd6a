package rules

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harrison/specgate/internal/document"
)

func TestStressTestCleanSpec(t *testing.T) {
	doc := document.New("spec.md",
		"## Problem Statement\n\nusers cannot log in\n\n## Success Criteria\n\nlogin works\n")

	report := StressTest(doc, io.Discard)

	assert.True(t, report.Pass())
	assert.Empty(t, report.InvariantViolations)
	assert.Empty(t, report.CriticalBlockers)
}

func TestStressTestMentionIsNotAHeading(t *testing.T) {
	// The text-level checks accept a mere mention; the structural probe
	// requires an actual heading.
	doc := document.New("spec.md",
		"# Overview\n\nThe problem statement and success criteria are described elsewhere.\n")

	report := StressTest(doc, io.Discard)

	assert.False(t, report.Pass())
	assert.Len(t, report.InvariantViolations, 2)
	assert.Contains(t, report.InvariantViolations[0], "problem statement")
	assert.Contains(t, report.InvariantViolations[1], "success criteria")
}

func TestStressTestEmptySection(t *testing.T) {
	doc := document.New("spec.md",
		"## Problem Statement\n\n## Success Criteria\n\nlogin works\n")

	report := StressTest(doc, io.Discard)

	assert.False(t, report.Pass())
	assert.Empty(t, report.InvariantViolations)
	assert.Len(t, report.CriticalBlockers, 1)
	assert.Contains(t, report.CriticalBlockers[0], "problem statement")
}

func TestStressTestUnresolvedMarkers(t *testing.T) {
	doc := document.New("spec.md",
		"## Problem Statement\n\nTODO fill in\n\n## Success Criteria\n\nTBD\nTODO later\n")

	report := StressTest(doc, io.Discard)

	assert.False(t, report.Pass())
	assert.Contains(t, report.CriticalBlockers, "unresolved TODO marker (2 occurrence(s))")
	assert.Contains(t, report.CriticalBlockers, "unresolved TBD marker (1 occurrence(s))")
}

func TestStressTestTrace(t *testing.T) {
	var buf bytes.Buffer
	doc := document.New("spec.md",
		"## Problem Statement\n\nusers cannot log in\n\n## Success Criteria\n\nlogin works\n")

	StressTest(doc, &buf)

	out := buf.String()
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "no unresolved markers")
}

func TestStressTestIsDeterministic(t *testing.T) {
	doc := document.New("spec.md", "# Overview\n\nTODO everything\n")

	first := StressTest(doc, io.Discard)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, StressTest(doc, io.Discard))
	}
}
