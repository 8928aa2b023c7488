package exec

import (
	"strconv"
	"strings"
)

// maxSummaryTokens bounds the truncated summary sent to the model; the
// estimate uses a 4-char/token rule of thumb rather than a real
// tokenizer, matching the approximation the source edit-tool scenarios
// assume is good enough for a truncation decision.
const maxSummaryTokens = 10000

// summarize renders output as the first head lines plus the last tail
// lines, further trimmed to stay under maxSummaryTokens*4 characters.
// Output shorter than head+tail lines is returned unchanged.
func summarize(output string, head, tail int) string {
	clean := stripANSI(output)
	lines := strings.Split(strings.TrimRight(clean, "\n"), "\n")
	if len(lines) <= head+tail {
		return capChars(clean, maxSummaryTokens*4)
	}
	first := lines[:head]
	last := lines[len(lines)-tail:]
	omitted := len(lines) - head - tail
	var b strings.Builder
	b.WriteString(strings.Join(first, "\n"))
	b.WriteString("\n… (")
	b.WriteString(strconv.Itoa(omitted))
	b.WriteString(" lines omitted) …\n")
	b.WriteString(strings.Join(last, "\n"))
	return capChars(b.String(), maxSummaryTokens*4)
}

func capChars(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n… (truncated)"
}
