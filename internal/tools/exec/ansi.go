package exec

import "regexp"

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// stripANSI removes terminal escape sequences so the summary the model
// sees is plain text, not raw color codes.
func stripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}
