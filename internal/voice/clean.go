package voice

import (
	"regexp"
	"strings"
)

var (
	// annotation matches whisper's sound descriptions: "(water running)",
	// "[BLANK_AUDIO]", "[Music]".
	annotation = regexp.MustCompile(`[\(\[][A-Za-z][A-Za-z_\s]*[\)\]]`)

	// timestamp matches a leading "[00:00:00.000 --> 00:00:02.000]".
	timestamp = regexp.MustCompile(`^\[[0-9:.]+\s*-->\s*[0-9:.]+\]`)

	spaces = regexp.MustCompile(`\s+`)
)

// hallucinations are what whisper produces from silence.
var hallucinations = map[string]bool{
	"...":                     true,
	"you":                     true,
	"thank you.":              true,
	"thank you":               true,
	"thanks for watching!":    true,
	"thank you for watching.": true,
	"bye.":                    true,
	"bye!":                    true,
	"the end.":                true,
}

// cleanTranscription reduces raw whisper output to what the cook said, or
// "" when nothing was said.
func cleanTranscription(s string) string {
	s = timestamp.ReplaceAllString(strings.TrimSpace(s), "")
	s = annotation.ReplaceAllString(s, "")
	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))
	if hallucinations[strings.ToLower(s)] {
		return ""
	}
	return s
}
